package host

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/internal/testutil"
	"github.com/reglet-dev/crfsuite-go/log"
	"github.com/reglet-dev/crfsuite-go/wireformat"
)

func TestNewExecutor(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx, WithMemoryLimitPages(512))
	assert.NoError(t, err)
	assert.NotNil(t, e)
	if e != nil {
		err := e.Close(ctx)
		assert.NoError(t, err)
	}
}

func TestLoad_InvalidModules(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	require.NoError(t, err)
	defer e.Close(ctx)

	_, err = e.Load(ctx, []byte("not wasm"))
	assert.ErrorContains(t, err, "failed to compile module")

	// An empty module instantiates but exports nothing.
	_, err = e.Load(ctx, []byte("\x00asm\x01\x00\x00\x00"))
	assert.ErrorContains(t, err, `guest does not export "allocate"`)
}

func TestEmitGuestLog(t *testing.T) {
	var payload []byte
	guest := slog.New(log.NewHandler(log.WithSink(func(b []byte) { payload = b })))
	guest.With("session", "s1").Info("training finished", "iterations", 3)
	require.NotEmpty(t, payload)

	var buf bytes.Buffer
	emitGuestLog(context.Background(), log.NewWriter(&buf, slog.LevelDebug), payload)
	out := buf.String()
	assert.Contains(t, out, `msg="training finished"`)
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "source=guest")
	assert.Contains(t, out, "session=s1")
	assert.Contains(t, out, "iterations=3")

	buf.Reset()
	emitGuestLog(context.Background(), log.NewWriter(&buf, slog.LevelDebug), []byte("{"))
	assert.Contains(t, buf.String(), "undecodable guest log message")
}

// guestModule builds cmd/crfsuite-wasm for wasip1, or reads the prebuilt
// binary named by CRFSUITE_WASM.
func guestModule(t *testing.T) []byte {
	t.Helper()
	path := os.Getenv("CRFSUITE_WASM")
	if path == "" {
		goBin, err := exec.LookPath("go")
		if err != nil {
			t.Skip("go toolchain not available to build the guest")
		}
		path = filepath.Join(t.TempDir(), "crfsuite.wasm")
		cmd := exec.Command(goBin, "build", "-buildmode=c-shared", "-o", path, "../cmd/crfsuite-wasm")
		cmd.Env = append(os.Environ(), "GOOS=wasip1", "GOARCH=wasm")
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "building guest: %s", out)
	}
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestInstance_TrainAndTag(t *testing.T) {
	wasm := guestModule(t)
	ctx := context.Background()
	dir := t.TempDir()

	var logs bytes.Buffer
	e, err := NewExecutor(ctx, WithDir(dir), WithLogger(log.NewWriter(&logs, slog.LevelInfo)))
	require.NoError(t, err)
	defer e.Close(ctx)
	inst, err := e.Load(ctx, wasm)
	require.NoError(t, err)

	items, labels := testutil.WeatherItems(), testutil.WeatherLabels()

	tr, err := inst.TrainerCreate(ctx, true)
	require.NoError(t, err)
	alg, err := inst.TrainerAlgorithm(ctx, tr)
	require.NoError(t, err)
	assert.Empty(t, alg)

	err = inst.TrainerTrain(ctx, tr, "/weather.model", -1)
	var detail *wireformat.ErrorDetail
	require.ErrorAs(t, err, &detail)
	assert.Equal(t, "algorithm_not_selected", detail.Code)
	assert.Equal(t, uint32(entities.ErrorCodeEngine), detail.ErrorCode)

	require.NoError(t, inst.TrainerSelect(ctx, tr, "lbfgs"))
	require.NoError(t, inst.TrainerSet(ctx, tr, "c2", "0.01"))
	c2, err := inst.TrainerGet(ctx, tr, "c2")
	require.NoError(t, err)
	assert.Equal(t, "0.01", c2)
	help, err := inst.TrainerHelp(ctx, tr, "c2")
	require.NoError(t, err)
	assert.Contains(t, help, "L2")
	params, err := inst.TrainerParams(ctx, tr)
	require.NoError(t, err)
	assert.Contains(t, params, "num_memories")

	assert.Error(t, inst.TrainerAppend(ctx, tr, items, labels[:3], 0))
	require.NoError(t, inst.TrainerAppend(ctx, tr, items, labels, 0))
	n, err := inst.TrainerNumInstances(ctx, tr)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, inst.TrainerTrain(ctx, tr, "/weather.model", -1))
	report, err := inst.TrainerReport(ctx, tr)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "/weather.model", report.ModelPath)
	assert.NotEmpty(t, report.RunID)
	require.NoError(t, inst.TrainerDestroy(ctx, tr))
	assert.Contains(t, logs.String(), "source=guest")

	m, err := inst.ModelOpen(ctx, "/weather.model")
	require.NoError(t, err)
	modelLabels, err := inst.ModelLabels(ctx, m)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sunny", "rainy"}, modelLabels)

	tg, err := inst.TaggerCreate(ctx, m)
	require.NoError(t, err)
	require.NoError(t, inst.ModelDestroy(ctx, m))

	got, err := inst.TaggerTag(ctx, tg, items)
	require.NoError(t, err)
	require.Len(t, got, len(items))
	assert.Equal(t, labels, got)

	p, err := inst.TaggerProbability(ctx, tg, items, labels)
	require.NoError(t, err)
	testutil.AssertProbability(t, p)
	mg, err := inst.TaggerMarginal(ctx, tg, items, "rainy", 3)
	require.NoError(t, err)
	testutil.AssertProbability(t, mg)

	_, err = inst.TaggerTag(ctx, tg, nil)
	require.Error(t, err)
	code, err := inst.ErrLastCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.ErrorCodeEngine, code)
	msg, err := inst.ErrLastMessage(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, msg)
	require.NoError(t, inst.ErrClear(ctx))
	msg, err = inst.ErrLastMessage(ctx)
	require.NoError(t, err)
	assert.Empty(t, msg)

	require.NoError(t, inst.TaggerDestroy(ctx, tg))

	data, err := os.ReadFile(filepath.Join(dir, "weather.model"))
	require.NoError(t, err)
	m2, err := inst.ModelFromBytes(ctx, data)
	require.NoError(t, err)
	require.NoError(t, inst.ModelDump(ctx, m2, "/weather.txt"))
	dump, err := os.ReadFile(filepath.Join(dir, "weather.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(dump), "FILEHEADER")
	require.NoError(t, inst.ModelDestroy(ctx, m2))

	_, err = inst.ModelFromBytes(ctx, []byte("garbage"))
	require.ErrorAs(t, err, &detail)
	assert.Equal(t, "invalid_model", detail.Code)
	require.NoError(t, inst.Close(ctx))
}
