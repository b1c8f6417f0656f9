package ffi

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/domain/errors"
	"github.com/reglet-dev/crfsuite-go/domain/ports"
	"github.com/reglet-dev/crfsuite-go/internal/abi"
	"github.com/reglet-dev/crfsuite-go/log"
)

type trainerState struct {
	trainer ports.Trainer
	logger  *slog.Logger
	names   map[entities.Algorithm]abi.Str
	report  *entities.TrainingReport
}

func (c *Caller) trainer(h Handle) (*trainerState, error) {
	obj, ok := c.lib.handles.get(h, kindTrainer)
	if !ok {
		return nil, errors.InvalidHandle(kindTrainer.String(), uint64(h))
	}
	return obj.(*trainerState), nil
}

// withTrainer runs fn as operation op against the trainer behind t.
func (c *Caller) withTrainer(op string, t Handle, fn func(ts *trainerState) error) bool {
	return c.invoke(op, func(CallContext) error {
		ts, err := c.trainer(t)
		if err != nil {
			return err
		}
		return fn(ts)
	})
}

// TrainerCreate starts a training session. With verbose, training progress
// is logged through the library logger.
func (c *Caller) TrainerCreate(verbose bool) Handle {
	var h Handle
	c.invoke("trainer_create", func(CallContext) error {
		logger := log.NewNop()
		if verbose {
			logger = c.lib.logger.With("session", uuid.NewString())
		}
		ts := &trainerState{
			trainer: c.lib.engine.NewTrainer(logger),
			logger:  logger,
			names:   make(map[entities.Algorithm]abi.Str),
		}
		h = c.lib.handles.insert(kindTrainer, ts)
		return nil
	})
	return h
}

// TrainerSelect chooses the training algorithm by name or alias and resets
// the parameters to its defaults.
func (c *Caller) TrainerSelect(t Handle, name string) bool {
	return c.withTrainer("trainer_select", t, func(ts *trainerState) error {
		alg, err := entities.ParseAlgorithm(name)
		if err != nil {
			return errors.Wrap(errors.KindInvalidArgument, err, "failed to select algorithm")
		}
		return ts.trainer.Select(alg)
	})
}

// TrainerSelectModel is TrainerSelect with an explicit graphical model.
// Only crf1d exists.
func (c *Caller) TrainerSelectModel(t Handle, name, graphicalModel string) bool {
	return c.withTrainer("trainer_select", t, func(ts *trainerState) error {
		if _, err := entities.ParseGraphicalModel(graphicalModel); err != nil {
			return errors.Wrap(errors.KindInvalidArgument, err, "failed to select graphical model")
		}
		alg, err := entities.ParseAlgorithm(name)
		if err != nil {
			return errors.Wrap(errors.KindInvalidArgument, err, "failed to select algorithm")
		}
		return ts.trainer.Select(alg)
	})
}

// TrainerClear discards appended sequences. Algorithm and parameters are
// kept.
func (c *Caller) TrainerClear(t Handle) bool {
	return c.withTrainer("trainer_clear", t, func(ts *trainerState) error {
		ts.trainer.Clear()
		return nil
	})
}

func (c *Caller) appendInstance(t Handle, decode func() (entities.Instance, error)) bool {
	return c.withTrainer("trainer_append", t, func(ts *trainerState) error {
		inst, err := decode()
		if err != nil {
			return err
		}
		return ts.trainer.Append(inst)
	})
}

// TrainerAppend adds one labeled sequence in holdout group group. A failed
// append leaves the session unchanged.
func (c *Caller) TrainerAppend(t Handle, items []entities.Item, labels []string, group int32) bool {
	return c.appendInstance(t, func() (entities.Instance, error) {
		return entities.Instance{Items: items, Labels: labels, Group: group}, nil
	})
}

// TrainerAppendRecords is TrainerAppend over records in boundary memory:
// xn AttributeList records at xseq and yn string references at yseq.
func (c *Caller) TrainerAppendRecords(t Handle, xseq, xn, yseq, yn uint64, group int32) bool {
	return c.appendInstance(t, func() (entities.Instance, error) {
		if xn != yn {
			return entities.Instance{}, errors.LengthMismatch("labels", int(xn), int(yn))
		}
		items, err := c.lib.layout.DecodeItems(c.lib.mem, xseq, xn)
		if err != nil {
			return entities.Instance{}, err
		}
		labels, err := c.lib.layout.DecodeStrings(c.lib.mem, yseq, yn)
		if err != nil {
			return entities.Instance{}, err
		}
		return entities.Instance{Items: items, Labels: labels, Group: group}, nil
	})
}

// TrainerTrain trains on every appended sequence outside group holdout and
// writes the model to path. A negative holdout trains on everything.
// The file is replaced atomically.
func (c *Caller) TrainerTrain(t Handle, path string, holdout int32) bool {
	return c.withTrainer("trainer_train", t, func(ts *trainerState) error {
		runID := uuid.NewString()
		alg, _ := ts.trainer.Algorithm()
		ts.logger.Info("training started",
			"run_id", runID,
			"algorithm", alg.String(),
			"instances", ts.trainer.NumInstances(),
			"holdout", holdout,
		)

		res, err := ts.trainer.Train(holdout)
		if err != nil {
			return err
		}
		if err := writeFileAtomic(path, res.Model); err != nil {
			return errors.Wrap(errors.KindIO, err, "failed to write model file %s", path)
		}

		report := res.Report
		report.RunID = runID
		report.ModelPath = path
		ts.report = &report
		ts.logger.Info("model written",
			"run_id", runID,
			"path", path,
			"bytes", len(res.Model),
		)
		return nil
	})
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place.
func writeFileAtomic(path string, data []byte) (err error) {
	if path == "" {
		return fmt.Errorf("empty model path")
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// wasip1 has no permission bits.
	if err = os.Chmod(tmp, 0o644); err != nil && !stdErrors.Is(err, stdErrors.ErrUnsupported) {
		return err
	}
	return os.Rename(tmp, path)
}

// TrainerSet assigns a parameter from its string form.
func (c *Caller) TrainerSet(t Handle, name, value string) bool {
	return c.withTrainer("trainer_set", t, func(ts *trainerState) error {
		return ts.trainer.Set(name, value)
	})
}

func (c *Caller) trainerString(op string, t Handle, fn func(ts *trainerState) (string, error)) abi.Str {
	var out abi.Str
	c.withTrainer(op, t, func(ts *trainerState) error {
		v, err := fn(ts)
		if err != nil {
			return err
		}
		out, err = c.lib.newStr(v, true)
		return err
	})
	return out
}

// TrainerGet returns the value of a parameter as an owned string, or the
// zero Str on failure.
func (c *Caller) TrainerGet(t Handle, name string) abi.Str {
	return c.trainerString("trainer_get", t, func(ts *trainerState) (string, error) {
		return ts.trainer.Get(name)
	})
}

// TrainerHelp returns the help text of a parameter as an owned string.
func (c *Caller) TrainerHelp(t Handle, name string) abi.Str {
	return c.trainerString("trainer_help", t, func(ts *trainerState) (string, error) {
		return ts.trainer.Help(name)
	})
}

// TrainerParams returns the parameter names of the selected algorithm as
// owned strings; the array is empty when no algorithm is selected.
func (c *Caller) TrainerParams(t Handle) Array {
	var out Array
	c.withTrainer("trainer_params", t, func(ts *trainerState) error {
		var err error
		out, err = c.lib.newOwnedArray(ts.trainer.Params())
		return err
	})
	return out
}

// TrainerParamInfo describes the parameters of the selected algorithm.
func (c *Caller) TrainerParamInfo(t Handle) []ports.ParamInfo {
	var out []ports.ParamInfo
	c.withTrainer("trainer_param_info", t, func(ts *trainerState) error {
		out = ts.trainer.ParamInfo()
		return nil
	})
	return out
}

// TrainerNumInstances returns the number of appended sequences, or -1 on
// failure.
func (c *Caller) TrainerNumInstances(t Handle) int {
	n := -1
	c.withTrainer("trainer_num_instances", t, func(ts *trainerState) error {
		n = ts.trainer.NumInstances()
		return nil
	})
	return n
}

// TrainerAlgorithm returns the selected algorithm as a borrowed string. It
// is empty when none is selected.
func (c *Caller) TrainerAlgorithm(t Handle) abi.Str {
	var out abi.Str
	c.withTrainer("trainer_algorithm", t, func(ts *trainerState) error {
		alg, ok := ts.trainer.Algorithm()
		if !ok {
			return nil
		}
		if rec, ok := ts.names[alg]; ok {
			out = rec
			return nil
		}
		rec, err := c.lib.newStr(alg.String(), false)
		if err != nil {
			return err
		}
		ts.names[alg] = rec
		out = rec
		return nil
	})
	return out
}

// TrainerReport returns the report of the last successful training run,
// or nil.
func (c *Caller) TrainerReport(t Handle) *entities.TrainingReport {
	var out *entities.TrainingReport
	c.withTrainer("trainer_report", t, func(ts *trainerState) error {
		if ts.report != nil {
			r := *ts.report
			out = &r
		}
		return nil
	})
	return out
}

// TrainerDestroy ends the session. Null and stale handles are ignored.
func (c *Caller) TrainerDestroy(t Handle) {
	c.guard("trainer_destroy", func() {
		obj, ok := c.lib.handles.remove(t, kindTrainer)
		if !ok {
			return
		}
		for _, rec := range obj.(*trainerState).names {
			c.lib.freeStorage(rec)
		}
	})
}
