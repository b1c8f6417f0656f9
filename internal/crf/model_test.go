package crf

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/domain/errors"
	"github.com/reglet-dev/crfsuite-go/internal/testutil"
)

func weatherModel(t *testing.T) []byte {
	t.Helper()
	tr := NewTrainer(nil)
	require.NoError(t, tr.Select(entities.AlgorithmLBFGS))
	require.NoError(t, tr.Append(entities.Instance{
		Items:  testutil.WeatherItems(),
		Labels: testutil.WeatherLabels(),
	}))
	res, err := tr.Train(-1)
	require.NoError(t, err)
	return res.Model
}

func TestModel_RoundTrip(t *testing.T) {
	data := weatherModel(t)
	assert.Equal(t, "lCRF", string(data[:4]))
	assert.Equal(t, uint32(len(data)), binary.LittleEndian.Uint32(data[4:]))

	m, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"sunny", "rainy"}, m.Labels())
	assert.ElementsMatch(t, []string{"walk", "shop", "clean"}, m.Attributes())

	again, err := m.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestModel_OnlyNonZeroFeaturesAreStored(t *testing.T) {
	ds := newDataset()
	require.NoError(t, ds.append(entities.Instance{
		Items:  []entities.Item{{entities.Attr("a"), entities.Attr("b")}, {entities.Attr("c")}},
		Labels: []string{"x", "y"},
	}))
	train, _ := ds.split(-1)
	m := generateFeatures(train, ds.labels.len(), ds.attrs.len(), featureOptions{})
	require.Len(t, m.features, 4)

	// Drop the only feature of attribute b.
	model := buildModel(ds, m, []float64{0.5, 0, -1, 2})
	assert.Equal(t, 3, model.NumFeatures())
	assert.Equal(t, []string{"a", "c"}, model.Attributes())

	data, err := model.MarshalBinary()
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 3, decoded.NumFeatures())
	assert.Equal(t, model.crf.attrRefs, decoded.crf.attrRefs)
	assert.Equal(t, model.crf.labelRefs, decoded.crf.labelRefs)
}

func corrupt(data []byte, off int, v uint32) []byte {
	out := bytes.Clone(data)
	binary.LittleEndian.PutUint32(out[off:], v)
	return out
}

func TestDecode_InvalidModels(t *testing.T) {
	data := weatherModel(t)
	h, err := Decode(data)
	require.NoError(t, err)
	offFeatures := int(h.header.OffFeatures)

	withWeight := bytes.Clone(data)
	binary.LittleEndian.PutUint64(withWeight[offFeatures+chunkSize+12:], math.Float64bits(math.NaN()))

	tests := []struct {
		name string
		data []byte
		msg  string
	}{
		{"empty", nil, "magic"},
		{"short magic", []byte("lC"), "magic"},
		{"bad magic", append([]byte("XCRF"), data[4:]...), "magic"},
		{"header only", data[:headerSize], "header"},
		{"truncated", data[:len(data)-1], "size"},
		{"bad version", corrupt(data, 12, 99), "version"},
		{"feature offset", corrupt(data, 28, uint32(len(data)+10)), "out of range"},
		{"feature count", corrupt(data, 16, 1000), "entries"},
		{"feature type", corrupt(data, offFeatures+chunkSize, 7), "unknown type"},
		{"feature source", corrupt(data, offFeatures+chunkSize+4, 1000), "out of range"},
		{"non-finite weight", withWeight, "non-finite"},
		{"chunk magic", corrupt(data, offFeatures, 0), "chunk magic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.Error(t, err)
			assert.Equal(t, errors.KindInvalidModel, errors.KindOf(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestDecode_RandomGarbageNeverPanics(t *testing.T) {
	data := weatherModel(t)
	for off := headerSize; off < len(data); off += 3 {
		for _, v := range []uint32{0, 1, 0xFFFF, 0xFFFFFFFF} {
			assert.NotPanics(t, func() {
				_, _ = Decode(corrupt(data, off-off%4, v))
			})
		}
	}
}

func TestModel_Dump(t *testing.T) {
	m, err := Decode(weatherModel(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Dump(&buf))
	out := buf.String()

	for _, section := range []string{"FILEHEADER = {", "LABELS = {", "ATTRIBUTES = {", "TRANSITIONS = {", "STATE_FEATURES = {"} {
		assert.Contains(t, out, section)
	}
	assert.Contains(t, out, "  magic: lCRF\n")
	assert.Contains(t, out, "  version: 100\n")
	assert.Contains(t, out, "    0: sunny\n")
	assert.Contains(t, out, "    1: rainy\n")
	assert.Contains(t, out, "  (1) sunny --> sunny: ")
	assert.Contains(t, out, "  (0) walk --> sunny: ")
	assert.True(t, strings.Index(out, "TRANSITIONS") < strings.Index(out, "STATE_FEATURES"))
}

func TestModel_DumpYAML(t *testing.T) {
	m, err := Decode(weatherModel(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.DumpYAML(&buf))

	var doc DumpDocument
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "lCRF", doc.Header.Magic)
	assert.Equal(t, "FOMC", doc.Header.Type)
	assert.Equal(t, []string{"sunny", "rainy"}, doc.Labels)
	assert.Equal(t, m.NumFeatures(), len(doc.Transitions)+len(doc.StateFeatures))
}

func TestModel_DumpBeforeMarshal(t *testing.T) {
	ds := newDataset()
	require.NoError(t, ds.append(entities.Instance{
		Items:  []entities.Item{{entities.Attr("a")}},
		Labels: []string{"x"},
	}))
	train, _ := ds.split(-1)
	m := generateFeatures(train, 1, 1, featureOptions{})
	model := buildModel(ds, m, []float64{1})

	var buf bytes.Buffer
	require.NoError(t, model.Dump(&buf))
	assert.Contains(t, buf.String(), "  num_features: 1\n")
}
