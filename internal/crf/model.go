package crf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/reglet-dev/crfsuite-go/domain/errors"
)

// Model file constants.
const (
	headerSize   = 48
	chunkSize    = 12
	featureSize  = 20
	modelVersion = 100
)

var (
	magicModel     = [4]byte{'l', 'C', 'R', 'F'}
	magicType      = [4]byte{'F', 'O', 'M', 'C'}
	magicFeatures  = [4]byte{'F', 'E', 'A', 'T'}
	magicLabels    = [4]byte{'L', 'B', 'L', 'S'}
	magicAttrs     = [4]byte{'A', 'T', 'T', 'R'}
	magicLabelRefs = [4]byte{'L', 'F', 'R', 'F'}
	magicAttrRefs  = [4]byte{'A', 'F', 'R', 'F'}
)

// fileHeader is the fixed 48-byte model file header.
type fileHeader struct {
	Magic        [4]byte
	Size         uint32
	Type         [4]byte
	Version      uint32
	NumFeatures  uint32
	NumLabels    uint32
	NumAttrs     uint32
	OffFeatures  uint32
	OffLabels    uint32
	OffAttrs     uint32
	OffLabelRefs uint32
	OffAttrRefs  uint32
}

// Model is a trained crf1d model. It is immutable and safe to share
// between taggers.
type Model struct {
	attrs  *dictionary
	crf    *crf1d
	labels []string
	header fileHeader
}

// buildModel keeps the non-zero features of m and renumbers the
// attributes they reference.
func buildModel(ds *dataset, m *crf1d, w []float64) *Model {
	labels := slices.Clone(ds.labels.names)

	used := make([]bool, ds.attrs.len())
	for fid, f := range m.features {
		if w[fid] != 0 && f.kind == featureState {
			used[f.src] = true
		}
	}
	attrs := newDictionary()
	remap := make([]int, ds.attrs.len())
	for a, ok := range used {
		if ok {
			remap[a] = attrs.add(ds.attrs.name(a))
		}
	}

	var feats []feature
	for fid, f := range m.features {
		if w[fid] == 0 {
			continue
		}
		nf := feature{kind: f.kind, src: f.src, dst: f.dst, weight: w[fid]}
		if f.kind == featureState {
			nf.src = remap[f.src]
		}
		feats = append(feats, nf)
	}

	return &Model{
		attrs:  attrs,
		labels: labels,
		crf:    newCRF1D(feats, len(labels), attrs.len()),
	}
}

// Labels returns the label names in label-id order.
func (m *Model) Labels() []string {
	return slices.Clone(m.labels)
}

// Attributes returns the attribute names in attribute-id order.
func (m *Model) Attributes() []string {
	return slices.Clone(m.attrs.names)
}

// NumFeatures returns the number of stored features.
func (m *Model) NumFeatures() int {
	return len(m.crf.features)
}

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) u32(v uint32) {
	_ = binary.Write(&e.buf, binary.LittleEndian, v)
}

func (e *encoder) offset() uint32 {
	return uint32(e.buf.Len())
}

// chunk writes a chunk header and returns the position of its size field.
func (e *encoder) chunk(magic [4]byte, num int) int {
	e.buf.Write(magic[:])
	pos := e.buf.Len()
	e.u32(0)
	e.u32(uint32(num))
	return pos
}

func (e *encoder) endChunk(sizePos int) {
	start := sizePos - 4
	binary.LittleEndian.PutUint32(e.buf.Bytes()[sizePos:], uint32(e.buf.Len()-start))
}

func (e *encoder) strings(magic [4]byte, names []string) {
	pos := e.chunk(magic, len(names))
	for _, s := range names {
		e.u32(uint32(len(s)))
		e.buf.WriteString(s)
	}
	e.endChunk(pos)
}

func (e *encoder) refs(magic [4]byte, refs [][]int) {
	pos := e.chunk(magic, len(refs))
	for _, fids := range refs {
		e.u32(uint32(len(fids)))
		for _, fid := range fids {
			e.u32(uint32(fid))
		}
	}
	e.endChunk(pos)
}

// MarshalBinary encodes the model in the lCRF file format.
func (m *Model) MarshalBinary() ([]byte, error) {
	var e encoder
	e.buf.Write(make([]byte, headerSize))

	h := fileHeader{
		Magic:       magicModel,
		Type:        magicType,
		Version:     modelVersion,
		NumFeatures: uint32(len(m.crf.features)),
		NumLabels:   uint32(len(m.labels)),
		NumAttrs:    uint32(m.attrs.len()),
	}

	h.OffFeatures = e.offset()
	pos := e.chunk(magicFeatures, len(m.crf.features))
	for _, f := range m.crf.features {
		e.u32(uint32(f.kind))
		e.u32(uint32(f.src))
		e.u32(uint32(f.dst))
		_ = binary.Write(&e.buf, binary.LittleEndian, math.Float64bits(f.weight))
	}
	e.endChunk(pos)

	h.OffLabels = e.offset()
	e.strings(magicLabels, m.labels)
	h.OffAttrs = e.offset()
	e.strings(magicAttrs, m.attrs.names)
	h.OffLabelRefs = e.offset()
	e.refs(magicLabelRefs, m.crf.labelRefs)
	h.OffAttrRefs = e.offset()
	e.refs(magicAttrRefs, m.crf.attrRefs)

	h.Size = e.offset()
	var hb bytes.Buffer
	if err := binary.Write(&hb, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("failed to encode model header: %w", err)
	}
	out := e.buf.Bytes()
	copy(out, hb.Bytes())
	m.header = h
	return out, nil
}

func invalidModel(format string, args ...any) error {
	return errors.New(errors.KindInvalidModel, format, args...)
}

// decoder reads little-endian values with bounds checks.
type decoder struct {
	data []byte
	pos  int
	err  error
}

func (d *decoder) need(n int, what string) bool {
	if d.err != nil {
		return false
	}
	if n < 0 || d.pos+n > len(d.data) {
		d.err = invalidModel("truncated %s at offset %d", what, d.pos)
		return false
	}
	return true
}

func (d *decoder) u32(what string) uint32 {
	if !d.need(4, what) {
		return 0
	}
	v := binary.LittleEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return v
}

func (d *decoder) f64(what string) float64 {
	if !d.need(8, what) {
		return 0
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(d.data[d.pos:]))
	d.pos += 8
	return v
}

func (d *decoder) bytes(n int, what string) []byte {
	if !d.need(n, what) {
		return nil
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b
}

// chunk positions the decoder at off and checks a chunk header.
func (d *decoder) chunk(off uint32, magic [4]byte, want uint32, what string) {
	if d.err != nil {
		return
	}
	if off < headerSize || int(off) > len(d.data) {
		d.err = invalidModel("%s offset %#x is out of range", what, off)
		return
	}
	d.pos = int(off)
	got := d.bytes(4, what)
	if d.err != nil {
		return
	}
	if !bytes.Equal(got, magic[:]) {
		d.err = invalidModel("invalid %s chunk magic", what)
		return
	}
	size := d.u32(what)
	num := d.u32(what)
	if d.err != nil {
		return
	}
	if int(off)+int(size) > len(d.data) || size < chunkSize {
		d.err = invalidModel("%s chunk size %d exceeds the model", what, size)
		return
	}
	if num != want {
		d.err = invalidModel("%s chunk has %d entries, header says %d", what, num, want)
	}
}

func (d *decoder) strings(off uint32, magic [4]byte, n uint32, what string) []string {
	d.chunk(off, magic, n, what)
	out := make([]string, 0, min(int(n), len(d.data)/4))
	for i := uint32(0); i < n && d.err == nil; i++ {
		l := d.u32(what)
		s := d.bytes(int(l), what)
		out = append(out, string(s))
	}
	return out
}

func (d *decoder) refs(off uint32, magic [4]byte, n uint32, what string) [][]int {
	d.chunk(off, magic, n, what)
	out := make([][]int, 0, min(int(n), len(d.data)/4))
	for i := uint32(0); i < n && d.err == nil; i++ {
		count := d.u32(what)
		if !d.need(int(count)*4, what) {
			break
		}
		fids := make([]int, count)
		for j := range fids {
			fids[j] = int(d.u32(what))
		}
		out = append(out, fids)
	}
	return out
}

// Decode parses a model in the lCRF file format. The returned model does
// not reference data.
func Decode(data []byte) (*Model, error) {
	if len(data) < 4 {
		return nil, invalidModel("failed to read model file magic")
	}
	if !bytes.Equal(data[:4], magicModel[:]) {
		return nil, invalidModel("invalid model file magic")
	}
	if len(data) <= headerSize {
		return nil, invalidModel("invalid model file header")
	}

	var h fileHeader
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &h); err != nil {
		return nil, invalidModel("invalid model file header: %v", err)
	}
	if h.Type != magicType || h.Version != modelVersion {
		return nil, invalidModel("unsupported model type %q version %d", h.Type[:], h.Version)
	}
	if int(h.Size) != len(data) {
		return nil, invalidModel("model size mismatch: header says %d bytes, got %d", h.Size, len(data))
	}

	d := &decoder{data: data}
	d.chunk(h.OffFeatures, magicFeatures, h.NumFeatures, "features")
	if !d.need(int(h.NumFeatures)*featureSize, "features") {
		return nil, d.err
	}
	feats := make([]feature, h.NumFeatures)
	for i := range feats {
		f := feature{
			kind: int(d.u32("features")),
			src:  int(d.u32("features")),
			dst:  int(d.u32("features")),
		}
		f.weight = d.f64("features")
		feats[i] = f
	}
	labels := d.strings(h.OffLabels, magicLabels, h.NumLabels, "labels")
	attrNames := d.strings(h.OffAttrs, magicAttrs, h.NumAttrs, "attributes")
	labelRefs := d.refs(h.OffLabelRefs, magicLabelRefs, h.NumLabels, "label references")
	attrRefs := d.refs(h.OffAttrRefs, magicAttrRefs, h.NumAttrs, "attribute references")
	if d.err != nil {
		return nil, d.err
	}

	numLabels, numAttrs := int(h.NumLabels), int(h.NumAttrs)
	for i, f := range feats {
		switch f.kind {
		case featureState:
			if f.src >= numAttrs || f.dst >= numLabels {
				return nil, invalidModel("state feature %d is out of range", i)
			}
		case featureTransition:
			if f.src >= numLabels || f.dst >= numLabels {
				return nil, invalidModel("transition feature %d is out of range", i)
			}
		default:
			return nil, invalidModel("feature %d has unknown type %d", i, f.kind)
		}
		if math.IsNaN(f.weight) || math.IsInf(f.weight, 0) {
			return nil, invalidModel("feature %d has a non-finite weight", i)
		}
	}
	if err := checkRefs(feats, labelRefs, featureTransition, "label"); err != nil {
		return nil, err
	}
	if err := checkRefs(feats, attrRefs, featureState, "attribute"); err != nil {
		return nil, err
	}

	attrs := newDictionary()
	for _, name := range attrNames {
		attrs.add(name)
	}
	if attrs.len() != numAttrs {
		return nil, invalidModel("duplicate attribute names")
	}

	return &Model{
		attrs:  attrs,
		labels: labels,
		header: h,
		crf: &crf1d{
			features:  feats,
			attrRefs:  attrRefs,
			labelRefs: labelRefs,
			numLabels: numLabels,
			numAttrs:  numAttrs,
		},
	}, nil
}

// checkRefs verifies that every reference points at a feature of the
// right kind whose source is the referencing entry.
func checkRefs(feats []feature, refs [][]int, kind int, what string) error {
	for src, fids := range refs {
		for _, fid := range fids {
			if fid >= len(feats) || feats[fid].kind != kind || feats[fid].src != src {
				return invalidModel("%s %d references invalid feature %d", what, src, fid)
			}
		}
	}
	return nil
}
