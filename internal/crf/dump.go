package crf

import (
	"bufio"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

func (m *Model) ensureHeader() error {
	if m.header.Magic == magicModel {
		return nil
	}
	_, err := m.MarshalBinary()
	return err
}

// Dump writes the human-readable model dump.
func (m *Model) Dump(w io.Writer) error {
	if err := m.ensureHeader(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	h := m.header

	fmt.Fprintf(bw, "FILEHEADER = {\n")
	fmt.Fprintf(bw, "  magic: %s\n", h.Magic[:])
	fmt.Fprintf(bw, "  size: %d\n", h.Size)
	fmt.Fprintf(bw, "  type: %s\n", h.Type[:])
	fmt.Fprintf(bw, "  version: %d\n", h.Version)
	fmt.Fprintf(bw, "  num_features: %d\n", h.NumFeatures)
	fmt.Fprintf(bw, "  num_labels: %d\n", h.NumLabels)
	fmt.Fprintf(bw, "  num_attrs: %d\n", h.NumAttrs)
	fmt.Fprintf(bw, "  off_features: 0x%X\n", h.OffFeatures)
	fmt.Fprintf(bw, "  off_labels: 0x%X\n", h.OffLabels)
	fmt.Fprintf(bw, "  off_attrs: 0x%X\n", h.OffAttrs)
	fmt.Fprintf(bw, "  off_labelrefs: 0x%X\n", h.OffLabelRefs)
	fmt.Fprintf(bw, "  off_attrrefs: 0x%X\n", h.OffAttrRefs)
	fmt.Fprintf(bw, "}\n\n")

	fmt.Fprintf(bw, "LABELS = {\n")
	for i, l := range m.labels {
		fmt.Fprintf(bw, "%5d: %s\n", i, l)
	}
	fmt.Fprintf(bw, "}\n\n")

	fmt.Fprintf(bw, "ATTRIBUTES = {\n")
	for i, a := range m.attrs.names {
		fmt.Fprintf(bw, "%5d: %s\n", i, a)
	}
	fmt.Fprintf(bw, "}\n\n")

	fmt.Fprintf(bw, "TRANSITIONS = {\n")
	for i := range m.labels {
		for _, fid := range m.crf.labelRefs[i] {
			f := m.crf.features[fid]
			fmt.Fprintf(bw, "  (%d) %s --> %s: %f\n", f.kind, m.labels[f.src], m.labels[f.dst], f.weight)
		}
	}
	fmt.Fprintf(bw, "}\n\n")

	fmt.Fprintf(bw, "STATE_FEATURES = {\n")
	for a := range m.attrs.names {
		for _, fid := range m.crf.attrRefs[a] {
			f := m.crf.features[fid]
			fmt.Fprintf(bw, "  (%d) %s --> %s: %f\n", f.kind, m.attrs.name(f.src), m.labels[f.dst], f.weight)
		}
	}
	fmt.Fprintf(bw, "}\n\n")

	return bw.Flush()
}

// DumpHeader is the file header section of a YAML dump.
type DumpHeader struct {
	Magic       string `yaml:"magic"`
	Type        string `yaml:"type"`
	Size        uint32 `yaml:"size"`
	Version     uint32 `yaml:"version"`
	NumFeatures uint32 `yaml:"num_features"`
	NumLabels   uint32 `yaml:"num_labels"`
	NumAttrs    uint32 `yaml:"num_attrs"`
}

// DumpFeature is one weighted feature of a YAML dump.
type DumpFeature struct {
	From   string  `yaml:"from"`
	To     string  `yaml:"to"`
	Weight float64 `yaml:"weight"`
}

// DumpDocument is the structured form of a model dump.
type DumpDocument struct {
	Labels        []string      `yaml:"labels"`
	Attributes    []string      `yaml:"attributes"`
	Transitions   []DumpFeature `yaml:"transitions"`
	StateFeatures []DumpFeature `yaml:"state_features"`
	Header        DumpHeader    `yaml:"header"`
}

// Document returns the structured form of the dump.
func (m *Model) Document() (*DumpDocument, error) {
	if err := m.ensureHeader(); err != nil {
		return nil, err
	}
	h := m.header
	doc := &DumpDocument{
		Header: DumpHeader{
			Magic:       string(h.Magic[:]),
			Type:        string(h.Type[:]),
			Size:        h.Size,
			Version:     h.Version,
			NumFeatures: h.NumFeatures,
			NumLabels:   h.NumLabels,
			NumAttrs:    h.NumAttrs,
		},
		Labels:     m.Labels(),
		Attributes: m.Attributes(),
	}
	for i := range m.labels {
		for _, fid := range m.crf.labelRefs[i] {
			f := m.crf.features[fid]
			doc.Transitions = append(doc.Transitions, DumpFeature{From: m.labels[f.src], To: m.labels[f.dst], Weight: f.weight})
		}
	}
	for a := range m.attrs.names {
		for _, fid := range m.crf.attrRefs[a] {
			f := m.crf.features[fid]
			doc.StateFeatures = append(doc.StateFeatures, DumpFeature{From: m.attrs.name(f.src), To: m.labels[f.dst], Weight: f.weight})
		}
	}
	return doc, nil
}

// DumpYAML writes the structured dump as YAML.
func (m *Model) DumpYAML(w io.Writer) error {
	doc, err := m.Document()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode model dump: %w", err)
	}
	return enc.Close()
}
