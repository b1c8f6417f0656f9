// Package dataset reads sequence data in the CRFsuite text format: one item
// per line, a label followed by tab-separated attributes, and a blank line
// between sequences.
//
//	label<TAB>name[:value]<TAB>name[:value]...
//
// Attribute names escape ':' as "\:" and '\' as "\\". A missing value is 1.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
)

// maxLine bounds the length of one item line.
const maxLine = 16 * 1024 * 1024

// SyntaxError reports a malformed line.
type SyntaxError struct {
	Err  error
	Line int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Read parses every sequence in r and assigns them to group.
func Read(r io.Reader, group int32) ([]entities.Instance, error) {
	var (
		out  []entities.Instance
		cur  entities.Instance
		line int
	)
	flush := func() {
		if len(cur.Items) > 0 {
			cur.Group = group
			out = append(out, cur)
		}
		cur = entities.Instance{}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" {
			flush()
			continue
		}
		label, item, err := ParseLine(text)
		if err != nil {
			return nil, &SyntaxError{Line: line, Err: err}
		}
		cur.Items = append(cur.Items, item)
		cur.Labels = append(cur.Labels, label)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	flush()
	return out, nil
}

// ParseLine splits one item line into its label and attributes.
func ParseLine(text string) (string, entities.Item, error) {
	fields := strings.Split(text, "\t")
	item := make(entities.Item, 0, len(fields)-1)
	for _, f := range fields[1:] {
		if f == "" {
			continue
		}
		attr, err := ParseAttribute(f)
		if err != nil {
			return "", nil, err
		}
		item = append(item, attr)
	}
	return fields[0], item, nil
}

// ParseAttribute parses "name[:value]". The value follows the first
// unescaped colon.
func ParseAttribute(field string) (entities.Attribute, error) {
	var name strings.Builder
	for i := 0; i < len(field); i++ {
		switch c := field[i]; c {
		case '\\':
			if i+1 < len(field) {
				i++
				name.WriteByte(field[i])
			} else {
				name.WriteByte(c)
			}
		case ':':
			v, err := strconv.ParseFloat(field[i+1:], 64)
			if err != nil {
				return entities.Attribute{}, fmt.Errorf("invalid value for attribute %q: %w", name.String(), err)
			}
			return entities.NewAttribute(name.String(), v), nil
		default:
			name.WriteByte(c)
		}
	}
	return entities.Attr(name.String()), nil
}

// EscapeName escapes a name for the text format.
func EscapeName(name string) string {
	if !strings.ContainsAny(name, `\:`) {
		return name
	}
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		if c := name[i]; c == '\\' || c == ':' {
			b.WriteByte('\\')
		}
		b.WriteByte(name[i])
	}
	return b.String()
}

// FormatItem renders one item line.
func FormatItem(label string, item entities.Item) string {
	var b strings.Builder
	b.WriteString(label)
	for _, a := range item {
		b.WriteByte('\t')
		b.WriteString(EscapeName(a.Name))
		if a.Value != entities.DefaultAttributeValue {
			b.WriteByte(':')
			b.WriteString(strconv.FormatFloat(a.Value, 'g', -1, 64))
		}
	}
	return b.String()
}
