package crf

// dictionary maps strings to dense ids in insertion order.
type dictionary struct {
	ids   map[string]int
	names []string
}

func newDictionary() *dictionary {
	return &dictionary{ids: make(map[string]int)}
}

// add returns the id of s, assigning the next id when s is new.
func (d *dictionary) add(s string) int {
	if id, ok := d.ids[s]; ok {
		return id
	}
	id := len(d.names)
	d.ids[s] = id
	d.names = append(d.names, s)
	return id
}

func (d *dictionary) id(s string) (int, bool) {
	id, ok := d.ids[s]
	return id, ok
}

func (d *dictionary) len() int {
	return len(d.names)
}

func (d *dictionary) name(id int) string {
	return d.names[id]
}
