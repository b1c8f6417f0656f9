package entities

// DefaultAttributeValue is the value assigned to an attribute built from a
// bare name.
const DefaultAttributeValue = 1.0

// Attribute is one named feature observed for one sequence item.
type Attribute struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// NewAttribute creates an attribute with an explicit value.
func NewAttribute(name string, value float64) Attribute {
	return Attribute{Name: name, Value: value}
}

// Attr creates an attribute with the default value of 1.0.
func Attr(name string) Attribute {
	return Attribute{Name: name, Value: DefaultAttributeValue}
}

// Item is the ordered attribute list of one sequence item.
// Order is preserved across the boundary.
type Item []Attribute

// Instance is a labeled item sequence appended to a training session.
// Group partitions instances for holdout evaluation.
type Instance struct {
	Items  []Item   `json:"items"`
	Labels []string `json:"labels"`
	Group  int32    `json:"group"`
}
