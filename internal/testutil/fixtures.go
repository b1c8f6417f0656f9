package testutil

import (
	"github.com/reglet-dev/crfsuite-go/domain/entities"
)

// WeatherItems is a nine-item sequence of activities, including an item
// with no attributes.
func WeatherItems() []entities.Item {
	return []entities.Item{
		{entities.NewAttribute("walk", 1.0), entities.NewAttribute("shop", 0.5)},
		{entities.NewAttribute("walk", 1.0)},
		{entities.NewAttribute("walk", 1.0), entities.NewAttribute("clean", 0.5)},
		{entities.NewAttribute("shop", 0.5), entities.NewAttribute("clean", 0.5)},
		{entities.NewAttribute("walk", 0.5), entities.NewAttribute("clean", 1.0)},
		{entities.NewAttribute("clean", 1.0), entities.NewAttribute("shop", 0.1)},
		{entities.NewAttribute("walk", 1.0), entities.NewAttribute("shop", 0.5)},
		{},
		{entities.NewAttribute("clean", 1.0)},
	}
}

// WeatherLabels are the labels of WeatherItems.
func WeatherLabels() []string {
	return []string{"sunny", "sunny", "sunny", "rainy", "rainy", "rainy", "sunny", "sunny", "rainy"}
}

// word builds an item whose attributes determine its part of speech.
func word(w string) entities.Item {
	suffix := w[len(w)-1:]
	return entities.Item{entities.Attr("w=" + w), entities.Attr("suffix=" + suffix)}
}

func sentence(group int32, pairs ...string) entities.Instance {
	inst := entities.Instance{Group: group}
	for i := 0; i+1 < len(pairs); i += 2 {
		inst.Items = append(inst.Items, word(pairs[i]))
		inst.Labels = append(inst.Labels, pairs[i+1])
	}
	return inst
}

// SeparableInstances are sentences in which every word determines its
// label. Groups 1 and 2 each hold three sentences.
func SeparableInstances() []entities.Instance {
	return []entities.Instance{
		sentence(1, "dog", "noun", "runs", "verb"),
		sentence(1, "cat", "noun", "sleeps", "verb"),
		sentence(1, "runs", "verb", "dog", "noun"),
		sentence(2, "dog", "noun", "cat", "noun", "sleeps", "verb", "runs", "verb"),
		sentence(2, "cat", "noun", "runs", "verb", "dog", "noun", "sleeps", "verb"),
		sentence(2, "sleeps", "verb", "cat", "noun"),
	}
}
