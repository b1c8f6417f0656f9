// Package crfsuite is a linear-chain CRF sequence labeler exposed through a
// flat, ownership-tagged boundary. Go hosts use package ffi directly; C and
// wasm hosts use the exporters under cmd/.
package crfsuite

import (
	"github.com/reglet-dev/crfsuite-go/domain/entities"
)

// Attribute is one named feature of a sequence item.
type Attribute = entities.Attribute

// Item is the ordered attribute list of one sequence item.
type Item = entities.Item

// TrainingConfig describes one training run.
type TrainingConfig = entities.TrainingConfig

// Version of the library.
const Version = "0.1.0"
