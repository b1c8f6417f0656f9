package crf

import (
	"log/slog"

	"github.com/reglet-dev/crfsuite-go/domain/ports"
)

// Engine is the crf1d implementation of ports.Engine.
type Engine struct{}

var _ ports.Engine = (*Engine)(nil)

// NewEngine returns the engine.
func NewEngine() *Engine {
	return &Engine{}
}

// OpenModel decodes a model artifact.
func (e *Engine) OpenModel(data []byte) (ports.Model, error) {
	m, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewTrainer creates a training session.
func (e *Engine) NewTrainer(logger *slog.Logger) ports.Trainer {
	return NewTrainer(logger)
}
