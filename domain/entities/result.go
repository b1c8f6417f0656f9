package entities

import (
	"time"
)

// Evaluation summarizes tagging accuracy over a set of instances.
type Evaluation struct {
	// Instances is the number of sequences evaluated.
	Instances int `json:"instances"`

	// Items is the number of items evaluated.
	Items int `json:"items"`

	// CorrectItems is the number of items whose predicted label matched.
	CorrectItems int `json:"correct_items"`

	// CorrectInstances is the number of sequences predicted without error.
	CorrectInstances int `json:"correct_instances"`
}

// ItemAccuracy returns the fraction of correctly labeled items.
func (e Evaluation) ItemAccuracy() float64 {
	if e.Items == 0 {
		return 0
	}
	return float64(e.CorrectItems) / float64(e.Items)
}

// InstanceAccuracy returns the fraction of sequences labeled without error.
func (e Evaluation) InstanceAccuracy() float64 {
	if e.Instances == 0 {
		return 0
	}
	return float64(e.CorrectInstances) / float64(e.Instances)
}

// TrainingReport describes one completed training run.
type TrainingReport struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Holdout is the evaluation over held-out instances, nil when no
	// holdout group was requested.
	Holdout *Evaluation `json:"holdout,omitempty"`

	// RunID correlates the log lines of one run.
	RunID string `json:"run_id"`

	// Algorithm is the algorithm that produced the model.
	Algorithm Algorithm `json:"algorithm"`

	// ModelPath is where the model artifact was written.
	ModelPath string `json:"model_path"`

	// Duration is the wall-clock time of the run.
	Duration time.Duration `json:"duration"`

	// Loss is the final objective value reported by the algorithm.
	Loss float64 `json:"loss"`

	// Instances is the number of instances used for training.
	Instances int `json:"instances"`

	// Iterations is the number of iterations the algorithm ran.
	Iterations int `json:"iterations"`

	// Features is the number of non-zero features stored in the model.
	Features int `json:"features"`

	// Labels is the number of distinct labels.
	Labels int `json:"labels"`

	// Attributes is the number of distinct attributes.
	Attributes int `json:"attributes"`
}
