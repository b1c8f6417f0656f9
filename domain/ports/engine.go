package ports

import (
	"io"
	"log/slog"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
)

// Engine is the sequence model engine behind the boundary.
type Engine interface {
	// OpenModel parses a model artifact. The engine keeps its own copy of
	// whatever it needs from data.
	OpenModel(data []byte) (Model, error)

	// NewTrainer creates an empty training session. Progress is reported
	// through logger when it is non-nil.
	NewTrainer(logger *slog.Logger) Trainer
}

// Model is a loaded, immutable model. It is safe to share between taggers.
type Model interface {
	// Labels returns every label the model knows, in label-id order.
	Labels() []string

	// Dump writes the human-readable model dump.
	Dump(w io.Writer) error

	// NewTagger creates an inference session bound to the model.
	NewTagger() (Tagger, error)
}

// Tagger runs inference against one model. It is not safe for concurrent use.
type Tagger interface {
	// Tag returns the Viterbi label sequence, one label per item.
	Tag(items []entities.Item) ([]string, error)

	// Probability returns the conditional probability of labels given items.
	Probability(items []entities.Item, labels []string) (float64, error)

	// Marginal returns the marginal probability of label at position.
	Marginal(items []entities.Item, label string, position int) (float64, error)
}

// ParamInfo describes one training parameter.
type ParamInfo struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Default string `json:"default" yaml:"default"`
	Help    string `json:"help" yaml:"help"`
}

// TrainResult is the outcome of a training run.
type TrainResult struct {
	// Model is the encoded model artifact.
	Model []byte

	// Report carries the run statistics; ModelPath and RunID are left to
	// the caller.
	Report entities.TrainingReport
}

// Trainer is one training session. It is not safe for concurrent use.
type Trainer interface {
	// Select chooses the algorithm and resets parameters to its defaults.
	Select(algorithm entities.Algorithm) error

	// Algorithm returns the selected algorithm, or false when none is.
	Algorithm() (entities.Algorithm, bool)

	// Params lists the parameter names of the selected algorithm.
	Params() []string

	// ParamInfo describes the parameters of the selected algorithm.
	ParamInfo() []ParamInfo

	// Set assigns a parameter from its string form.
	Set(name, value string) error

	// Get returns the string form of a parameter.
	Get(name string) (string, error)

	// Help returns the description of a parameter.
	Help(name string) (string, error)

	// Append adds one labeled sequence.
	Append(instance entities.Instance) error

	// NumInstances returns the number of appended sequences.
	NumInstances() int

	// Clear discards appended sequences and keeps the configuration.
	Clear()

	// Train runs the selected algorithm over the appended sequences,
	// excluding group holdout when it is non-negative.
	Train(holdout int32) (*TrainResult, error)
}
