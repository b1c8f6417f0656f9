package entities

// Default training configuration values.
const (
	DefaultAlgorithm = "lbfgs"
	DefaultModelPath = "crfsuite.model"
	NoHoldout        = -1
)

// TrainingConfig is the declarative description of a training run, as read
// from a configuration file, the environment or command-line flags.
type TrainingConfig struct {
	// Params are algorithm parameters applied after the algorithm is selected.
	Params map[string]string `json:"params,omitempty" koanf:"params" yaml:"params,omitempty" jsonschema:"description=Algorithm parameters by name"`

	// Algorithm names the training algorithm or one of its aliases.
	Algorithm string `json:"algorithm" koanf:"algorithm" yaml:"algorithm" validate:"required,oneof=lbfgs l2sgd ap averaged-perceptron pa passive-aggressive arow" jsonschema:"enum=lbfgs,enum=l2sgd,enum=ap,enum=averaged-perceptron,enum=pa,enum=passive-aggressive,enum=arow,default=lbfgs"`

	// Model is the output path of the trained model.
	Model string `json:"model" koanf:"model" yaml:"model" validate:"required" jsonschema:"default=crfsuite.model"`

	// Holdout is the group excluded from training and used for evaluation;
	// -1 trains on every group.
	Holdout int32 `json:"holdout" koanf:"holdout" yaml:"holdout" validate:"gte=-1" jsonschema:"default=-1"`

	// Verbose enables per-iteration progress logging.
	Verbose bool `json:"verbose,omitempty" koanf:"verbose" yaml:"verbose,omitempty"`
}

// DefaultTrainingConfig returns the configuration used when nothing is set.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Algorithm: DefaultAlgorithm,
		Model:     DefaultModelPath,
		Holdout:   NoHoldout,
	}
}

// ApplyDefaults fills empty fields with their default values.
func (c *TrainingConfig) ApplyDefaults() {
	if c == nil {
		return
	}
	if c.Algorithm == "" {
		c.Algorithm = DefaultAlgorithm
	}
	if c.Model == "" {
		c.Model = DefaultModelPath
	}
}
