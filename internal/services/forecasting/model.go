package forecasting

import (
	"fmt"

	"DeclCast/internal/domain/models"
	"DeclCast/internal/domain/service"
)

// Settings holds the hyper-parameters of every model family. Zero values are
// replaced by DefaultSettings when passed through WithSettings.
type Settings struct {
	ARMaxLag int

	ETSSeasonPeriod int

	ForestTrees int
	ForestSeed  uint64

	BoostIterations   int
	BoostLearningRate float64
	BoostMaxLeaves    int
	BoostMinLeaf      int
	BoostSeed         uint64

	RecurrentInputSize    int
	RecurrentHidden       int
	RecurrentSteps        int
	RecurrentBatch        int
	RecurrentLearningRate float64
	RecurrentSeed         uint64
}

// DefaultSettings returns the production hyper-parameters.
func DefaultSettings() Settings {
	return Settings{
		ARMaxLag:              3,
		ETSSeasonPeriod:       7,
		ForestTrees:           120,
		ForestSeed:            120,
		BoostIterations:       100,
		BoostLearningRate:     0.5,
		BoostMaxLeaves:        31,
		BoostMinLeaf:          20,
		BoostSeed:             12,
		RecurrentInputSize:    14,
		RecurrentHidden:       16,
		RecurrentSteps:        120,
		RecurrentBatch:        32,
		RecurrentLearningRate: 0.01,
		RecurrentSeed:         1,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.ARMaxLag <= 0 {
		s.ARMaxLag = d.ARMaxLag
	}
	if s.ETSSeasonPeriod <= 1 {
		s.ETSSeasonPeriod = d.ETSSeasonPeriod
	}
	if s.ForestTrees <= 0 {
		s.ForestTrees = d.ForestTrees
	}
	if s.ForestSeed == 0 {
		s.ForestSeed = d.ForestSeed
	}
	if s.BoostIterations <= 0 {
		s.BoostIterations = d.BoostIterations
	}
	if s.BoostLearningRate <= 0 {
		s.BoostLearningRate = d.BoostLearningRate
	}
	if s.BoostMaxLeaves <= 1 {
		s.BoostMaxLeaves = d.BoostMaxLeaves
	}
	if s.BoostMinLeaf <= 0 {
		s.BoostMinLeaf = d.BoostMinLeaf
	}
	if s.BoostSeed == 0 {
		s.BoostSeed = d.BoostSeed
	}
	if s.RecurrentInputSize <= 0 {
		s.RecurrentInputSize = d.RecurrentInputSize
	}
	if s.RecurrentHidden <= 0 {
		s.RecurrentHidden = d.RecurrentHidden
	}
	if s.RecurrentSteps <= 0 {
		s.RecurrentSteps = d.RecurrentSteps
	}
	if s.RecurrentBatch <= 0 {
		s.RecurrentBatch = d.RecurrentBatch
	}
	if s.RecurrentLearningRate <= 0 {
		s.RecurrentLearningRate = d.RecurrentLearningRate
	}
	if s.RecurrentSeed == 0 {
		s.RecurrentSeed = d.RecurrentSeed
	}
	return s
}

// Option configures a Factory.
type Option func(*Factory)

// WithSettings overrides model hyper-parameters. Unset fields keep defaults.
func WithSettings(s Settings) Option {
	return func(f *Factory) { f.settings = s.withDefaults() }
}

// Factory is the single mapping from model type to a fresh, untrained model.
type Factory struct {
	settings Settings
}

// NewFactory creates a factory with default hyper-parameters.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{settings: DefaultSettings()}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Settings returns the effective hyper-parameters.
func (f *Factory) Settings() Settings { return f.settings }

// New returns an untrained model instance for mt. Every call returns a new
// instance; trained state is never shared across callers.
func (f *Factory) New(mt models.ModelType) (service.Forecaster, error) {
	s := f.settings
	switch mt {
	case models.ModelARIMA:
		return NewAR(s.ARMaxLag), nil
	case models.ModelETS:
		return NewETS(s.ETSSeasonPeriod), nil
	case models.ModelForest:
		return NewForest(s.ForestTrees, s.ForestSeed), nil
	case models.ModelXGBoost:
		return NewBoosting(BoostingParams{
			Iterations:   s.BoostIterations,
			LearningRate: s.BoostLearningRate,
			MaxLeaves:    s.BoostMaxLeaves,
			MinLeaf:      s.BoostMinLeaf,
			Seed:         s.BoostSeed,
		}), nil
	case models.ModelRNN:
		return NewRNN(s.recurrent()), nil
	case models.ModelLSTM:
		return NewLSTM(s.recurrent()), nil
	default:
		return nil, fmt.Errorf("model type %q: %w", string(mt), models.ErrUnknownModelType)
	}
}

func (s Settings) recurrent() RecurrentParams {
	return RecurrentParams{
		InputSize:    s.RecurrentInputSize,
		Hidden:       s.RecurrentHidden,
		Steps:        s.RecurrentSteps,
		Batch:        s.RecurrentBatch,
		LearningRate: s.RecurrentLearningRate,
		Seed:         s.RecurrentSeed,
	}
}
