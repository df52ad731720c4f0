// Package trainer fits the logistic model on historical head-to-head samples
// and promotes the artifact only when it beats the heuristic baseline.
package trainer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecaller/internal/artifact"
	"github.com/yourusername/racecaller/internal/backtest"
	"github.com/yourusername/racecaller/internal/metrics"
	"github.com/yourusername/racecaller/internal/models"
	"github.com/yourusername/racecaller/internal/scoring"
)

// Config controls a training run.
type Config struct {
	ModelPath    string
	Iterations   int
	LearningRate float64
	L2Penalty    float64
	Force        bool
}

func (c Config) withDefaults() Config {
	if c.Iterations <= 0 {
		c.Iterations = 2000
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.5
	}
	if c.L2Penalty < 0 {
		c.L2Penalty = 0
	}
	return c
}

// Result summarizes one training run.
type Result struct {
	Artifact      *models.ModelArtifact
	Saved         bool
	Reason        string
	Skips         backtest.SkipCounters
	Train         backtest.MetricsSummary
	Test          backtest.MetricsSummary
	HeuristicTest backtest.MetricsSummary
}

// Trainer runs offline model fitting against harness-built samples.
type Trainer struct {
	harness *backtest.Harness
	store   *artifact.Store
	logger  *logrus.Logger
}

// New creates a trainer.
func New(harness *backtest.Harness, store *artifact.Store, logger *logrus.Logger) (*Trainer, error) {
	if harness == nil {
		return nil, fmt.Errorf("backtest harness is required")
	}
	if store == nil {
		return nil, fmt.Errorf("artifact store is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Trainer{harness: harness, store: store, logger: logger}, nil
}

// Train builds samples, fits logistic weights by batch gradient descent,
// calibrates on the train split, and saves the artifact when the calibrated
// model beats the heuristic baseline on both Brier score and log-loss.
func (t *Trainer) Train(ctx context.Context, backtestCfg backtest.Config, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()

	samples, skips, err := t.harness.BuildSamples(ctx, backtestCfg)
	if err != nil {
		metrics.TrainingRunsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	train, test := backtest.Split(samples, backtestCfg.TrainFraction)
	if len(train) < backtest.MinTrainSamples {
		metrics.TrainingRunsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("need at least %d training samples, got %d", backtest.MinTrainSamples, len(train))
	}

	trainVecs, trainLabels := featureMatrix(train)
	testVecs, testLabels := featureMatrix(test)

	intercept, weights := fit(trainVecs, trainLabels, cfg)

	trainPreds := score(trainVecs, intercept, weights)
	testPreds := score(testVecs, intercept, weights)

	calibration := backtest.FitPlatt(trainPreds, trainLabels)
	calibratedTest := testPreds
	if calibration != nil {
		calibratedTest = make([]float64, len(testPreds))
		for i, p := range testPreds {
			calibratedTest[i] = backtest.ApplyPlatt(calibration, p)
		}
	}

	heuristic := &scoring.HeuristicScorer{}
	heuristicPreds := make([]float64, len(test))
	for i := range test {
		heuristicPreds[i] = heuristic.ProbabilityA(test[i].StatsA, test[i].StatsB)
	}

	result := &Result{
		Skips:         skips,
		Train:         backtest.Evaluate(trainPreds, trainLabels),
		Test:          backtest.Evaluate(calibratedTest, testLabels),
		HeuristicTest: backtest.Evaluate(heuristicPreds, testLabels),
	}

	weightMap := make(map[string]float64, len(scoring.CanonicalFeatures))
	for i, name := range scoring.CanonicalFeatures {
		weightMap[name] = weights[i]
	}
	result.Artifact = &models.ModelArtifact{
		Version:     time.Now().UTC().Format("v20060102T150405Z"),
		CreatedAt:   time.Now().UTC(),
		Features:    append([]string(nil), scoring.CanonicalFeatures...),
		Intercept:   intercept,
		Weights:     weightMap,
		Calibration: calibration,
		Training: &models.TrainingMetadata{
			TrainedAt:        time.Now().UTC(),
			SampleCount:      len(samples),
			TrainSize:        len(train),
			TestSize:         len(test),
			Iterations:       cfg.Iterations,
			LearningRate:     cfg.LearningRate,
			L2Penalty:        cfg.L2Penalty,
			TestBrier:        result.Test.Brier,
			TestLogLoss:      result.Test.LogLoss,
			HeuristicBrier:   result.HeuristicTest.Brier,
			HeuristicLogLoss: result.HeuristicTest.LogLoss,
		},
	}

	beatsBaseline := result.Test.Brier < result.HeuristicTest.Brier &&
		result.Test.LogLoss < result.HeuristicTest.LogLoss
	switch {
	case beatsBaseline:
		result.Reason = "beats heuristic baseline"
	case cfg.Force:
		result.Reason = "forced save despite baseline"
	default:
		result.Reason = "does not beat heuristic baseline"
		metrics.TrainingRunsTotal.WithLabelValues("rejected").Inc()
		t.logger.WithFields(logrus.Fields{
			"test_brier":        result.Test.Brier,
			"heuristic_brier":   result.HeuristicTest.Brier,
			"test_logloss":      result.Test.LogLoss,
			"heuristic_logloss": result.HeuristicTest.LogLoss,
		}).Warn("Trained model rejected")
		return result, nil
	}

	if err := artifact.Save(result.Artifact, cfg.ModelPath); err != nil {
		metrics.TrainingRunsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("failed to save model artifact: %w", err)
	}
	t.store.Invalidate(cfg.ModelPath)
	result.Saved = true
	metrics.TrainingRunsTotal.WithLabelValues("saved").Inc()

	t.logger.WithFields(logrus.Fields{
		"version":    result.Artifact.Version,
		"model_path": cfg.ModelPath,
		"train_size": len(train),
		"test_size":  len(test),
		"test_brier": result.Test.Brier,
	}).Info("Saved trained model artifact")
	return result, nil
}

// fit runs batch gradient descent for logistic regression. The learning rate
// decays linearly to 30% of its initial value over the run, and the L2
// penalty applies to weights only, never the intercept.
func fit(vectors [][]float64, labels []float64, cfg Config) (intercept float64, weights []float64) {
	features := len(scoring.CanonicalFeatures)
	weights = make([]float64, features)
	n := float64(len(vectors))
	if n == 0 {
		return 0, weights
	}

	for iter := 0; iter < cfg.Iterations; iter++ {
		progress := float64(iter) / float64(cfg.Iterations)
		lr := cfg.LearningRate * (1 - 0.7*progress)

		gradIntercept := 0.0
		gradWeights := make([]float64, features)
		for i, vec := range vectors {
			z := intercept
			for j, w := range weights {
				z += w * vec[j]
			}
			residual := scoring.Sigmoid(z) - labels[i]
			gradIntercept += residual
			for j := range gradWeights {
				gradWeights[j] += residual * vec[j]
			}
		}

		intercept -= lr * gradIntercept / n
		for j := range weights {
			weights[j] -= lr * (gradWeights[j]/n + cfg.L2Penalty*weights[j])
		}
	}

	if math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		intercept = 0
	}
	for j := range weights {
		if math.IsNaN(weights[j]) || math.IsInf(weights[j], 0) {
			weights[j] = 0
		}
	}
	return intercept, weights
}

func score(vectors [][]float64, intercept float64, weights []float64) []float64 {
	predictions := make([]float64, len(vectors))
	for i, vec := range vectors {
		z := intercept
		for j, w := range weights {
			z += w * vec[j]
		}
		predictions[i] = scoring.ClampProbability(scoring.Sigmoid(z))
	}
	return predictions
}

func featureMatrix(samples []backtest.Sample) (vectors [][]float64, labels []float64) {
	vectors = make([][]float64, len(samples))
	labels = make([]float64, len(samples))
	for i := range samples {
		deltas := scoring.DeltaVector(samples[i].StatsA, samples[i].StatsB)
		vec := make([]float64, len(scoring.CanonicalFeatures))
		for j, name := range scoring.CanonicalFeatures {
			vec[j] = deltas[name]
		}
		vectors[i] = vec
		labels[i] = samples[i].Label
	}
	return vectors, labels
}
