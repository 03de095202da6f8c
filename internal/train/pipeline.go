// Package train implements the retrain/evaluate/promote pipeline. It consumes
// the label store's verified subset, fits a candidate model, scores it on a
// held-out split, and promotes it only when accuracy does not regress.
package train

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pennyworth-dev/pennyworth/internal/classify"
	"github.com/pennyworth-dev/pennyworth/internal/common"
	"github.com/pennyworth-dev/pennyworth/internal/feature"
	"github.com/pennyworth-dev/pennyworth/internal/model"
	"github.com/pennyworth-dev/pennyworth/internal/service"
)

// State tracks where a retraining run is in its lifecycle.
type State string

// Pipeline states.
const (
	StateIdle       State = "idle"
	StateCollecting State = "collecting"
	StateTraining   State = "training"
	StateEvaluating State = "evaluating"
)

// Outcome is the terminal result of a retraining run.
type Outcome string

// Run outcomes.
const (
	OutcomePromoted         Outcome = "promoted"
	OutcomeRejected         Outcome = "rejected"
	OutcomeInsufficientData Outcome = "insufficient_data"
)

// Config holds the retraining thresholds.
type Config struct {
	MinExamples     int
	HoldoutFraction float64
	Tolerance       float64
	Seed            int64
}

// DefaultConfig mirrors the defaults the system shipped with: at least 10
// verified examples, an 80/20 split, and a fixed seed for reproducible splits.
func DefaultConfig() Config {
	return Config{
		MinExamples:     10,
		HoldoutFraction: 0.2,
		Tolerance:       0.02,
		Seed:            42,
	}
}

// Result reports what a retraining run did.
type Result struct {
	PerCategoryRecall map[string]float64
	Outcome           Outcome
	Reason            string
	SkippedRetired    []string
	Version           int
	Accuracy          float64
	TrainingSetSize   int
}

// Pipeline orchestrates one retraining run at a time.
type Pipeline struct {
	storage    service.Storage
	extractor  *feature.Extractor
	classifier *classify.Classifier
	cfg        Config

	mu    sync.Mutex
	state State
}

// New creates a retraining pipeline.
func New(storage service.Storage, extractor *feature.Extractor, classifier *classify.Classifier, cfg Config) *Pipeline {
	if cfg.MinExamples <= 0 {
		cfg.MinExamples = DefaultConfig().MinExamples
	}
	if cfg.HoldoutFraction <= 0 || cfg.HoldoutFraction >= 1 {
		cfg.HoldoutFraction = DefaultConfig().HoldoutFraction
	}
	if cfg.Tolerance < 0 {
		cfg.Tolerance = DefaultConfig().Tolerance
	}
	return &Pipeline{
		storage:    storage,
		extractor:  extractor,
		classifier: classifier,
		cfg:        cfg,
		state:      StateIdle,
	}
}

// State returns the pipeline's current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run executes one retraining cycle. Any failure returns the pipeline to
// idle with a reason; the previously active model is never touched unless a
// candidate is promoted.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return nil, fmt.Errorf("retraining already in progress (state %s)", p.state)
	}
	p.state = StateCollecting
	p.mu.Unlock()
	defer p.setState(StateIdle)

	examples, skipped, err := p.collect(ctx)
	if err != nil {
		if res := insufficientResult(err, skipped); res != nil {
			return res, nil
		}
		return nil, err
	}

	p.setState(StateTraining)
	trainSet, holdout := p.split(examples)

	candidate, err := classify.Fit(trainSet)
	if err != nil {
		return nil, fmt.Errorf("failed to fit candidate model: %w", err)
	}

	p.setState(StateEvaluating)
	accuracy, recall := evaluate(candidate, holdout)

	// Promote only a candidate that strictly improves on the active model;
	// the tolerance guards against noisy holdout splits, not stagnation.
	active := p.classifier.Active()
	if active != nil && (accuracy < active.HoldoutAccuracy-p.cfg.Tolerance || accuracy <= active.HoldoutAccuracy) {
		var reason string
		if accuracy < active.HoldoutAccuracy-p.cfg.Tolerance {
			reason = fmt.Sprintf("candidate holdout accuracy %.4f regressed beyond tolerance from active %.4f",
				accuracy, active.HoldoutAccuracy)
		} else {
			reason = fmt.Sprintf("candidate holdout accuracy %.4f does not improve on active %.4f",
				accuracy, active.HoldoutAccuracy)
		}
		slog.Info("rejected candidate model", "reason", reason)
		return &Result{
			Outcome:           OutcomeRejected,
			Reason:            reason,
			Accuracy:          accuracy,
			PerCategoryRecall: recall,
			SkippedRetired:    skipped,
			TrainingSetSize:   len(examples),
		}, nil
	}

	artifact, err := candidate.Marshal()
	if err != nil {
		return nil, err
	}

	info := &model.ModelInfo{
		TrainedAt:            time.Now(),
		FeatureSchemaVersion: p.extractor.SchemaVersion(),
		HoldoutAccuracy:      accuracy,
		TrainingSetSize:      len(examples),
		ArtifactRef:          uuid.NewString(),
	}

	saved, err := p.storage.SaveModel(ctx, info, artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to persist candidate model: %w", err)
	}

	// Single atomic swap; concurrent predictions see old or new, never both.
	p.classifier.Promote(*saved, candidate)

	slog.Info("promoted model",
		"version", saved.Version,
		"holdout_accuracy", accuracy,
		"training_set_size", len(examples))

	return &Result{
		Outcome:           OutcomePromoted,
		Version:           saved.Version,
		Accuracy:          accuracy,
		PerCategoryRecall: recall,
		SkippedRetired:    skipped,
		TrainingSetSize:   len(examples),
	}, nil
}

// collect builds the training set from verified labels, skipping transactions
// whose category has since been retired from the taxonomy.
func (p *Pipeline) collect(ctx context.Context) ([]classify.Example, []string, error) {
	verified, err := p.storage.GetVerifiedTransactions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load verified transactions: %w", err)
	}

	categories, err := p.storage.GetCategories(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	active := make(map[string]bool, len(categories))
	for _, cat := range categories {
		active[cat.Name] = true
	}

	var examples []classify.Example
	var skipped []string
	labels := make(map[string]bool)
	for i := range verified {
		txn := &verified[i]
		if !active[txn.VerifiedCategory] {
			skipped = append(skipped, txn.ID)
			slog.Debug("skipping transaction with retired category",
				"transaction_id", txn.ID,
				"category", txn.VerifiedCategory)
			continue
		}
		examples = append(examples, classify.Example{
			Label:  txn.VerifiedCategory,
			Vector: p.extractor.Extract(txn),
		})
		labels[txn.VerifiedCategory] = true
	}

	if len(examples) < p.cfg.MinExamples {
		return nil, skipped, fmt.Errorf("%w: %d verified examples, need %d",
			common.ErrInsufficientData, len(examples), p.cfg.MinExamples)
	}
	if len(labels) < 2 {
		return nil, skipped, fmt.Errorf("%w: only %d distinct categories represented",
			common.ErrInsufficientData, len(labels))
	}
	return examples, skipped, nil
}

// split partitions examples into train and holdout sets, stratified by
// category so rare labels appear in both sides where feasible.
func (p *Pipeline) split(examples []classify.Example) (trainSet, holdout []classify.Example) {
	rng := rand.New(rand.NewSource(p.cfg.Seed))

	byLabel := make(map[string][]classify.Example)
	var labels []string
	for _, ex := range examples {
		if _, ok := byLabel[ex.Label]; !ok {
			labels = append(labels, ex.Label)
		}
		byLabel[ex.Label] = append(byLabel[ex.Label], ex)
	}

	for _, label := range labels {
		group := byLabel[label]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })

		n := int(math.Round(p.cfg.HoldoutFraction * float64(len(group))))
		if len(group) >= 2 && n == 0 {
			n = 1
		}
		if n >= len(group) {
			n = len(group) - 1
		}
		holdout = append(holdout, group[:n]...)
		trainSet = append(trainSet, group[n:]...)
	}

	// Degenerate corpus of singleton categories: steal one example from the
	// most populous label so evaluation has something to score.
	if len(holdout) == 0 && len(trainSet) > 1 {
		counts := make(map[string]int)
		for _, ex := range trainSet {
			counts[ex.Label]++
		}
		victim := 0
		for i, ex := range trainSet {
			if counts[ex.Label] > counts[trainSet[victim].Label] {
				victim = i
			}
		}
		holdout = append(holdout, trainSet[victim])
		trainSet = append(trainSet[:victim], trainSet[victim+1:]...)
	}
	return trainSet, holdout
}

// evaluate scores a candidate on the holdout split.
func evaluate(nb *classify.NaiveBayes, holdout []classify.Example) (float64, map[string]float64) {
	if len(holdout) == 0 {
		return 0, nil
	}

	correct := 0
	perLabelTotal := make(map[string]int)
	perLabelHit := make(map[string]int)
	for _, ex := range holdout {
		predicted, _ := nb.Predict(ex.Vector)
		perLabelTotal[ex.Label]++
		if predicted == ex.Label {
			correct++
			perLabelHit[ex.Label]++
		}
	}

	recall := make(map[string]float64, len(perLabelTotal))
	for label, total := range perLabelTotal {
		recall[label] = float64(perLabelHit[label]) / float64(total)
	}
	return float64(correct) / float64(len(holdout)), recall
}

func insufficientResult(err error, skipped []string) *Result {
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrInsufficientData) {
		return nil
	}
	return &Result{
		Outcome:        OutcomeInsufficientData,
		Reason:         err.Error(),
		SkippedRetired: skipped,
	}
}
