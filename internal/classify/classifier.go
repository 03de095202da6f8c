package classify

import (
	"fmt"
	"sync/atomic"

	"github.com/pennyworth-dev/pennyworth/internal/common"
	"github.com/pennyworth-dev/pennyworth/internal/feature"
	"github.com/pennyworth-dev/pennyworth/internal/model"
)

// DefaultConfidenceThreshold flags predictions for preferential human review.
const DefaultConfidenceThreshold = 0.7

// Prediction is the classifier output for one transaction.
type Prediction struct {
	Category     string
	Confidence   float64
	ModelVersion int
	NeedsReview  bool
}

// activeModel bundles a fitted model with its registry record so a reader
// always sees a consistent pair.
type activeModel struct {
	info model.ModelInfo
	nb   *NaiveBayes
}

// Classifier serves predictions from the currently active model. The active
// reference is swapped atomically on promotion; in-flight predictions finish
// against the model they loaded.
type Classifier struct {
	active    atomic.Pointer[activeModel]
	threshold float64
}

// New creates a classifier with no active model. Predictions fail with
// common.ErrNoActiveModel until Promote is called.
func New(threshold float64) *Classifier {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultConfidenceThreshold
	}
	return &Classifier{threshold: threshold}
}

// Promote atomically repoints the classifier at a newly trained model.
func (c *Classifier) Promote(info model.ModelInfo, nb *NaiveBayes) {
	c.active.Store(&activeModel{info: info, nb: nb})
}

// Active returns the active model record, or nil when nothing is trained.
func (c *Classifier) Active() *model.ModelInfo {
	am := c.active.Load()
	if am == nil {
		return nil
	}
	info := am.info
	return &info
}

// Predict classifies a feature vector with the active model. Low-confidence
// predictions are still returned but flagged for review; the engine never
// silently guesses without marking uncertainty.
func (c *Classifier) Predict(vec feature.Vector) (*Prediction, error) {
	am := c.active.Load()
	if am == nil {
		return nil, common.ErrNoActiveModel
	}

	if vec.SchemaVersion != am.nb.SchemaVersion {
		return nil, fmt.Errorf("%w: vector built under schema %d, model trained under %d",
			common.ErrSchemaMismatch, vec.SchemaVersion, am.nb.SchemaVersion)
	}

	category, confidence := am.nb.Predict(vec)
	return &Prediction{
		Category:     category,
		Confidence:   confidence,
		ModelVersion: am.info.Version,
		NeedsReview:  confidence < c.threshold,
	}, nil
}
