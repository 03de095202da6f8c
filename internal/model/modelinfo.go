package model

import "time"

// ModelInfo describes one immutable trained model version. Rows are created
// only by the retraining pipeline; exactly one is active at a time.
type ModelInfo struct {
	TrainedAt            time.Time
	ArtifactRef          string // Opaque handle to the fitted parameters
	Version              int
	FeatureSchemaVersion int
	TrainingSetSize      int
	HoldoutAccuracy      float64
	IsActive             bool
}
