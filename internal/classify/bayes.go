// Package classify holds the trained model and maps feature vectors to
// (category, confidence) pairs.
package classify

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/pennyworth-dev/pennyworth/internal/feature"
)

// smoothing is the Laplace smoothing constant for unseen feature buckets.
const smoothing = 1.0

// Example pairs a feature vector with its verified label.
type Example struct {
	Label  string
	Vector feature.Vector
}

// NaiveBayes is a multinomial naive Bayes model over the hashed feature
// space. All fields are exported so a fitted model round-trips through JSON
// as the stored artifact.
type NaiveBayes struct {
	FeatureCounts []map[int]float64 `json:"feature_counts"`
	Classes       []string          `json:"classes"`
	ClassCounts   []float64         `json:"class_counts"`
	TotalCounts   []float64         `json:"total_counts"`
	SchemaVersion int               `json:"schema_version"`
	VectorSize    int               `json:"vector_size"`
}

// Fit trains a model on labeled examples. The label set of the training data
// becomes the model's taxonomy: predictions can never leave it.
func Fit(examples []Example) (*NaiveBayes, error) {
	if len(examples) == 0 {
		return nil, fmt.Errorf("no training examples")
	}

	schemaVersion := examples[0].Vector.SchemaVersion
	classIndex := make(map[string]int)
	var classes []string
	for _, ex := range examples {
		if ex.Vector.SchemaVersion != schemaVersion {
			return nil, fmt.Errorf("mixed feature schema versions in training data: %d and %d",
				schemaVersion, ex.Vector.SchemaVersion)
		}
		if _, ok := classIndex[ex.Label]; !ok {
			classIndex[ex.Label] = len(classes)
			classes = append(classes, ex.Label)
		}
	}
	if len(classes) < 2 {
		return nil, fmt.Errorf("need at least 2 distinct categories, got %d", len(classes))
	}

	// Stable class ordering keeps fitted artifacts reproducible.
	sort.Strings(classes)
	for i, c := range classes {
		classIndex[c] = i
	}

	nb := &NaiveBayes{
		Classes:       classes,
		ClassCounts:   make([]float64, len(classes)),
		TotalCounts:   make([]float64, len(classes)),
		FeatureCounts: make([]map[int]float64, len(classes)),
		SchemaVersion: schemaVersion,
		VectorSize:    feature.VectorSize,
	}
	for i := range nb.FeatureCounts {
		nb.FeatureCounts[i] = make(map[int]float64)
	}

	for _, ex := range examples {
		idx := classIndex[ex.Label]
		nb.ClassCounts[idx]++
		for bucket, weight := range ex.Vector.Weights {
			nb.FeatureCounts[idx][bucket] += weight
			nb.TotalCounts[idx] += weight
		}
	}

	return nb, nil
}

// Predict returns the most likely category with its posterior probability.
// The posterior is normalized over the model's taxonomy, so confidence is
// probability-like rather than a raw score.
func (nb *NaiveBayes) Predict(vec feature.Vector) (string, float64) {
	scores := make([]float64, len(nb.Classes))
	totalDocs := 0.0
	for _, c := range nb.ClassCounts {
		totalDocs += c
	}

	for i := range nb.Classes {
		score := math.Log(nb.ClassCounts[i] / totalDocs)
		denom := nb.TotalCounts[i] + smoothing*float64(nb.VectorSize)
		for bucket, weight := range vec.Weights {
			score += weight * math.Log((nb.FeatureCounts[i][bucket]+smoothing)/denom)
		}
		scores[i] = score
	}

	best := 0
	maxScore := scores[0]
	for i, s := range scores {
		if s > maxScore {
			maxScore = s
			best = i
		}
	}

	// Log-sum-exp normalization.
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - maxScore)
	}
	confidence := 1.0 / sum

	return nb.Classes[best], confidence
}

// Marshal serializes the fitted parameters as the stored model artifact.
func (nb *NaiveBayes) Marshal() ([]byte, error) {
	data, err := json.Marshal(nb)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model artifact: %w", err)
	}
	return data, nil
}

// UnmarshalArtifact deserializes a stored model artifact.
func UnmarshalArtifact(data []byte) (*NaiveBayes, error) {
	var nb NaiveBayes
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model artifact: %w", err)
	}
	if len(nb.Classes) == 0 {
		return nil, fmt.Errorf("model artifact has no classes")
	}
	return &nb, nil
}
