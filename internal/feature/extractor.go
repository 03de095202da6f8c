// Package feature turns canonical transactions into fixed-size sparse
// feature vectors. Extraction is pure and deterministic for a given schema
// version; any change to the representation must bump SchemaVersion.
package feature

import (
	"hash/fnv"
	"math"
	"strings"

	"github.com/pennyworth-dev/pennyworth/internal/model"
)

// SchemaVersion identifies the current feature representation. A model
// trained under one version rejects vectors produced under another.
const SchemaVersion = 1

// Bucket layout. Word 1-2 grams of the description hash into the text space;
// a reserved bucket catches descriptions that tokenize to nothing, so unseen
// input never errors. The remaining slots hold date/amount derived features.
const (
	textBuckets  = 4096
	unseenBucket = textBuckets

	bucketOutflow   = textBuckets + 1
	bucketInflow    = textBuckets + 2
	bucketMagnitude = textBuckets + 3
	bucketWeekday   = textBuckets + 4 // 7 slots
	bucketMonthBin  = bucketWeekday + 7
	monthBins       = 4

	// VectorSize is the total number of feature slots.
	VectorSize = bucketMonthBin + monthBins
)

// Vector is a sparse feature vector tagged with the schema it was built under.
type Vector struct {
	Weights       map[int]float64
	SchemaVersion int
}

// Extractor derives feature vectors from canonical transactions.
type Extractor struct {
	schemaVersion int
}

// NewExtractor returns an extractor for the current schema version.
func NewExtractor() *Extractor {
	return &Extractor{schemaVersion: SchemaVersion}
}

// SchemaVersion returns the schema version this extractor produces.
func (e *Extractor) SchemaVersion() int {
	return e.schemaVersion
}

// Extract builds the feature vector for a transaction.
func (e *Extractor) Extract(txn *model.Transaction) Vector {
	weights := make(map[int]float64)

	tokens := Tokenize(txn.Description)
	if len(tokens) == 0 {
		weights[unseenBucket] = 1
	}
	for _, gram := range ngrams(tokens) {
		weights[hashBucket(gram)]++
	}

	amount, _ := txn.Amount.Float64()
	if amount < 0 {
		weights[bucketOutflow] = 1
	} else {
		weights[bucketInflow] = 1
	}
	weights[bucketMagnitude] = math.Log1p(math.Abs(amount))

	weights[bucketWeekday+int(txn.Date.Weekday())] = 1
	weights[bucketMonthBin+monthBin(txn.Date.Day())] = 1

	return Vector{Weights: weights, SchemaVersion: e.schemaVersion}
}

// Tokenize lowercases a description and splits it into alphanumeric words.
func Tokenize(s string) []string {
	s = strings.ToLower(s)
	return strings.FieldsFunc(s, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}

// ngrams returns word-level unigrams and bigrams.
func ngrams(tokens []string) []string {
	grams := make([]string, 0, 2*len(tokens))
	grams = append(grams, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		grams = append(grams, tokens[i]+" "+tokens[i+1])
	}
	return grams
}

func hashBucket(gram string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(gram))
	return int(h.Sum32() % uint32(textBuckets))
}

func monthBin(day int) int {
	bin := (day - 1) / 8
	if bin >= monthBins {
		bin = monthBins - 1
	}
	return bin
}
