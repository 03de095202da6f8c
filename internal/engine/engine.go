// Package engine orchestrates ingestion, prediction, verification, retraining
// and sync over the underlying stores and the active model.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/pennyworth-dev/pennyworth/internal/classify"
	"github.com/pennyworth-dev/pennyworth/internal/common"
	"github.com/pennyworth-dev/pennyworth/internal/feature"
	"github.com/pennyworth-dev/pennyworth/internal/ingest"
	"github.com/pennyworth-dev/pennyworth/internal/model"
	"github.com/pennyworth-dev/pennyworth/internal/ofx"
	"github.com/pennyworth-dev/pennyworth/internal/service"
	"github.com/pennyworth-dev/pennyworth/internal/sync"
	"github.com/pennyworth-dev/pennyworth/internal/train"
)

// RowStatus is the per-row outcome of one ingested record.
type RowStatus string

// Row outcome constants.
const (
	RowInserted   RowStatus = "inserted"
	RowDuplicate  RowStatus = "duplicate"
	RowParseError RowStatus = "parse_error"
)

// RowOutcome reports what happened to a single source row.
type RowOutcome struct {
	Status        RowStatus
	TransactionID string
	Reason        string
	Row           int
}

// IngestReport summarizes one ingestion batch.
type IngestReport struct {
	Outcomes   []RowOutcome
	Inserted   int
	Duplicates int
	Failed     int
	Predicted  int
}

// Engine wires the normalizers, store, classifier and pipeline together.
type Engine struct {
	storage    service.Storage
	extractor  *feature.Extractor
	classifier *classify.Classifier
	pipeline   *train.Pipeline
	ofxParser  *ofx.Parser
}

// New creates an engine with the given dependencies.
func New(storage service.Storage, extractor *feature.Extractor, classifier *classify.Classifier, trainCfg train.Config) *Engine {
	return &Engine{
		storage:    storage,
		extractor:  extractor,
		classifier: classifier,
		pipeline:   train.New(storage, extractor, classifier, trainCfg),
		ofxParser:  ofx.NewParser(),
	}
}

// LoadActiveModel restores the persisted active model into the classifier.
// Having no trained model yet is a normal state, not an error.
func (e *Engine) LoadActiveModel(ctx context.Context) error {
	info, artifact, err := e.storage.GetActiveModel(ctx)
	if errors.Is(err, common.ErrNotFound) {
		slog.Debug("no active model yet, predictions disabled")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load active model: %w", err)
	}

	nb, err := classify.UnmarshalArtifact(artifact)
	if err != nil {
		return fmt.Errorf("failed to decode model artifact %s: %w", info.ArtifactRef, err)
	}

	e.classifier.Promote(*info, nb)
	slog.Info("loaded active model",
		"version", info.Version,
		"holdout_accuracy", info.HoldoutAccuracy)
	return nil
}

// Ingest normalizes a CSV upload, persists the new rows, and predicts
// categories for them when a model is active. Missing models never fail
// ingestion; the rows simply stay unpredicted until the first promotion.
func (e *Engine) Ingest(ctx context.Context, reader io.Reader, mapping ingest.ColumnMapping) (*IngestReport, error) {
	normalizer, err := ingest.NewNormalizer(mapping)
	if err != nil {
		return nil, err
	}

	parsed, err := normalizer.Parse(reader)
	if err != nil {
		return nil, err
	}

	txns := make([]model.Transaction, len(parsed.Drafts))
	for i, draft := range parsed.Drafts {
		txns[i] = draft.Transaction
	}

	report := &IngestReport{}
	if len(txns) > 0 {
		saved, err := e.storage.SaveTransactions(ctx, txns)
		if err != nil {
			return nil, fmt.Errorf("failed to save transactions: %w", err)
		}
		report.Outcomes = rowOutcomes(parsed, saved)
	} else {
		report.Outcomes = rowOutcomes(parsed, &service.SaveResult{})
	}

	for _, outcome := range report.Outcomes {
		switch outcome.Status {
		case RowInserted:
			report.Inserted++
		case RowDuplicate:
			report.Duplicates++
		case RowParseError:
			report.Failed++
		}
	}

	predicted, err := e.PredictPending(ctx)
	if err != nil {
		return nil, err
	}
	report.Predicted = predicted

	slog.Info("ingestion complete",
		"inserted", report.Inserted,
		"duplicates", report.Duplicates,
		"failed", report.Failed,
		"predicted", report.Predicted)
	return report, nil
}

// IngestOFX runs the OFX/QFX path into the same pipeline as CSV ingestion.
func (e *Engine) IngestOFX(ctx context.Context, reader io.Reader, accountLabel string) (*IngestReport, error) {
	txns, err := e.ofxParser.ParseFile(ctx, reader, accountLabel)
	if err != nil {
		return nil, err
	}

	report := &IngestReport{}
	if len(txns) > 0 {
		saved, err := e.storage.SaveTransactions(ctx, txns)
		if err != nil {
			return nil, fmt.Errorf("failed to save transactions: %w", err)
		}
		report.Inserted = len(saved.Inserted)
		report.Duplicates = len(txns) - len(saved.Inserted)
	}

	predicted, err := e.PredictPending(ctx)
	if err != nil {
		return nil, err
	}
	report.Predicted = predicted
	return report, nil
}

// PredictPending predicts categories for every pending transaction that has
// none yet. With no active model this is a no-op. Predictions never touch
// verified categories; the store enforces that independently.
func (e *Engine) PredictPending(ctx context.Context) (int, error) {
	if e.classifier.Active() == nil {
		return 0, nil
	}

	pending, err := e.storage.GetTransactionsToPredict(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load unpredicted transactions: %w", err)
	}

	predicted := 0
	for i := range pending {
		txn := &pending[i]
		pred, err := e.classifier.Predict(e.extractor.Extract(txn))
		if err != nil {
			// Model swapped out mid-batch or schema drift. Leave the row
			// unpredicted rather than failing the batch.
			slog.Warn("prediction failed",
				"transaction_id", txn.ID,
				"error", err)
			continue
		}
		if err := e.storage.SavePrediction(ctx, txn.ID, pred.Category, pred.Confidence, pred.ModelVersion, pred.NeedsReview); err != nil {
			return predicted, fmt.Errorf("failed to save prediction for %s: %w", txn.ID, err)
		}
		predicted++
	}
	return predicted, nil
}

// Verify records a human category decision.
func (e *Engine) Verify(ctx context.Context, transactionID, category string) error {
	return e.storage.RecordVerification(ctx, transactionID, category)
}

// Unverify reverts a verification, leaving an audit trail.
func (e *Engine) Unverify(ctx context.Context, transactionID string) error {
	return e.storage.Unverify(ctx, transactionID)
}

// Retrain runs the full retraining pipeline. After a promotion every
// unpredicted pending transaction is scored with the new model.
func (e *Engine) Retrain(ctx context.Context) (*train.Result, error) {
	result, err := e.pipeline.Run(ctx)
	if err != nil {
		return nil, err
	}

	if result.Outcome == train.OutcomePromoted {
		if _, err := e.PredictPending(ctx); err != nil {
			slog.Warn("failed to predict pending after promotion", "error", err)
		}
	}
	return result, nil
}

// Sync pushes verified transactions through the given adapter.
func (e *Engine) Sync(ctx context.Context, pusher sync.Pusher, retry service.RetryOptions) (*sync.Report, error) {
	return sync.NewSyncer(e.storage, pusher, retry).SyncAll(ctx)
}

// rowOutcomes merges parse failures with store results into one list ordered
// by source row. A content-hash that repeats inside the batch is a duplicate
// from the second occurrence on.
func rowOutcomes(parsed *ingest.ParseResult, saved *service.SaveResult) []RowOutcome {
	outcomes := make([]RowOutcome, 0, len(parsed.Drafts)+len(parsed.Errors))

	inserted := make(map[string]bool, len(saved.Inserted))
	for _, id := range saved.Inserted {
		inserted[id] = true
	}

	counted := make(map[string]bool)
	for _, draft := range parsed.Drafts {
		id := draft.Transaction.ID
		status := RowDuplicate
		if inserted[id] && !counted[id] {
			status = RowInserted
			counted[id] = true
		}
		outcomes = append(outcomes, RowOutcome{
			Row:           draft.Row,
			TransactionID: id,
			Status:        status,
		})
	}

	for _, rowErr := range parsed.Errors {
		outcomes = append(outcomes, RowOutcome{
			Row:    rowErr.Row,
			Status: RowParseError,
			Reason: rowErr.Reason,
		})
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Row < outcomes[j].Row })
	return outcomes
}
