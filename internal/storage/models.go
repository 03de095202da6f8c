package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pennyworth-dev/pennyworth/internal/common"
	"github.com/pennyworth-dev/pennyworth/internal/model"
)

// SaveModel appends an immutable model record with the next monotonic version
// and marks it active, deactivating the previous one in the same transaction.
func (s *SQLiteStorage) SaveModel(ctx context.Context, info *model.ModelInfo, artifact []byte) (*model.ModelInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateModelInfo(info); err != nil {
		return nil, err
	}
	if len(artifact) == 0 {
		return nil, fmt.Errorf("%w: artifact", ErrEmptySlice)
	}
	if err := validateString(info.ArtifactRef, "artifactRef"); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var nextVersion int
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) + 1 FROM models`).Scan(&nextVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to compute next model version: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE models SET is_active = 0 WHERE is_active = 1`); err != nil {
		return nil, fmt.Errorf("failed to deactivate previous model: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO models (
			version, trained_at, feature_schema_version,
			holdout_accuracy, training_set_size, artifact_ref, artifact, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, 1)
	`,
		nextVersion,
		info.TrainedAt,
		info.FeatureSchemaVersion,
		info.HoldoutAccuracy,
		info.TrainingSetSize,
		info.ArtifactRef,
		artifact,
	); err != nil {
		return nil, fmt.Errorf("failed to insert model: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit model: %w", err)
	}

	saved := *info
	saved.Version = nextVersion
	saved.IsActive = true

	slog.Info("saved model",
		"version", saved.Version,
		"holdout_accuracy", saved.HoldoutAccuracy,
		"training_set_size", saved.TrainingSetSize)
	return &saved, nil
}

// GetActiveModel returns the currently active model record and its artifact,
// or common.ErrNotFound if no model has been trained yet.
func (s *SQLiteStorage) GetActiveModel(ctx context.Context) (*model.ModelInfo, []byte, error) {
	if err := validateContext(ctx); err != nil {
		return nil, nil, err
	}

	var info model.ModelInfo
	var artifact []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT version, trained_at, feature_schema_version,
		       holdout_accuracy, training_set_size, artifact_ref, artifact, is_active
		FROM models
		WHERE is_active = 1
	`).Scan(
		&info.Version,
		&info.TrainedAt,
		&info.FeatureSchemaVersion,
		&info.HoldoutAccuracy,
		&info.TrainingSetSize,
		&info.ArtifactRef,
		&artifact,
		&info.IsActive,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: active model", common.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get active model: %w", err)
	}
	return &info, artifact, nil
}

// ListModels returns all model records, newest first.
func (s *SQLiteStorage) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT version, trained_at, feature_schema_version,
		       holdout_accuracy, training_set_size, artifact_ref, is_active
		FROM models
		ORDER BY version DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var models []model.ModelInfo
	for rows.Next() {
		var info model.ModelInfo
		if err := rows.Scan(
			&info.Version,
			&info.TrainedAt,
			&info.FeatureSchemaVersion,
			&info.HoldoutAccuracy,
			&info.TrainingSetSize,
			&info.ArtifactRef,
			&info.IsActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		models = append(models, info)
	}
	return models, rows.Err()
}
