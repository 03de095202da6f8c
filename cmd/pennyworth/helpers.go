package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/pennyworth-dev/pennyworth/internal/classify"
	"github.com/pennyworth-dev/pennyworth/internal/engine"
	"github.com/pennyworth-dev/pennyworth/internal/feature"
	"github.com/pennyworth-dev/pennyworth/internal/storage"
	"github.com/pennyworth-dev/pennyworth/internal/train"
)

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pennyworth.db"
	}
	return filepath.Join(home, ".config", "pennyworth", "pennyworth.db")
}

// openStorage opens the database and brings the schema up to date.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = defaultDBPath()
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// newEngine builds the engine over an open store and restores the active
// model, if one has been trained.
func newEngine(ctx context.Context, store *storage.SQLiteStorage) (*engine.Engine, error) {
	threshold := viper.GetFloat64("classifier.confidence_threshold")
	if threshold == 0 {
		threshold = classify.DefaultConfidenceThreshold
	}

	trainCfg := train.DefaultConfig()
	if v := viper.GetInt("retrain.min_examples"); v > 0 {
		trainCfg.MinExamples = v
	}
	if v := viper.GetFloat64("retrain.holdout_fraction"); v > 0 {
		trainCfg.HoldoutFraction = v
	}
	if v := viper.GetFloat64("retrain.tolerance"); v > 0 {
		trainCfg.Tolerance = v
	}

	eng := engine.New(store, feature.NewExtractor(), classify.New(threshold), trainCfg)
	if err := eng.LoadActiveModel(ctx); err != nil {
		return nil, err
	}
	return eng, nil
}
