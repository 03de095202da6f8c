package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pennyworth-dev/pennyworth/internal/train"
)

func retrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retrain",
		Short: "Retrain the model from verified transactions",
		Long: `Collect every verified transaction, train a candidate model, and evaluate
it on a held-out slice. The candidate is promoted only if it does not regress
against the active model; otherwise the active model stays in place.`,
		RunE: runRetrain,
	}
}

func runRetrain(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng, err := newEngine(ctx, store)
	if err != nil {
		return err
	}

	result, err := eng.Retrain(ctx)
	if err != nil {
		return err
	}
	printTrainResult(result)
	return nil
}

func printTrainResult(result *train.Result) {
	switch result.Outcome {
	case train.OutcomePromoted:
		fmt.Printf("promoted model v%d (accuracy %.2f on %d examples)\n",
			result.Version, result.Accuracy, result.TrainingSetSize)
	case train.OutcomeRejected:
		fmt.Printf("candidate rejected: %s\n", result.Reason)
	case train.OutcomeInsufficientData:
		fmt.Printf("not enough data: %s\n", result.Reason)
	}

	if len(result.SkippedRetired) > 0 {
		fmt.Printf("skipped retired categories: %v\n", result.SkippedRetired)
	}

	if len(result.PerCategoryRecall) > 0 {
		categories := make([]string, 0, len(result.PerCategoryRecall))
		for cat := range result.PerCategoryRecall {
			categories = append(categories, cat)
		}
		sort.Strings(categories)
		fmt.Println("holdout recall:")
		for _, cat := range categories {
			fmt.Printf("  %-24s %.2f\n", cat, result.PerCategoryRecall[cat])
		}
	}
}
