package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List trained models, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			models, err := store.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			if len(models) == 0 {
				fmt.Println("no models trained yet; run: pennyworth retrain")
				return nil
			}

			fmt.Printf("%-8s %-20s %-10s %-10s %s\n", "VERSION", "TRAINED", "ACCURACY", "EXAMPLES", "ACTIVE")
			for _, m := range models {
				active := ""
				if m.IsActive {
					active = "*"
				}
				fmt.Printf("v%-7d %-20s %-10.2f %-10d %s\n",
					m.Version,
					m.TrainedAt.Format("2006-01-02 15:04"),
					m.HoldoutAccuracy,
					m.TrainingSetSize,
					active)
			}
			return nil
		},
	}
}
