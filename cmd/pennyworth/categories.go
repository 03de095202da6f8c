package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage the category taxonomy",
		Long: `Categories are a flat set of labels. Retiring a category removes it from
the taxonomy without touching transactions that were verified under it; those
labels stay in the history and are skipped at training time.`,
	}

	cmd.AddCommand(categoriesListCmd())
	cmd.AddCommand(categoriesAddCmd())
	cmd.AddCommand(categoriesRetireCmd())
	return cmd
}

func categoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categories, err := store.GetCategories(cmd.Context())
			if err != nil {
				return err
			}
			if len(categories) == 0 {
				fmt.Println("no categories yet; add one with: pennyworth categories add <name>")
				return nil
			}
			for _, cat := range categories {
				if cat.Description != "" {
					fmt.Printf("%-24s %s\n", cat.Name, cat.Description)
				} else {
					fmt.Println(cat.Name)
				}
			}
			return nil
		},
	}
}

func categoriesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category (or reactivate a retired one)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			description, _ := cmd.Flags().GetString("description")
			cat, err := store.CreateCategory(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			fmt.Printf("added category %q\n", cat.Name)
			return nil
		},
	}
	cmd.Flags().String("description", "", "optional category description")
	return cmd
}

func categoriesRetireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retire <name>",
		Short: "Retire a category, keeping historical references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.RetireCategory(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("retired category %q\n", args[0])
			return nil
		},
	}
}
