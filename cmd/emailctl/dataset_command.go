package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mikey/email-classifier/internal/training"
)

func newDatasetCommand() *cobra.Command {
	datasetCmd := &cobra.Command{
		Use:   "dataset",
		Short: "Manage training datasets",
	}
	datasetCmd.AddCommand(newDatasetGenerateCommand())
	return datasetCmd
}

func newDatasetGenerateCommand() *cobra.Command {
	var (
		out   string
		pairs int
		seed  int64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic Portuguese training dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pairs <= 0 {
				return fmt.Errorf("--pairs must be positive")
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := training.GenerateDataset(f, pairs, seed); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dataset gerado: %s (%d linhas)\n", out, pairs*2)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "train/sample_data.csv", "Output CSV path")
	cmd.Flags().IntVar(&pairs, "pairs", 100, "Number of productive/unproductive row pairs")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	return cmd
}
