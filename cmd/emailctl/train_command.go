package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/config"
	"github.com/mikey/email-classifier/internal/training"
)

func newTrainCommand(ctx *commandContext) *cobra.Command {
	var datasetPath string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the local classifier from a labelled CSV dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.invoke(func(cfg *config.Config, logger *zap.Logger) error {
				trainCfg, err := cfg.GetTraining()
				if err != nil {
					return err
				}
				if datasetPath == "" {
					datasetPath = cfg.GetString("training.dataset_path")
				}
				modelPath := cfg.GetModel().Path

				_, report, err := training.NewTrainer(trainCfg, logger).TrainFile(cmd.Context(), datasetPath, modelPath)
				if err != nil {
					return err
				}

				renderKeyValues(cmd.OutOrStdout(), "Treinamento", [][2]string{
					{"Dataset", datasetPath},
					{"Documentos", fmt.Sprint(report.Documents)},
					{"Vocabulário", fmt.Sprint(report.Features)},
					{"Classes", strings.Join(report.Classes, ", ")},
					{"Iterações", fmt.Sprint(report.Stats.Iterations)},
					{"Convergiu", fmt.Sprint(report.Stats.Converged)},
					{"Acurácia (treino)", fmt.Sprintf("%.3f", report.Accuracy)},
					{"Duração", report.Duration.String()},
					{"Modelo", report.ModelPath},
				})
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "CSV dataset with text and label columns (default training.dataset_path)")
	return cmd
}
