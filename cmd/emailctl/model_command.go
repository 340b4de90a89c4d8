package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mikey/email-classifier/internal/config"
	"github.com/mikey/email-classifier/internal/ml"
)

func newModelCommand(ctx *commandContext) *cobra.Command {
	modelCmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect the trained model artifact",
	}
	modelCmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show artifact metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.invoke(func(cfg *config.Config) error {
				path := cfg.GetModel().Path
				_, info, err := ml.LoadArtifact(path)
				if err != nil {
					return err
				}
				renderKeyValues(cmd.OutOrStdout(), "Modelo", [][2]string{
					{"Arquivo", path},
					{"Versão do formato", fmt.Sprint(info.Version)},
					{"Criado em", info.CreatedAt.Format(time.RFC3339)},
					{"Vocabulário", fmt.Sprint(info.Features)},
					{"Classes", strings.Join(info.Classes, ", ")},
					{"Documentos", fmt.Sprint(info.Training.Documents)},
					{"Acurácia (treino)", fmt.Sprintf("%.3f", info.Training.Accuracy)},
					{"Iterações", fmt.Sprint(info.Training.Stats.Iterations)},
				})
				return nil
			})
		},
	})
	return modelCmd
}
