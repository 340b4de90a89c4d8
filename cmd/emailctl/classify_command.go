package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/adapters/filter"
	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/utils"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var (
		text       string
		file       string
		eml        string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a text, an uploaded file or an RFC 822 message",
		RunE: func(cmd *cobra.Command, args []string) error {
			set := 0
			for _, v := range []string{text, file, eml} {
				if v != "" {
					set++
				}
			}
			if set != 1 {
				return fmt.Errorf("exactly one of --text, --file or --eml is required")
			}

			return ctx.invoke(func(svc *core.ClassifierService, logger *zap.Logger, tp *utils.TextProcessor) error {
				out := cmd.OutOrStdout()

				if eml != "" {
					var in io.Reader = cmd.InOrStdin()
					if eml != "-" {
						f, err := os.Open(eml)
						if err != nil {
							return err
						}
						defer f.Close()
						in = f
					}
					_, err := filter.NewCliFilter(svc, logger, tp, out, jsonOutput, ctx.opts.Verbose).Run(cmd.Context(), in)
					return userError(err)
				}

				req := core.ClassificationRequest{Text: text}
				if file != "" {
					data, err := os.ReadFile(file)
					if err != nil {
						return err
					}
					req.FileName = filepath.Base(file)
					req.FileData = data
				}

				result, err := svc.Classify(cmd.Context(), req)
				if err != nil {
					return userError(err)
				}
				if jsonOutput {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(result)
				}
				printResult(out, result)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "Email text to classify")
	cmd.Flags().StringVarP(&file, "file", "f", "", "File to classify (.pdf, .txt, ...)")
	cmd.Flags().StringVar(&eml, "eml", "", "RFC 822 message file, - for stdin")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}

// userError replaces request errors with the message shown to end users.
func userError(err error) error {
	if err == nil {
		return nil
	}
	var reqErr *core.RequestError
	if errors.As(err, &reqErr) {
		return errors.New(core.UserMessage(err))
	}
	return err
}

func printResult(out io.Writer, r *core.ClassificationResult) {
	rows := [][2]string{
		{"Produtividade", fmt.Sprintf("%s (%.3f)", r.Label, r.Confidence)},
		{"Categoria", fmt.Sprintf("%s (%g)", r.Category, r.CategoryConfidence)},
		{"Resposta sugerida", r.SuggestedReply},
	}
	for _, e := range [][2]string{{"Erro local", r.LocalError}, {"Erro categoria", r.CategoryError}, {"Erro resposta", r.ReplyError}} {
		if e[1] != "" {
			rows = append(rows, e)
		}
	}
	renderKeyValues(out, "Classificação", rows)
}
