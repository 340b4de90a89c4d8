package main

import (
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/dig"

	"github.com/mikey/email-classifier/internal/di"
)

type commandContext struct {
	opts di.CLIOptions

	containerOnce sync.Once
	container     *dig.Container
	containerErr  error
}

// invoke runs fn with dependencies from the CLI container. Providers are
// lazy, so commands only build what they ask for.
func (c *commandContext) invoke(fn interface{}) error {
	c.containerOnce.Do(func() {
		c.container, c.containerErr = di.BuildCLIContainer(c.opts)
	})
	if c.containerErr != nil {
		return c.containerErr
	}
	return c.container.Invoke(fn)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "emailctl",
		Short:         "Train and run the email productivity classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.opts.ConfigFile, "config", "c", "", "Configuration file path")
	flags.StringVar(&ctx.opts.ModelPath, "model", "", "Model artifact path (overrides model.path)")
	flags.StringVar(&ctx.opts.Provider, "provider", "", "LLM provider: openai, gemini, bedrock or none")
	flags.BoolVarP(&ctx.opts.Verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&ctx.opts.JSONLog, "json-log", false, "Output logs in JSON format")

	rootCmd.AddCommand(newTrainCommand(ctx))
	rootCmd.AddCommand(newClassifyCommand(ctx))
	rootCmd.AddCommand(newDatasetCommand())
	rootCmd.AddCommand(newModelCommand(ctx))

	return rootCmd
}
