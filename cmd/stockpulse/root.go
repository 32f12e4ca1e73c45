package main

import (
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stockpulse/internal/config"
	"stockpulse/internal/infrastructure"
	"stockpulse/internal/schema"
)

// newRootCmd builds the command tree. Every flag can also be set through a
// STOCKPULSE_* environment variable, dashes becoming underscores.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "stockpulse",
		Short:         "Process inventory and OSR workbooks",
		Long:          `StockPulse validates inventory and OSR Excel workbooks against a schema, normalizes their rows and computes portfolio metrics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return v.BindPFlags(cmd.Flags())
		},
	}

	root.PersistentFlags().String("schema", "", "schema YAML file (default is the built-in schema)")
	root.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(
		newProcessCmd(v),
		newSchemaCmd(v),
		newVersionCmd(),
	)
	return root
}

// cliLogger writes JSON logs to stderr so stdout only carries results
func cliLogger(cmd *cobra.Command, v *viper.Viper) (*slog.Logger, error) {
	level, err := infrastructure.ParseLogLevel(v.GetString("log-level"))
	if err != nil {
		return nil, err
	}
	return infrastructure.NewLogger(cmd.ErrOrStderr(), level), nil
}

// loadSchemas returns the schema from path, or the built-in one. A positive
// timeout replaces the schema's processing timeout.
func loadSchemas(path string, timeout time.Duration) (*schema.Registry, error) {
	schemas := schema.DefaultRegistry()
	if path != "" {
		var err error
		if schemas, err = schema.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if timeout <= 0 {
		return schemas, nil
	}

	cfg := schemas.Config()
	cfg.ProcessingTimeout = timeout
	return schema.NewRegistry(cfg)
}
