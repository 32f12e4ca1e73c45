package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stockpulse/internal/dataprocessing"
	apperrors "stockpulse/internal/errors"
	"stockpulse/internal/infrastructure"
	"stockpulse/internal/metrics"
	"stockpulse/internal/operations"
	"stockpulse/pkg/contracts/domain"
)

type processOutput struct {
	Result  *domain.ProcessingResult `json:"result"`
	Metrics *domain.MetricsReport    `json:"metrics,omitempty"`
}

func newProcessCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Process a workbook and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cliLogger(cmd, v)
			if err != nil {
				return err
			}
			ctx := infrastructure.EnsureTraceID(cmd.Context())

			category, err := domain.ParseCategory(v.GetString("category"))
			if err != nil {
				return fmt.Errorf("--category: %w", err)
			}

			schemas, err := loadSchemas(v.GetString("schema"), v.GetDuration("timeout"))
			if err != nil {
				return err
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read workbook: %w", err)
			}
			upload := dataprocessing.Upload{
				FileName: filepath.Base(args[0]),
				Category: category,
				Content:  content,
			}

			cfg, err := schemas.For(category)
			if err != nil {
				return err
			}
			if err := dataprocessing.CheckUpload(upload, cfg); err != nil {
				return err
			}

			manager, err := operations.NewManager(nil, nil, schemas, operations.NewConfig(), logger)
			if err != nil {
				return err
			}
			defer manager.GetBroadcaster().Stop()

			resp, runErr := manager.Execute(ctx, operations.OperationRequest{
				Upload: upload,
				OnProgress: func(ev operations.ProgressEvent) {
					logger.DebugContext(ctx, "progress",
						slog.String("phase", string(ev.Phase)),
						slog.Int("percent", ev.Percent),
						slog.String("message", ev.Message))
				},
			})

			out := processOutput{Result: resp.Result}
			var metricsErr error
			if runErr == nil && v.GetBool("metrics") {
				report, err := metrics.NewEngine(schemas.Config().Metrics, logger).ComputeResult(ctx, resp.Result.Data)
				switch {
				case errors.Is(err, apperrors.ErrNoMetricsData):
					logger.WarnContext(ctx, "no_metrics_data")
					fmt.Fprintln(cmd.ErrOrStderr(), "no metrics: the workbook has no data rows")
				case err != nil:
					metricsErr = fmt.Errorf("failed to compute metrics: %w", err)
				default:
					out.Metrics = report
				}
			}

			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if runErr != nil {
				return errors.New(resp.Error)
			}
			return metricsErr
		},
	}

	cmd.Flags().StringP("category", "c", "", "workbook category: inventory or osr")
	cmd.Flags().Bool("metrics", false, "also compute metrics from the processed sheets")
	cmd.Flags().Duration("timeout", 0, "processing timeout (default is the schema's)")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
