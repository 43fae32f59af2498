package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/wayback-journey/internal/app"
	"github.com/JakeFAU/wayback-journey/internal/checkpoint"
	"github.com/JakeFAU/wayback-journey/internal/pipeline"
	"github.com/JakeFAU/wayback-journey/internal/wayback"
)

func newRunCmd() *cobra.Command {
	var (
		input      string
		target     string
		skipExport bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run or resume the pipeline for a list of archived snapshots",
		Long: `Reads one archived snapshot URL per line, runs every period through
discovery, classification, selection and scenario tagging, and writes the
run summary. Finished stages are loaded from checkpoints instead of redone.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			if input == "" {
				input = e.cfg.Input
			}
			if input == "" {
				return fmt.Errorf("--input is required")
			}
			target = firstNonEmpty(target, e.cfg.Target, app.TargetFromInput(input))

			snapshots, err := readSnapshots(input)
			if err != nil {
				return err
			}
			if len(snapshots) == 0 {
				return fmt.Errorf("no archived snapshots found in %s", input)
			}

			a, err := newApp(cmd.Context(), e.cfg, target, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			orch, err := a.Orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			e.logger.Info("starting run",
				zap.String("target", target),
				zap.Int("snapshots", len(snapshots)),
			)
			summary, runErr := orch.Run(cmd.Context(), snapshots)
			if runErr != nil && !errors.Is(runErr, pipeline.ErrTaxonomyUnavailable) {
				return fmt.Errorf("run pipeline: %w", runErr)
			}
			return reportRun(cmd.Context(), cmd.OutOrStdout(), a.Store(), e.logger, summary, runErr, skipExport)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "file of archived snapshot URLs, one per line")
	cmd.Flags().StringVar(&target, "target", "", "checkpoint namespace (default: input file name)")
	cmd.Flags().BoolVar(&skipExport, "skip-export", false, "do not write the aggregated export documents")
	return cmd
}

// reportRun exports the stored documents and prints summary. A taxonomy
// failure still gets both before it is returned.
func reportRun(
	ctx context.Context,
	out io.Writer,
	store checkpoint.Store,
	logger *zap.Logger,
	summary pipeline.Summary,
	runErr error,
	skipExport bool,
) error {
	if !skipExport {
		report, err := pipeline.Export(ctx, store)
		if err != nil {
			return errors.Join(wrapRunErr(runErr), fmt.Errorf("export: %w", err))
		}
		logger.Info("exported documents",
			zap.Int("links", report.Links),
			zap.Int("classification", report.Classification),
			zap.Int("selection", report.Selection),
			zap.Int("scenarios", report.Scenarios),
			zap.Bool("taxonomy", report.Taxonomy),
		)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return errors.Join(wrapRunErr(runErr), fmt.Errorf("write summary: %w", err))
	}
	return wrapRunErr(runErr)
}

func wrapRunErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("run pipeline: %w", err)
}

func readSnapshots(path string) ([]wayback.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return wayback.LoadSnapshots(f, "")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
