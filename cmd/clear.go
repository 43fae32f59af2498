package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newClearCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every checkpoint of a target",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			target = firstNonEmpty(target, e.cfg.Target)
			if target == "" {
				return fmt.Errorf("--target is required")
			}
			a, err := newApp(cmd.Context(), e.cfg, target, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store().Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear checkpoints: %w", err)
			}
			e.logger.Info("checkpoints cleared", zap.String("target", target))
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "checkpoint namespace to clear")
	return cmd
}
