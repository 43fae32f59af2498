package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/wayback-journey/internal/scenario"
)

func newVerifyScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-scenarios",
		Short: "Check that the scenario catalog defines as many scenarios as it declares",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			catalog, err := scenario.LoadFile(e.cfg.Scenarios.DefinitionsPath)
			if err != nil {
				return fmt.Errorf("load scenarios: %w", err)
			}
			report, verr := catalog.Verify()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			return verr
		},
	}
}
