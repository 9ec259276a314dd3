package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkowalski/repochecker/internal/config"
	"github.com/mkowalski/repochecker/internal/overrides"
)

// validateCommand checks that the configuration and override files on
// SearchPath parse and validate, without starting the daemon. Intended for
// CI and pre-deploy checks, grounded on the teacher's configvalidator
// command line but scaled down to this project's much narrower config
// surface (TOML + JSON, not Alertmanager YAML).
func validateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and override files without starting the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration invalid: %w", err)
			}

			matrix, err := cfg.ToMatrix()
			if err != nil {
				return fmt.Errorf("configuration expands to an invalid matrix: %w", err)
			}

			if _, err := overrides.Load(); err != nil {
				return fmt.Errorf("overrides invalid: %w", err)
			}

			fmt.Printf("configuration OK: %d matrix entries, %d releases\n", len(matrix), len(cfg.Releases))
			return nil
		},
	}

	return cmd
}
