package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"unityrunner/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect agent configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration in YAML with secrets redacted",
		RunE:  runConfigShow,
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for errors and warnings",
		RunE:  runConfigValidate,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	a, err := loadAgent(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := a.Config.Redacted().Marshal()
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	a, err := loadAgent(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	results := a.Config.ValidateStrict(a.Paths.Root)
	if outputJSON {
		if results == nil {
			results = []config.ValidationResult{}
		}
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintf(out, "%s: ok\n", a.Paths.ConfigFile)
		}
		for _, r := range results {
			fmt.Fprintf(out, "%s: %s\n", r.Level, r.Message)
		}
	}

	if config.HasErrors(results) {
		return errors.New("configuration is invalid")
	}
	return nil
}
