package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"unityrunner/internal/version"
)

var resolveRoot string

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [version]",
		Short: "Show which editor a run would use",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runResolve,
	}
	cmd.Flags().StringVar(&resolveRoot, "root", "", "Use the installation at this root instead of the registry")
	return cmd
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := loadAgent(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := a.Config.Request(a.Paths.Root)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		v, err := version.Parse(args[0])
		if err != nil {
			return err
		}
		req.Version = v
	}
	if resolveRoot != "" {
		req.Root = resolveRoot
	}

	d, err := a.detector()
	if err != nil {
		return err
	}
	resolver, err := a.resolver(cmd.Context(), d, req.Root == "")
	if err != nil {
		return err
	}

	env, err := resolver.Resolve(cmd.Context(), req)
	if err != nil {
		return err
	}

	if outputJSON {
		data, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Version:    %s\n", env.Version)
	fmt.Fprintf(cmd.OutOrStdout(), "Executable: %s\n", env.ExecutablePath)
	return nil
}
