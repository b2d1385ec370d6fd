package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	workDir    string
	configFile string
	logLevel   string
	noProgress bool
	outputJSON bool
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "unityrunner",
		Short:         "Detect, license and run the Unity editor on a build agent",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&workDir, "workdir", "", "Path to the agent working directory")
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to the configuration file (default <workdir>/unityrunner.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable interactive progress output")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newEditorsCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newRulesCmd())

	return cmd
}
