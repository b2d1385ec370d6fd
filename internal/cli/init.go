package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"unityrunner/internal/config"
	"unityrunner/internal/paths"
)

const rulesTemplateXML = `<?xml version="1.0" encoding="UTF-8"?>
<!-- Lines matching a rule are reported with its level: normal, warning or error. -->
<lines>
  <!-- <line level="warning" message="^Shader warning"/> -->
</lines>
`

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default configuration into an agent working directory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}
}

func resolveInitDir(workFlag string, args []string) (string, error) {
	if workFlag != "" {
		return workFlag, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	if len(args) > 0 && args[0] != "." {
		return filepath.Join(cwd, args[0]), nil
	}
	return cwd, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := resolveInitDir(workDir, args)
	if err != nil {
		return err
	}
	pp, err := paths.Resolve(dir)
	if err != nil {
		return err
	}
	if err := pp.EnsureDirs(); err != nil {
		return err
	}
	logger := slog.New(slog.DiscardHandler)

	var created []string
	if err := ensureConfig(pp, &created, logger); err != nil {
		return err
	}
	if err := ensureRulesFile(pp, &created, logger); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(created) == 0 {
		fmt.Fprintf(out, "Already initialized at %s\n", pp.Root)
		return nil
	}
	fmt.Fprintf(out, "Initialized %s\n", pp.Root)
	for _, entry := range created {
		fmt.Fprintf(out, "  created %s\n", entry)
	}
	return nil
}

func ensureConfig(pp paths.AgentPaths, created *[]string, logger *slog.Logger) error {
	exists, err := paths.FileExists(pp.ConfigFile)
	if err != nil {
		return fmt.Errorf("check config: %w", err)
	}
	if exists {
		logger.Debug("config exists", "path", pp.ConfigFile)
		return nil
	}

	cfg := config.Default()
	cfg.Logging.RulesFile = filepath.Join(".unityrunner", "rules.xml")
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(pp.ConfigFile, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	*created = append(*created, filepath.Base(pp.ConfigFile))
	return nil
}

func ensureRulesFile(pp paths.AgentPaths, created *[]string, logger *slog.Logger) error {
	path := filepath.Join(pp.MetaDir, "rules.xml")
	exists, err := paths.FileExists(path)
	if err != nil {
		return fmt.Errorf("check rules file: %w", err)
	}
	if exists {
		logger.Debug("rules file exists", "path", path)
		return nil
	}
	if err := os.WriteFile(path, []byte(rulesTemplateXML), 0o644); err != nil {
		return fmt.Errorf("write rules file: %w", err)
	}
	*created = append(*created, filepath.Join(".unityrunner", "rules.xml"))
	return nil
}
