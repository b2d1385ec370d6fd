package cli

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"unityrunner/internal/logparse"
	"unityrunner/internal/report"
	"unityrunner/internal/tui"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Work with log classification rules",
	}
	cmd.AddCommand(newRulesTestCmd())
	return cmd
}

func newRulesTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <logfile>",
		Short: "Classify an editor log offline with the configured rules",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesTest,
	}
}

func runRulesTest(cmd *cobra.Command, args []string) error {
	a, err := loadAgent(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	rules, err := a.rules()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	var reporter report.Reporter
	if outputJSON {
		reporter = tui.NewJSONReporter(out)
	} else {
		reporter = tui.NewConsoleReporter(out, !tui.IsTerminal(out, nil))
	}

	var warnings, problems int
	classifier := logparse.NewClassifier(reporter, nil, rules)
	classifier.OnEmit = func(severity report.Severity, _ string) {
		switch severity {
		case report.SeverityWarning:
			warnings++
		case report.SeverityError:
			problems++
		}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		classifier.Line(scanner.Text())
	}
	classifier.Close()
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read log: %w", err)
	}

	if !outputJSON {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d warning(s), %d problem(s)\n", warnings, problems)
	}
	return nil
}
