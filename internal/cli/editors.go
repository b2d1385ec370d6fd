package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"unityrunner/internal/tools"
	"unityrunner/internal/tui"
)

func newEditorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "editors",
		Short: "List or refresh detected editor installations",
	}

	cmd.AddCommand(newEditorsListCmd())
	cmd.AddCommand(newEditorsRefreshCmd())
	return cmd
}

func newEditorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known editor installations, detecting them when none are recorded",
		RunE:  runEditorsList,
	}
}

func newEditorsRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-detect editor installations and save the snapshot",
		RunE:  runEditorsRefresh,
	}
}

func runEditorsList(cmd *cobra.Command, _ []string) error {
	return listEditors(cmd, false)
}

func runEditorsRefresh(cmd *cobra.Command, _ []string) error {
	return listEditors(cmd, true)
}

func listEditors(cmd *cobra.Command, refresh bool) error {
	a, err := loadAgent(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := a.detector()
	if err != nil {
		return err
	}

	var status *tui.StatusWriter
	if !outputJSON && tui.DetectMode(cmd.ErrOrStderr(), noProgress, false, nil) == tui.ModeTUI {
		status = tui.NewStatusWriter(cmd.ErrOrStderr())
		status.Update("Detecting editor installations")
	}
	reg, err := a.registry(cmd.Context(), d, refresh)
	if status != nil {
		if err != nil {
			status.Stop()
		} else {
			status.Finish(fmt.Sprintf("%d editor installation(s) known", reg.Len()))
		}
	}
	if err != nil {
		return err
	}

	installs := reg.Sorted()
	if outputJSON {
		data, err := json.MarshalIndent(installs, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	printInstallations(cmd, d, installs)
	return nil
}

func printInstallations(cmd *cobra.Command, d *tools.Detector, installs []tools.Installation) {
	if len(installs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "(no editor installations found; set %s to an installation root)\n", tools.EnvHome)
		return
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSOURCE\tROOT\tEXECUTABLE")
	for _, in := range installs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			in.Version, tui.NonEmptyOrDash(string(in.Source)), in.Path, d.EditorExecutablePath(in.Path))
	}
	tw.Flush()
}
