package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbstudio/storyboard-agent/internal/export"
	"github.com/tbstudio/storyboard-agent/internal/persist"
	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

var (
	exportFormat string
	exportOut    string
	resetYes     bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the saved project as JSON, PDF or EDL",
	Long: `Export the saved project. The file is named after the project and written
to --out, or to stdout when --out is "-".`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the saved project with an exported JSON file",
	Long: `Validate an exported project file and store it as the current project.
Use "-" to read from stdin. Stop the agent first, or it will overwrite the
imported project with its next save.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Show how much space the saved project uses",
	Args:  cobra.NoArgs,
	RunE:  runStorage,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the saved project",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the API auth token",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(export.FormatPDF), "export format: json, pdf or edl")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", ".", `output directory, or "-" for stdout`)
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "confirm deleting the saved project")
}

func runExport(cmd *cobra.Command, _ []string) error {
	f, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	p := persist.Load(cmd.Context(), a.slot, time.Now().UnixMilli(), a.logger)
	exp := a.exporter()

	if exportOut == "-" {
		return export.Render(cmd.OutOrStdout(), f, p, exp.PDFOptions())
	}

	dir, err := filepath.Abs(exportOut)
	if err != nil {
		return err
	}
	resp, err := exp.WriteFile(cmd.Context(), dir, f, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d shots, %d bytes)\n", resp.OutputPath, resp.ShotCount, resp.SizeBytes)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read project file: %w", err)
	}

	p, err := storyboard.ParseImport(data)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.slot.Save(cmd.Context(), p); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %q: %d sequences, %d shots\n",
		p.Meta.Name, len(p.Storyboard.Sequences), p.ShotCount())
	return nil
}

func runStorage(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	size, err := a.slot.Size(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "backend: %s\n", a.cfg.Storage())
	fmt.Fprintf(out, "key:     %s\n", a.slot.Key())
	fmt.Fprintf(out, "size:    %.2f MB (%d bytes)\n", float64(size)/(1<<20), size)
	fmt.Fprintf(out, "warn at: %.2f MB\n", float64(a.cfg.WarnBytes())/(1<<20))
	fmt.Fprintf(out, "quota:   %.2f MB\n", float64(a.slot.Quota())/(1<<20))
	if size >= a.cfg.WarnBytes() {
		fmt.Fprintln(out, "warning: storage is nearly full")
	}
	return nil
}

func runReset(cmd *cobra.Command, _ []string) error {
	if !resetYes {
		return errors.New("refusing to delete the saved project without --yes")
	}

	a, err := openApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.slot.Clear(cmd.Context()); err != nil {
		return err
	}
	if err := a.db.Checkpoint(cmd.Context()); err != nil {
		a.logger.Warn("checkpoint after reset failed", "error", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "saved project deleted")
	return nil
}

func runToken(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	token, err := ensureAuthToken(cmd.Context(), a.kv)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
