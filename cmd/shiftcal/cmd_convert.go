package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"shiftcal/internal/convert"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/workspace"
)

var (
	convertInput       string
	convertSurname     string
	convertOutDir      string
	convertTransformer string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a schedule file to CSV and ICS",
	Long: `Reads a schedule (.xlsx or CSV), keeps the rows of the given person and writes
<name>_<surname>.csv and <name>_<surname>.ics to the output directory.

Example:
  shiftcal convert --input "Turni Marzo.xlsx" --surname rossi --transformer surname`,
	Args: cobra.NoArgs,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertInput, "input", "i", "", "schedule file, .xlsx or CSV (- for CSV on stdin)")
	convertCmd.Flags().StringVarP(&convertSurname, "surname", "s", "", "surname of the person whose shifts are exported")
	convertCmd.Flags().StringVarP(&convertOutDir, "out-dir", "o", ".", "directory for the generated files")
	convertCmd.Flags().StringVar(&convertTransformer, "transformer", "", "passthrough or surname (default from config)")
	_ = convertCmd.MarkFlagRequired("input")
	_ = convertCmd.MarkFlagRequired("surname")
}

func runConvert(cmd *cobra.Command, _ []string) error {
	conv, err := newConverter(cfg, convertTransformer)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	name := "schedule.csv"
	if convertInput != "-" {
		f, err := os.Open(convertInput)
		if err != nil {
			return err
		}
		defer f.Close()
		in, name = f, filepath.Base(convertInput)
	}

	ws, err := workspace.New(cfg.WorkDir)
	if err != nil {
		return err
	}
	defer ws.Close()

	res, err := conv.Run(cmd.Context(), ws, convert.Request{
		Filename: name,
		Input:    in,
		Surname:  convertSurname,
	})
	if err != nil {
		if convert.IsUserFacing(err) {
			return fmt.Errorf("%s: %w", convert.FormatUserError(err), err)
		}
		return err
	}

	if err := os.MkdirAll(convertOutDir, 0o755); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	csvPath := filepath.Join(convertOutDir, res.CSVName)
	if err := os.WriteFile(csvPath, []byte(res.CSV), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%d rows)\n", csvPath, res.Table.Len())

	if res.ICS != "" {
		icsPath := filepath.Join(convertOutDir, res.ICSName)
		if err := os.WriteFile(icsPath, []byte(res.ICS), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s (%d events)\n", icsPath, res.EventCount)
	}
	for _, w := range res.Warnings {
		appLog.Warn(w)
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}
	return nil
}
