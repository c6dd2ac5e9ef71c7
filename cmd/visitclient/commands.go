package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"clinical-visit-service/internal/models"
	"clinical-visit-service/internal/service/transcript"
)

func newTranscribeCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "transcribe <recording.mp3>",
		Short: "Transcribe a recording into a doctor/patient dialogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if info, err := os.Stat(args[0]); err == nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Uploading %s (%s)\n", info.Name(), humanize.Bytes(uint64(info.Size())))
			}
			res, err := opts.client().transcribe(cmd.Context(), args[0])
			if asJSON {
				if encErr := writeJSON(cmd.OutOrStdout(), res); encErr != nil {
					return encErr
				}
			} else {
				printTranscription(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON result")
	return cmd
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	var (
		transcriptFile string
		out            string
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Extract facts and write the patient report for a transcript",
		Long: `Extract facts and write the patient report for a transcript.

The transcript is read from --transcript, or from stdin when the flag is
omitted or set to "-".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTranscript(cmd.InOrStdin(), transcriptFile)
			if err != nil {
				return err
			}
			rep, err := opts.client().report(cmd.Context(), text)
			if perr := emitReport(cmd, rep, out, asJSON); perr != nil {
				return perr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&transcriptFile, "transcript", "-", "Transcript file, - for stdin")
	cmd.Flags().StringVar(&out, "out", "", "Write the report markdown to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON result")
	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var (
		out    string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run <recording.mp3>",
		Short: "Transcribe a recording, then extract facts and write the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()

			res, err := c.transcribe(cmd.Context(), args[0])
			if err != nil || !res.Succeeded() {
				printTranscription(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
				if err == nil {
					err = fmt.Errorf("transcription failed: %s", res.Message)
				}
				return err
			}
			if !asJSON {
				printTranscription(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
				fmt.Fprintln(cmd.OutOrStdout())
			}

			rep, err := c.report(cmd.Context(), res.Transcription)
			if perr := emitReport(cmd, rep, out, asJSON); perr != nil {
				return perr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&out, "out", "visit-report.md", "Write the report markdown to this file, empty to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON report result")
	return cmd
}

func readTranscript(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading transcript: %w", err)
	}
	return string(data), nil
}

func printTranscription(out, errOut io.Writer, res models.TranscriptionResult) {
	if res.Message != "" {
		fmt.Fprintln(errOut, res.Message)
	}
	for _, line := range transcript.ParseLines(res.Transcription) {
		if line.Role == models.SpeakerUnknown {
			fmt.Fprintln(out, line.Text)
			continue
		}
		fmt.Fprintf(out, "%-8s %s\n", strings.ToUpper(string(line.Role)), line.Text)
	}
}

func emitReport(cmd *cobra.Command, rep models.VisitReport, out string, asJSON bool) error {
	w := cmd.OutOrStdout()

	if out != "" && rep.HasReport() {
		if err := os.WriteFile(out, []byte(rep.Report), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", out)
	}
	if asJSON {
		return writeJSON(w, rep)
	}

	if rep.FactsError != nil {
		fmt.Fprintf(w, "Facts: %s\n", rep.FactsError.Message)
	} else {
		fmt.Fprintf(w, "Facts (%d):\n", len(rep.Facts))
		for _, f := range rep.Facts {
			fmt.Fprintf(w, "  [%s] %s\n         %q\n", f.Role, f.Statement, f.VerbatimQuote)
		}
	}
	fmt.Fprintln(w)
	if rep.ReportError != nil {
		fmt.Fprintf(w, "Report: %s\n", rep.ReportError.Message)
	} else if out == "" {
		fmt.Fprintln(w, rep.Report)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
