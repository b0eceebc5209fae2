package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nguyentantai21042004/meeting-flow/internal/output"
	"github.com/nguyentantai21042004/meeting-flow/internal/processor"
)

var processCmd = &cobra.Command{
	Use:   "process <audio> <enroll_dir> [language]",
	Short: "Process one meeting recording",
	Long: `Process one meeting recording.

Speakers found in enroll_dir (files named <speaker>_<n>.wav) are enrolled
first if they are not in the database yet. The recording is then
transcribed, diarized, matched against the enrolled speakers and
summarized.

Examples:
  meeting process weekly.m4a enroll/
  meeting process weekly.m4a enroll/ en --output out/`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := ensureDirectories(cfg); err != nil {
			return err
		}

		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}
		proc, jobs, err := a.processor()
		if err != nil {
			return err
		}
		defer jobs.Close()

		req := processor.Request{
			AudioPath: args[0],
			EnrollDir: args[1],
		}
		if len(args) == 3 {
			req.Language = args[2]
		}
		req.OutputDir, _ = cmd.Flags().GetString("output")

		report, err := proc.ProcessMeeting(cmd.Context(), req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, strings.Repeat("=", 70))
		fmt.Fprintln(out, "TRANSCRIPT")
		fmt.Fprintln(out, strings.Repeat("=", 70))
		fmt.Fprintln(out, output.TranscriptText(report.Records))
		fmt.Fprintln(out, output.SummaryHeader)
		fmt.Fprintln(out, report.Result.Summary)
		fmt.Fprintln(out, strings.Repeat("=", 70))
		fmt.Fprintf(out, "Job:  %s\n", report.JobID)
		fmt.Fprintf(out, "JSON: %s\n", report.Outputs.JSON)
		fmt.Fprintf(out, "TXT:  %s\n", report.Outputs.TXT)
		if report.DOCX != "" {
			fmt.Fprintf(out, "DOCX: %s\n", report.DOCX)
		}
		if n := len(report.Failures); n > 0 {
			fmt.Fprintf(out, "%d segment(s) could not be identified\n", n)
		}
		return nil
	},
}

func init() {
	processCmd.Flags().StringP("output", "o", "", "output directory (default paths.output)")
}
