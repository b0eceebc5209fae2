package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nguyentantai21042004/meeting-flow/internal/processor"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [dir]",
	Short: "Enroll speakers from a directory of samples",
	Long: `Enroll speakers from a directory of samples.

Files are grouped by the part of the name before the first underscore, so
alice_1.wav and alice_2.flac both enroll "alice". Speakers already in the
database are skipped unless --force is given.

The directory defaults to speaker.enroll_dir.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		dir := cfg.Speaker.EnrollDir
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			return fmt.Errorf("no enrollment directory given and speaker.enroll_dir is empty")
		}
		force, _ := cmd.Flags().GetBool("force")

		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}
		// Only Enroll is used, so the processor runs without engines or a job store.
		proc := processor.New(cfg, processor.Deps{Recognizer: a.recognizer}, log)

		res, err := proc.Enroll(cmd.Context(), dir, force)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "[OK] Enrollment complete: %d new, %d skipped, %d failed\n",
			len(res.Enrolled), len(res.Skipped), len(res.Failed))
		for _, f := range res.Failures {
			fmt.Fprintf(out, "[WARN] %v\n", f)
		}
		return nil
	},
}

var listSpeakersCmd = &cobra.Command{
	Use:   "list-speakers",
	Short: "List enrolled speakers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromConfig()
		if err != nil {
			return err
		}
		speakers := a.recognizer.EnrolledSpeakers()
		out := cmd.OutOrStdout()
		if len(speakers) == 0 {
			fmt.Fprintln(out, "No speakers enrolled")
			return nil
		}
		fmt.Fprintf(out, "Enrolled speakers (%d):\n", len(speakers))
		for _, name := range speakers {
			fmt.Fprintf(out, "  - %s\n", name)
		}
		return nil
	},
}

var removeSpeakerCmd = &cobra.Command{
	Use:   "remove-speaker <name>",
	Short: "Remove an enrolled speaker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromConfig()
		if err != nil {
			return err
		}
		if !a.recognizer.RemoveSpeaker(args[0]) {
			return fmt.Errorf("speaker %q not found (enrolled: %s)", args[0], strings.Join(a.recognizer.EnrolledSpeakers(), ", "))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[OK] Removed speaker: %s\n", args[0])
		return nil
	},
}

var renameSpeakerCmd = &cobra.Command{
	Use:   "rename-speaker <old> <new>",
	Short: "Rename an enrolled speaker",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFromConfig()
		if err != nil {
			return err
		}
		ok, err := a.recognizer.RenameSpeaker(args[0], args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("speaker %q not found", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[OK] Renamed speaker: %s -> %s\n", args[0], args[1])
		return nil
	},
}

var clearDBCmd = &cobra.Command{
	Use:   "clear-db",
	Short: "Delete every enrolled speaker",
	Long:  `Delete every enrolled speaker and the database file. Requires --yes.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to clear the speaker database without --yes")
		}
		a, err := appFromConfig()
		if err != nil {
			return err
		}
		a.recognizer.ClearDatabase()
		fmt.Fprintln(cmd.OutOrStdout(), "[OK] Database cleared")
		return nil
	},
}

func appFromConfig() (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, log)
}

func init() {
	enrollCmd.Flags().BoolP("force", "f", false, "re-enroll speakers that already exist")
	clearDBCmd.Flags().Bool("yes", false, "confirm deletion")
}
