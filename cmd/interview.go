package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prep-piper/interviewer/internal/interview"
	"github.com/prep-piper/interviewer/internal/logger"
	"github.com/prep-piper/interviewer/internal/transcript"
)

const (
	CommandExit    = "exit"
	CommandSummary = "summary"
	CommandSave    = "save"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run an interactive interview in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		runInterview(cmd)
	},
}

func init() {
	rootCmd.AddCommand(interviewCmd)

	interviewCmd.Flags().String("tech-stack", "", "comma-separated technologies to interview on (prompted when empty)")
	interviewCmd.Flags().String("position", "", "position the candidate applies for (prompted when empty)")
}

func runInterview(cmd *cobra.Command) {
	ctx := context.Background()

	a := newApplication(ctx)
	defer a.close()

	techStack, _ := cmd.Flags().GetString("tech-stack")
	position, _ := cmd.Flags().GetString("position")

	var err error
	if techStack == "" {
		if techStack, err = ask("Tech stack (e.g. Go, PostgreSQL)", true); err != nil {
			a.logger.Fatal("reading tech stack", zap.Error(err))
		}
	}
	if position == "" {
		if position, err = ask("Position", true); err != nil {
			a.logger.Fatal("reading position", zap.Error(err))
		}
	}

	read := func() (string, error) { return ask("You", false) }
	if err := interviewLoop(ctx, a.orchestrator, a.config.TranscriptsDir, techStack, position, read, os.Stdout, a.logger); err != nil {
		a.logger.Fatal("interview failed", zap.Error(err))
	}
}

func ask(label string, allowEmpty bool) (string, error) {
	prompt := promptui.Prompt{Label: label, AllowEdit: true}
	if !allowEmpty {
		prompt.Validate = func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("type an answer, 'summary', 'save' or 'exit'")
			}
			return nil
		}
	}

	answer, err := prompt.Run()
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return CommandExit, nil
	}
	return answer, err
}

// interviewLoop drives one session until the candidate exits. Interrupts are
// read as exit so the session is always closed and summarized.
func interviewLoop(ctx context.Context, o *interview.Orchestrator, dir, techStack, position string, read func() (string, error), out io.Writer, log *zap.Logger) error {
	id, opening, err := o.StartInterview(ctx, techStack, position)
	if err != nil {
		return err
	}
	log = log.With(zap.String(logger.FieldSessionID, id))

	fmt.Fprintf(out, "Session %s started. Commands: '%s', '%s', '%s'.\n\n", id, CommandSummary, CommandSave, CommandExit)
	fmt.Fprintf(out, "Interviewer: %s\n\n", opening)

	for {
		input, err := read()
		if err != nil {
			return fmt.Errorf("reading answer: %w", err)
		}
		input = strings.TrimSpace(input)

		switch strings.ToLower(input) {
		case "":
			continue
		case CommandExit:
			s, err := o.Session(ctx, id)
			if err == nil && s.Active() {
				fmt.Fprintf(out, "Interviewer: %s\n\n", o.EndInterview(ctx, id))
			}
			fmt.Fprintln(out, o.Summary(ctx, id))
			return nil
		case CommandSummary:
			fmt.Fprintln(out, o.Summary(ctx, id))
		case CommandSave:
			path, err := saveSession(ctx, o, dir, id)
			if err != nil {
				log.Error("saving transcript", zap.Error(err))
				fmt.Fprintln(out, "Could not save the transcript.")
				continue
			}
			log.Info("transcript saved", zap.String("path", path))
			fmt.Fprintf(out, "Transcript saved to %s\n\n", path)
		default:
			fmt.Fprintf(out, "Interviewer: %s\n\n", o.ProcessAnswer(ctx, id, input))
		}
	}
}

func saveSession(ctx context.Context, o *interview.Orchestrator, dir, id string) (string, error) {
	s, err := o.Session(ctx, id)
	if err != nil {
		return "", err
	}
	return transcript.Save(dir, transcript.FromSession(s))
}
