package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/prep-piper/interviewer/internal/evaluation"
)

const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <transcript.json>",
	Short: "Evaluate a saved interview transcript",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runEvaluate(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringP("output", "o", OutputTable, "output format: table, json or yaml")
}

func runEvaluate(cmd *cobra.Command, path string) {
	ctx := context.Background()

	format, _ := cmd.Flags().GetString("output")
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		fmt.Fprintf(os.Stderr, "unsupported output format %q\n", format)
		os.Exit(2)
	}

	a := newApplication(ctx)
	defer a.close()

	t, err := a.pipeline.Load(path)
	if err != nil {
		a.logger.Fatal("loading transcript", zap.String("path", path), zap.Error(err))
	}

	state := a.pipeline.Evaluate(ctx, t)
	if err := writeEvaluation(os.Stdout, state, format); err != nil {
		a.logger.Fatal("writing evaluation", zap.Error(err))
	}
}

func writeEvaluation(out io.Writer, state *evaluation.State, format string) error {
	switch format {
	case OutputJSON:
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case OutputYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(state); err != nil {
			return err
		}
		return enc.Close()
	default:
		renderEvaluation(out, state)
		return nil
	}
}

func renderEvaluation(out io.Writer, state *evaluation.State) {
	summary := table.NewWriter()
	summary.SetOutputMirror(out)
	summary.AppendHeader(table.Row{"Metric", "Score"})
	summary.AppendRows([]table.Row{
		{"Candidate", state.CandidateID},
		{"Position", state.PositionEvaluatedFor},
	})
	summary.AppendSeparator()
	summary.AppendRows([]table.Row{
		{"Problem solving", state.ProblemSolvingScore},
		{"Analytical thinking", state.AnalyticalThinkingScore},
		{"Debugging potential", state.DebuggingPotentialScore},
		{"Technical depth", state.TechnicalDepthScore},
		{"Technical consistency", state.TechnicalConsistencyScore},
	})
	summary.AppendSeparator()
	summary.AppendRow(table.Row{"Overall", fmt.Sprintf("%.1f", state.OverallScore)})
	summary.AppendRow(table.Row{"Recommendation", recommendationLabel(state.Recommendation)})
	summary.AppendFooter(table.Row{"Status", state.CurrentStep})
	summary.Render()

	if len(state.TechnicalSkills) > 0 {
		skills := table.NewWriter()
		skills.SetOutputMirror(out)
		skills.AppendHeader(table.Row{"Skill", "Proficiency", "Confidence", "Comments"})
		for _, s := range state.TechnicalSkills {
			skills.AppendRow(table.Row{s.SkillName, s.Proficiency, s.Confidence, s.Comments})
		}
		skills.Render()
	}

	if len(state.ProblemSolvingInstances) > 0 {
		problems := table.NewWriter()
		problems.SetOutputMirror(out)
		problems.AppendHeader(table.Row{"Problem", "Approach", "Effectiveness", "Clarity"})
		for _, p := range state.ProblemSolvingInstances {
			problems.AppendRow(table.Row{p.ProblemStatement, p.ApproachQuality, p.SolutionEffectiveness, p.ReasoningClarity})
		}
		problems.Render()
	}

	lists := table.NewWriter()
	lists.SetOutputMirror(out)
	lists.AppendHeader(table.Row{"Section", "Items"})
	lists.AppendRows([]table.Row{
		{"Key strengths", joinOrDash(state.KeyStrengths)},
		{"Critical weaknesses", joinOrDash(state.CriticalWeaknesses)},
		{"Development areas", joinOrDash(state.DevelopmentAreas)},
		{"Errors", joinOrDash(state.Errors)},
	})
	lists.Render()
}

func recommendationLabel(r evaluation.Recommendation) string {
	if r == "" {
		return "n/a"
	}
	return string(r)
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, "\n")
}
