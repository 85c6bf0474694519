package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/learnbot/internal/analysis"
	"github.com/example/learnbot/pkg/models"
)

var (
	strategyLearner  int64
	strategyType     string
	strategyCount    int
	strategyGenerate bool
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Show the adaptive test strategy for a learner, or generate the test",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		testType := analysis.ParseTestType(strategyType)

		if strategyGenerate {
			test, err := current.service.GenerateTest(ctx, strategyLearner, testType, strategyCount)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(out, test)
			}
			printStrategy(cmd, test.Strategy)
			fmt.Fprintf(out, "\n📝 Test #%d\n", test.ResultID)
			for i, q := range test.Questions {
				fmt.Fprintf(out, "%2d. [%s/%s] %s\n", i+1, q.Topic, q.Difficulty, q.Prompt)
				if len(q.Options) > 0 {
					fmt.Fprintf(out, "    options: %s\n", strings.Join(q.Options, " | "))
				}
			}
			return nil
		}

		s, err := current.service.Strategy(ctx, strategyLearner, testType, strategyCount)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(out, s)
		}
		printStrategy(cmd, s)
		return nil
	},
}

func printStrategy(cmd *cobra.Command, s models.TestStrategy) {
	out := cmd.OutOrStdout()
	d := s.DifficultyDistribution
	fmt.Fprintf(out, "Type:       %s\n", s.TestType)
	fmt.Fprintf(out, "Questions:  %d\n", s.QuestionCount)
	fmt.Fprintf(out, "Levels:     beginner %d%%, intermediate %d%%, advanced %d%%\n", d.Beginner, d.Intermediate, d.Advanced)
	if len(s.TopicFocus) > 0 {
		fmt.Fprintf(out, "Focus:      %s\n", strings.Join(s.TopicFocus, ", "))
	}
	a := s.AdaptiveSettings
	fmt.Fprintf(out, "Aids:       hints=%t explanations=%t extra time=%t\n", a.ProvideHints, a.ShowExplanations, a.IncreaseTimeLimit)
}

func init() {
	f := strategyCmd.Flags()
	f.Int64Var(&strategyLearner, "learner", 0, "learner ID")
	f.StringVar(&strategyType, "type", string(models.TestMixedReview), "review, practice, weak-areas, advancement or mixed-review")
	f.IntVar(&strategyCount, "count", 0, "number of questions (default from config)")
	f.BoolVar(&strategyGenerate, "generate", false, "assemble and store the test")
	strategyCmd.MarkFlagRequired("learner")
	addJSONFlag(strategyCmd)
	rootCmd.AddCommand(strategyCmd)
}
