package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/learnbot/internal/learning"
)

var reviewSub learning.ReviewSubmission

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Record a review of one item and show its new schedule",
	Long: `Record a review of one item. The quality is blended from the
automated score (0-1), the self rating (0-5), the answer time and the
hints used. Passing the same --event-id twice records the review once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := current.service.SubmitReview(cmd.Context(), reviewSub)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if asJSON {
			return printJSON(w, out)
		}
		if out.Duplicate {
			fmt.Fprintln(w, "ℹ️ Review already recorded.")
		}
		s := out.State
		fmt.Fprintf(w, "Quality %.2f (time factor %d)\n", out.Quality, out.TimeFactor)
		if out.ShouldReset {
			fmt.Fprintln(w, "🔁 Failed, starting over.")
		}
		fmt.Fprintf(w, "Repetitions %d, ease %.2f, interval %dd\n", s.Repetitions, s.EaseFactor, s.IntervalDays)
		fmt.Fprintf(w, "Next review: %s\n", s.NextReviewDate.Format("2006-01-02"))
		return nil
	},
}

func init() {
	f := reviewCmd.Flags()
	f.Int64Var(&reviewSub.LearnerID, "learner", 0, "learner ID")
	f.Int64Var(&reviewSub.ItemID, "item", 0, "question ID")
	f.Float64Var(&reviewSub.AutoScore, "auto", 0, "automated score 0-1")
	f.Float64Var(&reviewSub.SelfRating, "self", 0, "self rating 0-5")
	f.Float64Var(&reviewSub.HintLevel, "hints", 0, "hint level used 0-5")
	f.Float64Var(&reviewSub.TimeSpentSeconds, "time", 0, "seconds spent answering")
	f.Float64Var(&reviewSub.ExpectedSeconds, "expected", 0, "expected answer seconds (default: the question's)")
	f.StringVar(&reviewSub.EventID, "event-id", "", "idempotency key (default: random)")
	reviewCmd.MarkFlagRequired("learner")
	reviewCmd.MarkFlagRequired("item")
	addJSONFlag(reviewCmd)
	rootCmd.AddCommand(reviewCmd)
}
