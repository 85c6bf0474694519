package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	dueLearner int64
	dueLimit   int
)

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "Show a learner's items due for review",
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now().UTC()
		items, err := current.service.DueItems(cmd.Context(), dueLearner, now, dueLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			return printJSON(out, items)
		}
		if len(items) == 0 {
			fmt.Fprintln(out, "✅ Nothing due. Good job.")
			return nil
		}

		fmt.Fprintf(out, "🔥 %d items due:\n\n", len(items))
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Item\tReps\tEase\tInterval\tDue")
		fmt.Fprintln(w, "----\t----\t----\t--------\t---")
		for _, s := range items {
			fmt.Fprintf(w, "%d\t%d\t%.2f\t%dd\t%s\n", s.ItemID, s.Repetitions, s.EaseFactor, s.IntervalDays, s.NextReviewDate.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

func init() {
	dueCmd.Flags().Int64Var(&dueLearner, "learner", 0, "learner ID")
	dueCmd.Flags().IntVar(&dueLimit, "limit", 0, "show at most this many items (0 = all)")
	dueCmd.MarkFlagRequired("learner")
	addJSONFlag(dueCmd)
	rootCmd.AddCommand(dueCmd)
}
