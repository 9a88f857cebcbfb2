package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kgsa/internal/journal"
	"kgsa/internal/reconcile"
)

const historyTimeLayout = "2006-01-02 15:04"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent import runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(j *journal.Journal) error {
				runs, err := j.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No imports recorded yet.")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"Run", "Started", "Kind", "Grad Class", "Status", "Dry run", "Created", "Updated", "Skipped", "Failed"},
					historyRows(runs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one run and every write it attempted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(j *journal.Journal) error {
				run, err := j.GetRun(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("run %s: %w", args[0], err)
				}
				entries, err := j.RunMutations(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderDetails(runDetails(run)))
				if len(entries) == 0 {
					fmt.Fprintln(out, "No writes were attempted.")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"Row", "Action", "Table", "Record", "Status", "Fields"},
					mutationRows(entries),
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
}

func historyRows(runs []*journal.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			formatLocal(run.StartedAt),
			run.Kind,
			run.Partition,
			string(run.Status),
			yesNo(run.DryRun),
			strconv.Itoa(run.Summary.Created),
			strconv.Itoa(run.Summary.Updated),
			strconv.Itoa(run.Summary.Skipped),
			strconv.Itoa(run.Summary.Failed),
		})
	}
	return rows
}

func runDetails(run *journal.Run) [][2]string {
	pairs := [][2]string{
		{"Run", run.ID},
		{"Kind", run.Kind},
		{"File", run.SourceFile},
		{"Grad Class", run.Partition},
	}
	if run.Exam != "" {
		pairs = append(pairs, [2]string{"Exam", run.Exam})
	}
	pairs = append(pairs,
		[2]string{"Status", string(run.Status)},
		[2]string{"Dry run", yesNo(run.DryRun)},
		[2]string{"Started", formatLocal(run.StartedAt)},
		[2]string{"Finished", formatLocal(run.FinishedAt)},
	)
	for _, row := range summaryRows(run.Summary) {
		pairs = append(pairs, [2]string{row[0], row[1]})
	}
	if run.Error != "" {
		pairs = append(pairs, [2]string{"Error", run.Error})
	}
	return pairs
}

func mutationRows(entries []journal.MutationEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		m := entry.Mutation
		record := m.Label
		if record == "" {
			record = m.Handle
		}
		status := string(m.Status)
		if len(m.Mismatched) > 0 {
			status += " (" + strings.Join(m.Mismatched, ", ") + ")"
		}
		if m.Error != "" {
			status += ": " + m.Error
		}
		rows = append(rows, []string{strconv.Itoa(m.Row), string(m.Action), m.Table, record, status, fieldSummary(m.Fields)})
	}
	return rows
}

func fieldSummary(fields reconcile.Fields) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", f.Name, f.Value))
	}
	return strings.Join(parts, "; ")
}

func formatLocal(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(historyTimeLayout)
}
