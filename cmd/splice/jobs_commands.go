package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"splice/internal/config"
	"splice/internal/delivery"
	"splice/internal/ledger"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect delivery jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(ctx.cliLogger(), func(_ *config.Config, mgr *delivery.Manager, _ *ledger.Store) error {
				jobs, err := mgr.ListJobs(limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if jobs == nil {
						jobs = []*delivery.Job{}
					}
					return writeJSON(cmd, jobs)
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs recorded")
					return nil
				}
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						job.ID,
						jobStatusText(job.Status, colorize),
						formatTimestamp(job.CreatedAt),
						job.Instruction,
					})
				}
				fmt.Fprintln(out, renderTable([]tableColumn{
					{header: "Job"},
					{header: "Status"},
					{header: "Created"},
					{header: "Instruction", maxWidth: 48},
				}, rows))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of jobs to show (0 for all)")
	return cmd
}

type jobDetail struct {
	*delivery.Job
	History []ledger.Event `json:"history,omitempty"`
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job and its recorded history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(ctx.cliLogger(), func(_ *config.Config, mgr *delivery.Manager, store *ledger.Store) error {
				job, err := mgr.Job(args[0])
				if err != nil {
					return err
				}
				detail := jobDetail{Job: job}
				if store != nil {
					history, err := store.History(cmd.Context(), job.ID)
					if err == nil {
						detail.History = history
					}
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, detail)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "Job ID:       %s\n", job.ID)
				fmt.Fprintf(out, "Status:       %s\n", jobStatusText(job.Status, colorize))
				fmt.Fprintf(out, "Created:      %s\n", formatTimestamp(job.CreatedAt))
				if job.CompletedAt != nil {
					fmt.Fprintf(out, "Completed:    %s\n", formatTimestamp(*job.CompletedAt))
				}
				if job.Instruction != "" {
					fmt.Fprintf(out, "Instruction:  %s\n", job.Instruction)
				}
				if job.IntentPath != "" {
					fmt.Fprintf(out, "Intent:       %s\n", job.IntentPath)
				}
				if job.FCPXMLPath != "" {
					fmt.Fprintf(out, "Document:     %s\n", job.FCPXMLPath)
				}
				if job.DeliveredPath != "" {
					fmt.Fprintf(out, "Delivered to: %s\n", job.DeliveredPath)
				}
				if job.Error != "" {
					fmt.Fprintf(out, "Error:        %s\n", job.Error)
				}
				if len(detail.History) > 0 {
					rows := make([][]string, 0, len(detail.History))
					for _, ev := range detail.History {
						rows = append(rows, []string{formatTimestamp(ev.At), ev.Status, ev.Source, ev.Error})
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable([]tableColumn{
						{header: "At"},
						{header: "Status"},
						{header: "Source"},
						{header: "Error", maxWidth: 40},
					}, rows))
				}
				return nil
			})
		},
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
