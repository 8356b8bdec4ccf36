package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"splice/internal/config"
	"splice/internal/daemon"
	"splice/internal/delivery"
	"splice/internal/ledger"
)

type deliverOptions struct {
	instruction string
	async       bool
	noRetain    bool
}

type injectReport struct {
	JobID    string   `json:"job_id"`
	Status   string   `json:"status"`
	Path     string   `json:"path,omitempty"`
	Messages []string `json:"messages,omitempty"`
	Warnings []string `json:"warnings"`
}

func newInjectCommand(ctx *commandContext) *cobra.Command {
	var opts deliverOptions

	cmd := &cobra.Command{
		Use:   "inject <intent.json|->",
		Short: "Compile an edit intent and deliver it to the watch-folder",
		Long: "Compile an edit intent and deliver the FCPXML document to the CommandPost watch-folder.\n\n" +
			"By default delivery happens immediately. With --async the document is queued\n" +
			"for the background daemon instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readIntent(cmd, args[0])
			if err != nil {
				return err
			}
			compiled, err := compileRaw(raw)
			if err != nil {
				return err
			}
			if strings.TrimSpace(opts.instruction) == "" {
				opts.instruction = compiled.intent.Project.Name
			}
			return deliverCompiled(cmd, ctx, compiled, opts)
		},
	}

	addDeliverFlags(cmd, &opts)
	return cmd
}

func addDeliverFlags(cmd *cobra.Command, opts *deliverOptions) {
	cmd.Flags().StringVar(&opts.instruction, "instruction", "", "Instruction recorded with the job (defaults to the project name)")
	cmd.Flags().BoolVar(&opts.async, "async", false, "Queue the job for the daemon instead of delivering now")
	cmd.Flags().BoolVar(&opts.noRetain, "no-retain", false, "Remove the out/ copy after a one-shot delivery")
}

// deliverCompiled performs a one-shot injection or queues the document for the daemon.
func deliverCompiled(cmd *cobra.Command, ctx *commandContext, compiled *compiledIntent, opts deliverOptions) error {
	logger := ctx.cliLogger()
	return ctx.withManager(logger, func(cfg *config.Config, mgr *delivery.Manager, _ *ledger.Store) error {
		if opts.async {
			return submitCompiled(cmd, ctx, cfg, mgr, compiled, opts)
		}

		result, err := mgr.InjectOneShot(cmd.Context(), compiled.result.Document, delivery.InjectOptions{
			Instruction:  opts.instruction,
			IntentJSON:   compiled.raw,
			RetainOutput: cfg.Delivery.RetainOutput && !opts.noRetain,
		})
		if err != nil {
			return err
		}
		ctx.checkBridge(cmd.Context(), cfg, logger)

		if ctx.jsonOutput() {
			return writeJSON(cmd, injectReport{
				JobID:    result.JobID,
				Status:   delivery.StatusInjected.String(),
				Path:     result.Path,
				Messages: result.Messages,
				Warnings: nonNil(compiled.warnings),
			})
		}
		printWarnings(cmd, compiled.warnings)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Job ID: %s\n", result.JobID)
		fmt.Fprintf(out, "FCPXML: %s\n", result.Path)
		for _, msg := range result.Messages {
			fmt.Fprintf(out, "  - %s\n", msg)
		}
		return nil
	})
}

func submitCompiled(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, mgr *delivery.Manager, compiled *compiledIntent, opts deliverOptions) error {
	id, err := mgr.Submit(cmd.Context(), compiled.result.Document, delivery.SubmitOptions{
		Instruction: opts.instruction,
		IntentJSON:  compiled.raw,
	})
	if err != nil {
		return err
	}

	if ctx.jsonOutput() {
		return writeJSON(cmd, injectReport{
			JobID:    id,
			Status:   delivery.StatusPending.String(),
			Path:     mgr.Layout().OutPath(id),
			Warnings: nonNil(compiled.warnings),
		})
	}
	printWarnings(cmd, compiled.warnings)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job queued: %s\n", id)
	if !daemonRunning(cfg, mgr, ctx.cliLogger()) {
		fmt.Fprintln(out, "Daemon is not running; start it with `splice daemon start --detach`.")
	}
	return nil
}

func daemonRunning(cfg *config.Config, mgr *delivery.Manager, logger *slog.Logger) bool {
	d, err := daemon.New(cfg, mgr, logger)
	if err != nil {
		return false
	}
	return d.Status().Running
}
