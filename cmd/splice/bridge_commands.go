package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"splice/internal/bridge"
)

func newBridgeCommand(ctx *commandContext) *cobra.Command {
	bridgeCmd := &cobra.Command{
		Use:   "bridge",
		Short: "Check and configure the CommandPost import bridge",
	}
	bridgeCmd.AddCommand(newBridgeStatusCommand(ctx))
	bridgeCmd.AddCommand(newBridgeSetupCommand(ctx))
	return bridgeCmd
}

func newBridgeStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether CommandPost will import delivered documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status := ctx.bridgeClient(cfg).Status(cmd.Context())
			if ctx.jsonOutput() {
				return writeJSON(cmd, struct {
					bridge.Status
					Ready bool `json:"ready"`
				}{Status: status, Ready: status.Ready()})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("macOS", boolKind(status.MacOS), yesNo(status.MacOS), colorize))
			fmt.Fprintln(out, renderStatusLine("CommandPost", boolKind(status.AppInstalled), yesNo(status.AppInstalled), colorize))
			cliDetail := yesNo(status.CLIAvailable)
			if status.CLIPath != "" {
				cliDetail = status.CLIPath
			}
			fmt.Fprintln(out, renderStatusLine("cmdpost CLI", boolKind(status.CLIAvailable), cliDetail, colorize))
			folderDetail := cfg.Paths.WatchFolder
			if !status.WatchFolderConfigured {
				folderDetail = "missing: " + folderDetail
			}
			fmt.Fprintln(out, renderStatusLine("Watch folder", boolKind(status.WatchFolderConfigured), folderDetail, colorize))
			fmt.Fprintln(out, renderStatusLine("Auto-import", boolKind(status.AutoImportEnabled), yesNo(status.AutoImportEnabled), colorize))
			for _, msg := range status.Errors {
				fmt.Fprintln(out, renderStatusLine("Problem", statusError, msg, colorize))
			}
			if status.Ready() {
				fmt.Fprintln(out, renderStatusLine("Bridge", statusOK, "ready", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Bridge", statusWarn, "not ready; run `splice bridge setup`", colorize))
			}
			return nil
		},
	}
}

func newBridgeSetupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the watch-folder and register it with CommandPost",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			steps := ctx.bridgeClient(cfg).Bootstrap(cmd.Context())
			failed := 0
			for _, step := range steps {
				if !step.OK {
					failed++
				}
			}
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, steps); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for i, step := range steps {
					kind := statusOK
					if !step.OK {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(fmt.Sprintf("Step %d", i+1), kind, step.Message, colorize))
				}
			}
			if failed > 0 {
				return fmt.Errorf("bridge setup: %d of %d steps failed", failed, len(steps))
			}
			return nil
		},
	}
}
