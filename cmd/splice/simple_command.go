package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"splice/internal/intent"
)

func newSimpleCommand(ctx *commandContext) *cobra.Command {
	var (
		projectName string
		preset      string
		output      string
		inject      bool
		printIntent bool
		clipSeconds float64
		deliver     deliverOptions
	)

	cmd := &cobra.Command{
		Use:   "simple <media>...",
		Short: "Concatenate media files into a timeline in the order given",
		Long: fmt.Sprintf("Build an edit intent that places each media file on the primary storyline\n"+
			"for --clip-seconds (default %d, snapped to a frame), in argument order, then\n"+
			"compile it. Use --inject to deliver the result instead of printing it.", intent.SimpleClipSeconds),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			var missing []string
			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", arg, err)
				}
				if _, err := os.Stat(abs); err != nil {
					missing = append(missing, arg)
					continue
				}
				paths = append(paths, abs)
			}
			if len(missing) > 0 {
				return fmt.Errorf("media files not found: %s", strings.Join(missing, ", "))
			}

			in, err := intent.Simple(paths, projectName, preset, clipSeconds)
			if err != nil {
				return err
			}
			compiled, err := compileIntent(in)
			if err != nil {
				return err
			}

			if printIntent {
				fmt.Fprintln(cmd.ErrOrStderr(), string(compiled.raw))
			}
			if inject {
				if strings.TrimSpace(deliver.instruction) == "" {
					deliver.instruction = "simple concatenation: " + in.Project.Name
				}
				return deliverCompiled(cmd, ctx, compiled, deliver)
			}

			printWarnings(cmd, compiled.warnings)
			path, err := writeDocument(cmd, compiled.result.Document, output)
			if err != nil {
				return err
			}
			if path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "FCPXML written: %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectName, "name", "n", "", "Project name (defaults to \"Simple Project\")")
	cmd.Flags().StringVar(&preset, "preset", intent.DefaultPreset, "Format preset: "+strings.Join(intent.PresetNames(), ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the document to this path instead of stdout")
	cmd.Flags().BoolVar(&inject, "inject", false, "Deliver the compiled document to the watch-folder")
	cmd.Flags().Float64Var(&clipSeconds, "clip-seconds", intent.SimpleClipSeconds, "Length of each clip in seconds")
	cmd.Flags().BoolVar(&printIntent, "print-intent", false, "Print the generated intent JSON to stderr")
	addDeliverFlags(cmd, &deliver)
	return cmd
}
