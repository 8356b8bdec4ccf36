package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"splice/internal/config"
	"splice/internal/fcpxml"
	"splice/internal/fileutil"
	"splice/internal/intent"
)

// compiledIntent carries a validated intent alongside its compiled document.
type compiledIntent struct {
	intent   *intent.EditIntent
	raw      []byte
	result   fcpxml.Result
	warnings []string
}

// readIntent loads intent JSON from path, or stdin when path is "-".
func readIntent(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read intent from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intent: %w", err)
	}
	return data, nil
}

func compileRaw(raw []byte) (*compiledIntent, error) {
	in, err := intent.Validate(raw)
	if err != nil {
		return nil, err
	}
	return compileIntent(in)
}

func compileIntent(in *intent.EditIntent) (*compiledIntent, error) {
	result, err := fcpxml.Compile(in)
	if err != nil {
		return nil, fmt.Errorf("compile fcpxml: %w", err)
	}
	if err := fcpxml.ValidateStructure(result.Document); err != nil {
		return nil, err
	}
	raw, err := in.JSON()
	if err != nil {
		return nil, fmt.Errorf("encode intent: %w", err)
	}
	return &compiledIntent{intent: in, raw: raw, result: result, warnings: result.Warnings}, nil
}

// writeDocument writes doc to output, or to stdout when output is empty.
func writeDocument(cmd *cobra.Command, doc, output string) (string, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), doc)
		return "", err
	}
	target, err := config.ExpandPath(output)
	if err != nil {
		return "", err
	}
	if err := fileutil.WriteFileAtomic(target, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	return target, nil
}

type compileReport struct {
	Output   string   `json:"output,omitempty"`
	Document string   `json:"document,omitempty"`
	Warnings []string `json:"warnings"`
}

func newCompileCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:         "compile <intent.json|->",
		Short:       "Validate an edit intent and compile it to FCPXML",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readIntent(cmd, args[0])
			if err != nil {
				return err
			}
			compiled, err := compileRaw(raw)
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				report := compileReport{Warnings: nonNil(compiled.warnings)}
				if strings.TrimSpace(output) == "" {
					report.Document = compiled.result.Document
				} else {
					path, err := writeDocument(cmd, compiled.result.Document, output)
					if err != nil {
						return err
					}
					report.Output = path
				}
				return writeJSON(cmd, report)
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

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the document to this path instead of stdout")
	return cmd
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
