// Package commands provides CLI commands for gemchat.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootOptions holds the flags shared by the command tree
type rootOptions struct {
	model  string
	output string
	file   string
}

// NewRootCmd builds the command tree on top of deps
func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps == nil {
		deps = NewDependencies()
	}
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "gemchat [prompt]",
		Short: "Streaming terminal chat for Google Gemini",
		Long: `gemchat is a terminal chat client for Google Gemini. Responses stream
into the conversation as they are generated.

Set GEMINI_API_KEY (or api_key in the config file) before use.

Examples:
  gemchat chat                        Start interactive chat
  gemchat config                      Configure settings
  gemchat "What is Go?"               Send a single query
  gemchat -f prompt.md                Read prompt from file
  cat prompt.md | gemchat             Read prompt from stdin
  gemchat "Hello" -o response.md      Save response to file`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(deps.Stdout, "gemchat %s (built %s)\n", Version, BuildTime)
				return nil
			}

			prompt, ok, err := readPrompt(deps, opts, args)
			if err != nil {
				return err
			}
			if !ok {
				return cmd.Help()
			}
			return runQuery(cmd.Context(), deps, opts, prompt)
		},
	}

	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	cmd.PersistentFlags().StringVarP(&opts.model, "model", "m", "", "Model to use (e.g., gemini-2.5-flash, pro)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Save response to file")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Read prompt from file")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	cmd.AddCommand(NewChatCmd(deps, opts))
	cmd.AddCommand(NewConfigCmd(deps))

	return cmd
}

// readPrompt picks the query input: --file, then piped stdin, then the
// positional argument. ok is false when there is no input at all.
func readPrompt(deps *Dependencies, opts *rootOptions, args []string) (string, bool, error) {
	if opts.file != "" {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), true, nil
	}

	if deps.StdinPiped() {
		data, err := io.ReadAll(deps.Stdin)
		if err != nil {
			return "", false, fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), true, nil
	}

	if len(args) > 0 {
		return args[0], true, nil
	}
	return "", false, nil
}

// reportedError is an error already shown to the user
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	deps := NewDependencies()
	err := NewRootCmd(deps).ExecuteContext(ctx)
	if err == nil {
		return
	}

	var reported *reportedError
	if !errors.As(err, &reported) {
		fmt.Fprintln(deps.Stderr, "Error:", err)
	}
	stop()
	os.Exit(1)
}
