// Package main is the entry point for the fitagent CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flemzord/fitagent/internal/agent"
	"github.com/flemzord/fitagent/internal/config"
	"github.com/flemzord/fitagent/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fitagent",
		Short:         "An agentic task-execution engine for fitness coaching",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.AddCommand(versionCmd(), serveCmd(), askCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fitagent %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			return app.Serve(cmd.Context(), app.RunParams{
				ConfigPath: cfgPath,
				Version:    version,
			})
		},
	}
}

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Run one task and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			stream, _ := cmd.Flags().GetBool("stream")

			ctx := cmd.Context()
			a, _, err := app.Setup(ctx, app.RunParams{ConfigPath: cfgPath, Version: version})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			ag, err := a.NewAgent()
			if err != nil {
				return err
			}
			prompt := strings.Join(args, " ")
			if stream {
				return printStream(ctx, cmd.OutOrStdout(), ag, prompt)
			}

			out, err := ag.Run(ctx, prompt)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().Bool("stream", false, "Print progress events as they happen")
	return cmd
}

// printStream writes progress events and the final answer. It returns an
// error when the run ends with an error event.
func printStream(ctx context.Context, w io.Writer, ag *agent.Agent, prompt string) error {
	s, err := ag.RunStream(ctx, prompt)
	if err != nil {
		return err
	}
	defer s.Cancel()

	var failure error
	for ev := range s.Events() {
		switch ev.Type {
		case agent.EventStepStart:
			fmt.Fprintf(w, "── step %d/%d\n", deref(ev.StepNumber), deref(ev.MaxSteps))
		case agent.EventThinking:
			fmt.Fprintf(w, "   %s\n", ev.Content)
		case agent.EventToolStart:
			fmt.Fprintf(w, "   → %s\n", ev.ToolName)
		case agent.EventToolComplete, agent.EventToolError:
			fmt.Fprintf(w, "   ← %s (%s): %s\n", ev.ToolName, ev.Status, ev.Summary)
		case agent.EventResult:
			fmt.Fprintf(w, "\n%s\n", ev.Content)
		case agent.EventError:
			fmt.Fprintf(w, "\n%s\n", ev.Content)
			failure = errors.New("task did not complete")
		}
	}
	return failure
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK (%d providers)\n", len(cfg.Providers))
			for _, p := range cfg.Providers {
				fmt.Fprintf(out, "  %s: %s (%s)\n", p.Name, p.Model, p.Role)
			}
			return nil
		},
	})
	return cmd
}
