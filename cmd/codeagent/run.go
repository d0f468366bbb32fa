package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Cyclone1070/codeagent/internal/ui"
	"github.com/Cyclone1070/codeagent/internal/ui/services"
	"github.com/Cyclone1070/codeagent/internal/ui/views"
	"github.com/spf13/cobra"
)

type runOptions struct {
	ProjectID string
	Verbose   bool
	Plain     bool
	Width     int
}

func newRunCmd(a *app) *cobra.Command {
	o := &runOptions{Width: 80}

	cmd := &cobra.Command{
		Use:   "run --project <id> <prompt>",
		Short: "Execute one run in-process and show its progress",
		Example: `  # Build a page in a new project
  codeagent run --project demo "Build a landing page for a coffee shop"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runOnce(ctx, o, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&o.ProjectID, "project", "", "Project the run belongs to")
	cmd.Flags().BoolVarP(&o.Verbose, "verbose", "v", false, "Show the agent's intermediate text")
	cmd.Flags().BoolVar(&o.Plain, "plain", false, "Render markdown without colors")
	cmd.Flags().IntVar(&o.Width, "width", o.Width, "Output width")
	cmd.MarkFlagRequired("project")
	return cmd
}

func (a *app) runOnce(ctx context.Context, o *runOptions, prompt string) error {
	style := "dark"
	if o.Plain {
		style = "notty"
	}
	out := ui.NewUI(os.Stdout, services.NewGlamourRenderer(style), o.Width, a.cfg.Agent.MaxIterations).WithVerbose(o.Verbose)

	deps, err := buildDependencies(ctx, a.cfg, a.logger, nil, out.Handle)
	if err != nil {
		return err
	}
	defer deps.Close()

	trigger, err := saveUserMessage(ctx, deps.Store, o.ProjectID, prompt)
	if err != nil {
		return err
	}

	env, err := deps.Function.Run(ctx, trigger)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		if ferr := deps.Function.OnFailure(ctx, trigger, err); ferr != nil {
			return fmt.Errorf("run failed: %w (and recording the failure failed: %v)", err, ferr)
		}
		out.WriteOutcome(views.Outcome{Failed: true})
		return err
	}

	out.WriteOutcome(views.Outcome{
		Title:   env.Title,
		URL:     env.URL,
		Summary: env.Summary,
		Files:   env.Files,
		Failed:  env.Failed,
	})
	return deps.Function.Forget(ctx, trigger.RunID)
}
