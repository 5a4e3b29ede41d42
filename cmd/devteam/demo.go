package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/zulandar/devteam/internal/client"
	"github.com/zulandar/devteam/internal/events"
	"github.com/zulandar/devteam/internal/project"
	"github.com/zulandar/devteam/internal/team"
)

func newDemoCmd() *cobra.Command {
	var (
		simulate bool
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk a sample project through its first departments",
		Long: "Creates a client and a project with business analysis and development enabled,\n" +
			"advances the lifecycle step by step and prints the department board after each step.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, simulate, timeout)
		},
	}

	cmd.Flags().BoolVar(&simulate, "simulate", false, "finish development with simulated progress")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for simulated work")
	return cmd
}

func runDemo(cmd *cobra.Command, simulate bool, timeout time.Duration) error {
	out := cmd.OutOrStdout()
	styled := isTerminal(out)

	svc := team.New(team.Options{MinIncrement: 25, MaxIncrement: 50})
	defer svc.Close()

	ada, err := svc.CreateClient(client.CreateOpts{Name: "Ada", Company: "Analytical Engines"})
	if err != nil {
		return err
	}
	p, err := svc.CreateProject(project.CreateOpts{
		ClientID:          ada.ID,
		Name:              "P1",
		ActiveDepartments: []string{"business-analysis", "development"},
	})
	if err != nil {
		return err
	}
	if err := printStep(out, svc, p.ID, "Project created", styled); err != nil {
		return err
	}

	startNext := func(id string) (bool, error) {
		_, ok, err := svc.StartNext(id)
		return ok, err
	}
	completeCurrent := func(id string) (bool, error) {
		_, ok, err := svc.CompleteCurrent(id)
		return ok, err
	}
	steps := []struct {
		label string
		run   func(id string) (bool, error)
	}{
		{"Started next department", startNext},
		{"Completed current department", completeCurrent},
		{"Started next department", startNext},
	}
	for _, step := range steps {
		changed, err := step.run(p.ID)
		if err != nil {
			return err
		}
		label := step.label
		if !changed {
			label += " (no change)"
		}
		if err := printStep(out, svc, p.ID, label, styled); err != nil {
			return err
		}
	}

	if !simulate {
		return nil
	}

	ch, unsubscribe := svc.Bus().Subscribe(events.DefaultBuffer)
	defer unsubscribe()
	svc.Start()
	if _, err := svc.StartWork(p.ID, "development"); err != nil {
		return err
	}
	fmt.Fprintln(out, "Simulating development...")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	if err := waitForCompletion(ctx, out, ch, p.ID, "development"); err != nil {
		return err
	}
	return printStep(out, svc, p.ID, "Development delivered", styled)
}

// waitForCompletion reports progress events until the department completes.
func waitForCompletion(ctx context.Context, out io.Writer, ch <-chan events.Event, projectID, departmentID string) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("demo: waiting for %s: %w", departmentID, ctx.Err())
		case evt, ok := <-ch:
			if !ok {
				return fmt.Errorf("demo: event bus closed")
			}
			if evt.ProjectID != projectID || evt.DepartmentID != departmentID {
				continue
			}
			switch evt.Type {
			case events.DepartmentProgress:
				fmt.Fprintf(out, "  %s %3d%%\n", progressBar(evt.Progress, 20), evt.Progress)
			case events.DepartmentCompleted:
				return nil
			}
		}
	}
}

func printStep(out io.Writer, svc *team.Service, projectID, label string, styled bool) error {
	p, err := svc.Project(projectID)
	if err != nil {
		return err
	}
	stats, err := svc.Stats(projectID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n== %s\n", label)
	fmt.Fprint(out, renderBoard(p, stats, styled))
	return nil
}
