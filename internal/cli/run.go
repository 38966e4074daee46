package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/aretw0/scenestack"
	"github.com/aretw0/scenestack/internal/logging"
	"github.com/aretw0/scenestack/pkg/adapters/memory"
	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/observability"
	"github.com/aretw0/scenestack/pkg/ports"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	ScriptPath string
	Out        io.Writer
	Logger     *slog.Logger
	Debug      bool
	Quiet      bool
	// Store backs save and restore steps. Defaults to an in-memory store.
	Store      ports.SnapshotStore
	MasterData ports.MasterData
}

// StepError reports the step that broke a scenario.
type StepError struct {
	Index  int
	Action string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Action, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Execute loads the script at opts.ScriptPath and runs it to completion.
func Execute(ctx context.Context, opts RunOptions) error {
	script, err := LoadScript(opts.ScriptPath)
	if err != nil {
		return err
	}
	return Run(ctx, script, opts)
}

// Run drives script against a fresh environment and shuts it down afterwards.
func Run(ctx context.Context, script *Script, opts RunOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Store == nil {
		opts.Store = memory.NewStore()
	}

	directorOpts := []scenestack.Option{
		scenestack.WithLogger(opts.Logger),
		scenestack.WithSnapshotStore(opts.Store),
		scenestack.WithName(script.Name),
	}
	if opts.Debug {
		directorOpts = append(directorOpts, scenestack.WithLifecycleHooks(observability.LoggingHooks(opts.Logger)))
	}
	env, err := NewEnvironment(script, opts.MasterData, directorOpts...)
	if err != nil {
		return err
	}

	printer := NewPrinter(opts.Out, opts.Quiet)
	printer.Banner(script.Name, scenestack.Version)

	runErr := NewRunner(env, printer).Run(ctx, script.Steps)
	printer.Summary(len(script.Steps), runErr)

	if err := env.Director.Shutdown(context.WithoutCancel(ctx)); err != nil {
		opts.Logger.Warn("shutdown failed", "error", err)
	}
	return runErr
}

// Runner executes steps against an Environment.
type Runner struct {
	env     *Environment
	printer *Printer
}

func NewRunner(env *Environment, printer *Printer) *Runner {
	return &Runner{env: env, printer: printer}
}

// Run executes steps in order and stops at the first unmet expectation.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := r.exec(ctx, step)
		r.printer.Step(i, step, r.env.Director.Stack(), result, err)
		if err := r.check(step, result, err); err != nil {
			return &StepError{Index: i, Action: step.Action(), Err: err}
		}
	}
	return nil
}

func (r *Runner) exec(ctx context.Context, step Step) (any, error) {
	d := r.env.Director
	switch step.Action() {
	case "transition":
		ops, _ := domain.ParseOperations(step.Ops)
		return nil, d.Transition(ctx, domain.TransitionRequest{Type: step.Transition, Arg: step.Arg, Operations: ops})
	case "dialog":
		return d.TransitionDialog(ctx, scenestack.DialogRequest{Type: step.Dialog, Arg: step.Arg})
	case "back":
		return nil, d.TransitionPrev(ctx)
	case "terminate":
		return nil, d.Terminate(ctx, step.Terminate, step.ClearHistory)
	case "terminate_last":
		return nil, d.TerminateLast(ctx, step.ClearHistory)
	case "save":
		return nil, d.Save(ctx, step.Save)
	case "restore":
		return nil, d.Restore(ctx, step.Restore)
	case "reset":
		return nil, d.Reset(ctx)
	default:
		return nil, fmt.Errorf("invalid step %+v", step)
	}
}

func (r *Runner) check(step Step, result any, err error) error {
	switch {
	case step.ExpectError != "":
		if err == nil {
			return fmt.Errorf("expected error containing %q", step.ExpectError)
		}
		if !containsFold(err.Error(), step.ExpectError) {
			return fmt.Errorf("expected error containing %q: %w", step.ExpectError, err)
		}
	case err != nil:
		return err
	}

	if step.ExpectResult != nil && fmt.Sprint(step.ExpectResult) != fmt.Sprint(result) {
		return fmt.Errorf("expected result %v, got %v", step.ExpectResult, result)
	}
	if step.ExpectStack != nil {
		got := make([]domain.SceneType, 0)
		for _, e := range r.env.Director.Stack() {
			got = append(got, e.Type)
		}
		if !slices.Equal(step.ExpectStack, got) {
			return fmt.Errorf("expected stack %v, got %v", step.ExpectStack, got)
		}
	}
	return nil
}
