package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nao1215/cachescan/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, report *model.AuditReport) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, report *model.AuditReport) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, report)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithLogger option", func(t *testing.T) {
		t.Parallel()

		logger := discardLogger()
		p := New(WithLogger(logger))
		if p.logger != logger {
			t.Error("expected custom logger")
		}
	})
}

func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("adds multiple steps with AddSteps", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&mockStep{name: "step-1"}, &mockStep{name: "step-2"}, &mockStep{name: "step-3"})

		if p.StepCount() != 3 {
			t.Errorf("expected 3 steps, got %d", p.StepCount())
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "first"})
		p.AddStep(&mockStep{name: "second"})
		p.AddStep(&mockStep{name: "third"})

		expected := []string{"first", "second", "third"}
		for i, name := range p.StepNames() {
			if name != expected[i] {
				t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
			}
		}
	})
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{
				name: name,
				doFunc: func(_ context.Context, _ *model.AuditReport) error {
					order = append(order, name)
					return nil
				},
			}
		}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(record("a"), record("b"), record("c"))

		report := model.NewAuditReport(model.CheckModeAll, "test")
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
			t.Errorf("unexpected order %v", order)
		}
		if report.Aborted {
			t.Error("expected report not to be aborted")
		}
		if report.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set")
		}
	})

	t.Run("stops on first error and marks report aborted", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		failing := &mockStep{
			name: "failing",
			doFunc: func(_ context.Context, _ *model.AuditReport) error {
				return errBoom
			},
		}
		after := &mockStep{name: "after"}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(failing, after)

		report := model.NewAuditReport(model.CheckModeAll, "test")
		err := p.Execute(context.Background(), report)
		if !errors.Is(err, errBoom) {
			t.Errorf("expected errBoom, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("expected later steps to be skipped")
		}
		if !report.Aborted {
			t.Error("expected report to be aborted")
		}
		if report.ErrorMessage != "boom" {
			t.Errorf("expected error message 'boom', got %q", report.ErrorMessage)
		}
		if report.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "never"}
		p := New(WithLogger(discardLogger()))
		p.AddStep(step)

		report := model.NewAuditReport(model.CheckModeAll, "test")
		err := p.Execute(ctx, report)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("expected step not to run")
		}
		if !report.Aborted {
			t.Error("expected report to be aborted")
		}
	})
}
