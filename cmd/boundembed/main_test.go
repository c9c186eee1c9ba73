package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/san-kum/boundembed/internal/dataset"
	"github.com/san-kum/boundembed/internal/experiment"
	"github.com/san-kum/boundembed/internal/solver"
)

func TestParseGrid(t *testing.T) {
	names, ranges, err := parseGrid([]string{"k=6,8", "tolerance = 1e-3"})
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "k" || names[1] != "tolerance" {
		t.Errorf("unexpected names %v", names)
	}
	if len(ranges[0]) != 2 || ranges[0][1] != 8 || ranges[1][0] != 1e-3 {
		t.Errorf("unexpected ranges %v", ranges)
	}

	for _, bad := range []string{"k", "=1", "k=", "k=a"} {
		if _, _, err := parseGrid([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestExplain(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("embed: %w", &solver.SingularityError{Reason: "rank deficient"}), true},
		{fmt.Errorf("wrapped: %w", &solver.InputError{Field: "Tolerance", Reason: "must be positive"}), true},
		{fmt.Errorf("%w: mnist", dataset.ErrDataNotFound), true},
		{fmt.Errorf("something else"), false},
	}

	for _, tt := range tests {
		if got := explain(tt.err) != ""; got != tt.want {
			t.Errorf("explain(%v) hint present = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestPathExample(t *testing.T) {
	p := pathExample()
	m, n := p.I.Dims()
	if m != 2 || n != 3 || len(p.L) != 2 || len(p.Score) != 3 {
		t.Errorf("unexpected example shape %dx%d", m, n)
	}
}

func TestRunLiveReturnsSweepError(t *testing.T) {
	boom := errors.New("boom")
	var reported error
	err := runLive(
		func() error { return nil },
		func() error { return boom },
		func(err error) { reported = err },
		func() {},
	)
	if !errors.Is(err, boom) {
		t.Errorf("expected sweep error, got %v", err)
	}
	if !errors.Is(reported, boom) {
		t.Errorf("view should see the sweep error, got %v", reported)
	}
}

func TestRunLiveCancelsOnViewExit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := runLive(
		func() error { return nil },
		func() error { <-ctx.Done(); return ctx.Err() },
		func(error) {},
		cancel,
	)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunLiveViewErrorWins(t *testing.T) {
	viewErr := errors.New("no tty")
	err := runLive(
		func() error { return viewErr },
		func() error { return nil },
		func(error) {},
		func() {},
	)
	if !errors.Is(err, viewErr) {
		t.Errorf("expected view error, got %v", err)
	}
}

func TestPrintCatalog(t *testing.T) {
	var buf bytes.Buffer
	printCatalog(&buf, experiment.NewRegistry())

	out := buf.String()
	for _, want := range []string{"presets:", "  quick", "embedders:", "  polar\n", "  polar_gd", "metrics:", "  violation_rate"} {
		if !strings.Contains(out, want) {
			t.Errorf("catalog missing %q:\n%s", want, out)
		}
	}
}
