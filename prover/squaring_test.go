package prover

import (
	"context"
	"errors"
	"testing"
)

func TestCheckpointInvariant(t *testing.T) {
	g, x, _ := testSetup(t)
	plan := Plan{K: 2, L: 2}
	tr := &track{iterations: 64, plan: plan, store: newMemStore(plan.Checkpoints(64))}
	sq := &squarer{group: g}
	if err := sq.run(context.Background(), x, []*track{tr}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if tr.store.Len() != 16 {
		t.Fatalf("checkpoints = %d, want 16", tr.store.Len())
	}
	for i := uint64(0); i < 16; i++ {
		got, err := tr.store.At(i)
		if err != nil {
			t.Fatalf("At(%d): %v", i, err)
		}
		if want := squareN(g, x, 4*i); !got.Equal(want) {
			t.Fatalf("checkpoint %d is not x^(2^%d)", i, 4*i)
		}
	}
	if want := squareN(g, x, 64); !tr.y.Equal(want) {
		t.Fatalf("y = %s, want %s", tr.y, want)
	}
}

func TestSquaringLeavesInputUntouched(t *testing.T) {
	g, x, _ := testSetup(t)
	orig := x.Clone()
	tr := &track{iterations: 5, plan: Plan{K: 1, L: 1}, store: newMemStore(5)}
	if err := (&squarer{group: g}).run(context.Background(), x, []*track{tr}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !x.Equal(orig) {
		t.Fatal("run mutated its input")
	}
}

func TestProgressCadence(t *testing.T) {
	g, x, _ := testSetup(t)
	tests := []struct {
		iters, interval uint64
		calls           int
	}{
		{64, 10, 7},
		{64, 64, 1},
		{64, 1, 64},
		{7, 3, 3},
		{5, 100, 1},
	}
	for _, tt := range tests {
		var got []uint64
		tr := &track{iterations: tt.iters, plan: Plan{K: 1, L: 1}, store: newMemStore(tt.iters)}
		sq := &squarer{
			group:    g,
			interval: tt.interval,
			progress: func(done uint64) { got = append(got, done) },
		}
		if err := sq.run(context.Background(), x, []*track{tr}); err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(got) != tt.calls {
			t.Errorf("T=%d P=%d: %d callbacks, want %d (%v)", tt.iters, tt.interval, len(got), tt.calls, got)
			continue
		}
		for i := 1; i < len(got); i++ {
			if got[i] <= got[i-1] {
				t.Errorf("T=%d P=%d: counts not increasing: %v", tt.iters, tt.interval, got)
			}
		}
		if got[len(got)-1] != tt.iters {
			t.Errorf("T=%d P=%d: last count %d", tt.iters, tt.interval, got[len(got)-1])
		}
	}
}

func TestProgressDisabled(t *testing.T) {
	g, x, _ := testSetup(t)
	called := false
	tr := &track{iterations: 10, plan: Plan{K: 1, L: 1}, store: newMemStore(10)}
	sq := &squarer{group: g, progress: func(uint64) { called = true }}
	if err := sq.run(context.Background(), x, []*track{tr}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if called {
		t.Fatal("progress invoked with a zero interval")
	}
}

func TestSquaringCancellation(t *testing.T) {
	g, x, _ := testSetup(t)
	cg := &countingGroup{Group: g}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := &track{iterations: 100, plan: Plan{K: 1, L: 1}, store: newMemStore(100)}
	sq := &squarer{
		group:    cg,
		interval: 1,
		progress: func(done uint64) {
			if done == 10 {
				cancel()
			}
		},
	}
	err := sq.run(ctx, x, []*track{tr})
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if n := cg.squares.Load(); n != 10 {
		t.Fatalf("squarings after cancel = %d, want 10", n)
	}
	if tr.y != nil {
		t.Fatal("canceled track exposed a result")
	}
}

func TestSquaringSharedTracks(t *testing.T) {
	g, x, _ := testSetup(t)
	short := &track{iterations: 10, plan: Plan{K: 1, L: 3}, store: newMemStore(4)}
	long := &track{iterations: 25, plan: Plan{K: 2, L: 2}, store: newMemStore(7)}
	cg := &countingGroup{Group: g}
	if err := (&squarer{group: cg}).run(context.Background(), x, []*track{short, long}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if n := cg.squares.Load(); n != 25 {
		t.Fatalf("shared chain squared %d times, want 25", n)
	}
	for _, tr := range []*track{short, long} {
		if want := tr.plan.Checkpoints(tr.iterations); tr.store.Len() != want {
			t.Fatalf("T=%d: %d checkpoints, want %d", tr.iterations, tr.store.Len(), want)
		}
		if want := squareN(g, x, tr.iterations); !tr.y.Equal(want) {
			t.Fatalf("T=%d: wrong y", tr.iterations)
		}
		last, _ := tr.store.At(tr.store.Len() - 1)
		if want := squareN(g, x, (tr.store.Len()-1)*tr.plan.Interval()); !last.Equal(want) {
			t.Fatalf("T=%d: wrong final checkpoint", tr.iterations)
		}
	}
}
