package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/miradorstack/mirador-twin/internal/models"
)

func TestRegisterRejectsEmptyName(t *testing.T) {
	reg := New(DefaultCapacity, nil)
	if _, err := reg.Register(""); !errors.Is(err, models.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for empty name, got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected no twins after rejected registration")
	}
}

func TestRegisterKeepsNameAsGiven(t *testing.T) {
	reg := New(DefaultCapacity, nil)
	for _, name := range []string{"   ", " Lathe-1 "} {
		twin, err := reg.Register(name)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", name, err)
		}
		if twin.Name != name {
			t.Fatalf("expected name %q to be stored verbatim, got %q", name, twin.Name)
		}
	}
}

func TestRegisterAssignsDistinctIDsAndPreservesOrder(t *testing.T) {
	reg := New(DefaultCapacity, nil)
	first, err := reg.Register("Lathe-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := reg.Register("Lathe-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("expected distinct ids, got %q and %q", first.ID, second.ID)
	}

	twins := reg.List()
	if len(twins) != 2 {
		t.Fatalf("expected two twins, got %d", len(twins))
	}
	if twins[0].Name != "Lathe-1" || twins[1].Name != "Lathe-2" {
		t.Fatalf("unexpected order: %+v", twins)
	}
}

func TestUnknownIDIsNotFound(t *testing.T) {
	reg := New(DefaultCapacity, nil)

	if _, err := reg.Get("missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found from Get, got %v", err)
	}
	if err := reg.RecordSuccess("missing", models.Snapshot{}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found from RecordSuccess, got %v", err)
	}
	if err := reg.RecordFailure("missing", errors.New("boom")); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found from RecordFailure, got %v", err)
	}
	if _, err := reg.Recent("missing", 5); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found from Recent, got %v", err)
	}
}

func TestRecordFailureKeepsBufferAndSuccessClearsIt(t *testing.T) {
	reg := New(DefaultCapacity, nil)
	twin, _ := reg.Register("Mill-7")

	if err := reg.RecordSuccess(twin.ID, snapshotN(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	failure := &models.TerminalFailure{Attempts: 3, LastErr: errors.New("timeout")}
	if err := reg.RecordFailure(twin.ID, failure); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, err := reg.Failure(twin.ID)
	if err != nil || state == nil {
		t.Fatalf("expected failure state, got %v (err=%v)", state, err)
	}
	var terminal *models.TerminalFailure
	if !errors.As(state.Err, &terminal) || terminal.Attempts != 3 {
		t.Fatalf("unexpected failure state: %v", state.Err)
	}

	recent, _ := reg.Recent(twin.ID, DefaultCapacity)
	if len(recent) != 1 {
		t.Fatalf("failure must not touch the buffer, got %d entries", len(recent))
	}

	if err := reg.RecordSuccess(twin.ID, snapshotN(2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state, _ := reg.Failure(twin.ID); state != nil {
		t.Fatalf("expected success to clear failure state, got %+v", state)
	}
	latest, ok, _ := reg.Latest(twin.ID)
	if !ok || latest.ToolWearMin != 2 {
		t.Fatalf("unexpected latest: %+v", latest)
	}
}

func TestConcurrentRegisterListAndRecord(t *testing.T) {
	reg := New(4, nil)
	seed, _ := reg.Register("seed")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			_, _ = reg.Register(fmt.Sprintf("twin-%d", i))
		}(i)
		go func() {
			defer wg.Done()
			_ = reg.List()
		}()
		go func(i int) {
			defer wg.Done()
			_ = reg.RecordSuccess(seed.ID, snapshotN(i))
		}(i)
	}
	wg.Wait()

	if reg.Len() != 21 {
		t.Fatalf("expected 21 twins, got %d", reg.Len())
	}
	recent, _ := reg.Recent(seed.ID, 10)
	if len(recent) != 4 {
		t.Fatalf("expected buffer bounded at 4, got %d", len(recent))
	}
}
