package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tbag/internal/queue"
	"tbag/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	run, err := store.Enqueue(ctx, "heat-exchanger", "stack-12", "rios", "")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if run.SessionID == "" {
		t.Fatal("expected session id to be assigned")
	}
	if run.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", run.Status)
	}
	if run.CreatedAt.IsZero() {
		t.Fatal("expected ts_created to be stamped")
	}
	if run.StartedAt != nil || run.FinishedAt != nil {
		t.Fatal("expected start/finish timestamps to be unset")
	}

	fetched, err := store.GetBySession(ctx, run.SessionID)
	if err != nil {
		t.Fatalf("GetBySession failed: %v", err)
	}
	if fetched.Project != "heat-exchanger" || fetched.Operator != "rios" {
		t.Fatalf("unexpected fetched run: %#v", fetched)
	}
}

func TestEnqueueRejectsMissingFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.Enqueue(ctx, "", "stack-1", "op", ""); !errors.Is(err, queue.ErrValidation) {
		t.Fatalf("expected validation error for missing project, got %v", err)
	}
	if _, err := store.Enqueue(ctx, "proj", "", "op", ""); !errors.Is(err, queue.ErrValidation) {
		t.Fatalf("expected validation error for missing stack, got %v", err)
	}
	if _, err := store.Enqueue(ctx, "proj", "stack-1", "", ""); !errors.Is(err, queue.ErrValidation) {
		t.Fatalf("expected validation error for missing operator, got %v", err)
	}
}

func TestClaimTransitionsAndStamps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	run := testsupport.EnqueueRun(t, store, "proj", "stack-1", "op", "")

	claimed, err := store.Claim(ctx, run.SessionID, "kiosk-a")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if claimed.Status != queue.StatusActive {
		t.Fatalf("expected active status, got %s", claimed.Status)
	}
	if claimed.Device != "kiosk-a" {
		t.Fatalf("expected device binding, got %q", claimed.Device)
	}
	if claimed.StartedAt == nil {
		t.Fatal("expected ts_started to be stamped")
	}

	if _, err := store.Claim(ctx, run.SessionID, "kiosk-b"); !errors.Is(err, queue.ErrConflict) {
		t.Fatalf("expected conflict on second claim, got %v", err)
	}
}

func TestClaimHonorsDeviceTargeting(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	run := testsupport.EnqueueRun(t, store, "proj", "stack-1", "op", "kiosk-a")

	if _, err := store.Claim(ctx, run.SessionID, "kiosk-b"); !errors.Is(err, queue.ErrConflict) {
		t.Fatalf("expected conflict for mismatched device, got %v", err)
	}
	if _, err := store.Claim(ctx, run.SessionID, "kiosk-a"); err != nil {
		t.Fatalf("expected targeted device to claim, got %v", err)
	}
}

func TestClaimUnknownSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.Claim(context.Background(), "no-such-id", "kiosk-a"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestConcurrentClaimsExactlyOneWins(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	run := testsupport.EnqueueRun(t, store, "proj", "stack-1", "op", "")

	const claimants = 8
	var wg sync.WaitGroup
	wins := make(chan string, claimants)
	for i := 0; i < claimants; i++ {
		device := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Claim(ctx, run.SessionID, "kiosk-"+device); err == nil {
				wins <- device
			} else if !errors.Is(err, queue.ErrConflict) {
				t.Errorf("unexpected claim error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(wins)

	if len(wins) != 1 {
		t.Fatalf("expected exactly one winning claim, got %d", len(wins))
	}
}

func TestFinishIsOneShot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	run := testsupport.EnqueueRun(t, store, "proj", "stack-1", "op", "")
	if _, err := store.Claim(ctx, run.SessionID, "kiosk-a"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	finished, err := store.FinishRun(ctx, run.SessionID)
	if err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	if finished.Status != queue.StatusFinished {
		t.Fatalf("expected finished status, got %s", finished.Status)
	}
	if finished.FinishedAt == nil {
		t.Fatal("expected ts_finished to be stamped")
	}
	firstStamp := *finished.FinishedAt

	time.Sleep(5 * time.Millisecond)
	if _, err := store.FinishRun(ctx, run.SessionID); !errors.Is(err, queue.ErrConflict) {
		t.Fatalf("expected conflict on duplicate finish, got %v", err)
	}

	current, err := store.GetBySession(ctx, run.SessionID)
	if err != nil {
		t.Fatalf("GetBySession failed: %v", err)
	}
	if current.FinishedAt == nil || !current.FinishedAt.Equal(firstStamp) {
		t.Fatalf("ts_finished changed on duplicate finish: %v vs %v", current.FinishedAt, firstStamp)
	}
}

func TestFinishRequiresActive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	run := testsupport.EnqueueRun(t, store, "proj", "stack-1", "op", "")

	if _, err := store.FinishRun(ctx, run.SessionID); !errors.Is(err, queue.ErrConflict) {
		t.Fatalf("expected conflict finishing a pending run, got %v", err)
	}
}

func TestAbortRecordsStep(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	run := testsupport.EnqueueRun(t, store, "proj", "stack-1", "op", "")
	if _, err := store.Claim(ctx, run.SessionID, "kiosk-a"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	step := 3
	aborted, err := store.AbortRun(ctx, run.SessionID, &step)
	if err != nil {
		t.Fatalf("AbortRun failed: %v", err)
	}
	if aborted.Status != queue.StatusAborted {
		t.Fatalf("expected aborted status, got %s", aborted.Status)
	}
	if aborted.InterruptedAt == nil || *aborted.InterruptedAt != 3 {
		t.Fatalf("expected interrupted_at=3, got %v", aborted.InterruptedAt)
	}

	if _, err := store.AbortRun(ctx, run.SessionID, &step); !errors.Is(err, queue.ErrConflict) {
		t.Fatalf("expected conflict on duplicate abort, got %v", err)
	}
}

func TestStatusNeverReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	run := testsupport.EnqueueRun(t, store, "proj", "stack-1", "op", "")
	if _, err := store.Claim(ctx, run.SessionID, "kiosk-a"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if _, err := store.FinishRun(ctx, run.SessionID); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	if _, err := store.Claim(ctx, run.SessionID, "kiosk-a"); !errors.Is(err, queue.ErrConflict) {
		t.Fatalf("expected terminal run to reject claim, got %v", err)
	}
	step := 1
	if _, err := store.AbortRun(ctx, run.SessionID, &step); !errors.Is(err, queue.ErrConflict) {
		t.Fatalf("expected terminal run to reject abort, got %v", err)
	}
}

func TestListPendingForVisibility(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	anyRun := testsupport.EnqueueRun(t, store, "proj", "stack-1", "op", "")
	mine := testsupport.EnqueueRun(t, store, "proj", "stack-2", "op", "kiosk-a")
	testsupport.EnqueueRun(t, store, "proj", "stack-3", "op", "kiosk-b")

	visible, err := store.ListPendingFor(ctx, "kiosk-a")
	if err != nil {
		t.Fatalf("ListPendingFor failed: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("expected 2 visible runs, got %d", len(visible))
	}
	if visible[0].SessionID != anyRun.SessionID || visible[1].SessionID != mine.SessionID {
		t.Fatalf("unexpected visibility/ordering: %v, %v", visible[0].SessionID, visible[1].SessionID)
	}
}

func TestDeleteOnlyPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	pending := testsupport.EnqueueRun(t, store, "proj", "stack-1", "op", "")
	active := testsupport.EnqueueRun(t, store, "proj", "stack-2", "op", "")
	if _, err := store.Claim(ctx, active.SessionID, "kiosk-a"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	if err := store.Delete(ctx, pending.SessionID); err != nil {
		t.Fatalf("Delete of pending run failed: %v", err)
	}
	if _, err := store.GetBySession(ctx, pending.SessionID); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected deleted run to be gone, got %v", err)
	}

	if err := store.Delete(ctx, active.SessionID); !errors.Is(err, queue.ErrConflict) {
		t.Fatalf("expected conflict deleting active run, got %v", err)
	}
	if err := store.Delete(ctx, "no-such-id"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected not-found deleting unknown run, got %v", err)
	}
}

func TestEventLogAppendAndQuery(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.AppendEvent(ctx, queue.EventNextPressed, "sess-1", map[string]any{"component": "pump"}); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if _, err := store.AppendEvent(ctx, queue.EventSessionEnd, "sess-1", nil); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if _, err := store.AppendEvent(ctx, queue.EventSessionAbort, "sess-2", map[string]any{"step": 4}); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	timeline, err := store.EventsBySession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("EventsBySession failed: %v", err)
	}
	if len(timeline) != 2 {
		t.Fatalf("expected 2 events for sess-1, got %d", len(timeline))
	}
	if timeline[0].Kind != queue.EventNextPressed || timeline[1].Kind != queue.EventSessionEnd {
		t.Fatalf("unexpected timeline ordering: %s, %s", timeline[0].Kind, timeline[1].Kind)
	}

	recent, err := store.RecentEvents(ctx, 2)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent events, got %d", len(recent))
	}
	if recent[0].Kind != queue.EventSessionAbort {
		t.Fatalf("expected newest event first, got %s", recent[0].Kind)
	}
}

func TestPresenceExpiryComputedAtQueryTime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if err := store.TouchPresence(ctx, "kiosk-a"); err != nil {
		t.Fatalf("TouchPresence failed: %v", err)
	}

	live, err := store.LiveDevices(ctx, 2*time.Minute)
	if err != nil {
		t.Fatalf("LiveDevices failed: %v", err)
	}
	if len(live) != 1 || live[0] != "kiosk-a" {
		t.Fatalf("expected kiosk-a live, got %v", live)
	}

	// A zero timeout pushes the cutoff past the heartbeat.
	live, err = store.LiveDevices(ctx, -time.Second)
	if err != nil {
		t.Fatalf("LiveDevices failed: %v", err)
	}
	if len(live) != 0 {
		t.Fatalf("expected no live devices past cutoff, got %v", live)
	}

	if err := store.RemovePresence(ctx, "kiosk-a"); err != nil {
		t.Fatalf("RemovePresence failed: %v", err)
	}
	live, err = store.LiveDevices(ctx, 2*time.Minute)
	if err != nil {
		t.Fatalf("LiveDevices failed: %v", err)
	}
	if len(live) != 0 {
		t.Fatalf("expected presence removed, got %v", live)
	}
}

func TestRegisterDeviceIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if err := store.RegisterDevice(ctx, "kiosk-a", "bench 3"); err != nil {
		t.Fatalf("RegisterDevice failed: %v", err)
	}
	if err := store.RegisterDevice(ctx, "kiosk-a", "different description"); err != nil {
		t.Fatalf("RegisterDevice failed: %v", err)
	}

	devices, err := store.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("expected one device, got %d", len(devices))
	}
	if devices[0].Description != "bench 3" {
		t.Fatalf("expected original description preserved, got %q", devices[0].Description)
	}
}

func TestHealthSummaryCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.EnqueueRun(t, store, "proj", "stack-1", "op", "")
	active := testsupport.EnqueueRun(t, store, "proj", "stack-2", "op", "")
	if _, err := store.Claim(ctx, active.SessionID, "kiosk-a"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 2 || health.Pending != 1 || health.Active != 1 {
		t.Fatalf("unexpected health summary: %+v", health)
	}
}
