package daemon_test

import (
	"context"
	"testing"

	"tbag/internal/components"
	"tbag/internal/daemon"
	"tbag/internal/lines"
	"tbag/internal/logging"
	"tbag/internal/projects"
	"tbag/internal/testsupport"
	"tbag/internal/workflow"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	driver := lines.NewMockDriver()
	lineMgr := lines.NewManager(driver, components.AllowedLines, logging.NewNop())
	projStore, err := projects.NewStore(cfg.Paths.ProjectsDir)
	if err != nil {
		t.Fatalf("projects.NewStore: %v", err)
	}
	library, err := components.NewLibrary(cfg.Paths.ComponentsDir)
	if err != nil {
		t.Fatalf("components.NewLibrary: %v", err)
	}
	flow := workflow.NewManager(cfg, store, lineMgr, projStore, library, logging.NewNop())

	d, err := daemon.New(cfg, store, logging.NewNop(), flow, lineMgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.DeviceID != cfg.Device.ID {
		t.Fatalf("device id = %q, want %q", status.DeviceID, cfg.Device.ID)
	}
	if d.APIAddr() == "" {
		t.Fatal("expected API server to be listening")
	}

	// Second start should fail while the lock is held.
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestStartupSweepsStaleLines(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	driver := lines.NewMockDriver()
	lineMgr := lines.NewManager(driver, components.AllowedLines, logging.NewNop())
	// A light left on by a crashed predecessor.
	lineMgr.Activate(17)

	projStore, err := projects.NewStore(cfg.Paths.ProjectsDir)
	if err != nil {
		t.Fatalf("projects.NewStore: %v", err)
	}
	library, err := components.NewLibrary(cfg.Paths.ComponentsDir)
	if err != nil {
		t.Fatalf("components.NewLibrary: %v", err)
	}
	flow := workflow.NewManager(cfg, store, lineMgr, projStore, library, logging.NewNop())

	d, err := daemon.New(cfg, store, logging.NewNop(), flow, lineMgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if lit := driver.LitLines(); len(lit) != 0 {
		t.Fatalf("startup should sweep all lines, got %v", lit)
	}
	d.Stop()
}
