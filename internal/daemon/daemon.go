package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"tbag/internal/api"
	"tbag/internal/config"
	"tbag/internal/lines"
	"tbag/internal/logging"
	"tbag/internal/queue"
	"tbag/internal/workflow"
)

// Daemon coordinates the long-running tbag process: session store, workflow,
// output lines, HTTP API, and the GPIO chip hotplug monitor. A flock lock
// prevents a second instance from running against the same state.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *queue.Store
	flow    *workflow.Manager
	lineMgr *lines.Manager
	svc     *api.SessionService

	lockPath string
	lock     *flock.Flock

	apiSrv  *apiServer
	monitor *chipMonitor

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DBPath       string
	LockFilePath string
	DeviceID     string
	ActiveLine   *int
	Stats        map[string]int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, flow *workflow.Manager, lineMgr *lines.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || flow == nil || lineMgr == nil {
		return nil, errors.New("daemon requires config, store, logger, workflow, and line manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "tbagd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		flow:     flow,
		lineMgr:  lineMgr,
		svc:      api.NewSessionService(cfg, store, flow),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.apiSrv = srv
	d.monitor = newChipMonitor(cfg, logger, lineMgr)
	return d, nil
}

// Service exposes the session facade, mainly for tests.
func (d *Daemon) Service() *api.SessionService {
	return d.svc
}

// Start acquires the instance lock, restores the safe hardware state, and
// brings up the API server and hotplug monitor.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tbag daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.store.RegisterDevice(d.ctx, d.cfg.Device.ID, d.cfg.Device.Description); err != nil {
		d.logger.Warn("local device registration failed", logging.Error(err))
	}
	d.flow.Startup()

	if d.apiSrv != nil {
		if err := d.apiSrv.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}
	if err := d.monitor.Start(d.ctx); err != nil {
		d.logger.Warn("chip monitor start failed", logging.Error(err))
	}
	go d.presenceLoop(d.ctx)

	d.running.Store(true)
	d.logger.Info("tbag daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldDeviceID, d.cfg.Device.ID))
	return nil
}

// Stop shuts the daemon down and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.monitor.Stop()
	if d.apiSrv != nil {
		d.apiSrv.stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.store.RemovePresence(shutdownCtx, d.cfg.Device.ID); err != nil {
		d.logger.Warn("presence removal failed", logging.Error(err))
	}
	d.lineMgr.ForceResetAll()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("tbag daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the bound API address, empty until started.
func (d *Daemon) APIAddr() string {
	if d.apiSrv == nil {
		return ""
	}
	return d.apiSrv.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DBPath:       d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		DeviceID:     d.cfg.Device.ID,
	}
	if offset, ok := d.lineMgr.ActiveLine(); ok {
		status.ActiveLine = &offset
	}
	if stats, err := d.svc.Stats(ctx); err == nil {
		status.Stats = stats
	}
	return status
}

// presenceLoop keeps the local kiosk's heartbeat fresh so it shows as live
// alongside remote devices.
func (d *Daemon) presenceLoop(ctx context.Context) {
	interval := time.Duration(d.cfg.Device.PresenceTimeoutSec) * time.Second / 3
	if interval <= 0 {
		interval = 40 * time.Second
	}

	touch := func() {
		if err := d.store.TouchPresence(ctx, d.cfg.Device.ID); err != nil && ctx.Err() == nil {
			d.logger.Warn("local heartbeat failed", logging.Error(err))
		}
	}
	touch()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			touch()
		}
	}
}
