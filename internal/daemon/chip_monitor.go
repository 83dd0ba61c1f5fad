package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"tbag/internal/config"
	"tbag/internal/lines"
	"tbag/internal/logging"
)

// chipMonitor listens for udev netlink events on the gpio subsystem. When the
// configured chip reappears (cable reseated, expander re-enumerated, driver
// rebound) every output line is swept low: the new chip powers up with
// whatever defaults the hardware chose, not with our state.
type chipMonitor struct {
	cfg     *config.Config
	logger  *slog.Logger
	lineMgr *lines.Manager
	chip    string

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

func newChipMonitor(cfg *config.Config, logger *slog.Logger, lineMgr *lines.Manager) *chipMonitor {
	if cfg == nil || cfg.GPIO.Driver != "gpiochip" {
		return nil
	}
	chip := strings.TrimSpace(cfg.GPIO.Chip)
	if chip == "" {
		return nil
	}
	return &chipMonitor{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "chip-monitor"),
		lineMgr: lineMgr,
		chip:    chip,
	}
}

// Start begins listening for udev netlink events.
func (m *chipMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; chip hotplug resets unavailable",
			logging.Error(err))
		return nil // non-fatal, the daemon still resets on startup and transitions
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("chip monitor started", logging.String("chip", m.chip))
	return nil
}

// Stop shuts down the monitor.
func (m *chipMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("chip monitor stopped")
}

// Running reports whether the monitor is active.
func (m *chipMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *chipMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	events := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(events, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-events:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("chip monitor error", logging.Error(err))
		}
	}
}

// buildMatcher matches gpio chip arrivals: SUBSYSTEM=gpio, ACTION=add|bind|change.
func (m *chipMonitor) buildMatcher() netlink.Matcher {
	action := "add|bind|change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "gpio",
		},
	})
	return rules
}

func (m *chipMonitor) handleEvent(uevent netlink.UEvent) {
	name := m.extractChipName(uevent)
	if name == "" || name != m.chip {
		return
	}

	m.logger.Info("gpio chip reappeared, sweeping output lines",
		logging.String("chip", name),
		logging.String("action", string(uevent.Action)))
	m.lineMgr.ForceResetAll()
}

func (m *chipMonitor) extractChipName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		return strings.TrimPrefix(devname, "/dev/")
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
