package lines

import (
	"log/slog"
	"sync"

	"tbag/internal/logging"
)

// Manager owns the kiosk's output lines. At most one line is active at any
// moment; switching to a new line releases the old one first. Hardware
// failures degrade to the safe state (no line active) instead of propagating
// to callers.
type Manager struct {
	mu     sync.Mutex
	driver Driver
	known  []int
	logger *slog.Logger

	active  *int
	handles map[int]Line
}

// NewManager wires a Manager over the given driver. known lists every line
// offset the manager may drive; ForceResetAll sweeps exactly this set.
func NewManager(driver Driver, known []int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		driver:  driver,
		known:   append([]int(nil), known...),
		logger:  logger.With(logging.String(logging.FieldComponent, "lines")),
		handles: make(map[int]Line),
	}
}

// KnownLines returns the offsets this manager may drive.
func (m *Manager) KnownLines() []int {
	return append([]int(nil), m.known...)
}

// ActiveLine reports the currently active offset, if any.
func (m *Manager) ActiveLine() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return 0, false
	}
	return *m.active, true
}

// Activate makes offset the single active line. Activating the line that is
// already active is a no-op. Any previously active line is driven low and
// released before the new one is acquired. If the new line cannot be acquired
// or driven, the manager is left with no active line.
func (m *Manager) Activate(offset int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && *m.active == offset {
		return
	}
	m.releaseActiveLocked()

	handle, err := m.driver.Request(offset)
	if err != nil {
		m.logger.Warn("line request failed, staying dark",
			logging.Int(logging.FieldLine, offset),
			logging.Error(err))
		return
	}
	if err := handle.On(); err != nil {
		m.logger.Warn("line drive failed, staying dark",
			logging.Int(logging.FieldLine, offset),
			logging.Error(err))
		m.closeHandle(offset, handle)
		return
	}
	m.handles[offset] = handle
	m.active = &offset
	m.logger.Debug("line active", logging.Int(logging.FieldLine, offset))
}

// Deactivate drives the active line low and releases it. No-op when nothing
// is active.
func (m *Manager) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseActiveLocked()
}

// ForceResetAll drives every known line low, best effort. Per-line failures
// are logged and skipped so one bad line never blocks the sweep. Afterwards
// no line is considered active.
func (m *Manager) ForceResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for offset, handle := range m.handles {
		if err := handle.Off(); err != nil {
			m.logger.Warn("reset: drive low failed",
				logging.Int(logging.FieldLine, offset),
				logging.Error(err))
		}
		m.closeHandle(offset, handle)
	}
	m.active = nil

	for _, offset := range m.known {
		handle, err := m.driver.Request(offset)
		if err != nil {
			m.logger.Warn("reset: request failed",
				logging.Int(logging.FieldLine, offset),
				logging.Error(err))
			continue
		}
		if err := handle.Off(); err != nil {
			m.logger.Warn("reset: drive low failed",
				logging.Int(logging.FieldLine, offset),
				logging.Error(err))
		}
		m.closeHandle(offset, handle)
	}
}

// Close releases every held handle without sweeping the full known set.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseActiveLocked()
	for offset, handle := range m.handles {
		m.closeHandle(offset, handle)
	}
}

func (m *Manager) releaseActiveLocked() {
	if m.active == nil {
		return
	}
	offset := *m.active
	m.active = nil
	handle, ok := m.handles[offset]
	if !ok {
		return
	}
	if err := handle.Off(); err != nil {
		m.logger.Warn("line release: drive low failed",
			logging.Int(logging.FieldLine, offset),
			logging.Error(err))
	}
	m.closeHandle(offset, handle)
}

func (m *Manager) closeHandle(offset int, handle Line) {
	if err := handle.Close(); err != nil {
		m.logger.Warn("line handle close failed",
			logging.Int(logging.FieldLine, offset),
			logging.Error(err))
	}
	delete(m.handles, offset)
}
