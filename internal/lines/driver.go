package lines

import (
	"fmt"
	"sort"
	"sync"

	"tbag/internal/config"
)

// Line is a single requested output line. On drives the line high, Off drives
// it low, Close releases the underlying handle.
type Line interface {
	On() error
	Off() error
	Close() error
}

// Driver hands out line handles. Implementations must allow repeated requests
// for the same offset after a previous handle was closed.
type Driver interface {
	Request(offset int) (Line, error)
}

// DriverFromConfig selects a line driver based on configuration. Business
// logic never branches on the platform; the config decides.
func DriverFromConfig(cfg *config.Config) (Driver, error) {
	switch cfg.GPIO.Driver {
	case "gpiochip":
		return NewChipDriver(cfg.GPIO.Chip, cfg.GPIO.Consumer), nil
	case "mock":
		return NewMockDriver(), nil
	default:
		return nil, fmt.Errorf("unknown gpio driver %q", cfg.GPIO.Driver)
	}
}

// MockDriver is an in-memory Driver for development hosts and tests. It
// records line levels and can be told to fail requests for specific offsets.
type MockDriver struct {
	mu          sync.Mutex
	levels      map[int]bool
	requested   map[int]int
	requestErrs map[int]error
}

// NewMockDriver returns a MockDriver with all lines low.
func NewMockDriver() *MockDriver {
	return &MockDriver{
		levels:      make(map[int]bool),
		requested:   make(map[int]int),
		requestErrs: make(map[int]error),
	}
}

// Request returns a handle for the offset, or the configured failure.
func (d *MockDriver) Request(offset int) (Line, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requestErrs[offset]; err != nil {
		return nil, err
	}
	d.requested[offset]++
	return &mockLine{driver: d, offset: offset}, nil
}

// FailRequests makes future requests for offset return err. A nil err clears
// the failure.
func (d *MockDriver) FailRequests(offset int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.requestErrs, offset)
		return
	}
	d.requestErrs[offset] = err
}

// IsOn reports whether the offset is currently driven high.
func (d *MockDriver) IsOn(offset int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.levels[offset]
}

// LitLines returns every offset currently driven high, sorted.
func (d *MockDriver) LitLines() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	var lit []int
	for offset, on := range d.levels {
		if on {
			lit = append(lit, offset)
		}
	}
	sort.Ints(lit)
	return lit
}

// RequestCount returns how many handles were requested for offset.
func (d *MockDriver) RequestCount(offset int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requested[offset]
}

type mockLine struct {
	driver *MockDriver
	offset int
	closed bool
}

func (l *mockLine) On() error {
	l.driver.mu.Lock()
	defer l.driver.mu.Unlock()
	if l.closed {
		return fmt.Errorf("line %d: handle closed", l.offset)
	}
	l.driver.levels[l.offset] = true
	return nil
}

func (l *mockLine) Off() error {
	l.driver.mu.Lock()
	defer l.driver.mu.Unlock()
	if l.closed {
		return fmt.Errorf("line %d: handle closed", l.offset)
	}
	l.driver.levels[l.offset] = false
	return nil
}

func (l *mockLine) Close() error {
	l.driver.mu.Lock()
	defer l.driver.mu.Unlock()
	l.closed = true
	return nil
}
