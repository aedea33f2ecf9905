package maintenance

import (
	"sync"
	"time"

	"qaboard/pkg/types"
)

// DefaultMessage is used until an operator supplies their own.
const DefaultMessage = "The service is temporarily down for maintenance."

// Machine holds the maintenance flag, operator-supplied message and
// branding, and an optional auto-expiry deadline.
//
// Invariants: at most one timer is ever outstanding — every transition
// first cancels any pending timer; whenever the flag flips to inactive
// (manually or via expiry) the deadline is cleared. Every transition
// invokes the OnChange hook exactly once with the resulting snapshot.
type Machine struct {
	mu       sync.Mutex
	active   bool
	message  string
	logoURL  string
	until    *time.Time
	timer    *time.Timer
	gen      uint64
	onChange func(types.MaintenanceStatus)
}

// New creates an inactive machine with the default message.
func New() *Machine {
	return &Machine{message: DefaultMessage}
}

// SetOnChange registers the transition hook. Must be called before the
// machine is used; the hook runs outside the machine's lock.
func (m *Machine) SetOnChange(fn func(types.MaintenanceStatus)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Enable activates maintenance. Empty message or logoURL keeps the prior
// value. A positive duration arms a one-shot timer that disables the
// machine when it fires; zero or negative leaves no deadline.
func (m *Machine) Enable(message, logoURL string, duration time.Duration) types.MaintenanceStatus {
	m.mu.Lock()

	m.cancelTimerLocked()
	m.active = true
	if message != "" {
		m.message = message
	}
	if logoURL != "" {
		m.logoURL = logoURL
	}

	if duration > 0 {
		deadline := time.Now().Add(duration)
		m.until = &deadline
		gen := m.gen
		m.timer = time.AfterFunc(duration, func() { m.expire(gen) })
	} else {
		m.until = nil
	}

	snapshot := m.snapshotLocked()
	hook := m.onChange
	m.mu.Unlock()

	if hook != nil {
		hook(snapshot)
	}
	return snapshot
}

// Disable deactivates maintenance, cancelling any pending timer and
// clearing the deadline.
func (m *Machine) Disable() types.MaintenanceStatus {
	m.mu.Lock()
	m.disableLocked()
	snapshot := m.snapshotLocked()
	hook := m.onChange
	m.mu.Unlock()

	if hook != nil {
		hook(snapshot)
	}
	return snapshot
}

// Status returns the current snapshot.
func (m *Machine) Status() types.MaintenanceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Active reports whether maintenance is currently on.
func (m *Machine) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// expire is the timer callback. The generation check discards a timer
// that was cancelled after it had already fired and was waiting on the
// lock.
func (m *Machine) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || !m.active {
		m.mu.Unlock()
		return
	}
	m.disableLocked()
	snapshot := m.snapshotLocked()
	hook := m.onChange
	m.mu.Unlock()

	if hook != nil {
		hook(snapshot)
	}
}

func (m *Machine) disableLocked() {
	m.cancelTimerLocked()
	m.active = false
	m.until = nil
}

func (m *Machine) cancelTimerLocked() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) snapshotLocked() types.MaintenanceStatus {
	var until *time.Time
	if m.until != nil {
		u := *m.until
		until = &u
	}
	return types.MaintenanceStatus{
		Active:  m.active,
		Message: m.message,
		LogoURL: m.logoURL,
		Until:   until,
	}
}
