// Package scale owns the load-cell scale driver and its calibration
// state. A single Manager instance is created at startup and lives for
// the whole process; the UI-facing bridge and the cooperative polling
// loop share it through short, lock-scoped operations that return
// value-copied snapshots.
package scale

import (
	"log"
	"sync"
)

// stableThreshold is the maximum raw-count delta between two successive
// conversions for the reading to be considered stable.
const stableThreshold = 100

// tareSamples is the number of conversions averaged when capturing a
// zero or reference reading.
const tareSamples = 8

// Calibration maps raw ADC counts to grams.
type Calibration struct {
	// ZeroOffset is the raw reading with nothing on the platform.
	ZeroOffset int32
	// CalFactor is raw counts per gram.
	CalFactor float32
}

// Status is a value-copied snapshot of the scale state. Safe to hand
// across the foreign-call boundary.
type Status struct {
	Initialized bool
	WeightGrams float32
	Raw         int32
	Stable      bool
	TareOffset  int32
	CalFactor   float32
}

// Manager serializes access to the scale driver. Poll, Tare and
// Calibrate all run under the same mutex, so a calibration can never
// race a concurrent poll mid-read.
type Manager struct {
	mu          sync.Mutex
	driver      Driver
	initialized bool

	raw     int32
	weight  float32
	stable  bool
	lastRaw int32
	haveRaw bool

	cal Calibration
}

// NewManager returns an uninitialized manager. All operations are safe
// to call before Init; they degrade to no-ops or failure sentinels.
func NewManager() *Manager {
	return &Manager{cal: Calibration{CalFactor: 1.0}}
}

// Init moves ownership of the driver into the manager. Calling Init
// again replaces the previous driver and resets the derived state; the
// old driver is not recoverable.
func (m *Manager) Init(driver Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.driver = driver
	m.initialized = driver != nil
	m.raw = 0
	m.weight = 0
	m.stable = false
	m.haveRaw = false
	log.Println("Scale manager initialized")
}

// Poll performs one blocking conversion and updates the derived weight
// and stability fields. Called from the cooperative loop every 10th
// iteration. A driver error leaves the previous reading in place.
func (m *Manager) Poll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return
	}

	raw, err := m.driver.ReadRaw()
	if err != nil {
		return
	}

	m.stable = m.haveRaw && absDelta(raw, m.lastRaw) <= stableThreshold
	m.lastRaw = raw
	m.haveRaw = true
	m.raw = raw
	m.weight = m.gramsLocked(raw)
}

// Tare captures the current raw reading as the new zero offset.
// Returns an error on driver failure; the calibration is untouched on
// failure.
func (m *Manager) Tare() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotReady
	}

	zero, err := m.averageLocked(tareSamples)
	if err != nil {
		return err
	}

	m.cal.ZeroOffset = zero
	m.weight = m.gramsLocked(m.raw)
	log.Printf("Scale tared, zero offset %d", zero)
	return nil
}

// Calibrate derives the counts-per-gram factor from the raw delta
// between the zero reading and a loaded reading at the given reference
// weight. The platform must already hold the reference weight.
func (m *Manager) Calibrate(knownWeightGrams float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotReady
	}
	if knownWeightGrams <= 0 {
		return ErrNotReady
	}

	loaded, err := m.averageLocked(tareSamples)
	if err != nil {
		return err
	}

	delta := loaded - m.cal.ZeroOffset
	if delta == 0 {
		return ErrNotReady
	}

	m.cal.CalFactor = float32(delta) / knownWeightGrams
	m.weight = m.gramsLocked(m.raw)
	log.Printf("Scale calibrated: %.2f counts/gram at %.1fg", m.cal.CalFactor, knownWeightGrams)
	return nil
}

// Status returns a snapshot of the current scale state. If the manager
// was never initialized the snapshot carries safe defaults.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Status{
		Initialized: m.initialized,
		WeightGrams: m.weight,
		Raw:         m.raw,
		Stable:      m.stable,
		TareOffset:  m.cal.ZeroOffset,
		CalFactor:   m.cal.CalFactor,
	}
}

// averageLocked reads n conversions and returns their mean. Caller
// holds m.mu.
func (m *Manager) averageLocked(n int) (int32, error) {
	var sum int64
	for i := 0; i < n; i++ {
		raw, err := m.driver.ReadRaw()
		if err != nil {
			return 0, err
		}
		sum += int64(raw)
	}
	return int32(sum / int64(n)), nil
}

// gramsLocked converts a raw reading to grams with the current
// calibration. Caller holds m.mu.
func (m *Manager) gramsLocked(raw int32) float32 {
	factor := m.cal.CalFactor
	if factor == 0 {
		factor = 1.0
	}
	return float32(raw-m.cal.ZeroOffset) / factor
}

func absDelta(a, b int32) int32 {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}
