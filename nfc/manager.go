// Package nfc owns the NFC card driver and the card-presence state
// machine. A single Manager is created at startup; the cooperative loop
// calls Poll every iteration and the UI-facing bridge reads snapshots.
package nfc

import (
	"errors"
	"log"
	"sync"
)

// pollDivider rate-limits hardware polling: only every pollDivider-th
// Poll call touches the bus.
const pollDivider = 10

// Status is a value-copied snapshot of the manager state.
type Status struct {
	Initialized bool
	RFOn        bool
	CardPresent bool
	Firmware    FirmwareVersion
}

// Manager serializes access to the card driver and tracks presence.
//
// Two locks split the domain the same way the hardware does: driverMu
// guards the (slow) chip operations, stateMu guards the derived state.
// Status reads take only stateMu, so they return between hardware
// transactions of an in-flight poll but never observe a half-written
// update.
type Manager struct {
	driverMu sync.Mutex
	driver   CardDriver

	stateMu     sync.Mutex
	initialized bool
	firmware    FirmwareVersion
	rfOn        bool
	cardPresent bool
	lastCard    *CardInfo
	pollCount   uint32
}

// NewManager returns an uninitialized manager. All operations are safe
// before Init and degrade to no-ops or absent results.
func NewManager() *Manager {
	return &Manager{}
}

// Init moves ownership of the driver into the manager, permanently. A
// second Init replaces the previous driver and resets presence state;
// there is no teardown path, matching the hardware lifecycle.
func (m *Manager) Init(driver CardDriver, firmware FirmwareVersion) {
	m.driverMu.Lock()
	m.driver = driver
	m.driverMu.Unlock()

	m.stateMu.Lock()
	m.initialized = driver != nil
	m.firmware = firmware
	m.rfOn = false
	m.cardPresent = false
	m.lastCard = nil
	m.pollCount = 0
	m.stateMu.Unlock()

	log.Println("NFC manager initialized")
}

// Poll is called every loop iteration but only performs hardware work
// on every 10th call, to bound bus traffic. The presence rules are:
//
//   - activation success: presence set, snapshot overwritten, a
//     transition log emitted on the rising edge
//   - no card / RF timeout: presence cleared, snapshot left untouched,
//     a removal log emitted on the falling edge
//   - any other driver error: warning logged, presence cleared, and the
//     snapshot deliberately left untouched (stale data persists until a
//     fresh activation)
func (m *Manager) Poll() {
	m.stateMu.Lock()
	if !m.initialized {
		m.stateMu.Unlock()
		return
	}
	m.pollCount++
	if m.pollCount%pollDivider != 0 {
		m.stateMu.Unlock()
		return
	}
	rfOn := m.rfOn
	m.stateMu.Unlock()

	m.driverMu.Lock()
	defer m.driverMu.Unlock()

	// Ensure the field is up before probing; enabling an already
	// enabled field is skipped entirely.
	if !rfOn {
		if err := m.driver.FieldOn(); err != nil {
			log.Printf("Failed to enable RF field: %v", err)
			return
		}
		m.stateMu.Lock()
		m.rfOn = true
		m.stateMu.Unlock()
		log.Println("NFC RF field enabled")
	}

	card, err := m.driver.PollCard()

	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	switch {
	case err == nil && card != nil:
		if !m.cardPresent {
			log.Printf("NFC card detected! ATQA: %02X%02X, SAK: %02X",
				card.ATQA[0], card.ATQA[1], card.SAK)
			if card.UIDLen > 0 {
				log.Printf("  UID: %s", card.UIDHex())
			}
		}
		m.cardPresent = true
		info := infoFromCard(card)
		m.lastCard = &info

	case err == nil || errors.Is(err, ErrTimeout):
		// No card answered. Removal clears presence but not the cached
		// card data.
		if m.cardPresent {
			log.Println("NFC card removed")
		}
		m.cardPresent = false

	default:
		log.Printf("NFC poll error: %v", err)
		m.cardPresent = false
	}
}

// Status returns a snapshot of the manager state, with zero values if
// never initialized.
func (m *Manager) Status() Status {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	return Status{
		Initialized: m.initialized,
		RFOn:        m.rfOn,
		CardPresent: m.cardPresent,
		Firmware:    m.firmware,
	}
}

// CardPresent reports whether a card is currently on the antenna.
func (m *Manager) CardPresent() bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.cardPresent
}

// CardInfo returns the last card snapshot and whether one is available.
// The snapshot may be stale: it survives card removal and driver
// errors, and is only replaced by a fresh activation.
func (m *Manager) CardInfo() (CardInfo, bool) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	if m.lastCard == nil {
		return CardInfo{}, false
	}
	return *m.lastCard, true
}

// UIDHex returns the last card's UID as colon-separated hex, or "" if
// no card was ever seen.
func (m *Manager) UIDHex() string {
	info, ok := m.CardInfo()
	if !ok {
		return ""
	}
	return info.UIDHex()
}
