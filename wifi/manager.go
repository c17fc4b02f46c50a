// Package wifi owns the WiFi radio driver and the connection lifecycle
// state machine, with credential persistence for auto-reconnect on boot.
package wifi

import (
	"fmt"
	"log"
	"sync"

	"github.com/deathly1987/spoolbuddy/store"
)

// Persisted credential layout: one namespace, two string keys, values
// capped at 63 usable bytes.
const (
	Namespace   = "wifi"
	KeySSID     = "ssid"
	KeyPassword = "password"

	maxCredLen = 63
)

// rssiFallback is reported when the radio cannot provide a signal
// reading for an established connection.
const rssiFallback = -50

// StateKind codes the connection state for the UI (0=Uninitialized,
// 1=Disconnected, 2=Connecting, 3=Connected, 4=Error).
type StateKind int

const (
	StateUninitialized StateKind = iota
	StateDisconnected
	StateConnecting
	StateConnected
	StateError
)

// State is a value-copied snapshot of the connection state. IP and RSSI
// are valid only when Kind is StateConnected; Err only for StateError.
type State struct {
	Kind StateKind
	IP   [4]byte
	RSSI int8
	Err  string
}

// Manager drives the radio through the connect/scan/disconnect
// lifecycle. One mutex guards the whole domain: the entire Connect
// sequence, radio waits included, runs while holding it, so a
// concurrent status read, scan or disconnect blocks until the in-flight
// connect resolves. There is no partial visibility of connect
// sub-steps; this matches the appliance's as-built blocking behavior.
type Manager struct {
	mu       sync.Mutex
	radio    Radio
	creds    *store.Store
	state    State
	ssid     string
	password string
}

// NewManager returns an uninitialized manager; all operations degrade
// until Init provides a radio.
func NewManager() *Manager {
	return &Manager{state: State{Kind: StateUninitialized}}
}

// Init moves ownership of the radio into the manager and loads
// persisted credentials (fail-open: absent or unreadable entries read
// as empty strings). If a saved SSID exists, Init immediately attempts
// a connect with the saved credentials; that attempt's failure is
// recorded in the state but does not fail Init.
func (m *Manager) Init(radio Radio, creds *store.Store) {
	m.mu.Lock()
	m.radio = radio
	m.creds = creds
	m.state = State{Kind: StateDisconnected}
	m.ssid, m.password = loadCredentials(creds)
	saved, savedPass := m.ssid, m.password
	m.mu.Unlock()

	log.Println("WiFi subsystem initialized")

	if saved != "" {
		log.Printf("Found saved WiFi credentials, auto-connecting to: %s", saved)
		if err := m.Connect(saved, savedPass); err != nil {
			log.Printf("WiFi auto-connect failed: %v", err)
		}
	}
}

// loadCredentials reads the persisted SSID and password. Any absence or
// read failure yields empty strings, never an error.
func loadCredentials(creds *store.Store) (ssid, password string) {
	if creds == nil {
		return "", ""
	}
	ssid = creds.GetString(Namespace, KeySSID)
	password = creds.GetString(Namespace, KeyPassword)
	if ssid != "" {
		log.Printf("Loaded saved WiFi SSID: %s", ssid)
	}
	return ssid, password
}

// Connect runs the full connection sequence synchronously and blocks
// the caller until it resolves to Connected or Error. The manager lock
// is held throughout, radio waits included.
//
// On success the credentials are persisted; a failed connect never
// writes them. Oversized credentials fail before any radio call.
func (m *Manager) Connect(ssid, password string) error {
	if len(ssid) > maxCredLen || len(password) > maxCredLen {
		return ErrCredentialsTooLong
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.radio == nil {
		return ErrNotInitialized
	}

	m.state = State{Kind: StateConnecting}
	m.ssid = ssid
	m.password = password
	log.Printf("Starting WiFi connection to: %s", ssid)

	ip, rssi, err := m.connectLocked(ssid, password)
	if err != nil {
		m.state = State{Kind: StateError, Err: err.Error()}
		log.Printf("WiFi connection failed: %v", err)
		return err
	}

	m.state = State{Kind: StateConnected, IP: ip, RSSI: rssi}
	log.Printf("WiFi connected! IP: %d.%d.%d.%d RSSI: %ddBm", ip[0], ip[1], ip[2], ip[3], rssi)

	// Persistence failures do not undo an established connection.
	if m.creds != nil {
		if err := m.creds.SetString(Namespace, KeySSID, ssid); err != nil {
			log.Printf("Failed to save SSID: %v", err)
		} else if err := m.creds.SetString(Namespace, KeyPassword, password); err != nil {
			log.Printf("Failed to save password: %v", err)
		} else {
			log.Println("WiFi credentials saved")
		}
	}
	return nil
}

// connectLocked performs the radio sequence. Caller holds m.mu.
func (m *Manager) connectLocked(ssid, password string) ([4]byte, int8, error) {
	auth := AuthWPA2
	if password == "" {
		auth = AuthOpen
	}

	cfg := ClientConfig{SSID: ssid, Password: password, Auth: auth}
	if err := m.radio.SetConfiguration(cfg); err != nil {
		return [4]byte{}, 0, fmt.Errorf("failed to set config: %w", err)
	}
	if err := m.radio.Start(); err != nil {
		return [4]byte{}, 0, fmt.Errorf("failed to start WiFi: %w", err)
	}
	if err := m.radio.Connect(); err != nil {
		return [4]byte{}, 0, fmt.Errorf("failed to connect: %w", err)
	}
	if err := m.radio.WaitNetifUp(); err != nil {
		return [4]byte{}, 0, fmt.Errorf("failed to get IP: %w", err)
	}
	ip, err := m.radio.IPInfo()
	if err != nil {
		return [4]byte{}, 0, fmt.Errorf("failed to get IP info: %w", err)
	}

	rssi, err := m.radio.RSSI()
	if err != nil {
		rssi = rssiFallback
	}
	return ip, rssi, nil
}

// Disconnect drops the connection. On radio failure the state is left
// unchanged and the error reported to the caller.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.radio == nil {
		return ErrNotInitialized
	}
	if err := m.radio.Disconnect(); err != nil {
		log.Printf("WiFi disconnect failed: %v", err)
		return err
	}
	m.state = State{Kind: StateDisconnected}
	log.Println("WiFi disconnected")
	return nil
}

// Scan performs a blocking network scan without affecting the
// connection state. If the radio is not yet started it is started with
// an empty default configuration. Results keep radio order, no
// deduplication; unrecognized auth modes read as WPA2.
func (m *Manager) Scan() ([]Network, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.radio == nil {
		return nil, ErrNotInitialized
	}

	log.Println("Starting WiFi scan...")
	if !m.radio.IsStarted() {
		log.Println("WiFi not started, starting it for scan...")
		if err := m.radio.SetConfiguration(ClientConfig{}); err != nil {
			log.Printf("Could not set config for scan: %v", err)
		}
		if err := m.radio.Start(); err != nil {
			return nil, fmt.Errorf("failed to start WiFi for scan: %w", err)
		}
	}

	networks, err := m.radio.Scan()
	if err != nil {
		return nil, fmt.Errorf("WiFi scan failed: %w", err)
	}

	for i := range networks {
		networks[i].Auth = NormalizeAuth(networks[i].Auth)
	}
	log.Printf("WiFi scan found %d networks", len(networks))
	return networks, nil
}

// State returns a snapshot of the connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the manager is currently connected.
func (m *Manager) Connected() bool {
	return m.State().Kind == StateConnected
}

// RSSI returns the cached signal strength of the current connection, or
// 0 when not connected.
func (m *Manager) RSSI() int8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Kind != StateConnected {
		return 0
	}
	return m.state.RSSI
}

// SSID returns the SSID of the last connect attempt (or the loaded
// saved SSID), "" if none.
func (m *Manager) SSID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ssid
}
