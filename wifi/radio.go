package wifi

import "errors"

// AuthMode is the authentication mode of a network, coded the way the
// UI consumes it (0=Open, 1=WEP, 2=WPA, 3=WPA2, 4=WPA3).
type AuthMode uint8

const (
	AuthOpen AuthMode = iota
	AuthWEP
	AuthWPA
	AuthWPA2
	AuthWPA3
)

// NormalizeAuth maps unrecognized vendor auth modes to WPA2, the
// conservative default for anything the radio reports outside the known
// range (enterprise variants included).
func NormalizeAuth(a AuthMode) AuthMode {
	if a > AuthWPA3 {
		return AuthWPA2
	}
	return a
}

// Network is one scan result as reported by the radio, in the order the
// radio returned it.
type Network struct {
	SSID string
	RSSI int8
	Auth AuthMode
}

// ClientConfig is the station configuration pushed to the radio before
// connecting.
type ClientConfig struct {
	SSID     string
	Password string
	Auth     AuthMode
}

// Radio errors.
var (
	// ErrNotInitialized indicates no radio was handed to the manager.
	ErrNotInitialized = errors.New("wifi: not initialized")

	// ErrCredentialsTooLong indicates an SSID or password over the
	// 63-byte limit; rejected before any radio call.
	ErrCredentialsTooLong = errors.New("wifi: credentials too long")
)

// Radio is the fixed contract of the WiFi radio driver. Every method may
// block for the duration of the radio operation; the manager provides no
// cancellation beyond what the driver enforces internally.
type Radio interface {
	// SetConfiguration pushes the station configuration.
	SetConfiguration(cfg ClientConfig) error

	// Start brings the radio up. Required before Connect and Scan.
	Start() error

	// IsStarted reports whether the radio is up.
	IsStarted() bool

	// Connect associates with the configured network.
	Connect() error

	// Disconnect drops the current association.
	Disconnect() error

	// WaitNetifUp blocks until the network interface has an address.
	WaitNetifUp() error

	// IPInfo returns the assigned IPv4 address.
	IPInfo() ([4]byte, error)

	// RSSI returns the signal strength of the current association.
	RSSI() (int8, error)

	// Scan performs a blocking network scan and returns the results in
	// radio order.
	Scan() ([]Network, error)
}
