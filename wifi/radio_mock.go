package wifi

import "sync"

// MockRadio is a test implementation of Radio that simulates the WiFi
// driver without hardware.
//
// Each step returns its configured error (nil by default); IPAddr,
// Signal and Networks feed the read operations. Calls are recorded in
// CallLog for verification.
type MockRadio struct {
	ConfigErr     error
	StartErr      error
	ConnectErr    error
	DisconnectErr error
	NetifErr      error
	IPErr         error
	RSSIErr       error
	ScanErr       error

	IPAddr   [4]byte
	Signal   int8
	Networks []Network

	// LastConfig is the most recent configuration pushed.
	LastConfig ClientConfig

	// Started tracks radio power state.
	Started bool

	// CallLog records method names in call order.
	CallLog []string

	mu sync.Mutex
}

func (r *MockRadio) record(name string) {
	r.CallLog = append(r.CallLog, name)
}

// SetConfiguration implements Radio.
func (r *MockRadio) SetConfiguration(cfg ClientConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("SetConfiguration")
	if r.ConfigErr != nil {
		return r.ConfigErr
	}
	r.LastConfig = cfg
	return nil
}

// Start implements Radio.
func (r *MockRadio) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Start")
	if r.StartErr != nil {
		return r.StartErr
	}
	r.Started = true
	return nil
}

// IsStarted implements Radio.
func (r *MockRadio) IsStarted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Started
}

// Connect implements Radio.
func (r *MockRadio) Connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Connect")
	return r.ConnectErr
}

// Disconnect implements Radio.
func (r *MockRadio) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Disconnect")
	return r.DisconnectErr
}

// WaitNetifUp implements Radio.
func (r *MockRadio) WaitNetifUp() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("WaitNetifUp")
	return r.NetifErr
}

// IPInfo implements Radio.
func (r *MockRadio) IPInfo() ([4]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("IPInfo")
	return r.IPAddr, r.IPErr
}

// RSSI implements Radio.
func (r *MockRadio) RSSI() (int8, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("RSSI")
	return r.Signal, r.RSSIErr
}

// Scan implements Radio.
func (r *MockRadio) Scan() ([]Network, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Scan")
	if r.ScanErr != nil {
		return nil, r.ScanErr
	}
	return r.Networks, nil
}
