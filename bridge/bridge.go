// Package bridge is the foreign-call surface consumed by the UI
// process. It mirrors a C ABI contract: sentinel return codes, caller
// provided out-structs and buffers, and no panics or rich errors
// crossing the boundary. Every call degrades to a safe default when the
// underlying subsystem never initialized.
package bridge

import (
	"github.com/deathly1987/spoolbuddy/discovery"
	"github.com/deathly1987/spoolbuddy/nfc"
	"github.com/deathly1987/spoolbuddy/scale"
	"github.com/deathly1987/spoolbuddy/wifi"
)

// Sentinel return codes.
const (
	OK   = 0
	Fail = -1
)

// NfcStatus is the out-struct for NfcGetStatus.
type NfcStatus struct {
	Initialized   bool
	RFOn          bool
	CardPresent   bool
	FirmwareMajor byte
	FirmwareMinor byte
	FirmwarePatch byte
}

// ScaleStatus is the out-struct for ScaleGetStatus.
type ScaleStatus struct {
	Initialized bool
	WeightGrams float32
	RawValue    int32
	Stable      bool
	TareOffset  int32
	CalFactor   float32
}

// WifiStatus is the out-struct for WifiGetStatus. State carries the
// 0-4 code; IP and RSSI are valid only when State is 3 (connected).
type WifiStatus struct {
	State int
	IP    [4]byte
	RSSI  int8
}

// Bridge exposes the managers to the foreign caller. The managers are
// injected once at startup and shared with the cooperative loop.
type Bridge struct {
	scale *scale.Manager
	nfc   *nfc.Manager
	wifi  *wifi.Manager
}

// New builds the bridge over the process-wide managers.
func New(scaleMgr *scale.Manager, nfcMgr *nfc.Manager, wifiMgr *wifi.Manager) *Bridge {
	return &Bridge{scale: scaleMgr, nfc: nfcMgr, wifi: wifiMgr}
}

// NfcGetStatus fills the caller's status struct. A nil pointer is a
// no-op.
func (b *Bridge) NfcGetStatus(out *NfcStatus) {
	if out == nil {
		return
	}
	st := b.nfc.Status()
	*out = NfcStatus{
		Initialized:   st.Initialized,
		RFOn:          st.RFOn,
		CardPresent:   st.CardPresent,
		FirmwareMajor: st.Firmware.Major,
		FirmwareMinor: st.Firmware.Minor,
		FirmwarePatch: st.Firmware.Patch,
	}
}

// NfcCardPresent reports card presence.
func (b *Bridge) NfcCardPresent() bool {
	return b.nfc.CardPresent()
}

// NfcGetCardInfo copies the last card snapshot into the caller's
// struct. Returns true if card data is available. A nil pointer
// returns false.
func (b *Bridge) NfcGetCardInfo(out *nfc.CardInfo) bool {
	if out == nil {
		return false
	}
	info, ok := b.nfc.CardInfo()
	if !ok {
		return false
	}
	*out = info
	return true
}

// NfcGetUIDHex copies the colon-separated hex UID into buf and returns
// the copied length, or 0 if no card data exists or buf cannot hold the
// full string.
func (b *Bridge) NfcGetUIDHex(buf []byte) int {
	if len(buf) < 3 {
		return 0
	}
	hex := b.nfc.UIDHex()
	if hex == "" || len(hex) > len(buf) {
		return 0
	}
	return copy(buf, hex)
}

// ScaleGetStatus fills the caller's status struct. A nil pointer is a
// no-op.
func (b *Bridge) ScaleGetStatus(out *ScaleStatus) {
	if out == nil {
		return
	}
	st := b.scale.Status()
	*out = ScaleStatus{
		Initialized: st.Initialized,
		WeightGrams: st.WeightGrams,
		RawValue:    st.Raw,
		Stable:      st.Stable,
		TareOffset:  st.TareOffset,
		CalFactor:   st.CalFactor,
	}
}

// ScaleTare zeroes the scale. Returns 0 on success, -1 on failure or
// when uninitialized.
func (b *Bridge) ScaleTare() int {
	if err := b.scale.Tare(); err != nil {
		return Fail
	}
	return OK
}

// ScaleCalibrate derives the calibration factor from a known reference
// weight already on the platform. Returns 0 on success, -1 otherwise.
func (b *Bridge) ScaleCalibrate(knownWeightGrams float32) int {
	if err := b.scale.Calibrate(knownWeightGrams); err != nil {
		return Fail
	}
	return OK
}

// WifiConnect starts a connection and blocks until it resolves.
// Returns 0 on success, -1 on any failure.
func (b *Bridge) WifiConnect(ssid, password string) int {
	if ssid == "" {
		return Fail
	}
	if err := b.wifi.Connect(ssid, password); err != nil {
		return Fail
	}
	return OK
}

// WifiGetStatus fills the caller's status struct. A nil pointer is a
// no-op.
func (b *Bridge) WifiGetStatus(out *WifiStatus) {
	if out == nil {
		return
	}
	st := b.wifi.State()
	*out = WifiStatus{State: int(st.Kind)}
	if st.Kind == wifi.StateConnected {
		out.IP = st.IP
		out.RSSI = st.RSSI
	}
}

// WifiDisconnect drops the connection. Returns 0 on success, -1 on
// failure.
func (b *Bridge) WifiDisconnect() int {
	if err := b.wifi.Disconnect(); err != nil {
		return Fail
	}
	return OK
}

// WifiGetSSID copies the current SSID into buf and returns the copied
// length; 0 with an untouched buffer when no SSID is set, -1 for an
// unusable buffer. The SSID is truncated to fit.
func (b *Bridge) WifiGetSSID(buf []byte) int {
	if len(buf) == 0 {
		return Fail
	}
	ssid := b.wifi.SSID()
	if ssid == "" {
		return 0
	}
	return copy(buf, ssid)
}

// WifiGetRSSI returns the cached signal strength, 0 if not connected.
func (b *Bridge) WifiGetRSSI() int8 {
	return b.wifi.RSSI()
}

// WifiScan scans for networks and copies up to len(results) entries.
// Returns the number copied, or -1 on error. Starts the radio if
// needed.
func (b *Bridge) WifiScan(results []wifi.Network) int {
	if len(results) == 0 {
		return Fail
	}
	networks, err := b.wifi.Scan()
	if err != nil {
		return Fail
	}
	return copy(results, networks)
}

// PrinterDiscover probes for printers and copies up to len(results)
// records. Requires a connected WiFi state; returns the number found
// or -1 with no network I/O otherwise.
func (b *Bridge) PrinterDiscover(results []discovery.PrinterRecord) int {
	if len(results) == 0 {
		return Fail
	}
	records, err := discovery.Discover(b.wifi, len(results))
	if err != nil {
		return Fail
	}
	return copy(results, records)
}
