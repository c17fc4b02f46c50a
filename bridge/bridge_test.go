package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deathly1987/spoolbuddy/discovery"
	"github.com/deathly1987/spoolbuddy/nfc"
	"github.com/deathly1987/spoolbuddy/scale"
	"github.com/deathly1987/spoolbuddy/wifi"
)

func newTestBridge() (*Bridge, *scale.Manager, *nfc.Manager, *wifi.Manager) {
	scaleMgr := scale.NewManager()
	nfcMgr := nfc.NewManager()
	wifiMgr := wifi.NewManager()
	return New(scaleMgr, nfcMgr, wifiMgr), scaleMgr, nfcMgr, wifiMgr
}

// pumpNfc runs enough poll iterations for one hardware poll cycle.
func pumpNfc(m *nfc.Manager) {
	for i := 0; i < 10; i++ {
		m.Poll()
	}
}

func TestNilOutPointersAreNoOps(t *testing.T) {
	b, _, _, _ := newTestBridge()

	// None of these may panic or touch anything.
	b.NfcGetStatus(nil)
	b.ScaleGetStatus(nil)
	b.WifiGetStatus(nil)
	assert.False(t, b.NfcGetCardInfo(nil))
}

func TestUninitializedDefaults(t *testing.T) {
	b, _, _, _ := newTestBridge()

	var ns NfcStatus
	b.NfcGetStatus(&ns)
	assert.False(t, ns.Initialized)
	assert.False(t, ns.CardPresent)

	var ss ScaleStatus
	b.ScaleGetStatus(&ss)
	assert.False(t, ss.Initialized)
	assert.Equal(t, float32(1.0), ss.CalFactor)
	assert.Equal(t, float32(0), ss.WeightGrams)

	var ws WifiStatus
	b.WifiGetStatus(&ws)
	assert.Equal(t, 0, ws.State, "uninitialized state code")

	assert.Equal(t, Fail, b.ScaleTare())
	assert.Equal(t, Fail, b.ScaleCalibrate(100))
	assert.Equal(t, Fail, b.WifiConnect("net", "pass"))
	assert.Equal(t, Fail, b.WifiDisconnect())
	assert.False(t, b.NfcCardPresent())
}

func TestNfcGetUIDHex(t *testing.T) {
	b, _, nfcMgr, _ := newTestBridge()

	buf := make([]byte, 32)
	assert.Equal(t, 0, b.NfcGetUIDHex(buf), "no card seen yet")

	card := &nfc.Card{UIDLen: 4, ATQA: [2]byte{0x44, 0x00}, SAK: 0x00}
	copy(card.UID[:], []byte{0x04, 0xA2, 0x3B, 0x7F})
	nfcMgr.Init(&nfc.MockDriver{
		PollResults: []nfc.PollResult{{Card: card}},
	}, nfc.FirmwareVersion{})
	pumpNfc(nfcMgr)

	n := b.NfcGetUIDHex(buf)
	require.Equal(t, 11, n)
	assert.Equal(t, "04:A2:3B:7F", string(buf[:n]))

	// Buffers too small for the full string copy nothing.
	assert.Equal(t, 0, b.NfcGetUIDHex(make([]byte, 5)))
	assert.Equal(t, 0, b.NfcGetUIDHex(make([]byte, 2)))
	assert.Equal(t, 0, b.NfcGetUIDHex(nil))

	// Exact fit works.
	exact := make([]byte, 11)
	assert.Equal(t, 11, b.NfcGetUIDHex(exact))
}

func TestNfcCardInfoSurvivesRemoval(t *testing.T) {
	b, _, nfcMgr, _ := newTestBridge()

	card := &nfc.Card{UIDLen: 4, ATQA: [2]byte{0x44, 0x00}, SAK: 0x00}
	copy(card.UID[:], []byte{0x01, 0x02, 0x03, 0x04})
	nfcMgr.Init(&nfc.MockDriver{
		PollResults: []nfc.PollResult{{Card: card}, {Err: nfc.ErrTimeout}},
	}, nfc.FirmwareVersion{Major: 4})
	pumpNfc(nfcMgr)
	require.True(t, b.NfcCardPresent())

	pumpNfc(nfcMgr)
	assert.False(t, b.NfcCardPresent())

	var info nfc.CardInfo
	require.True(t, b.NfcGetCardInfo(&info), "snapshot outlives removal")
	assert.Equal(t, "01:02:03:04", info.UIDHex())

	var st NfcStatus
	b.NfcGetStatus(&st)
	assert.Equal(t, byte(4), st.FirmwareMajor)
}

func TestScaleRoundTrip(t *testing.T) {
	b, scaleMgr, _, _ := newTestBridge()

	drv := &scale.MockDriver{Readings: []int32{1000}}
	scaleMgr.Init(drv)

	require.Equal(t, OK, b.ScaleTare())

	drv.Readings = append(drv.Readings, 3000)
	require.Equal(t, OK, b.ScaleCalibrate(100))

	scaleMgr.Poll()
	var st ScaleStatus
	b.ScaleGetStatus(&st)
	assert.True(t, st.Initialized)
	assert.InDelta(t, 100.0, st.WeightGrams, 0.01)
	assert.Equal(t, int32(1000), st.TareOffset)

	assert.Equal(t, Fail, b.ScaleCalibrate(-5))
}

func TestWifiConnectLifecycle(t *testing.T) {
	b, _, _, wifiMgr := newTestBridge()

	radio := &wifi.MockRadio{IPAddr: [4]byte{10, 0, 0, 9}, Signal: -61}
	wifiMgr.Init(radio, nil)

	require.Equal(t, OK, b.WifiConnect("lab", "hunter22"))

	var st WifiStatus
	b.WifiGetStatus(&st)
	assert.Equal(t, int(wifi.StateConnected), st.State)
	assert.Equal(t, [4]byte{10, 0, 0, 9}, st.IP)
	assert.Equal(t, int8(-61), st.RSSI)
	assert.Equal(t, int8(-61), b.WifiGetRSSI())

	buf := make([]byte, 32)
	n := b.WifiGetSSID(buf)
	assert.Equal(t, "lab", string(buf[:n]))

	assert.Equal(t, OK, b.WifiDisconnect())
	b.WifiGetStatus(&st)
	assert.Equal(t, int(wifi.StateDisconnected), st.State)
	assert.Equal(t, int8(0), b.WifiGetRSSI())
}

func TestWifiConnectFailure(t *testing.T) {
	b, _, _, wifiMgr := newTestBridge()

	radio := &wifi.MockRadio{ConnectErr: errors.New("no AP")}
	wifiMgr.Init(radio, nil)

	assert.Equal(t, Fail, b.WifiConnect("lab", "pw"))
	assert.Equal(t, Fail, b.WifiConnect("", "pw"), "empty SSID rejected up front")

	var st WifiStatus
	b.WifiGetStatus(&st)
	assert.Equal(t, int(wifi.StateError), st.State)
	assert.Equal(t, [4]byte{}, st.IP, "IP not exposed outside connected state")
}

func TestWifiGetSSIDBufferRules(t *testing.T) {
	b, _, _, wifiMgr := newTestBridge()

	assert.Equal(t, Fail, b.WifiGetSSID(nil))
	assert.Equal(t, 0, b.WifiGetSSID(make([]byte, 8)), "no SSID set")

	wifiMgr.Init(&wifi.MockRadio{}, nil)
	require.Equal(t, OK, b.WifiConnect("longnetworkname", ""))

	small := make([]byte, 4)
	assert.Equal(t, 4, b.WifiGetSSID(small), "truncated to buffer size")
	assert.Equal(t, "long", string(small))
}

func TestWifiScan(t *testing.T) {
	b, _, _, wifiMgr := newTestBridge()

	assert.Equal(t, Fail, b.WifiScan(make([]wifi.Network, 4)), "uninitialized")

	radio := &wifi.MockRadio{Networks: []wifi.Network{
		{SSID: "one", RSSI: -40, Auth: wifi.AuthWPA2},
		{SSID: "two", RSSI: -70, Auth: wifi.AuthOpen},
		{SSID: "three", RSSI: -80, Auth: wifi.AuthWPA3},
	}}
	wifiMgr.Init(radio, nil)

	results := make([]wifi.Network, 2)
	n := b.WifiScan(results)
	require.Equal(t, 2, n, "capped at caller capacity")
	assert.Equal(t, "one", results[0].SSID)
	assert.Equal(t, "two", results[1].SSID)

	assert.Equal(t, Fail, b.WifiScan(nil))
}

func TestPrinterDiscoverPreconditions(t *testing.T) {
	b, _, _, wifiMgr := newTestBridge()

	// Not connected: fails before any socket is opened.
	assert.Equal(t, Fail, b.PrinterDiscover(make([]discovery.PrinterRecord, 4)))

	wifiMgr.Init(&wifi.MockRadio{}, nil)
	assert.Equal(t, Fail, b.PrinterDiscover(make([]discovery.PrinterRecord, 4)),
		"disconnected state also fails")

	// Zero capacity fails regardless of connection state.
	assert.Equal(t, Fail, b.PrinterDiscover(nil))
	assert.Equal(t, Fail, b.PrinterDiscover([]discovery.PrinterRecord{}))
}
