// Package main runs the SpoolBuddy control-plane daemon: it owns the
// scale, NFC and WiFi managers, drives the cooperative polling loop and
// serves status snapshots to UI clients over WebSocket.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/deathly1987/spoolbuddy/buildinfo"
	"github.com/deathly1987/spoolbuddy/nfc"
	"github.com/deathly1987/spoolbuddy/nfc/pn5180"
	"github.com/deathly1987/spoolbuddy/scale"
	"github.com/deathly1987/spoolbuddy/scale/nau7802"
	"github.com/deathly1987/spoolbuddy/server"
	"github.com/deathly1987/spoolbuddy/store"
	"github.com/deathly1987/spoolbuddy/wifi"
)

var (
	defaultPort     = 18080
	defaultDataPath = "spoolbuddy.yaml"

	portFlag      int
	apiSecretFlag string
	dataPathFlag  string
	i2cBusFlag    string
	spiPortFlag   string
	busyPinFlag   string
	tickFlag      time.Duration
)

// scaleDivider slows scale polling relative to the loop tick: the ADC
// converts at 10 SPS, polling it every tick would just spin on the
// ready bit.
const scaleDivider = 10

// initScale brings up the load-cell ADC. Failure is non-fatal: the
// manager stays uninitialized and reports safe defaults.
func initScale(mgr *scale.Manager) {
	drv, err := nau7802.New(i2cBusFlag)
	if err != nil {
		log.Printf("Scale hardware unavailable: %v", err)
		return
	}
	if rev, err := drv.Revision(); err == nil {
		log.Printf("NAU7802 revision 0x%02X", rev)
	}
	mgr.Init(drv)
}

// initNfc brings up the NFC frontend. Failure is non-fatal.
func initNfc(mgr *nfc.Manager) {
	port, err := spireg.Open(spiPortFlag)
	if err != nil {
		log.Printf("NFC hardware unavailable: %v", err)
		return
	}

	busy := gpioreg.ByName(busyPinFlag)
	if busy == nil {
		log.Printf("NFC hardware unavailable: no GPIO pin %q", busyPinFlag)
		port.Close()
		return
	}

	drv, err := pn5180.New(port, busy)
	if err != nil {
		log.Printf("NFC hardware unavailable: %v", err)
		port.Close()
		return
	}

	fw, err := drv.FirmwareVersion()
	if err != nil {
		log.Printf("Failed to read PN5180 firmware version: %v", err)
	} else {
		log.Printf("PN5180 firmware %d.%d", fw.Major, fw.Minor)
	}
	mgr.Init(drv, fw)
}

// pollLoop drives the managers cooperatively until done is closed. The
// NFC manager rate-limits its own hardware access; the scale is polled
// every scaleDivider-th tick.
func pollLoop(scaleMgr *scale.Manager, nfcMgr *nfc.Manager, done <-chan struct{}) {
	ticker := time.NewTicker(tickFlag)
	defer ticker.Stop()

	var iteration uint64
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			iteration++
			nfcMgr.Poll()
			if iteration%scaleDivider == 0 {
				scaleMgr.Poll()
			}
		}
	}
}

func main() {
	flag.IntVar(&portFlag, "port", defaultPort, "Port to listen on for the status interface")
	flag.StringVar(&apiSecretFlag, "api-secret", "", "API secret for WebSocket connections (optional)")
	flag.StringVar(&dataPathFlag, "data", defaultDataPath, "Path to the persistent settings file")
	flag.StringVar(&i2cBusFlag, "i2c", "", "I2C bus for the scale ADC (default: first available)")
	flag.StringVar(&spiPortFlag, "spi", "", "SPI port for the NFC frontend (default: first available)")
	flag.StringVar(&busyPinFlag, "busy-pin", "GPIO25", "GPIO pin wired to the PN5180 BUSY line")
	flag.DurationVar(&tickFlag, "tick", 5*time.Millisecond, "Cooperative loop tick interval")
	versionFlag := flag.Bool("version", false, "Print build information and exit")
	flag.Parse()

	if *versionFlag {
		log.SetFlags(0)
		log.Println(buildinfo.BuildInfo())
		return
	}

	log.Printf("%s %s starting", buildinfo.DisplayName, buildinfo.FullVersion())

	if _, err := host.Init(); err != nil {
		log.Printf("Peripheral host init failed: %v", err)
	}

	settings := store.Open(dataPathFlag)

	scaleMgr := scale.NewManager()
	nfcMgr := nfc.NewManager()
	wifiMgr := wifi.NewManager()

	initScale(scaleMgr)
	initNfc(nfcMgr)

	// No WiFi radio driver exists for this platform yet; the subsystem
	// stays uninitialized and every operation reports that. The saved
	// credentials in the settings store are untouched.
	if radio := platformRadio(); radio != nil {
		wifiMgr.Init(radio, settings)
	} else {
		log.Println("No WiFi radio driver available, WiFi operations disabled")
	}

	srv := server.New(server.Config{
		Port:      portFlag,
		APISecret: apiSecretFlag,
	}, scaleMgr, nfcMgr, wifiMgr)
	go srv.Start()

	done := make(chan struct{})
	go pollLoop(scaleMgr, nfcMgr, done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, stopping...")

	close(done)
	srv.Stop()
}

// platformRadio returns the WiFi radio driver for the current platform,
// nil if none exists. Managed network hosts keep their WiFi outside
// this daemon.
func platformRadio() wifi.Radio {
	return nil
}
