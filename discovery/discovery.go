// Package discovery implements the vendor discovery dialect used to
// locate Bambu printers on the local network: one UDP probe to the
// limited-broadcast address and the SSDP multicast group, then a
// best-effort collection window parsing whatever answers arrive.
package discovery

import (
	"errors"
	"fmt"
	"log"
	"net"
	"syscall"
	"time"
)

// Wire constants of the dialect.
const (
	// Port is the UDP port printers listen on for discovery probes.
	Port = 2021

	// ReceiveTimeout bounds each receive: collection continues as long
	// as responses keep arriving and ends normally after this much
	// silence.
	ReceiveTimeout = 2 * time.Second

	// multicastGroup is the SSDP group the printers also join.
	multicastGroup = "239.255.255.250"
)

// probeMessage is the fixed ASCII M-SEARCH probe the printers answer.
const probeMessage = "M-SEARCH * HTTP/1.1\r\n" +
	"HOST: 239.255.255.250:1900\r\n" +
	"MAN: \"ssdp:discover\"\r\n" +
	"MX: 2\r\n" +
	"ST: urn:bambulab-com:device:3dprinter:1\r\n\r\n"

var (
	// ErrNotConnected is returned when discovery is attempted without
	// an established WiFi connection. No network I/O happens.
	ErrNotConnected = errors.New("discovery: wifi not connected")

	// ErrInvalidRequest is returned for a non-positive result budget.
	ErrInvalidRequest = errors.New("discovery: invalid max results")
)

// ConnectionChecker reports whether the network link is up. The WiFi
// manager satisfies it.
type ConnectionChecker interface {
	Connected() bool
}

// Discover probes the local network and collects up to maxResults
// printer records. It blocks the caller until maxResults records
// arrive or one receive window passes in silence; a receive timeout
// ends collection normally and whatever was collected so far is
// returned.
func Discover(link ConnectionChecker, maxResults int) ([]PrinterRecord, error) {
	if maxResults <= 0 {
		return nil, ErrInvalidRequest
	}
	if link == nil || !link.Connected() {
		return nil, ErrNotConnected
	}

	log.Println("Starting printer discovery...")

	conn, err := openBroadcastSocket()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	probe := []byte(probeMessage)
	broadcast := &net.UDPAddr{IP: net.IPv4bcast, Port: Port}
	if _, err := conn.WriteToUDP(probe, broadcast); err != nil {
		return nil, fmt.Errorf("failed to send discovery broadcast: %w", err)
	}
	// The multicast copy is best-effort; the broadcast send above is
	// the load-bearing one.
	multicast := &net.UDPAddr{IP: net.ParseIP(multicastGroup), Port: Port}
	if _, err := conn.WriteToUDP(probe, multicast); err != nil {
		log.Printf("Discovery multicast send failed: %v", err)
	}

	log.Println("Discovery broadcast sent, waiting for responses...")

	return collect(conn, maxResults, ReceiveTimeout), nil
}

// collect reads datagrams until maxResults records are gathered or a
// receive passes its window without data. The deadline is re-armed
// before every receive, so collection keeps going while responses
// arrive. Unparseable datagrams are skipped without ending the loop.
func collect(conn *net.UDPConn, maxResults int, timeout time.Duration) []PrinterRecord {
	records := make([]PrinterRecord, 0, maxResults)
	buf := make([]byte, 1024)
	for len(records) < maxResults {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			log.Printf("Discovery deadline error: %v", err)
			break
		}

		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				log.Printf("Discovery timeout, found %d printers", len(records))
			} else {
				log.Printf("Discovery receive error: %v", err)
			}
			break
		}

		rec, ok := ParseResponse(buf[:n], addr.String())
		if !ok {
			continue
		}
		log.Printf("Found printer: %s (%s) at %s", rec.Name, rec.Serial, rec.IP)
		records = append(records, rec)
	}

	return records
}

// openBroadcastSocket binds an ephemeral UDP endpoint with broadcast
// sends enabled.
func openBroadcastSocket() (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("failed to create UDP socket: %w", err)
	}

	raw, err := conn.SyscallConn()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to access socket: %w", err)
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	}); err != nil {
		sockErr = err
	}
	if sockErr != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable broadcast: %w", sockErr)
	}
	return conn, nil
}
