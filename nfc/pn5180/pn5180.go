// Package pn5180 provides a minimal driver for the NXP PN5180 NFC
// frontend over SPI, exposing the poll/field operations the NFC manager
// consumes plus a firmware version probe.
//
// The host interface is command/response over SPI with a BUSY line
// handshake: the chip raises BUSY while processing and the host may only
// transfer while BUSY is low.
package pn5180

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/deathly1987/spoolbuddy/nfc"
)

// Host interface commands.
const (
	cmdWriteRegister = 0x00
	cmdReadRegister  = 0x04
	cmdReadEEPROM    = 0x07
	cmdSendData      = 0x09
	cmdReadData      = 0x0A
	cmdLoadRFConfig  = 0x11
	cmdRFOn          = 0x16
	cmdRFOff         = 0x17
)

// Registers.
const (
	regRxStatus = 0x13
)

// EEPROM addresses.
const (
	eepromFirmwareVersion = 0x12
)

// ISO14443A RF configuration (106 kbps).
const (
	rfConfTx = 0x00
	rfConfRx = 0x80
)

const busyTimeout = 25 * time.Millisecond

// SPIFreq is the bus frequency used for the PN5180 (max 7 MHz).
const SPIFreq = 7 * physic.MegaHertz

// Driver drives the PN5180 over an SPI connection and a BUSY input pin.
// It implements nfc.CardDriver.
type Driver struct {
	conn spi.Conn
	busy gpio.PinIn
}

// New wires a driver to an already-connected SPI port and BUSY pin and
// loads the ISO14443A RF configuration.
func New(port spi.Port, busy gpio.PinIn) (*Driver, error) {
	conn, err := port.Connect(SPIFreq, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}

	d := &Driver{conn: conn, busy: busy}
	if err := d.command(cmdLoadRFConfig, rfConfTx, rfConfRx); err != nil {
		return nil, fmt.Errorf("failed to load RF config: %w", err)
	}
	return d, nil
}

// FirmwareVersion reads the firmware version from EEPROM.
func (d *Driver) FirmwareVersion() (nfc.FirmwareVersion, error) {
	resp, err := d.transceive([]byte{cmdReadEEPROM, eepromFirmwareVersion, 2}, 2)
	if err != nil {
		return nfc.FirmwareVersion{}, err
	}
	return nfc.FirmwareVersion{Major: resp[1], Minor: resp[0]}, nil
}

// FieldOn implements nfc.CardDriver.
func (d *Driver) FieldOn() error {
	return d.command(cmdRFOn, 0x00)
}

// FieldOff implements nfc.CardDriver.
func (d *Driver) FieldOff() error {
	return d.command(cmdRFOff, 0x00)
}

// PollCard implements nfc.CardDriver. It runs one REQA / anticollision /
// select sequence and returns the activated card, (nil, nfc.ErrTimeout)
// if nothing answered, or a transport error.
func (d *Driver) PollCard() (*nfc.Card, error) {
	// REQA is a short frame: 7 valid bits.
	atqa, err := d.exchange([]byte{0x26}, 7, 2)
	if err != nil {
		return nil, err
	}

	card := &nfc.Card{ATQA: [2]byte{atqa[0], atqa[1]}}

	// Cascade level 1 anticollision + select.
	uid, sak, err := d.anticollision(0x93)
	if err != nil {
		return nil, err
	}

	if uid[0] == 0x88 {
		// Cascade tag: UID continues at level 2.
		copy(card.UID[0:3], uid[1:4])
		uid2, sak2, err := d.anticollision(0x95)
		if err != nil {
			return nil, err
		}
		copy(card.UID[3:7], uid2[0:4])
		card.UIDLen = 7
		sak = sak2
	} else {
		copy(card.UID[0:4], uid[0:4])
		card.UIDLen = 4
	}

	card.SAK = sak
	return card, nil
}

// anticollision runs one cascade level and returns the 4 UID bytes and
// the SAK from the select.
func (d *Driver) anticollision(cascade byte) (uid [4]byte, sak byte, err error) {
	resp, err := d.exchange([]byte{cascade, 0x20}, 8, 5)
	if err != nil {
		return uid, 0, err
	}
	copy(uid[:], resp[0:4])

	sel := append([]byte{cascade, 0x70}, resp[0:5]...)
	sresp, err := d.exchange(sel, 8, 1)
	if err != nil {
		return uid, 0, err
	}
	return uid, sresp[0], nil
}

// exchange transmits an RF frame and reads the answer. A zero RX length
// means nothing answered in time.
func (d *Driver) exchange(frame []byte, validBits byte, readLen int) ([]byte, error) {
	cmd := append([]byte{cmdSendData, validBits & 0x07}, frame...)
	if err := d.write(cmd); err != nil {
		return nil, err
	}
	time.Sleep(time.Millisecond)

	status, err := d.transceive([]byte{cmdReadRegister, regRxStatus}, 4)
	if err != nil {
		return nil, err
	}
	rxLen := int(status[0]) | int(status[1]&0x01)<<8
	if rxLen == 0 {
		return nil, nfc.ErrTimeout
	}
	if rxLen < readLen {
		readLen = rxLen
	}

	return d.transceive([]byte{cmdReadData, 0x00}, readLen)
}

// command sends a parameterized host command with no response payload.
func (d *Driver) command(cmd byte, params ...byte) error {
	return d.write(append([]byte{cmd}, params...))
}

// write transfers one command block to the chip.
func (d *Driver) write(data []byte) error {
	if err := d.waitBusy(gpio.Low); err != nil {
		return err
	}
	if err := d.conn.Tx(data, nil); err != nil {
		return fmt.Errorf("%w: %v", nfc.ErrTransport, err)
	}
	return d.waitBusy(gpio.Low)
}

// transceive sends a command block and reads readLen response bytes in a
// second transfer, per the PN5180 host protocol.
func (d *Driver) transceive(cmd []byte, readLen int) ([]byte, error) {
	if err := d.write(cmd); err != nil {
		return nil, err
	}

	resp := make([]byte, readLen)
	if err := d.conn.Tx(make([]byte, readLen), resp); err != nil {
		return nil, fmt.Errorf("%w: %v", nfc.ErrTransport, err)
	}
	if err := d.waitBusy(gpio.Low); err != nil {
		return nil, err
	}
	return resp, nil
}

// waitBusy blocks until the BUSY line reaches level or times out.
func (d *Driver) waitBusy(level gpio.Level) error {
	deadline := time.Now().Add(busyTimeout)
	for d.busy.Read() != level {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: BUSY stuck %v", nfc.ErrTransport, d.busy.Read())
		}
		time.Sleep(10 * time.Microsecond)
	}
	return nil
}
