// Package nau7802 provides a minimal driver for the NAU7802 24-bit
// load-cell ADC on I2C, exposing only the raw conversion read the scale
// manager consumes.
package nau7802

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"

	"github.com/deathly1987/spoolbuddy/scale"
)

// Addr is the fixed I2C address of the NAU7802.
const Addr = 0x2A

// Register map subset.
const (
	regPuCtrl = 0x00
	regCtrl1  = 0x01
	regCtrl2  = 0x02
	regAdcoB2 = 0x12
	regRev    = 0x1F
)

// PU_CTRL bits.
const (
	puCtrlRR   = 1 << 0 // register reset
	puCtrlPUD  = 1 << 1 // power up digital
	puCtrlPUA  = 1 << 2 // power up analog
	puCtrlPUR  = 1 << 3 // power up ready
	puCtrlCS   = 1 << 4 // cycle start
	puCtrlCR   = 1 << 5 // cycle ready (conversion available)
	puCtrlAVDD = 1 << 7 // AVDD from internal LDO
)

const conversionTimeout = 150 * time.Millisecond

// Driver reads raw conversions from the NAU7802. It implements
// scale.Driver.
type Driver struct {
	dev *i2c.Dev
}

// New opens busName, powers up the chip and returns a ready driver.
func New(busName string) (*Driver, error) {
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}
	_ = bus.SetSpeed(100 * physic.KiloHertz)

	d := &Driver{dev: &i2c.Dev{Addr: Addr, Bus: bus}}
	if err := d.powerUp(); err != nil {
		return nil, err
	}
	return d, nil
}

// powerUp resets the chip and brings the analog and digital blocks up.
func (d *Driver) powerUp() error {
	if err := d.writeReg(regPuCtrl, puCtrlRR); err != nil {
		return fmt.Errorf("failed to reset NAU7802: %w", err)
	}
	time.Sleep(time.Millisecond)
	if err := d.writeReg(regPuCtrl, puCtrlPUD|puCtrlPUA|puCtrlAVDD); err != nil {
		return fmt.Errorf("failed to power up NAU7802: %w", err)
	}

	deadline := time.Now().Add(conversionTimeout)
	for {
		v, err := d.readReg(regPuCtrl)
		if err != nil {
			return fmt.Errorf("failed to read power status: %w", err)
		}
		if v&puCtrlPUR != 0 {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: NAU7802 power-up ready not set", scale.ErrNotReady)
		}
		time.Sleep(time.Millisecond)
	}

	// Start continuous conversions.
	v, err := d.readReg(regPuCtrl)
	if err != nil {
		return err
	}
	return d.writeReg(regPuCtrl, v|puCtrlCS)
}

// ReadRaw implements scale.Driver. It waits for the next conversion and
// returns the signed 24-bit result.
func (d *Driver) ReadRaw() (int32, error) {
	deadline := time.Now().Add(conversionTimeout)
	for {
		v, err := d.readReg(regPuCtrl)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", scale.ErrBus, err)
		}
		if v&puCtrlCR != 0 {
			break
		}
		if time.Now().After(deadline) {
			return 0, scale.ErrNotReady
		}
		time.Sleep(time.Millisecond)
	}

	buf := make([]byte, 3)
	if err := d.dev.Tx([]byte{regAdcoB2}, buf); err != nil {
		return 0, fmt.Errorf("%w: %v", scale.ErrBus, err)
	}

	// Sign-extend the 24-bit two's complement result.
	raw := int32(buf[0])<<16 | int32(buf[1])<<8 | int32(buf[2])
	if raw&0x800000 != 0 {
		raw |= ^int32(0xFFFFFF)
	}
	return raw, nil
}

// Revision returns the chip revision register, useful as a liveness
// probe during bring-up.
func (d *Driver) Revision() (byte, error) {
	return d.readReg(regRev)
}

func (d *Driver) writeReg(reg, val byte) error {
	return d.dev.Tx([]byte{reg, val}, nil)
}

func (d *Driver) readReg(reg byte) (byte, error) {
	buf := make([]byte, 1)
	if err := d.dev.Tx([]byte{reg}, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}
