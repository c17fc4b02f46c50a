package nfc

import "errors"

// Driver errors.
var (
	// ErrTimeout indicates no card answered within the RF timeout. This
	// is the normal outcome while no card is on the antenna.
	ErrTimeout = errors.New("nfc: timeout")

	// ErrTransport indicates a bus-level failure talking to the chip.
	ErrTransport = errors.New("nfc: transport error")
)

// CardDriver is the fixed contract of the NFC chip driver: poll for a
// card, enable the RF field, disable it. The SPI protocol and the
// ISO14443A activation state machine live behind this interface; a
// concrete adapter owns the real driver and is handed to the manager
// exactly once at startup.
type CardDriver interface {
	// PollCard attempts one card activation. It returns (nil, nil) or
	// (nil, ErrTimeout) when no card answered, a populated Card on
	// success, and any other error on chip or bus failure.
	PollCard() (*Card, error)

	// FieldOn enables the RF field.
	FieldOn() error

	// FieldOff disables the RF field.
	FieldOff() error
}

// FirmwareVersion is the chip firmware version reported in status.
type FirmwareVersion struct {
	Major byte
	Minor byte
	Patch byte
}
