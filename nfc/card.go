package nfc

import (
	"fmt"
	"strings"
)

// CardType identifies the tag chip family, derived from the ISO14443A
// discovery fields.
type CardType uint8

const (
	CardTypeUnknown CardType = iota
	CardTypeNTAG
	CardTypeMifareClassic1K
	CardTypeMifareClassic4K
)

// String returns a human-readable type name.
func (t CardType) String() string {
	switch t {
	case CardTypeNTAG:
		return "NTAG"
	case CardTypeMifareClassic1K:
		return "MIFARE Classic 1K"
	case CardTypeMifareClassic4K:
		return "MIFARE Classic 4K"
	default:
		return "Unknown"
	}
}

// Card represents an activated ISO14443A card as reported by the chip
// driver. It is a plain value; snapshots of it cross the foreign-call
// boundary freely.
type Card struct {
	// UID holds the unique identifier, UIDLen bytes used (4, 7 or 10).
	UID    [10]byte
	UIDLen uint8

	// ATQA is the answer-to-request, as received (LSB first).
	ATQA [2]byte

	// SAK is the select-acknowledge byte.
	SAK byte
}

// IsNTAG reports whether the discovery fields match the NTAG family.
func (c *Card) IsNTAG() bool {
	return c.ATQA[0] == 0x44 && c.ATQA[1] == 0x00
}

// IsMifareClassic1K reports whether the SAK indicates MIFARE Classic 1K.
func (c *Card) IsMifareClassic1K() bool {
	return c.SAK == 0x08
}

// IsMifareClassic4K reports whether the SAK indicates MIFARE Classic 4K.
func (c *Card) IsMifareClassic4K() bool {
	return c.SAK == 0x18
}

// Type classifies the card. Priority order matters: a card whose fields
// satisfy several predicates reports the highest-priority family.
func (c *Card) Type() CardType {
	switch {
	case c.IsNTAG():
		return CardTypeNTAG
	case c.IsMifareClassic1K():
		return CardTypeMifareClassic1K
	case c.IsMifareClassic4K():
		return CardTypeMifareClassic4K
	default:
		return CardTypeUnknown
	}
}

// UIDHex returns the UID as colon-separated uppercase hex, e.g.
// "04:A1:B2:C3". Empty if the UID length is zero.
func (c *Card) UIDHex() string {
	n := int(c.UIDLen)
	if n > len(c.UID) {
		n = len(c.UID)
	}
	parts := make([]string, 0, n)
	for _, b := range c.UID[:n] {
		parts = append(parts, fmt.Sprintf("%02X", b))
	}
	return strings.Join(parts, ":")
}

// CardInfo is the value-copied card snapshot handed to callers. Valid
// only while a card is present; callers may observe it stale afterwards.
type CardInfo struct {
	UID    [10]byte
	UIDLen uint8
	ATQA   [2]byte
	SAK    byte
	Type   CardType
}

// infoFromCard builds the snapshot for a freshly activated card.
func infoFromCard(c *Card) CardInfo {
	return CardInfo{
		UID:    c.UID,
		UIDLen: c.UIDLen,
		ATQA:   c.ATQA,
		SAK:    c.SAK,
		Type:   c.Type(),
	}
}

// UIDHex returns the snapshot UID as colon-separated uppercase hex.
func (i *CardInfo) UIDHex() string {
	c := Card{UID: i.UID, UIDLen: i.UIDLen}
	return c.UIDHex()
}
