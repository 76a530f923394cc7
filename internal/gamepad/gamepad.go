// Package gamepad carries the operator's stick and button state from one
// control datagram to the mixer and the accessory bank.
package gamepad

import (
	"strconv"
	"strings"
)

// Buttons is the XInput-style button bitmask carried by control datagrams.
type Buttons uint16

const (
	ButtonDPadUp    Buttons = 0x0001
	ButtonDPadDown  Buttons = 0x0002
	ButtonDPadLeft  Buttons = 0x0004
	ButtonDPadRight Buttons = 0x0008
	ButtonStart     Buttons = 0x0010
	ButtonBack      Buttons = 0x0020
	ButtonLeftThumb Buttons = 0x0040
	ButtonRightThmb Buttons = 0x0080
	ButtonLB        Buttons = 0x0100
	ButtonRB        Buttons = 0x0200
	ButtonA         Buttons = 0x1000
	ButtonB         Buttons = 0x2000
	ButtonX         Buttons = 0x4000
	ButtonY         Buttons = 0x8000
)

// Pressed reports whether b is set in the mask.
func (m Buttons) Pressed(b Buttons) bool {
	return m&b != 0
}

// Sample is one decoded control datagram: two stick axis pairs in ±32768 and
// the button mask. The zero value is all-neutral, which is also the failsafe
// input.
type Sample struct {
	LeftThumbX  int
	LeftThumbY  int
	RightThumbX int
	RightThumbY int
	Buttons     Buttons
}

// ParseDatagram decodes the operator station's plain-text payload:
// comma-separated "LX:<v>,LY:<v>,RX:<v>,RY:<v>,BTN:<mask>" tokens. Unknown
// tokens are ignored and missing tokens leave their field neutral, so a
// truncated datagram degrades to partial input instead of an error.
func ParseDatagram(payload string) Sample {
	var s Sample
	for _, token := range strings.Split(payload, ",") {
		name, raw, ok := strings.Cut(token, ":")
		if !ok {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case "LX":
			s.LeftThumbX = v
		case "LY":
			s.LeftThumbY = v
		case "RX":
			s.RightThumbX = v
		case "RY":
			s.RightThumbY = v
		case "BTN":
			s.Buttons = Buttons(v)
		}
	}
	return s
}
