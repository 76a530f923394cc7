package thruster

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tetheredrobotics/rovcore/internal/config"
	"github.com/tetheredrobotics/rovcore/internal/gamepad"
	"github.com/tetheredrobotics/rovcore/internal/hardware"
	"github.com/tetheredrobotics/rovcore/internal/logging"
)

// AccessoryState is the closed set of output levels an accessory can hold.
// Accessory 1 only uses Off and On; accessories 2-5 cycle through Off, On1,
// On2 and Max.
type AccessoryState uint8

const (
	StateOff AccessoryState = iota
	StateOn
	StateOn1
	StateOn2
	StateMax
)

// NumAccessories is the number of accessory outputs.
const NumAccessories = 5

// String renders the state token used by the led_status line.
func (s AccessoryState) String() string {
	switch s {
	case StateOff:
		return "pwm_off"
	case StateOn:
		return "pwm_on"
	case StateOn1:
		return "pwm_on1"
	case StateOn2:
		return "pwm_on2"
	case StateMax:
		return "pwm_max"
	default:
		return "unknown"
	}
}

// StateFromByte decodes one snapshot byte. Values outside the closed set
// fall back to Off, so a corrupt snapshot can only produce safe states.
func StateFromByte(b byte) AccessoryState {
	if b > byte(StateMax) {
		return StateOff
	}
	return AccessoryState(b)
}

// accessory is one output: its current state, the bound button and the
// previous tick's button level for edge detection.
type accessory struct {
	state       AccessoryState
	button      gamepad.Buttons
	multiLevel  bool
	prevPressed bool
}

// advance moves the state machine one step on a rising edge.
func (a *accessory) advance() {
	if !a.multiLevel {
		if a.state == StateOff {
			a.state = StateOn
		} else {
			a.state = StateOff
		}
		return
	}
	switch a.state {
	case StateOff:
		a.state = StateOn1
	case StateOn1:
		a.state = StateOn2
	case StateOn2:
		a.state = StateMax
	default:
		a.state = StateOff
	}
}

// Bank drives the five accessory outputs. State only changes on a button's
// rising edge, but every state is re-asserted to the driver each tick so the
// hardware never drifts from the machine.
type Bank struct {
	driver hardware.Driver
	log    *zerolog.Logger
	items  [NumAccessories]accessory
}

// NewBank creates the accessory bank with the standard button binding:
// Y toggles accessory 1, the DPad directions cycle accessories 2-5.
func NewBank(driver hardware.Driver) *Bank {
	return &Bank{
		driver: driver,
		log:    logging.GetSubsystemLogger("accessory"),
		items: [NumAccessories]accessory{
			{button: gamepad.ButtonY},
			{button: gamepad.ButtonDPadUp, multiLevel: true},
			{button: gamepad.ButtonDPadDown, multiLevel: true},
			{button: gamepad.ButtonDPadLeft, multiLevel: true},
			{button: gamepad.ButtonDPadRight, multiLevel: true},
		},
	}
}

// Restore installs previously persisted states without touching the edge
// tracking.
func (b *Bank) Restore(states [NumAccessories]AccessoryState) {
	for i := range b.items {
		b.items[i].state = states[i]
	}
}

// States returns the current state of every accessory.
func (b *Bank) States() [NumAccessories]AccessoryState {
	var out [NumAccessories]AccessoryState
	for i := range b.items {
		out[i] = b.items[i].state
	}
	return out
}

// Update advances each accessory on its button's rising edge and re-asserts
// every output's PWM value.
func (b *Bank) Update(pad gamepad.Sample, cfg *config.Config) {
	for i := range b.items {
		item := &b.items[i]
		pressed := pad.Buttons.Pressed(item.button)
		if pressed && !item.prevPressed {
			item.advance()
			b.log.Debug().Int("accessory", i+1).Str("state", item.state.String()).Msg("accessory state advanced")
		}
		item.prevPressed = pressed
	}
	b.Apply(cfg)
}

// Apply writes every accessory's configured PWM value for its current state.
func (b *Bank) Apply(cfg *config.Config) {
	configs := accessoryConfigs(cfg)
	for i := range b.items {
		writeChannelPWM(b.driver, cfg, configs[i].Channel, pwmForState(configs[i], b.items[i].state), b.log)
	}
}

// StatusLine renders the reconnection status line:
// led_status:led=<s>,led2=<s>,led3=<s>,led4=<s>,led5=<s>.
func (b *Bank) StatusLine() string {
	return fmt.Sprintf("led_status:led=%s,led2=%s,led3=%s,led4=%s,led5=%s",
		b.items[0].state, b.items[1].state, b.items[2].state, b.items[3].state, b.items[4].state)
}

func accessoryConfigs(cfg *config.Config) [NumAccessories]*config.AccessoryConfig {
	return [NumAccessories]*config.AccessoryConfig{
		&cfg.LED, &cfg.LED2, &cfg.LED3, &cfg.LED4, &cfg.LED5,
	}
}

// pwmForState maps a state onto its configured pulse width. On only exists
// on the toggle accessory, On1/On2/Max only on the multi-level banks; a level
// the config never set is zero and the write path clamps it up to pwm_min.
func pwmForState(acfg *config.AccessoryConfig, state AccessoryState) int {
	switch state {
	case StateOn:
		return acfg.On
	case StateOn1:
		return acfg.On1
	case StateOn2:
		return acfg.On2
	case StateMax:
		return acfg.Max
	default:
		return acfg.Off
	}
}
