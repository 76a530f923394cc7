package thruster

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tetheredrobotics/rovcore/internal/config"
	"github.com/tetheredrobotics/rovcore/internal/gamepad"
	"github.com/tetheredrobotics/rovcore/internal/hardware"
)

func pressOnce(b *Bank, cfg *config.Config, button gamepad.Buttons) {
	b.Update(gamepad.Sample{Buttons: button}, cfg)
	b.Update(gamepad.Sample{}, cfg)
}

func TestAccessoryStateString(t *testing.T) {
	assert.Equal(t, "pwm_off", StateOff.String())
	assert.Equal(t, "pwm_on", StateOn.String())
	assert.Equal(t, "pwm_on1", StateOn1.String())
	assert.Equal(t, "pwm_on2", StateOn2.String())
	assert.Equal(t, "pwm_max", StateMax.String())
	assert.Equal(t, "unknown", AccessoryState(99).String())
}

func TestStateFromByte(t *testing.T) {
	assert.Equal(t, StateOn2, StateFromByte(3))
	assert.Equal(t, StateOff, StateFromByte(200), "out-of-range bytes decode to off")
}

func TestToggleAccessoryCycle(t *testing.T) {
	driver := hardware.NewMockDriver()
	cfg := config.Default()
	b := NewBank(driver)

	assert.Equal(t, StateOff, b.States()[0])
	pressOnce(b, &cfg, gamepad.ButtonY)
	assert.Equal(t, StateOn, b.States()[0])
	pressOnce(b, &cfg, gamepad.ButtonY)
	assert.Equal(t, StateOff, b.States()[0])
}

func TestMultiLevelAccessoryCycle(t *testing.T) {
	driver := hardware.NewMockDriver()
	cfg := config.Default()
	b := NewBank(driver)

	want := []AccessoryState{StateOn1, StateOn2, StateMax, StateOff}
	for _, state := range want {
		pressOnce(b, &cfg, gamepad.ButtonDPadUp)
		assert.Equal(t, state, b.States()[1])
	}
}

func TestAccessoryAdvancesOnRisingEdgeOnly(t *testing.T) {
	driver := hardware.NewMockDriver()
	cfg := config.Default()
	b := NewBank(driver)

	// Holding the button across many ticks advances exactly once.
	for i := 0; i < 10; i++ {
		b.Update(gamepad.Sample{Buttons: gamepad.ButtonY}, &cfg)
	}
	assert.Equal(t, StateOn, b.States()[0])

	b.Update(gamepad.Sample{}, &cfg)
	b.Update(gamepad.Sample{Buttons: gamepad.ButtonY}, &cfg)
	assert.Equal(t, StateOff, b.States()[0])
}

func TestAccessoriesAreIndependent(t *testing.T) {
	driver := hardware.NewMockDriver()
	cfg := config.Default()
	b := NewBank(driver)

	pressOnce(b, &cfg, gamepad.ButtonDPadLeft)
	pressOnce(b, &cfg, gamepad.ButtonDPadLeft)
	pressOnce(b, &cfg, gamepad.ButtonDPadRight)

	assert.Equal(t, [NumAccessories]AccessoryState{
		StateOff, StateOff, StateOff, StateOn2, StateOn1,
	}, b.States())
}

func TestSimultaneousPressesAdvanceAll(t *testing.T) {
	driver := hardware.NewMockDriver()
	cfg := config.Default()
	b := NewBank(driver)

	pressOnce(b, &cfg, gamepad.ButtonY|gamepad.ButtonDPadUp|gamepad.ButtonDPadDown)

	states := b.States()
	assert.Equal(t, StateOn, states[0])
	assert.Equal(t, StateOn1, states[1])
	assert.Equal(t, StateOn1, states[2])
}

func TestUpdateReassertsPWMEveryTick(t *testing.T) {
	driver := hardware.NewMockDriver()
	cfg := config.Default()
	b := NewBank(driver)

	pressOnce(b, &cfg, gamepad.ButtonY)
	assert.InDelta(t, float64(cfg.LED.On), driver.PulseWidth(cfg.LED.Channel), 0.5)

	writesBefore := len(driver.DutyWrites())
	b.Update(gamepad.Sample{}, &cfg)
	writesAfter := len(driver.DutyWrites())
	assert.Equal(t, writesBefore+NumAccessories, writesAfter,
		"every accessory output is rewritten each tick")
	assert.InDelta(t, float64(cfg.LED.On), driver.PulseWidth(cfg.LED.Channel), 0.5)
}

func TestRestoreAndStatusLine(t *testing.T) {
	driver := hardware.NewMockDriver()
	cfg := config.Default()
	b := NewBank(driver)

	b.Restore([NumAccessories]AccessoryState{StateOn, StateOn1, StateOff, StateMax, StateOn2})
	b.Apply(&cfg)

	assert.Equal(t,
		"led_status:led=pwm_on,led2=pwm_on1,led3=pwm_off,led4=pwm_max,led5=pwm_on2",
		b.StatusLine())
	assert.InDelta(t, float64(cfg.LED2.On1), driver.PulseWidth(cfg.LED2.Channel), 0.5)
	assert.InDelta(t, float64(cfg.LED4.Max), driver.PulseWidth(cfg.LED4.Channel), 0.5)

	// The restored cycle continues from the installed state.
	pressOnce(b, &cfg, gamepad.ButtonDPadUp)
	assert.Equal(t, StateOn2, b.States()[1])
}

func TestPWMForState(t *testing.T) {
	acfg := &config.AccessoryConfig{Off: 1100, On: 1900}
	assert.Equal(t, 1100, pwmForState(acfg, StateOff))
	assert.Equal(t, 1900, pwmForState(acfg, StateOn))
	// A multi-level state on a toggle-only config has no value of its own;
	// the write path clamps the zero up to pwm_min.
	assert.Equal(t, 0, pwmForState(acfg, StateOn1))
}
