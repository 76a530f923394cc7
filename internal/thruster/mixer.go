// Package thruster converts operator input and gyro data into smoothed PWM
// commands for the six thrusters, and runs the five edge-triggered accessory
// outputs that share the same PWM board.
package thruster

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tetheredrobotics/rovcore/internal/config"
	"github.com/tetheredrobotics/rovcore/internal/gamepad"
	"github.com/tetheredrobotics/rovcore/internal/hardware"
	"github.com/tetheredrobotics/rovcore/internal/logging"
)

// NumThrusters is the number of thrust channels (0-3 lateral, 4-5 fore/aft).
const NumThrusters = 6

// idleYawCorrectionLimit bounds the station-keeping yaw correction in PWM
// units when the rotation stick is idle.
const idleYawCorrectionLimit = 400

// Mixer owns the per-channel smoothing state and writes thrust commands
// through the driver. It is not safe for concurrent use; the control loop is
// its only caller.
type Mixer struct {
	driver hardware.Driver
	log    *zerolog.Logger

	// current holds the smoothed PWM value actually on each channel.
	current [NumThrusters]float64
}

// NewMixer creates a mixer bound to driver. Call Init before Update.
func NewMixer(driver hardware.Driver) *Mixer {
	return &Mixer{
		driver: driver,
		log:    logging.GetSubsystemLogger("thruster"),
	}
}

// mapValue linearly maps x from [inMin, inMax] onto [outMin, outMax],
// clamping x into the input range first.
func mapValue(x, inMin, inMax, outMin, outMax float64) float64 {
	if inMax == inMin {
		return outMin
	}
	if x < inMin {
		x = inMin
	} else if x > inMax {
		x = inMax
	}
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

// smoothInterpolate moves current toward target by factor: 0 freezes the
// value, 1 reaches the target immediately.
func smoothInterpolate(current, target, factor float64) float64 {
	return current + (target-current)*factor
}

// writeChannelPWM clamps a pulse width into the operating range, converts it
// to a duty cycle at the configured PWM frequency and programs the channel.
// The boost ceiling is the clamp upper bound on every channel.
func writeChannelPWM(driver hardware.Driver, cfg *config.Config, channel, pulseWidthUS int, log *zerolog.Logger) {
	clamped := pulseWidthUS
	if clamped < cfg.PWMMin {
		clamped = cfg.PWMMin
	}
	if clamped > cfg.PWMBoostMax {
		clamped = cfg.PWMBoostMax
	}
	duty := float64(clamped) / (1e6 / cfg.PWMFrequency)
	if err := driver.SetPWMChannelDuty(channel, duty); err != nil {
		log.Warn().Err(err).Int("channel", channel).Msg("pwm write failed")
	}
}

// Init enables PWM output at the configured frequency and parks all six
// thrusters at pwm_min, which is also the smoothing state's reset value.
func (m *Mixer) Init(cfg *config.Config) error {
	if err := m.driver.SetPWMEnabled(true); err != nil {
		return fmt.Errorf("enable pwm: %w", err)
	}
	m.log.Info().Float64("frequency_hz", cfg.PWMFrequency).Msg("enabling pwm output")
	if err := m.driver.SetPWMFrequency(cfg.PWMFrequency); err != nil {
		return fmt.Errorf("set pwm frequency: %w", err)
	}
	for i := 0; i < NumThrusters; i++ {
		writeChannelPWM(m.driver, cfg, i, cfg.PWMMin, m.log)
		m.current[i] = float64(cfg.PWMMin)
	}
	m.log.Info().Int("pwm_min", cfg.PWMMin).Msg("thrusters initialized")
	return nil
}

// horizontalTargets computes the target PWM for the four lateral channels
// from the rotation stick (left X), the strafe stick (right X) and the gyro
// sample. Diagonal pairs: rotation-left drives 1&2, rotation-right 0&3,
// strafe-left 1&3, strafe-right 0&2.
func horizontalTargets(pad gamepad.Sample, gyro hardware.AxisData, cfg *config.Config) [4]int {
	deadzone := cfg.JoystickDeadzone

	lxActive := abs(pad.LeftThumbX) > deadzone
	rxActive := abs(pad.RightThumbX) > deadzone

	pwmLX := [4]int{cfg.PWMMin, cfg.PWMMin, cfg.PWMMin, cfg.PWMMin}
	pwmRX := pwmLX

	// Rotation contribution, mapped onto [pwm_min, pwm_normal_max].
	if pad.LeftThumbX < -deadzone {
		v := int(mapValue(float64(pad.LeftThumbX), -32768, float64(-deadzone),
			float64(cfg.PWMNormalMax), float64(cfg.PWMMin)))
		pwmLX[1] = v
		pwmLX[2] = v
	} else if pad.LeftThumbX > deadzone {
		v := int(mapValue(float64(pad.LeftThumbX), float64(deadzone), 32767,
			float64(cfg.PWMMin), float64(cfg.PWMNormalMax)))
		pwmLX[0] = v
		pwmLX[3] = v
	}

	// Strafe contribution, same mapping, other diagonal pairing.
	if pad.RightThumbX < -deadzone {
		v := int(mapValue(float64(pad.RightThumbX), -32768, float64(-deadzone),
			float64(cfg.PWMNormalMax), float64(cfg.PWMMin)))
		pwmRX[1] = v
		pwmRX[3] = v
	} else if pad.RightThumbX > deadzone {
		v := int(mapValue(float64(pad.RightThumbX), float64(deadzone), 32767,
			float64(cfg.PWMMin), float64(cfg.PWMNormalMax)))
		pwmRX[0] = v
		pwmRX[2] = v
	}

	var targets [4]int
	for i := range targets {
		targets[i] = maxInt(pwmLX[i], pwmRX[i])
	}

	// Both sticks active: the channel picked by the sign combination gets a
	// boost proportional to the weaker input, on top of the max combination.
	if lxActive && rxActive {
		boostRange := cfg.PWMBoostMax - cfg.PWMNormalMax
		weaker := minInt(abs(pad.LeftThumbX), abs(pad.RightThumbX))
		boost := int(mapValue(float64(weaker), float64(deadzone), 32768, 0, float64(boostRange)))

		switch {
		case pad.LeftThumbX < 0 && pad.RightThumbX < 0:
			targets[1] += boost
		case pad.LeftThumbX < 0 && pad.RightThumbX > 0:
			targets[2] += boost
		case pad.LeftThumbX > 0 && pad.RightThumbX < 0:
			targets[3] += boost
		default:
			targets[0] += boost
		}
	}

	// Gyro stabilization while strafing: counter roll and yaw coupling
	// across the diagonal pairs.
	if rxActive {
		rollCorrection := int(gyro.X * cfg.KpRoll)
		targets[0] -= rollCorrection
		targets[1] += rollCorrection
		targets[2] += rollCorrection
		targets[3] -= rollCorrection

		yawCorrection := int(gyro.Z * cfg.KpYaw)
		targets[0] -= yawCorrection
		targets[1] += yawCorrection
		targets[2] += yawCorrection
		targets[3] -= yawCorrection
	}

	// Idle-yaw hold: with the rotation stick released, counter any observed
	// yaw rate above the threshold with a bounded correction on the opposing
	// diagonal pair.
	if !lxActive {
		yawRate := -gyro.Z
		if yawRate > cfg.YawThresholdDPS || yawRate < -cfg.YawThresholdDPS {
			yawPWM := int(yawRate * -cfg.YawGain)
			if yawPWM < -idleYawCorrectionLimit {
				yawPWM = -idleYawCorrectionLimit
			} else if yawPWM > idleYawCorrectionLimit {
				yawPWM = idleYawCorrectionLimit
			}
			if yawPWM < 0 {
				targets[0] = minInt(cfg.PWMBoostMax, targets[0]-yawPWM)
				targets[3] = minInt(cfg.PWMBoostMax, targets[3]-yawPWM)
			} else {
				targets[1] = minInt(cfg.PWMBoostMax, targets[1]+yawPWM)
				targets[2] = minInt(cfg.PWMBoostMax, targets[2]+yawPWM)
			}
		}
	}

	return targets
}

// forwardReversePWM maps the fore/aft stick onto [pwm_min, pwm_boost_max].
// Anything at or below the deadzone, including full reverse, is pwm_min:
// these thrusters only push forward.
func forwardReversePWM(value int, cfg *config.Config) int {
	if value <= cfg.JoystickDeadzone {
		return cfg.PWMMin
	}
	return int(mapValue(float64(value), float64(cfg.JoystickDeadzone), 32767,
		float64(cfg.PWMMin), float64(cfg.PWMBoostMax)))
}

// Update runs one mixing tick: compute targets, advance the smoothing state
// and program all six channels.
func (m *Mixer) Update(pad gamepad.Sample, gyro hardware.AxisData, cfg *config.Config) {
	targets := horizontalTargets(pad, gyro, cfg)
	forward := forwardReversePWM(pad.RightThumbY, cfg)

	for i := 0; i < 4; i++ {
		m.current[i] = smoothInterpolate(m.current[i], float64(targets[i]), cfg.SmoothingFactorHorizontal)
	}

	// Fore/aft channels ramp only while accelerating; deceleration and hold
	// snap immediately so braking and reversal take effect within one tick.
	forwardTarget := float64(forward)
	for i := 4; i < 6; i++ {
		if forwardTarget > m.current[i] {
			m.current[i] = smoothInterpolate(m.current[i], forwardTarget, cfg.SmoothingFactorVertical)
		} else {
			m.current[i] = forwardTarget
		}
	}

	for i := 0; i < NumThrusters; i++ {
		writeChannelPWM(m.driver, cfg, i, int(m.current[i]), m.log)
	}
}

// SetAll forces every thrust channel (never the accessories) to one pulse
// width and resets the smoothing state to it. This is the failsafe path.
func (m *Mixer) SetAll(cfg *config.Config, pulseWidthUS int) {
	for i := 0; i < NumThrusters; i++ {
		writeChannelPWM(m.driver, cfg, i, pulseWidthUS, m.log)
		m.current[i] = float64(pulseWidthUS)
	}
}

// Current returns the smoothed PWM value on channel.
func (m *Mixer) Current(channel int) float64 {
	return m.current[channel]
}

// Disable parks the thrusters at pwm_min, drops every accessory channel to
// its off value and turns PWM output off.
func (m *Mixer) Disable(cfg *config.Config) {
	m.log.Info().Msg("disabling pwm output")
	for i := 0; i < NumThrusters; i++ {
		writeChannelPWM(m.driver, cfg, i, cfg.PWMMin, m.log)
		m.current[i] = float64(cfg.PWMMin)
	}
	writeChannelPWM(m.driver, cfg, cfg.LED.Channel, cfg.LED.Off, m.log)
	writeChannelPWM(m.driver, cfg, cfg.LED2.Channel, cfg.LED2.Off, m.log)
	writeChannelPWM(m.driver, cfg, cfg.LED3.Channel, cfg.LED3.Off, m.log)
	writeChannelPWM(m.driver, cfg, cfg.LED4.Channel, cfg.LED4.Off, m.log)
	writeChannelPWM(m.driver, cfg, cfg.LED5.Channel, cfg.LED5.Off, m.log)
	if err := m.driver.SetPWMEnabled(false); err != nil {
		m.log.Warn().Err(err).Msg("pwm disable failed")
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
