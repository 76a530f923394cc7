package hardware

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tetheredrobotics/rovcore/internal/logging"
)

// MockDriver records every PWM write and serves canned sensor samples. It is
// the hardware stand-in for unit tests and bench runs.
type MockDriver struct {
	mu  sync.Mutex
	log *zerolog.Logger

	// Recorded PWM state.
	pwmEnabled bool
	frequency  float64
	duties     map[int]float64
	dutyLog    []DutyWrite

	// Canned sensor values, settable from tests.
	Temperature float64
	Pressure    float64
	Leak        bool
	ADC         [4]float64
	Accel       AxisData
	Gyro        AxisData
	Mag         AxisData

	// Behavior controls.
	ShouldFailEnable    bool
	ShouldFailFrequency bool
	ShouldFailDuty      bool
}

var _ Driver = (*MockDriver)(nil)

// DutyWrite is one recorded SetPWMChannelDuty call.
type DutyWrite struct {
	Channel int
	Duty    float64
}

// NewMockDriver creates a mock driver with neutral sensor values.
func NewMockDriver() *MockDriver {
	return &MockDriver{
		log:    logging.GetSubsystemLogger("mock-driver"),
		duties: make(map[int]float64),
	}
}

func (m *MockDriver) SetPWMEnabled(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFailEnable {
		return fmt.Errorf("mock pwm enable failure")
	}
	m.pwmEnabled = enabled
	m.log.Debug().Bool("enabled", enabled).Msg("mock pwm enable")
	return nil
}

func (m *MockDriver) SetPWMFrequency(hz float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFailFrequency {
		return fmt.Errorf("mock pwm frequency failure")
	}
	m.frequency = hz
	return nil
}

func (m *MockDriver) SetPWMChannelDuty(channel int, duty float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFailDuty {
		return fmt.Errorf("mock pwm duty failure")
	}
	m.duties[channel] = duty
	m.dutyLog = append(m.dutyLog, DutyWrite{Channel: channel, Duty: duty})
	return nil
}

func (m *MockDriver) ReadTemperature() float64 { m.mu.Lock(); defer m.mu.Unlock(); return m.Temperature }
func (m *MockDriver) ReadPressure() float64    { m.mu.Lock(); defer m.mu.Unlock(); return m.Pressure }
func (m *MockDriver) ReadLeak() bool           { m.mu.Lock(); defer m.mu.Unlock(); return m.Leak }
func (m *MockDriver) ReadADCAll() [4]float64   { m.mu.Lock(); defer m.mu.Unlock(); return m.ADC }
func (m *MockDriver) ReadAccel() AxisData      { m.mu.Lock(); defer m.mu.Unlock(); return m.Accel }
func (m *MockDriver) ReadGyro() AxisData       { m.mu.Lock(); defer m.mu.Unlock(); return m.Gyro }
func (m *MockDriver) ReadMag() AxisData        { m.mu.Lock(); defer m.mu.Unlock(); return m.Mag }

// SetGyro replaces the canned gyro sample.
func (m *MockDriver) SetGyro(sample AxisData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gyro = sample
}

// SetAccel replaces the canned accelerometer sample.
func (m *MockDriver) SetAccel(sample AxisData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Accel = sample
}

// IsPWMEnabled reports the recorded enable state.
func (m *MockDriver) IsPWMEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pwmEnabled
}

// Frequency reports the recorded PWM frequency.
func (m *MockDriver) Frequency() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frequency
}

// Duty reports the last duty cycle written to channel.
func (m *MockDriver) Duty(channel int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duties[channel]
}

// PulseWidth converts the last duty written to channel back into a pulse
// width in microseconds, using the recorded frequency.
func (m *MockDriver) PulseWidth(channel int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frequency == 0 {
		return 0
	}
	return m.duties[channel] * (1e6 / m.frequency)
}

// DutyWrites returns a copy of every duty write in order.
func (m *MockDriver) DutyWrites() []DutyWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DutyWrite, len(m.dutyLog))
	copy(out, m.dutyLog)
	return out
}
