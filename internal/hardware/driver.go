// Package hardware defines the contract to the vehicle's sensor and PWM
// board. The real driver wraps the board's bindings; the mock implementation
// lets every other package run without hardware.
package hardware

// AxisData is one three-axis sensor sample (accelerometer, gyroscope or
// magnetometer). Gyro axes are rates in deg/s: X is roll, Z is yaw.
type AxisData struct {
	X float64
	Y float64
	Z float64
}

// Driver abstracts the PWM and sensor hardware. Calls are synchronous and
// assumed fast; sensor reads are not time-bounded by the control loop.
// Failures past initialization are not handled gracefully by the control
// core — a boundary limitation inherited from the board bindings.
type Driver interface {
	// PWM control.
	SetPWMEnabled(enabled bool) error
	SetPWMFrequency(hz float64) error
	// SetPWMChannelDuty programs one channel's duty cycle in [0, 1].
	SetPWMChannelDuty(channel int, duty float64) error

	// Sensor reads.
	ReadTemperature() float64
	ReadPressure() float64
	ReadLeak() bool
	ReadADCAll() [4]float64
	ReadAccel() AxisData
	ReadGyro() AxisData
	ReadMag() AxisData
}
