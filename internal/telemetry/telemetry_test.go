package telemetry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tetheredrobotics/rovcore/internal/hardware"
)

func TestReadSweepsEverySensor(t *testing.T) {
	driver := hardware.NewMockDriver()
	driver.Temperature = 21.5
	driver.Pressure = 1013.25
	driver.Leak = true
	driver.ADC = [4]float64{0.1, 0.2, 0.3, 0.4}
	driver.SetAccel(hardware.AxisData{X: 0.01, Y: -0.02, Z: 0.98})
	driver.SetGyro(hardware.AxisData{X: 1, Y: 2, Z: 3})
	driver.Mag = hardware.AxisData{X: 10, Y: 20, Z: 30}

	r := Read(driver)
	assert.Equal(t, 21.5, r.Temperature)
	assert.Equal(t, 1013.25, r.Pressure)
	assert.True(t, r.Leak)
	assert.Equal(t, [4]float64{0.1, 0.2, 0.3, 0.4}, r.ADC)
	assert.Equal(t, hardware.AxisData{X: 0.01, Y: -0.02, Z: 0.98}, r.Accel)
	assert.Equal(t, hardware.AxisData{X: 1, Y: 2, Z: 3}, r.Gyro)
	assert.Equal(t, hardware.AxisData{X: 10, Y: 20, Z: 30}, r.Mag)
}

func TestLineFormat(t *testing.T) {
	r := Reading{
		Temperature: 21.5,
		Pressure:    1013.25,
		Leak:        true,
		ADC:         [4]float64{0.1, 0.2, 0.3, 0.4},
		Accel:       hardware.AxisData{X: 0.01, Y: -0.02, Z: 0.98},
		Gyro:        hardware.AxisData{X: 1, Y: 2, Z: 3},
		Mag:         hardware.AxisData{X: 10, Y: 20, Z: 30},
	}

	line := r.Line()
	assert.Equal(t,
		"TEMP:21.500000,PRESSURE:1013.250000,LEAK:1,"+
			"ADC0:0.100000,ADC1:0.200000,ADC2:0.300000,ADC3:0.400000,"+
			"ACCX:0.010000,ACCY:-0.020000,ACCZ:0.980000,"+
			"GYROX:1.000000,GYROY:2.000000,GYROZ:3.000000,"+
			"MAGX:10.000000,MAGY:20.000000,MAGZ:30.000000",
		line)
}

func TestLineLeakFlag(t *testing.T) {
	dry := Reading{}
	assert.Contains(t, dry.Line(), "LEAK:0")
	assert.False(t, strings.Contains(dry.Line(), "LEAK:1"))

	wet := Reading{Leak: true}
	assert.Contains(t, wet.Line(), "LEAK:1")
}
