// Package telemetry reads the full sensor suite and renders the plain-text
// line sent to the operator station.
package telemetry

import (
	"fmt"

	"github.com/tetheredrobotics/rovcore/internal/hardware"
)

// Reading is one complete sensor sweep.
type Reading struct {
	Temperature float64
	Pressure    float64
	Leak        bool
	ADC         [4]float64
	Accel       hardware.AxisData
	Gyro        hardware.AxisData
	Mag         hardware.AxisData
}

// Read sweeps every sensor through the driver.
func Read(driver hardware.Driver) Reading {
	return Reading{
		Temperature: driver.ReadTemperature(),
		Pressure:    driver.ReadPressure(),
		Leak:        driver.ReadLeak(),
		ADC:         driver.ReadADCAll(),
		Accel:       driver.ReadAccel(),
		Gyro:        driver.ReadGyro(),
		Mag:         driver.ReadMag(),
	}
}

// Line renders the reading as the wire format the operator station parses:
// comma-separated LABEL:value pairs, floats with six decimals.
func (r Reading) Line() string {
	leak := 0
	if r.Leak {
		leak = 1
	}
	return fmt.Sprintf(
		"TEMP:%.6f,PRESSURE:%.6f,LEAK:%d,"+
			"ADC0:%.6f,ADC1:%.6f,ADC2:%.6f,ADC3:%.6f,"+
			"ACCX:%.6f,ACCY:%.6f,ACCZ:%.6f,"+
			"GYROX:%.6f,GYROY:%.6f,GYROZ:%.6f,"+
			"MAGX:%.6f,MAGY:%.6f,MAGZ:%.6f",
		r.Temperature, r.Pressure, leak,
		r.ADC[0], r.ADC[1], r.ADC[2], r.ADC[3],
		r.Accel.X, r.Accel.Y, r.Accel.Z,
		r.Gyro.X, r.Gyro.Y, r.Gyro.Z,
		r.Mag.X, r.Mag.Y, r.Mag.Z)
}
