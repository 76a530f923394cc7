package hardware

import "github.com/tetheredrobotics/rovcore/internal/logging"

// Open returns the platform hardware driver. Board bindings (PCA9685 PWM,
// I2C sensor bus) live in a separate out-of-tree package built per target;
// without one linked in, Open falls back to the mock so the daemon still
// runs end to end on a bench machine.
func Open() (Driver, error) {
	if factory != nil {
		return factory()
	}
	logging.GetSubsystemLogger("hardware").Warn().
		Msg("no board driver registered, using mock hardware")
	return NewMockDriver(), nil
}

var factory func() (Driver, error)

// RegisterDriver installs the board driver constructor. Called from an init
// in the platform package selected at build time.
func RegisterDriver(f func() (Driver, error)) {
	factory = f
}
