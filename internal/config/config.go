// Package config holds the vehicle's tunable parameter record, the
// declarative INI binding that fills it, the mutex-guarded store shared by
// the control loop and the sync task, and the ordered section map that backs
// the sync wire protocol and the persisted file.
package config

// AccessoryConfig describes one cyclic PWM output bank: its channel and the
// pulse widths for each reachable state. Off/On cover the simple toggle
// accessory; On1/On2/Max cover the multi-level banks.
type AccessoryConfig struct {
	Channel int
	Off     int
	On      int
	On1     int
	On2     int
	Max     int
}

// CameraConfig describes one GStreamer camera pipeline.
type CameraConfig struct {
	Device            string
	Port              int
	Width             int
	Height            int
	FramerateNum      int
	FramerateDen      int
	H264NativeSource  bool
	RTPPayloadType    int
	RTPConfigInterval int
	X264Bitrate       int
	X264Tune          string
	X264SpeedPreset   string
}

// Config is the complete parameter record. It is only ever replaced
// wholesale through Store.Replace after a fully successful parse.
type Config struct {
	// PWM limits and output frequency.
	PWMMin       int
	PWMNeutral   int
	PWMNormalMax int
	PWMBoostMax  int
	PWMFrequency float64

	// Joystick.
	JoystickDeadzone int

	// Accessory banks, in button order: Y, DPad up/down/left/right.
	LED  AccessoryConfig
	LED2 AccessoryConfig
	LED3 AccessoryConfig
	LED4 AccessoryConfig
	LED5 AccessoryConfig

	// Mixing coefficients.
	SmoothingFactorHorizontal float64
	SmoothingFactorVertical   float64
	KpRoll                    float64
	KpYaw                     float64
	YawThresholdDPS           float64
	YawGain                   float64

	// Control channel.
	NetworkRecvPort          int
	NetworkSendPort          int
	ClientHost               string
	ConnectionTimeoutSeconds float64

	// Loop timing and diagnostics.
	SensorSendInterval uint
	LoopDelayUS        uint
	StatusPort         int

	// Camera pipelines.
	Camera1 CameraConfig
	Camera2 CameraConfig

	// Configuration synchronization peer.
	SyncRecvPort int
	SyncPeerHost string
	SyncPeerPort int
}

// Default returns the parameter record with factory defaults. These match
// the values the vehicle shipped with; the config file overrides them.
func Default() Config {
	return Config{
		PWMMin:       1100,
		PWMNeutral:   1500,
		PWMNormalMax: 1900,
		PWMBoostMax:  1900,
		PWMFrequency: 50.0,

		JoystickDeadzone: 6500,

		LED:  AccessoryConfig{Channel: 9, Off: 1100, On: 1900},
		LED2: AccessoryConfig{Channel: 10, Off: 1100, On1: 1300, On2: 1600, Max: 1900},
		LED3: AccessoryConfig{Channel: 11, Off: 1100, On1: 1300, On2: 1600, Max: 1900},
		LED4: AccessoryConfig{Channel: 12, Off: 1100, On1: 1300, On2: 1600, Max: 1900},
		LED5: AccessoryConfig{Channel: 13, Off: 1100, On1: 1300, On2: 1600, Max: 1900},

		SmoothingFactorHorizontal: 0.08,
		SmoothingFactorVertical:   0.04,
		KpRoll:                    0.2,
		KpYaw:                     0.15,
		YawThresholdDPS:           0.5,
		YawGain:                   1000.0,

		NetworkRecvPort:          12345,
		NetworkSendPort:          12346,
		ClientHost:               "192.168.4.10",
		ConnectionTimeoutSeconds: 0.2,

		SensorSendInterval: 10,
		LoopDelayUS:        10000,
		StatusPort:         8086,

		Camera1: CameraConfig{
			Device:            "/dev/video2",
			Port:              5000,
			Width:             1280,
			Height:            720,
			FramerateNum:      30,
			FramerateDen:      1,
			H264NativeSource:  true,
			RTPPayloadType:    96,
			RTPConfigInterval: 1,
		},
		Camera2: CameraConfig{
			Device:            "/dev/video6",
			Port:              5001,
			Width:             1280,
			Height:            720,
			FramerateNum:      30,
			FramerateDen:      1,
			H264NativeSource:  false,
			RTPPayloadType:    96,
			RTPConfigInterval: 1,
			X264Bitrate:       5000,
			X264Tune:          "zerolatency",
			X264SpeedPreset:   "superfast",
		},

		SyncRecvPort: 12348,
		SyncPeerHost: "192.168.4.10",
		SyncPeerPort: 12347,
	}
}
