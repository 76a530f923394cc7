package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// fieldSetter applies one raw string value onto the parameter record.
type fieldSetter func(*Config, string) error

func setInt(get func(*Config) *int) fieldSetter {
	return func(c *Config, raw string) error {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		*get(c) = v
		return nil
	}
}

func setUint(get func(*Config) *uint) fieldSetter {
	return func(c *Config, raw string) error {
		v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
		if err != nil {
			return err
		}
		*get(c) = uint(v)
		return nil
	}
}

func setFloat(get func(*Config) *float64) fieldSetter {
	return func(c *Config, raw string) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return err
		}
		*get(c) = v
		return nil
	}
}

func setString(get func(*Config) *string) fieldSetter {
	return func(c *Config, raw string) error {
		*get(c) = strings.TrimSpace(raw)
		return nil
	}
}

func setBool(get func(*Config) *bool) fieldSetter {
	return func(c *Config, raw string) error {
		*get(c) = strings.EqualFold(strings.TrimSpace(raw), "true")
		return nil
	}
}

// accessoryBindings builds the key set shared by the multi-level banks
// (led2..led5): channel, off_value, on1_value, on2_value, max_value.
func accessoryBindings(get func(*Config) *AccessoryConfig) map[string]fieldSetter {
	return map[string]fieldSetter{
		"channel":   setInt(func(c *Config) *int { return &get(c).Channel }),
		"off_value": setInt(func(c *Config) *int { return &get(c).Off }),
		"on1_value": setInt(func(c *Config) *int { return &get(c).On1 }),
		"on2_value": setInt(func(c *Config) *int { return &get(c).On2 }),
		"max_value": setInt(func(c *Config) *int { return &get(c).Max }),
	}
}

func cameraBindings(get func(*Config) *CameraConfig) map[string]fieldSetter {
	return map[string]fieldSetter{
		"port":                  setInt(func(c *Config) *int { return &get(c).Port }),
		"width":                 setInt(func(c *Config) *int { return &get(c).Width }),
		"height":                setInt(func(c *Config) *int { return &get(c).Height }),
		"framerate_num":         setInt(func(c *Config) *int { return &get(c).FramerateNum }),
		"framerate_den":         setInt(func(c *Config) *int { return &get(c).FramerateDen }),
		"is_h264_native_source": setBool(func(c *Config) *bool { return &get(c).H264NativeSource }),
		"rtp_payload_type":      setInt(func(c *Config) *int { return &get(c).RTPPayloadType }),
		"rtp_config_interval":   setInt(func(c *Config) *int { return &get(c).RTPConfigInterval }),
	}
}

// bindings is the declarative (section, key) -> setter table. Section and
// key names are lowercase; lookups are case-insensitive because the INI
// loader lowercases names before consulting the table. Unknown sections and
// keys are ignored; a value that fails to convert aborts the whole load.
var bindings = map[string]map[string]fieldSetter{
	"pwm": {
		"pwm_min":        setInt(func(c *Config) *int { return &c.PWMMin }),
		"pwm_neutral":    setInt(func(c *Config) *int { return &c.PWMNeutral }),
		"pwm_normal_max": setInt(func(c *Config) *int { return &c.PWMNormalMax }),
		"pwm_boost_max":  setInt(func(c *Config) *int { return &c.PWMBoostMax }),
		"pwm_frequency":  setFloat(func(c *Config) *float64 { return &c.PWMFrequency }),
	},
	"joystick": {
		"deadzone": setInt(func(c *Config) *int { return &c.JoystickDeadzone }),
	},
	"led": {
		"channel":   setInt(func(c *Config) *int { return &c.LED.Channel }),
		"on_value":  setInt(func(c *Config) *int { return &c.LED.On }),
		"off_value": setInt(func(c *Config) *int { return &c.LED.Off }),
	},
	"led2": accessoryBindings(func(c *Config) *AccessoryConfig { return &c.LED2 }),
	"led3": accessoryBindings(func(c *Config) *AccessoryConfig { return &c.LED3 }),
	"led4": accessoryBindings(func(c *Config) *AccessoryConfig { return &c.LED4 }),
	"led5": accessoryBindings(func(c *Config) *AccessoryConfig { return &c.LED5 }),
	"thruster_control": {
		"smoothing_factor_horizontal": setFloat(func(c *Config) *float64 { return &c.SmoothingFactorHorizontal }),
		"smoothing_factor_vertical":   setFloat(func(c *Config) *float64 { return &c.SmoothingFactorVertical }),
		"kp_roll":                     setFloat(func(c *Config) *float64 { return &c.KpRoll }),
		"kp_yaw":                      setFloat(func(c *Config) *float64 { return &c.KpYaw }),
		"yaw_threshold_dps":           setFloat(func(c *Config) *float64 { return &c.YawThresholdDPS }),
		"yaw_gain":                    setFloat(func(c *Config) *float64 { return &c.YawGain }),
	},
	"network": {
		"recv_port":                  setInt(func(c *Config) *int { return &c.NetworkRecvPort }),
		"send_port":                  setInt(func(c *Config) *int { return &c.NetworkSendPort }),
		"client_host":                setString(func(c *Config) *string { return &c.ClientHost }),
		"connection_timeout_seconds": setFloat(func(c *Config) *float64 { return &c.ConnectionTimeoutSeconds }),
	},
	"application": {
		"sensor_send_interval": setUint(func(c *Config) *uint { return &c.SensorSendInterval }),
		"loop_delay_us":        setUint(func(c *Config) *uint { return &c.LoopDelayUS }),
		"status_port":          setInt(func(c *Config) *int { return &c.StatusPort }),
	},
	"gstreamer_camera_1": cameraBindings(func(c *Config) *CameraConfig { return &c.Camera1 }),
	"gstreamer_camera_2": mergeBindings(
		cameraBindings(func(c *Config) *CameraConfig { return &c.Camera2 }),
		map[string]fieldSetter{
			"x264_bitrate":      setInt(func(c *Config) *int { return &c.Camera2.X264Bitrate }),
			"x264_tune":         setString(func(c *Config) *string { return &c.Camera2.X264Tune }),
			"x264_speed_preset": setString(func(c *Config) *string { return &c.Camera2.X264SpeedPreset }),
		},
	),
	"config_sync": {
		"cpp_recv_port": setInt(func(c *Config) *int { return &c.SyncRecvPort }),
		"wpf_host":      setString(func(c *Config) *string { return &c.SyncPeerHost }),
		"wpf_recv_port": setInt(func(c *Config) *int { return &c.SyncPeerPort }),
	},
}

func mergeBindings(maps ...map[string]fieldSetter) map[string]fieldSetter {
	merged := make(map[string]fieldSetter)
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

// Load parses the config file at path into a fresh parameter record starting
// from defaults. Any value that fails type conversion fails the whole load;
// the caller keeps whatever record it already had.
func Load(path string) (Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, path)
	if err != nil {
		return Config{}, fmt.Errorf("open config file %q: %w", path, err)
	}
	return fromFile(file)
}

// Parse parses raw INI text, for callers that already hold the bytes.
func Parse(data []byte) (Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, data)
	if err != nil {
		return Config{}, fmt.Errorf("parse config data: %w", err)
	}
	return fromFile(file)
}

func fromFile(file *ini.File) (Config, error) {
	cfg := Default()
	for _, section := range file.Sections() {
		table, ok := bindings[section.Name()]
		if !ok {
			continue
		}
		for _, key := range section.Keys() {
			setter, ok := table[key.Name()]
			if !ok {
				continue
			}
			if err := setter(&cfg, key.Value()); err != nil {
				return Config{}, fmt.Errorf("config value [%s]%s=%q: %w",
					section.Name(), key.Name(), key.Value(), err)
			}
		}
	}
	return cfg, nil
}
