package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSections(t *testing.T, data string) *SectionStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	s, err := NewSectionStore(path, []byte(data))
	require.NoError(t, err)
	return s
}

func TestSectionStoreGetCaseInsensitive(t *testing.T) {
	s := newTestSections(t, "[CONFIG_SYNC]\nWPF_HOST = 192.168.4.10\n")

	v, ok := s.Get("config_sync", "wpf_host")
	require.True(t, ok)
	assert.Equal(t, "192.168.4.10", v)

	v, ok = s.Get("Config_Sync", "WPF_Host")
	require.True(t, ok)
	assert.Equal(t, "192.168.4.10", v)

	_, ok = s.Get("config_sync", "missing")
	assert.False(t, ok)
	_, ok = s.Get("missing", "wpf_host")
	assert.False(t, ok)
}

func TestSectionStoreUpsertPreservesSpelling(t *testing.T) {
	s := newTestSections(t, "[PWM]\nPWM_MIN = 1100\n")

	s.Upsert("pwm", "pwm_min", "1150")
	v, ok := s.Get("pwm", "pwm_min")
	require.True(t, ok)
	assert.Equal(t, "1150", v)

	// The stored spelling survives the update.
	payload := string(s.WirePayload())
	assert.Contains(t, payload, "[PWM]PWM_MIN=1150")
}

func TestWirePayloadFormat(t *testing.T) {
	s := newTestSections(t, "[pwm]\npwm_min = 1100\npwm_neutral = 1500\n\n[joystick]\ndeadzone = 6500\n")

	payload := string(s.WirePayload())
	lines := strings.Split(strings.TrimRight(payload, "\n"), "\n")
	assert.Equal(t, []string{
		"[pwm]pwm_min=1100",
		"[pwm]pwm_neutral=1500",
		"[joystick]deadzone=6500",
	}, lines)
}

func TestApplyWireLines(t *testing.T) {
	s := newTestSections(t, "[pwm]\npwm_min = 1100\n")

	applied := s.ApplyWireLines("[pwm]pwm_min=1200\n[joystick]deadzone=7000\n")
	assert.Equal(t, 2, applied)

	v, _ := s.Get("pwm", "pwm_min")
	assert.Equal(t, "1200", v)
	v, _ = s.Get("joystick", "deadzone")
	assert.Equal(t, "7000", v)
}

func TestApplyWireLinesSkipsMalformed(t *testing.T) {
	s := newTestSections(t, "[pwm]\npwm_min = 1100\n")

	tests := []struct {
		name    string
		payload string
		applied int
	}{
		{"no opening bracket", "pwm]pwm_min=1200\n", 0},
		{"no closing bracket", "[pwm pwm_min=1200\n", 0},
		{"no equals", "[pwm]pwm_min 1200\n", 0},
		{"empty section", "[]pwm_min=1200\n", 0},
		{"empty key", "[pwm]=1200\n", 0},
		{"blank lines only", "\n\n\n", 0},
		{"good line among bad", "garbage\n[pwm]pwm_min=1300\nmore garbage\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.applied, s.ApplyWireLines(tt.payload))
		})
	}

	// Only the one good line took effect.
	v, _ := s.Get("pwm", "pwm_min")
	assert.Equal(t, "1300", v)
}

func TestApplyWireLinesValueMayContainEquals(t *testing.T) {
	s := newTestSections(t, "[network]\nclient_host = 192.168.4.10\n")

	applied := s.ApplyWireLines("[network]client_host=a=b\n")
	assert.Equal(t, 1, applied)
	v, _ := s.Get("network", "client_host")
	assert.Equal(t, "a=b", v)
}

func TestWirePayloadRoundTrip(t *testing.T) {
	src := newTestSections(t, "[pwm]\npwm_min = 1100\npwm_frequency = 50.0\n\n[network]\nclient_host = 192.168.4.10\n")
	payload := src.WirePayload()

	dst := newTestSections(t, "")
	applied := dst.ApplyWireLines(string(payload))
	assert.Equal(t, 3, applied)
	assert.Equal(t, payload, dst.WirePayload(), "serialize-apply-serialize must reproduce the key/value set")
}

func TestSectionStoreSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte("[pwm]\npwm_min = 1100\n"), 0o644))

	s, err := LoadSectionStore(path)
	require.NoError(t, err)

	s.Upsert("pwm", "pwm_min", "1250")
	require.NoError(t, s.Save())

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1250, cfg.PWMMin)
}
