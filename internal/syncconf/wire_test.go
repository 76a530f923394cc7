package syncconf

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameFormat(t *testing.T) {
	framed := Frame([]byte("[pwm]pwm_min=1100\n"))
	assert.Equal(t, "18\n[pwm]pwm_min=1100\n", string(framed))

	assert.Equal(t, "0\n", string(Frame(nil)))
}

func TestReadFrameRoundTrip(t *testing.T) {
	payload := []byte("[pwm]pwm_min=1100\n[joystick]deadzone=6500\n")

	got, err := ReadFrame(bufio.NewReader(bytes.NewReader(Frame(payload))))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadFrameEmptyPayload(t *testing.T) {
	got, err := ReadFrame(bufio.NewReader(strings.NewReader("0\n")))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadFrameErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no header newline", "17"},
		{"non-numeric header", "abc\npayload"},
		{"negative length", "-5\npayload"},
		{"length too large", "9999999\npayload"},
		{"truncated payload", "10\nshort"},
		{"empty input", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(bufio.NewReader(strings.NewReader(tt.input)))
			assert.Error(t, err)
		})
	}
}

func TestReadFrameToleratesCRLFHeader(t *testing.T) {
	got, err := ReadFrame(bufio.NewReader(strings.NewReader("5\r\nhello")))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}
