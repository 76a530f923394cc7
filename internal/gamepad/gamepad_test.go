package gamepad

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDatagram(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Sample
	}{
		{
			name:    "full datagram",
			payload: "LX:-32768,LY:100,RX:32767,RY:-200,BTN:32769",
			want: Sample{
				LeftThumbX:  -32768,
				LeftThumbY:  100,
				RightThumbX: 32767,
				RightThumbY: -200,
				Buttons:     ButtonY | ButtonDPadUp,
			},
		},
		{
			name:    "missing tokens stay neutral",
			payload: "LX:5000",
			want:    Sample{LeftThumbX: 5000},
		},
		{
			name:    "empty payload",
			payload: "",
			want:    Sample{},
		},
		{
			name:    "garbage tokens ignored",
			payload: "LX:abc,??,RY:700,:9,BTN:",
			want:    Sample{RightThumbY: 700},
		},
		{
			name:    "whitespace and lowercase tolerated",
			payload: "lx: 123 , btn: 4096",
			want:    Sample{LeftThumbX: 123, Buttons: ButtonA},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDatagram(tt.payload))
		})
	}
}

func TestButtonsPressed(t *testing.T) {
	mask := ButtonY | ButtonDPadLeft
	assert.True(t, mask.Pressed(ButtonY))
	assert.True(t, mask.Pressed(ButtonDPadLeft))
	assert.False(t, mask.Pressed(ButtonDPadRight))
	assert.False(t, Buttons(0).Pressed(ButtonA))
}
