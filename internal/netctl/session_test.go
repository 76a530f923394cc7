package netctl

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiveNonBlockingWhenEmpty(t *testing.T) {
	s, err := Open(0, "127.0.0.1", 1)
	require.NoError(t, err)
	defer s.Close()

	start := time.Now()
	payload, received, err := s.Receive()
	require.NoError(t, err)
	assert.False(t, received)
	assert.Nil(t, payload)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "empty receive must not block")

	assert.False(t, s.PeerKnown())
	assert.Equal(t, time.Duration(0), s.SinceLastReceive())
}

func TestReceiveRecordsPeer(t *testing.T) {
	s, err := Open(0, "127.0.0.1", 1)
	require.NoError(t, err)
	defer s.Close()

	sender, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: s.LocalAddr().Port})
	require.NoError(t, err)
	defer sender.Close()

	_, err = sender.Write([]byte("LX:100,LY:0,RX:0,RY:0,BTN:0"))
	require.NoError(t, err)

	var payload []byte
	var received bool
	require.Eventually(t, func() bool {
		payload, received, err = s.Receive()
		require.NoError(t, err)
		return received
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "LX:100,LY:0,RX:0,RY:0,BTN:0", string(payload))
	assert.True(t, s.PeerKnown())
	assert.Less(t, s.SinceLastReceive(), time.Second)
}

func TestSendTargetsConfiguredStation(t *testing.T) {
	// Stand in for the operator station's receive socket.
	station, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer station.Close()
	stationPort := station.LocalAddr().(*net.UDPAddr).Port

	s, err := Open(0, "127.0.0.1", stationPort)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Send([]byte("TEMP:21.000000")))

	require.NoError(t, station.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 64)
	n, _, err := station.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "TEMP:21.000000", string(buf[:n]))
}

func TestOpenBadAddress(t *testing.T) {
	_, err := Open(0, "300.300.300.300", 1)
	assert.Error(t, err)
}
