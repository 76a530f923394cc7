// Package netctl owns the UDP control channel to the operator station:
// non-blocking datagram receive, peer tracking and telemetry send.
package netctl

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tetheredrobotics/rovcore/internal/logging"
)

// recvBufferSize bounds one control datagram.
const recvBufferSize = 1024

// Session is the control-channel socket plus the state that gates failsafe
// evaluation: whether a peer was ever observed and when it last spoke.
// Outbound lines go to the fixed operator-station address, not back to the
// datagram source.
type Session struct {
	log      *zerolog.Logger
	conn     *net.UDPConn
	sendAddr *net.UDPAddr
	buf      [recvBufferSize]byte

	mu       sync.Mutex
	peer     *net.UDPAddr
	lastRecv time.Time
}

// Open binds the control socket on recvPort and resolves the outbound
// telemetry destination.
func Open(recvPort int, sendHost string, sendPort int) (*Session, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: recvPort})
	if err != nil {
		return nil, fmt.Errorf("bind control socket on port %d: %w", recvPort, err)
	}
	sendAddr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(sendHost, fmt.Sprintf("%d", sendPort)))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("resolve send address %s:%d: %w", sendHost, sendPort, err)
	}
	log := logging.GetSubsystemLogger("netctl")
	log.Info().Int("recv_port", recvPort).Str("send_addr", sendAddr.String()).
		Msg("control socket listening")
	return &Session{log: log, conn: conn, sendAddr: sendAddr}, nil
}

// Receive polls for one pending datagram without blocking. It returns
// (payload, true) when a datagram was read — recording the sender as the
// session peer and stamping the receive time — and (nil, false) when nothing
// was pending. An error is returned only for failures other than an empty
// socket; those are transient and the caller keeps looping.
func (s *Session) Receive() ([]byte, bool, error) {
	if err := s.conn.SetReadDeadline(time.Now()); err != nil {
		return nil, false, err
	}
	n, addr, err := s.conn.ReadFromUDP(s.buf[:])
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, false, nil
		}
		return nil, false, err
	}

	s.mu.Lock()
	s.peer = addr
	s.lastRecv = time.Now()
	s.mu.Unlock()

	payload := make([]byte, n)
	copy(payload, s.buf[:n])
	return payload, true, nil
}

// Send transmits payload to the operator station.
func (s *Session) Send(payload []byte) error {
	if _, err := s.conn.WriteToUDP(payload, s.sendAddr); err != nil {
		return fmt.Errorf("send to %s: %w", s.sendAddr, err)
	}
	return nil
}

// PeerKnown reports whether any datagram has ever been received. No failsafe
// timeout fires before this is true.
func (s *Session) PeerKnown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer != nil
}

// SinceLastReceive returns the elapsed time since the last successful
// receive, or zero when no peer was ever observed.
func (s *Session) SinceLastReceive() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peer == nil {
		return 0
	}
	return time.Since(s.lastRecv)
}

// LocalAddr returns the bound control socket address, which carries the
// effective port when Open was given port 0.
func (s *Session) LocalAddr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Close releases the control socket.
func (s *Session) Close() error {
	return s.conn.Close()
}
