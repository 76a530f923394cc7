// Package syncconf keeps the operator station and the local parameter store
// consistent: it pushes the current configuration once at startup, then
// serves inbound parameter updates, persisting them and signaling the
// control loop to hot-reload.
package syncconf

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/tetheredrobotics/rovcore/internal/config"
	"github.com/tetheredrobotics/rovcore/internal/logging"
)

var (
	syncPushAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rovcore_sync_push_attempts_total",
		Help: "Total outbound configuration push attempts",
	})
	syncPushFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rovcore_sync_push_failures_total",
		Help: "Total failed outbound configuration push attempts",
	})
	syncUpdatesAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rovcore_sync_updates_applied_total",
		Help: "Total configuration items applied from inbound sync payloads",
	})
)

const (
	// pushRetryInterval separates outbound push attempts; the shutdown flag
	// is still polled every second within it.
	pushRetryInterval = 5 * time.Second

	// pollInterval is the longest any wait in the task may last before the
	// shutdown flag is re-checked. It also bounds a connected peer that
	// stops sending mid-payload.
	pollInterval = 1 * time.Second

	stopTimeout = 5 * time.Second
)

// Synchronizer is the configuration synchronization task. It runs for the
// process lifetime as a single goroutine: a retrying push phase followed by
// an accept loop serving one connection at a time.
type Synchronizer struct {
	log      *zerolog.Logger
	sections *config.SectionStore
	store    *config.Store

	running  int32
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a synchronizer over the section map backing the config file.
// Inbound updates are persisted through sections and announced to the
// control loop through store's reload flag.
func New(sections *config.SectionStore, store *config.Store) *Synchronizer {
	return &Synchronizer{
		log:      logging.GetSubsystemLogger("config-sync"),
		sections: sections,
		store:    store,
	}
}

// Start launches the task goroutine.
func (s *Synchronizer) Start() error {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return fmt.Errorf("config synchronizer already running")
	}
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	go s.run()
	s.log.Info().Msg("config synchronizer started")
	return nil
}

// Stop requests shutdown and blocks until the task goroutine returns. The
// join is bounded by the task's poll granularity plus any in-flight
// connection's receive deadline.
func (s *Synchronizer) Stop() {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return
	}
	close(s.stopChan)
	select {
	case <-s.done:
		s.log.Info().Msg("config synchronizer stopped")
	case <-time.After(stopTimeout):
		s.log.Warn().Msg("config synchronizer did not stop in time")
	}
}

func (s *Synchronizer) stopping() bool {
	select {
	case <-s.stopChan:
		return true
	default:
		return false
	}
}

func (s *Synchronizer) run() {
	defer close(s.done)

	// Push the current configuration until the peer takes it, then serve
	// updates for the rest of the process lifetime.
	for !s.stopping() {
		syncPushAttemptsTotal.Inc()
		if err := s.pushConfig(); err != nil {
			syncPushFailuresTotal.Inc()
			s.log.Warn().Err(err).Dur("retry_in", pushRetryInterval).Msg("initial config push failed")
			s.sleepInterruptibly(pushRetryInterval)
			continue
		}
		s.log.Info().Msg("initial configuration pushed")
		break
	}

	if !s.stopping() {
		s.serveUpdates()
	}
}

// sleepInterruptibly waits for d, polling the shutdown flag every second.
func (s *Synchronizer) sleepInterruptibly(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		select {
		case <-s.stopChan:
			return
		case <-time.After(pollInterval):
		}
	}
}

// peerAddr resolves the push target from the section map.
func (s *Synchronizer) peerAddr() (string, error) {
	host, ok := s.sections.Get("config_sync", "wpf_host")
	if !ok {
		return "", fmt.Errorf("wpf_host not present in config")
	}
	rawPort, ok := s.sections.Get("config_sync", "wpf_recv_port")
	if !ok {
		return "", fmt.Errorf("wpf_recv_port not present in config")
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return "", fmt.Errorf("bad wpf_recv_port %q: %w", rawPort, err)
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// pushConfig sends the full section map, length-prefixed, to the peer.
func (s *Synchronizer) pushConfig() error {
	addr, err := s.peerAddr()
	if err != nil {
		return err
	}
	conn, err := net.DialTimeout("tcp", addr, pollInterval)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(pollInterval)); err != nil {
		return err
	}
	if _, err := conn.Write(Frame(s.sections.WirePayload())); err != nil {
		return fmt.Errorf("push config to %s: %w", addr, err)
	}
	return nil
}

// serveUpdates accepts inbound update connections until shutdown, one at a
// time, with a one-second accept deadline so the shutdown flag is observed
// promptly.
func (s *Synchronizer) serveUpdates() {
	rawPort, ok := s.sections.Get("config_sync", "cpp_recv_port")
	if !ok {
		s.log.Error().Msg("cpp_recv_port not present in config, not serving updates")
		return
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		s.log.Error().Str("value", rawPort).Msg("bad cpp_recv_port, not serving updates")
		return
	}

	listener, err := net.ListenTCP("tcp", &net.TCPAddr{Port: port})
	if err != nil {
		s.log.Error().Err(err).Int("port", port).Msg("cannot listen for config updates")
		return
	}
	defer listener.Close()
	s.log.Info().Int("port", port).Msg("listening for config updates")

	for !s.stopping() {
		if err := listener.SetDeadline(time.Now().Add(pollInterval)); err != nil {
			s.log.Error().Err(err).Msg("listener deadline failed")
			return
		}
		conn, err := listener.Accept()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}
		s.handleConnection(conn)
	}
}

// handleConnection reads one framed payload and applies it. The receive
// deadline bounds a peer that connects but never sends, so shutdown is never
// blocked on a dead connection.
func (s *Synchronizer) handleConnection(conn net.Conn) {
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
		s.log.Warn().Err(err).Msg("read deadline failed")
		return
	}
	payload, err := ReadFrame(bufio.NewReader(conn))
	if err != nil {
		s.log.Warn().Err(err).Str("peer", conn.RemoteAddr().String()).Msg("bad sync payload")
		return
	}
	if s.stopping() {
		return
	}

	applied := s.sections.ApplyWireLines(string(payload))
	if applied == 0 {
		return
	}
	syncUpdatesAppliedTotal.Add(float64(applied))
	s.log.Info().Int("items", applied).Msg("applied config updates")

	if err := s.sections.Save(); err != nil {
		s.log.Error().Err(err).Msg("persisting updated config failed")
	}
	s.store.RequestReload()
}
