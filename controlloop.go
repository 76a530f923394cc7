package rovcore

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tetheredrobotics/rovcore/internal/config"
	"github.com/tetheredrobotics/rovcore/internal/gamepad"
	"github.com/tetheredrobotics/rovcore/internal/hardware"
	"github.com/tetheredrobotics/rovcore/internal/logging"
	"github.com/tetheredrobotics/rovcore/internal/netctl"
	"github.com/tetheredrobotics/rovcore/internal/telemetry"
	"github.com/tetheredrobotics/rovcore/internal/thruster"
)

// Phase is the control loop's lifecycle state. Transitions are one-way:
// awaiting contact, then normal operation, then terminating.
type Phase int32

const (
	PhaseAwaitingContact Phase = iota
	PhaseNormal
	PhaseTerminating
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingContact:
		return "awaiting_first_contact"
	case PhaseNormal:
		return "normal"
	case PhaseTerminating:
		return "terminating"
	default:
		return "unknown"
	}
}

// TerminationCause records why the loop ended. Safety causes still exit the
// process with status 0; the surrounding service supervisor restarts it,
// which also force-restarts the external video pipelines cleanly.
type TerminationCause int

const (
	CauseNone TerminationCause = iota
	CauseConnectionTimeout
	CauseRollover
	CauseShutdownRequest
)

func (c TerminationCause) String() string {
	switch c {
	case CauseConnectionTimeout:
		return "connection_timeout"
	case CauseRollover:
		return "rollover"
	case CauseShutdownRequest:
		return "shutdown_request"
	default:
		return "none"
	}
}

// RolloverDetector watches the vertical-acceleration sign tick to tick. A
// flip against the immediately preceding tick means the vehicle inverted,
// which is fatal. The detector seeds on its first sample; an exactly-zero
// reading never counts as a flip.
type RolloverDetector struct {
	prevSign float64
}

// Observe feeds one vertical-acceleration sample and reports whether a sign
// flip occurred.
func (d *RolloverDetector) Observe(accelZ float64) bool {
	sign := math.Copysign(1, accelZ)
	if d.prevSign == 0 {
		d.prevSign = sign
		return false
	}
	flipped := sign != d.prevSign && accelZ != 0
	d.prevSign = sign
	return flipped
}

// ControlLoop is the orchestrator: it owns the failsafe state, polls the
// control channel, drives the mixer and the accessory bank every tick, sends
// telemetry, and applies hot-reloads requested by the sync task. One
// goroutine runs it; every iteration is strictly sequential.
type ControlLoop struct {
	log        *zerolog.Logger
	store      *config.Store
	configPath string
	driver     hardware.Driver
	session    *netctl.Session
	mixer      *thruster.Mixer
	bank       *thruster.Bank
	events     *EventBroadcaster

	phase     atomic.Int32
	sessionID atomic.Value // string, set per operator connection
	stop      atomic.Bool

	rollover    RolloverDetector
	latestPad   gamepad.Sample
	loopCounter uint
}

// NewControlLoop wires the orchestrator. Init of the underlying pieces
// (driver, mixer, session) is the caller's responsibility.
func NewControlLoop(store *config.Store, configPath string, driver hardware.Driver,
	session *netctl.Session, mixer *thruster.Mixer, bank *thruster.Bank,
	events *EventBroadcaster) *ControlLoop {
	l := &ControlLoop{
		log:        logging.GetSubsystemLogger("control-loop"),
		store:      store,
		configPath: configPath,
		driver:     driver,
		session:    session,
		mixer:      mixer,
		bank:       bank,
		events:     events,
	}
	l.sessionID.Store("")
	return l
}

// Phase returns the loop's current phase.
func (l *ControlLoop) Phase() Phase {
	return Phase(l.phase.Load())
}

// SessionID returns the current operator session identifier, or "" before
// first contact.
func (l *ControlLoop) SessionID() string {
	return l.sessionID.Load().(string)
}

// RequestStop asks the loop to terminate at its next iteration. Safe to call
// from a signal handler goroutine.
func (l *ControlLoop) RequestStop() {
	l.stop.Store(true)
}

func (l *ControlLoop) setPhase(p Phase) {
	l.phase.Store(int32(p))
	loopPhaseGauge.Set(float64(p))
	l.events.BroadcastPhaseChange(p)
}

// Run executes the loop until a termination cause occurs and returns it.
// On entry the thrusters are forced to pwm_min and the loop waits for the
// operator's first datagram.
func (l *ControlLoop) Run() TerminationCause {
	startCfg := l.store.Snapshot()
	l.setPhase(PhaseAwaitingContact)
	l.mixer.SetAll(&startCfg, startCfg.PWMMin)
	l.log.Info().Int("pwm_min", startCfg.PWMMin).
		Msg("awaiting first contact, thrusters parked")

	inFailsafe := true
	for {
		loopTicksTotal.Inc()

		// Copy out the parameters this iteration needs; the lock is never
		// held across I/O or mixing.
		cfg := l.store.Snapshot()

		// A reload requested by the sync task reparses the file, not the
		// in-memory section map; the flag clears regardless of outcome and
		// the new record takes effect next iteration.
		if l.store.ConsumeReloadRequest() {
			if reloaded, err := config.Load(l.configPath); err != nil {
				configReloadFailuresTotal.Inc()
				l.log.Warn().Err(err).Msg("config reload failed, keeping previous parameters")
				l.events.BroadcastConfigReload(false)
			} else {
				l.store.Replace(reloaded)
				configReloadsTotal.Inc()
				l.log.Info().Msg("config reloaded")
				l.events.BroadcastConfigReload(true)
			}
		}

		payload, received, err := l.session.Receive()
		if received {
			datagramsReceivedTotal.Inc()
			if inFailsafe {
				inFailsafe = false
				l.sessionID.Store(uuid.NewString())
				l.setPhase(PhaseNormal)
				l.log.Info().Str("session_id", l.SessionID()).
					Msg("connection established, resuming normal operation")

				// One status line per (re)connection so the operator UI
				// starts from the real accessory states.
				status := l.bank.StatusLine()
				if err := l.session.Send([]byte(status)); err != nil {
					l.log.Warn().Err(err).Msg("failed to send accessory status line")
				}
				l.events.BroadcastAccessoryStates(l.bank.States())
			}
			l.latestPad = gamepad.ParseDatagram(string(payload))
		} else {
			if err != nil {
				l.log.Error().Err(err).Msg("control receive error, continuing")
			}
			if l.session.PeerKnown() &&
				l.session.SinceLastReceive() > secondsToDuration(cfg.ConnectionTimeoutSeconds) {
				failsafeEventsTotal.Inc()
				l.log.Error().Float64("timeout_s", cfg.ConnectionTimeoutSeconds).
					Int("pwm_min", cfg.PWMMin).
					Msg("connection timed out, engaging failsafe and terminating")
				l.mixer.SetAll(&cfg, cfg.PWMMin)
				l.latestPad = gamepad.Sample{}
				l.events.BroadcastFailsafe(CauseConnectionTimeout)
				l.setPhase(PhaseTerminating)
				return CauseConnectionTimeout
			}
		}

		if !inFailsafe {
			gyro := l.driver.ReadGyro()
			l.mixer.Update(l.latestPad, gyro, &cfg)
			l.bank.Update(l.latestPad, &cfg)
			for ch := 0; ch < thruster.NumThrusters; ch++ {
				observeThrusterPWM(ch, l.mixer.Current(ch))
			}

			accel := l.driver.ReadAccel()
			if l.rollover.Observe(accel.Z) {
				rolloverEventsTotal.Inc()
				l.log.Error().Float64("accel_z", accel.Z).
					Msg("vertical acceleration sign flipped, vehicle inverted, terminating")
				l.events.BroadcastFailsafe(CauseRollover)
				l.setPhase(PhaseTerminating)
				return CauseRollover
			}

			if l.loopCounter >= cfg.SensorSendInterval {
				l.loopCounter = 0
				reading := telemetry.Read(l.driver)
				line := reading.Line()
				if err := l.session.Send([]byte(line)); err != nil {
					l.log.Warn().Err(err).Msg("telemetry send failed")
				} else {
					telemetryLinesSentTotal.Inc()
				}
				l.events.BroadcastTelemetry(line)
			} else {
				l.loopCounter++
			}
		} else {
			l.loopCounter = 0
		}

		if l.stop.Load() {
			l.log.Info().Msg("shutdown requested, terminating")
			l.setPhase(PhaseTerminating)
			return CauseShutdownRequest
		}

		time.Sleep(time.Duration(cfg.LoopDelayUS) * time.Microsecond)
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
