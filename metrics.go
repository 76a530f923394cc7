package rovcore

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loopTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rovcore_loop_ticks_total",
		Help: "Total control loop iterations",
	})

	datagramsReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rovcore_control_datagrams_received_total",
		Help: "Total control datagrams received from the operator station",
	})

	telemetryLinesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rovcore_telemetry_lines_sent_total",
		Help: "Total telemetry lines sent to the operator station",
	})

	failsafeEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rovcore_failsafe_events_total",
		Help: "Total connection-timeout failsafe activations",
	})

	rolloverEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rovcore_rollover_events_total",
		Help: "Total fatal vehicle-inversion detections",
	})

	configReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rovcore_config_reloads_total",
		Help: "Total successful configuration hot-reloads",
	})

	configReloadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rovcore_config_reload_failures_total",
		Help: "Total failed configuration hot-reload attempts",
	})

	thrusterPWMMicroseconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rovcore_thruster_pwm_microseconds",
		Help: "Smoothed PWM pulse width currently commanded per thruster channel",
	}, []string{"channel"})

	loopPhaseGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rovcore_loop_phase",
		Help: "Control loop phase (0 awaiting contact, 1 normal, 2 terminating)",
	})
)

func observeThrusterPWM(channel int, pulseWidthUS float64) {
	thrusterPWMMicroseconds.WithLabelValues(strconv.Itoa(channel)).Set(pulseWidthUS)
}
