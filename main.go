// Package rovcore is the vehicle-side control daemon: it turns operator
// gamepad datagrams into thruster and accessory PWM, streams sensor
// telemetry back, keeps the configuration synchronized with the operator
// station, and terminates the process on safety faults so the service
// supervisor can restart everything, cameras included.
package rovcore

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tetheredrobotics/rovcore/internal/config"
	"github.com/tetheredrobotics/rovcore/internal/hardware"
	"github.com/tetheredrobotics/rovcore/internal/logging"
	"github.com/tetheredrobotics/rovcore/internal/netctl"
	"github.com/tetheredrobotics/rovcore/internal/syncconf"
	"github.com/tetheredrobotics/rovcore/internal/thruster"
	"github.com/tetheredrobotics/rovcore/internal/video"
)

var logger = logging.GetSubsystemLogger("rovcore")

// Main runs the daemon until a safety event or a termination signal. Safety
// exits return normally so the process exits 0 and the supervisor restarts
// it; only initialization failures exit nonzero.
func Main(configPath string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("cannot load configuration")
		os.Exit(1)
	}
	store := config.NewStore(cfg)
	logger.Info().Str("path", configPath).Msg("starting rovcore")

	sections, err := config.LoadSectionStore(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("cannot load configuration sections")
		os.Exit(1)
	}
	synchronizer := syncconf.New(sections, store)
	if err := synchronizer.Start(); err != nil {
		logger.Error().Err(err).Msg("cannot start config synchronizer")
		os.Exit(1)
	}
	defer synchronizer.Stop()

	driver, err := hardware.Open()
	if err != nil {
		logger.Error().Err(err).Msg("cannot open hardware driver")
		os.Exit(1)
	}

	session, err := netctl.Open(cfg.NetworkRecvPort, cfg.ClientHost, cfg.NetworkSendPort)
	if err != nil {
		logger.Error().Err(err).Int("port", cfg.NetworkRecvPort).Msg("cannot open control channel")
		os.Exit(1)
	}
	defer session.Close()

	mixer := thruster.NewMixer(driver)
	if err := mixer.Init(&cfg); err != nil {
		logger.Error().Err(err).Msg("cannot initialize pwm output")
		os.Exit(1)
	}

	// Accessory states survive safety restarts through the snapshot file.
	bank := thruster.NewBank(driver)
	if states, ok := thruster.ConsumeSnapshot(thruster.DefaultSnapshotPath); ok {
		bank.Restore(states)
		logger.Info().Msg("restored accessory states from snapshot")
	}
	bank.Apply(&cfg)

	pipelines := video.NewExecRunner()
	if err := pipelines.Start(&cfg); err != nil {
		logger.Warn().Err(err).Msg("camera pipelines degraded, continuing without full video")
	}
	defer pipelines.Stop()

	events := NewEventBroadcaster()
	loop := NewControlLoop(store, configPath, driver, session, mixer, bank, events)

	webCtx, webCancel := context.WithCancel(context.Background())
	defer webCancel()
	diag := NewDiagnosticsServer(loop, mixer, bank, events)
	go func() {
		if err := diag.Serve(webCtx, cfg.StatusPort); err != nil {
			logger.Warn().Err(err).Msg("diagnostics server failed")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.Info().Str("signal", sig.String()).Msg("termination signal received")
		loop.RequestStop()
	}()

	cause := loop.Run()
	logger.Info().Str("cause", cause.String()).Msg("control loop ended, shutting down")

	if err := thruster.SaveSnapshot(thruster.DefaultSnapshotPath, bank.States()); err != nil {
		logger.Warn().Err(err).Msg("cannot save accessory snapshot")
	}

	final := store.Snapshot()
	mixer.SetAll(&final, final.PWMMin)
	mixer.Disable(&final)
}
