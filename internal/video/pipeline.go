// Package video launches and stops the external GStreamer camera pipelines.
// The control core never touches frames; it only supervises the processes so
// a process restart also restarts the video cleanly.
package video

import (
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tetheredrobotics/rovcore/internal/config"
	"github.com/tetheredrobotics/rovcore/internal/logging"
)

// Runner starts and stops the camera pipelines.
type Runner interface {
	Start(cfg *config.Config) error
	Stop()
}

// PipelineArgs builds the gst-launch-1.0 argument list for one camera. A
// native H.264 camera is passed through h264parse; anything else goes
// through videoconvert and x264enc. The RTP stream targets the operator
// station host on the camera's port.
func PipelineArgs(cam config.CameraConfig, host string) []string {
	caps := fmt.Sprintf("width=%d,height=%d,framerate=%d/%d",
		cam.Width, cam.Height, cam.FramerateNum, cam.FramerateDen)

	args := []string{"v4l2src", "device=" + cam.Device, "!"}
	if cam.H264NativeSource {
		args = append(args, "video/x-h264,"+caps, "!", "h264parse", "!")
	} else {
		args = append(args,
			"video/x-raw,"+caps, "!",
			"videoconvert", "!",
			fmt.Sprintf("x264enc bitrate=%d tune=%s speed-preset=%s",
				cam.X264Bitrate, cam.X264Tune, cam.X264SpeedPreset), "!",
			"h264parse", "!",
		)
	}
	args = append(args,
		fmt.Sprintf("rtph264pay pt=%d config-interval=%d", cam.RTPPayloadType, cam.RTPConfigInterval), "!",
		fmt.Sprintf("udpsink host=%s port=%d", host, cam.Port),
	)
	return args
}

// pipelineOutput forwards gst-launch output into the structured log.
type pipelineOutput struct {
	logger *zerolog.Logger
}

func (p *pipelineOutput) Write(b []byte) (int, error) {
	p.logger.Debug().Str("output", string(b)).Msg("gstreamer output")
	return len(b), nil
}

// ExecRunner runs both camera pipelines as gst-launch-1.0 processes.
type ExecRunner struct {
	log *zerolog.Logger

	mu   sync.Mutex
	cmds []*exec.Cmd
}

// NewExecRunner creates a runner that shells out to gst-launch-1.0.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{log: logging.GetSubsystemLogger("video")}
}

// Start launches both camera pipelines. A camera that fails to launch is
// logged and skipped; the vehicle still drives without video.
func (r *ExecRunner) Start(cfg *config.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for i, cam := range []config.CameraConfig{cfg.Camera1, cfg.Camera2} {
		args := PipelineArgs(cam, cfg.ClientHost)
		cmd := exec.Command("gst-launch-1.0", args...)
		cmd.Stdout = &pipelineOutput{logger: r.log}
		cmd.Stderr = &pipelineOutput{logger: r.log}
		if err := cmd.Start(); err != nil {
			r.log.Error().Err(err).Int("camera", i+1).Msg("failed to start camera pipeline")
			if firstErr == nil {
				firstErr = fmt.Errorf("camera %d pipeline: %w", i+1, err)
			}
			continue
		}
		r.log.Info().Int("camera", i+1).Int("pid", cmd.Process.Pid).
			Str("device", cam.Device).Int("port", cam.Port).Msg("camera pipeline started")
		r.cmds = append(r.cmds, cmd)
	}
	return firstErr
}

// Stop terminates the pipelines, escalating to SIGKILL if a process ignores
// SIGTERM.
func (r *ExecRunner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cmd := range r.cmds {
		if cmd.Process == nil {
			continue
		}
		pid := cmd.Process.Pid
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			r.log.Warn().Err(err).Int("pid", pid).Msg("failed to signal pipeline")
		}
		done := make(chan struct{})
		go func(c *exec.Cmd) {
			_ = c.Wait()
			close(done)
		}(cmd)
		select {
		case <-done:
			r.log.Info().Int("pid", pid).Msg("camera pipeline stopped")
		case <-time.After(2 * time.Second):
			r.log.Warn().Int("pid", pid).Msg("camera pipeline did not exit, killing")
			_ = cmd.Process.Kill()
		}
	}
	r.cmds = nil
}

// NopRunner satisfies Runner without launching anything; used in tests and
// on bench setups without cameras.
type NopRunner struct{}

func (NopRunner) Start(*config.Config) error { return nil }
func (NopRunner) Stop()                      {}
