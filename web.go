package rovcore

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tetheredrobotics/rovcore/internal/logging"
	"github.com/tetheredrobotics/rovcore/internal/thruster"
)

var webLogger = logging.GetSubsystemLogger("web")

// DiagnosticsServer exposes read-only observability over HTTP: health,
// Prometheus metrics, a JSON status snapshot, and a WebSocket event stream.
// It never accepts commands; control stays on the UDP channel.
type DiagnosticsServer struct {
	log    *zerolog.Logger
	loop   *ControlLoop
	mixer  *thruster.Mixer
	bank   *thruster.Bank
	events *EventBroadcaster
}

// NewDiagnosticsServer wires the server over the running loop's state.
func NewDiagnosticsServer(loop *ControlLoop, mixer *thruster.Mixer, bank *thruster.Bank, events *EventBroadcaster) *DiagnosticsServer {
	return &DiagnosticsServer{
		log:    webLogger,
		loop:   loop,
		mixer:  mixer,
		bank:   bank,
		events: events,
	}
}

func (d *DiagnosticsServer) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/status", d.handleStatus)
	r.GET("/events", d.handleEvents)

	return r
}

func (d *DiagnosticsServer) handleStatus(c *gin.Context) {
	states := d.bank.States()
	accessories := make([]string, len(states))
	for i, s := range states {
		accessories[i] = s.String()
	}

	pwm := make(map[string]float64, thruster.NumThrusters)
	for ch := 0; ch < thruster.NumThrusters; ch++ {
		pwm[strconv.Itoa(ch)] = d.mixer.Current(ch)
	}

	c.JSON(http.StatusOK, gin.H{
		"phase":       d.loop.Phase().String(),
		"session_id":  d.loop.SessionID(),
		"accessories": accessories,
		"thruster_us": pwm,
	})
}

func (d *DiagnosticsServer) handleEvents(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		d.log.Warn().Err(err).Msg("events websocket accept failed")
		return
	}

	connectionID := uuid.NewString()
	ctx := c.Request.Context()
	connLogger := d.log.With().Str("connectionID", connectionID).Logger()

	d.events.Subscribe(connectionID, conn, ctx, &connLogger)
	defer d.events.Unsubscribe(connectionID)

	// Drain the read side so pings are answered and closure is noticed;
	// subscribers are write-only otherwise.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

// Serve runs the HTTP server until ctx is canceled.
func (d *DiagnosticsServer) Serve(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: d.setupRouter(),
	}

	errChan := make(chan error, 1)
	go func() {
		d.log.Info().Int("port", port).Msg("diagnostics server listening")
		errChan <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = srv.Close()
		return nil
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
