package rovcore

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/tetheredrobotics/rovcore/internal/logging"
	"github.com/tetheredrobotics/rovcore/internal/thruster"
)

// EventType labels the diagnostics events pushed to WebSocket subscribers.
type EventType string

const (
	EventPhaseChange     EventType = "phase-change"
	EventConfigReload    EventType = "config-reload"
	EventFailsafe        EventType = "failsafe"
	EventAccessoryStates EventType = "accessory-states"
	EventTelemetry       EventType = "telemetry"
)

// Event is one WebSocket diagnostics event.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// PhaseChangeData carries a loop phase transition.
type PhaseChangeData struct {
	Phase string `json:"phase"`
}

// ConfigReloadData carries the outcome of a hot-reload attempt.
type ConfigReloadData struct {
	Success bool `json:"success"`
}

// FailsafeData carries the cause of a safety shutdown.
type FailsafeData struct {
	Cause string `json:"cause"`
}

// AccessoryStatesData carries the five accessory state tokens in bank order.
type AccessoryStatesData struct {
	States [thruster.NumAccessories]string `json:"states"`
}

// TelemetryData carries one telemetry line as sent to the operator station.
type TelemetryData struct {
	Line string `json:"line"`
}

// eventSubscriber is one WebSocket connection subscribed to events.
type eventSubscriber struct {
	conn   *websocket.Conn
	ctx    context.Context
	logger *zerolog.Logger
}

// EventBroadcaster fans diagnostics events out to WebSocket subscribers.
// Slow or dead subscribers are dropped; the control loop never blocks on
// them.
type EventBroadcaster struct {
	subscribers map[string]*eventSubscriber
	mutex       sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBroadcaster creates an empty broadcaster.
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		subscribers: make(map[string]*eventSubscriber),
		logger:      logging.GetSubsystemLogger("events"),
	}
}

// Subscribe adds a WebSocket connection to receive events.
func (eb *EventBroadcaster) Subscribe(connectionID string, conn *websocket.Conn, ctx context.Context, logger *zerolog.Logger) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	eb.subscribers[connectionID] = &eventSubscriber{
		conn:   conn,
		ctx:    ctx,
		logger: logger,
	}
	eb.logger.Info().Str("connectionID", connectionID).Msg("events subscription added")
}

// Unsubscribe removes a WebSocket connection.
func (eb *EventBroadcaster) Unsubscribe(connectionID string) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	delete(eb.subscribers, connectionID)
	eb.logger.Info().Str("connectionID", connectionID).Msg("events subscription removed")
}

// BroadcastPhaseChange announces a loop phase transition.
func (eb *EventBroadcaster) BroadcastPhaseChange(phase Phase) {
	eb.broadcast(Event{Type: EventPhaseChange, Data: PhaseChangeData{Phase: phase.String()}})
}

// BroadcastConfigReload announces the outcome of a hot-reload attempt.
func (eb *EventBroadcaster) BroadcastConfigReload(success bool) {
	eb.broadcast(Event{Type: EventConfigReload, Data: ConfigReloadData{Success: success}})
}

// BroadcastFailsafe announces a safety shutdown and its cause.
func (eb *EventBroadcaster) BroadcastFailsafe(cause TerminationCause) {
	eb.broadcast(Event{Type: EventFailsafe, Data: FailsafeData{Cause: cause.String()}})
}

// BroadcastAccessoryStates announces the accessory bank's current states.
func (eb *EventBroadcaster) BroadcastAccessoryStates(states [thruster.NumAccessories]thruster.AccessoryState) {
	var data AccessoryStatesData
	for i, s := range states {
		data.States[i] = s.String()
	}
	eb.broadcast(Event{Type: EventAccessoryStates, Data: data})
}

// BroadcastTelemetry mirrors one telemetry line to subscribers.
func (eb *EventBroadcaster) BroadcastTelemetry(line string) {
	eb.broadcast(Event{Type: EventTelemetry, Data: TelemetryData{Line: line}})
}

// broadcast sends an event to all subscribers, dropping any that fail.
func (eb *EventBroadcaster) broadcast(event Event) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for connectionID, subscriber := range eb.subscribers {
		go func(id string, sub *eventSubscriber) {
			if !eb.sendToSubscriber(sub, event) {
				eb.mutex.Lock()
				delete(eb.subscribers, id)
				eb.mutex.Unlock()
				eb.logger.Warn().Str("connectionID", id).Msg("removed failed events subscriber")
			}
		}(connectionID, subscriber)
	}
}

// sendToSubscriber sends an event to a specific subscriber.
func (eb *EventBroadcaster) sendToSubscriber(subscriber *eventSubscriber, event Event) bool {
	ctx, cancel := context.WithTimeout(subscriber.ctx, 5*time.Second)
	defer cancel()

	if err := wsjson.Write(ctx, subscriber.conn, event); err != nil {
		subscriber.logger.Warn().Err(err).Msg("failed to send event to subscriber")
		return false
	}
	return true
}
