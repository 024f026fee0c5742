// Package mqtt mirrors the coordinator's snapshot onto retained MQTT topics
// and turns command messages into arm/disarm calls.
package mqtt

import (
	"ajax-cloud-bridge/internal/domain/model"
	"ajax-cloud-bridge/internal/domain/view"
	"ajax-cloud-bridge/internal/ports"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	commandTimeout = 35 * time.Second
	commandQueue   = 16
)

type command struct {
	hubID  string
	disarm bool
	mode   model.AlarmMode
}

// StatePublisher handles commands on its own worker goroutine, in arrival
// order, so the MQTT message callback never waits on the backend.
type StatePublisher struct {
	pub    ports.MessagePublisher
	coord  ports.CoordinatorPort
	prefix string
	logger zerolog.Logger

	commands    chan command
	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe func()
}

func NewStatePublisher(pub ports.MessagePublisher, coord ports.CoordinatorPort, prefix string, logger zerolog.Logger) *StatePublisher {
	return &StatePublisher{
		pub:    pub,
		coord:  coord,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With().Str("component", "mqtt_publisher").Logger(),

		commands: make(chan command, commandQueue),
	}
}

// Start publishes the current snapshot, follows every later refresh and
// listens for commands.
func (p *StatePublisher) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.runCommands(ctx)

	if err := p.pub.Subscribe(commandFilter(p.prefix), p.handleCommand); err != nil {
		p.Stop()
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	p.unsubscribe = p.coord.Subscribe(p.PublishUpdate)
	p.PublishUpdate(ports.SnapshotUpdate{Snapshot: p.coord.Snapshot(), Err: p.coord.LastError()})
	return nil
}

// Stop detaches from the coordinator and waits for the command in progress,
// if any. Queued commands are dropped.
func (p *StatePublisher) Stop() {
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	if p.cancel != nil {
		p.cancel()
		<-p.done
		p.cancel = nil
	}
}

// PublishUpdate writes the bridge status, then state and availability for
// every device. After a failed refresh the last good state stays retained
// and every device is reported offline.
func (p *StatePublisher) PublishUpdate(u ports.SnapshotUpdate) {
	status := StatusOnline
	if u.Err != nil {
		status = StatusError
	}
	p.publish(StatusTopic(p.prefix), []byte(status))

	if u.Snapshot == nil {
		return
	}
	for i := range u.Snapshot.Devices {
		d := &u.Snapshot.Devices[i]
		if u.Err == nil {
			data, err := json.Marshal(d)
			if err != nil {
				p.logger.Error().Err(err).Str("device_id", d.ID).Msg("failed to encode device state")
				continue
			}
			p.publish(stateTopic(p.prefix, d.ID), data)
		}

		availability := availabilityOffline
		if u.Err == nil && view.IsAvailable(d) {
			availability = availabilityOnline
		}
		p.publish(availabilityTopic(p.prefix, d.ID), []byte(availability))
	}
}

func (p *StatePublisher) publish(topic string, payload []byte) {
	if err := p.pub.Publish(topic, payload, true); err != nil {
		p.logger.Warn().Err(err).Str("topic", topic).Msg("publish failed")
	}
}

// handleCommand runs on the MQTT client's callback goroutine: it only
// validates and queues.
func (p *StatePublisher) handleCommand(topic string, payload []byte) {
	hubID, ok := hubFromCommandTopic(p.prefix, topic)
	if !ok {
		p.logger.Warn().Str("topic", topic).Msg("ignoring command on unexpected topic")
		return
	}

	cmd, ok := parseCommand(hubID, payload)
	if !ok {
		p.logger.Warn().Str("hub_id", hubID).Str("payload", string(payload)).
			Msg("ignoring unknown command, want armed_away, armed_home, armed_night or disarm")
		return
	}

	select {
	case p.commands <- cmd:
	default:
		p.logger.Warn().Str("hub_id", hubID).Msg("command queue full, dropping command")
	}
}

func parseCommand(hubID string, payload []byte) (command, bool) {
	text := strings.ToLower(strings.TrimSpace(string(payload)))
	if text == "disarm" || text == string(model.AlarmModeDisarmed) {
		return command{hubID: hubID, disarm: true}, true
	}
	mode := model.AlarmMode(text)
	if !mode.IsArmed() {
		return command{}, false
	}
	return command{hubID: hubID, mode: mode}, true
}

func (p *StatePublisher) runCommands(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-p.commands:
			p.execute(ctx, cmd)
		}
	}
}

func (p *StatePublisher) execute(ctx context.Context, cmd command) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	name := string(cmd.mode)
	var err error
	if cmd.disarm {
		name = "disarm"
		err = p.coord.Disarm(ctx, cmd.hubID)
	} else {
		err = p.coord.Arm(ctx, cmd.hubID, cmd.mode)
	}
	if err != nil {
		p.logger.Error().Err(err).Str("hub_id", cmd.hubID).Str("command", name).Msg("command failed")
		return
	}
	p.logger.Info().Str("hub_id", cmd.hubID).Str("command", name).Msg("command applied")
}
