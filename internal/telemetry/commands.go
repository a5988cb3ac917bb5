package telemetry

import (
	"encoding/json"
	"fmt"

	"github.com/brookman/respeaker-go/internal/infrastructure/mqtt"
	"github.com/brookman/respeaker-go/internal/param"
)

// CommandSink receives parameter writes and reset requests decoded from
// the command topics. The state cache satisfies Set via a thin adapter;
// *device.Session satisfies Reset directly.
type CommandSink interface {
	Set(param.Kind, param.Value) error
	Reset() error
}

// Subscriber is the MQTT surface the command listener needs.
// *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// setCommand is the JSON body accepted on the command/set topic.
type setCommand struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ListenCommands subscribes to the command topics and routes decoded
// commands to the sink. Handler errors are returned to the MQTT layer,
// which logs them; malformed payloads never reach the sink.
func ListenCommands(sub Subscriber, sink CommandSink, qos byte) error {
	topics := mqtt.Topics{}

	err := sub.Subscribe(topics.CommandSet(), qos, func(_ string, payload []byte) error {
		return handleSet(sink, payload)
	})
	if err != nil {
		return fmt.Errorf("subscribing to set commands: %w", err)
	}

	err = sub.Subscribe(topics.CommandReset(), qos, func(_ string, _ []byte) error {
		return sink.Reset()
	})
	if err != nil {
		return fmt.Errorf("subscribing to reset commands: %w", err)
	}

	return nil
}

func handleSet(sink CommandSink, payload []byte) error {
	var cmd setCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decoding set command: %w", err)
	}

	k, err := param.KindFromString(cmd.Name)
	if err != nil {
		return fmt.Errorf("set command: %w", err)
	}

	v, err := param.Parse(k, cmd.Value)
	if err != nil {
		return fmt.Errorf("set command for %s: %w", k, err)
	}

	return sink.Set(k, v)
}
