package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/jvanharn/node-hdmi-cec/cec"
)

// mqttBridge republishes bus events to an MQTT broker and accepts
// inbound control on the command topics:
//
//	<prefix>/command/tx       payload: raw adapter command line
//	<prefix>/command/power    payload: "on" or "off" (TV)
//	<prefix>/command/standby  any payload: broadcast standby
type mqttBridge struct {
	client    mqtt.Client
	prefix    string
	commander *cec.Commander
	mon       *cec.Monitor
	logger    *slog.Logger
}

func newMQTTBridge(broker, prefix string, mon *cec.Monitor, commander *cec.Commander, logger *slog.Logger) (*mqttBridge, error) {
	b := &mqttBridge{
		prefix:    strings.TrimSuffix(prefix, "/"),
		commander: commander,
		mon:       mon,
		logger:    logger,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("cec-bridge-" + uuid.NewString()[:8]).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Info("mqtt connected", "broker", broker)
			b.subscribe(c)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", "error", err)
		})

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", broker, token.Error())
	}
	return b, nil
}

func (b *mqttBridge) subscribe(c mqtt.Client) {
	topic := b.prefix + "/command/#"
	token := c.Subscribe(topic, 0, b.handleCommand)
	if token.Wait() && token.Error() != nil {
		b.logger.Error("mqtt subscribe failed", "topic", topic, "error", token.Error())
	}
}

func (b *mqttBridge) handleCommand(_ mqtt.Client, msg mqtt.Message) {
	action := strings.TrimPrefix(msg.Topic(), b.prefix+"/command/")
	payload := strings.TrimSpace(string(msg.Payload()))
	b.logger.Info("mqtt command", "action", action, "payload", payload)

	var err error
	switch action {
	case "tx":
		err = b.mon.Send(payload)
	case "power":
		err = b.commander.SetPowerState(cec.LogicalAddressTV, payload == "on")
	case "standby":
		err = b.commander.BroadcastStandby()
	default:
		b.logger.Warn("unknown mqtt command", "action", action)
		return
	}
	if err != nil {
		b.logger.Error("mqtt command failed", "action", action, "error", err)
	}
}

// Publish republishes one bridge event under <prefix>/<event>.
func (b *mqttBridge) Publish(rec EventRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return
	}
	b.client.Publish(b.prefix+"/"+rec.Event, 0, false, payload)
}

func (b *mqttBridge) Close() {
	b.client.Disconnect(250)
}
