// Package mqtt bridges sensor readings published on an MQTT broker into the
// ingestion gateway. Payloads use the same JSON shape as POST /dados-sensores.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/2emr/sensor-backend/internal/core/domain"
	"github.com/2emr/sensor-backend/internal/core/ports"
)

const (
	connectTimeout = 10 * time.Second
	submitTimeout  = 5 * time.Second
	qos            = 1
)

type Config struct {
	Broker   string
	ClientID string
	Topic    string
}

type payload struct {
	SensorID    *int64   `json:"sensor_id"`
	Temperature *float64 `json:"temperatura"`
	Humidity    *float64 `json:"umidade"`
	Timestamp   *string  `json:"timestamp"`
}

// ParseInstant is the parser used for the optional payload timestamp.
type ParseInstant func(string) (time.Time, error)

// Ingestor subscribes to cfg.Topic and submits every message as a reading.
type Ingestor struct {
	cfg       Config
	readings  ports.ReadingService
	parseTime ParseInstant
	log       zerolog.Logger
}

func NewIngestor(cfg Config, readings ports.ReadingService, parseTime ParseInstant, log zerolog.Logger) *Ingestor {
	if parseTime == nil {
		parseTime = func(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }
	}
	return &Ingestor{cfg: cfg, readings: readings, parseTime: parseTime, log: log}
}

// Run connects, subscribes, and blocks until ctx is cancelled. The paho client
// reconnects and resubscribes on its own after broker outages.
func (in *Ingestor) Run(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(in.cfg.Broker).
		SetClientID(in.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetCleanSession(true).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			in.log.Warn().Err(err).Msg("mqtt connection lost")
		})
	opts.SetOnConnectHandler(func(c paho.Client) {
		token := c.Subscribe(in.cfg.Topic, qos, func(_ paho.Client, msg paho.Message) {
			in.handle(ctx, msg.Topic(), msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			in.log.Error().Err(token.Error()).Str("topic", in.cfg.Topic).Msg("mqtt subscribe failed")
			return
		}
		in.log.Info().Str("broker", in.cfg.Broker).Str("topic", in.cfg.Topic).Msg("mqtt ingestor subscribed")
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		in.log.Warn().Str("broker", in.cfg.Broker).Msg("mqtt broker not reachable yet, retrying in background")
	} else if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	<-ctx.Done()
	client.Disconnect(250)
	return nil
}

func (in *Ingestor) handle(ctx context.Context, topic string, raw []byte) {
	input, err := in.decode(topic, raw)
	if err != nil {
		in.log.Warn().Err(err).Str("topic", topic).Msg("mqtt message rejected")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	if _, err := in.readings.Submit(ctx, input); err != nil {
		if errors.Is(err, domain.ErrInvalidReading) {
			in.log.Warn().Err(err).Str("topic", topic).Msg("mqtt reading rejected")
			return
		}
		in.log.Error().Err(err).Str("topic", topic).Msg("mqtt reading not stored")
	}
}

// decode turns a message into a reading input. When the payload has no
// sensor_id it is taken from the topic segment after "sensors".
func (in *Ingestor) decode(topic string, raw []byte) (ports.ReadingInput, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ports.ReadingInput{}, fmt.Errorf("decode payload: %w", err)
	}

	out := ports.ReadingInput{
		SensorID:    p.SensorID,
		Temperature: p.Temperature,
		Humidity:    p.Humidity,
		Source:      "mqtt",
	}
	if out.SensorID == nil {
		if id, ok := sensorIDFromTopic(topic); ok {
			out.SensorID = &id
		}
	}
	if p.Timestamp != nil && *p.Timestamp != "" {
		ts, err := in.parseTime(*p.Timestamp)
		if err != nil {
			return ports.ReadingInput{}, fmt.Errorf("timestamp: %w", err)
		}
		out.Timestamp = &ts
	}
	return out, nil
}

func sensorIDFromTopic(topic string) (int64, bool) {
	parts := strings.Split(topic, "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "sensors" {
			id, err := strconv.ParseInt(parts[i+1], 10, 64)
			return id, err == nil
		}
	}
	return 0, false
}
