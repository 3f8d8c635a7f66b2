package driver

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// subscriber is the slice of an MQTT client the live driver uses.
type subscriber interface {
	Connect() error
	Subscribe(topic string, fn func(payload []byte)) error
	Unsubscribe(topics ...string)
	Disconnect()
}

// MQTT receives progress from an external host over a broker:
// "{topic}/progress" carries a decimal in [0,1], "{topic}/resize"
// carries "WxH" in CSS pixels.
type MQTT struct {
	Topic string
	dial  func() subscriber
}

// NewMQTT is the registry factory.
func NewMQTT(opts Options) (Driver, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("mqtt: broker is required")
	}
	topic := strings.TrimSuffix(opts.Topic, "/")
	if topic == "" {
		topic = "scrubreel"
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = "scrubreel"
	}

	return &MQTT{
		Topic: topic,
		dial: func() subscriber {
			o := mqtt.NewClientOptions().
				AddBroker(opts.Broker).
				SetClientID(clientID).
				SetUsername(opts.Username).
				SetPassword(opts.Password).
				SetKeepAlive(30 * time.Second).
				SetAutoReconnect(true)
			return &pahoSubscriber{client: mqtt.NewClient(o)}
		},
	}, nil
}

func (m *MQTT) progressTopic() string { return m.Topic + "/progress" }
func (m *MQTT) resizeTopic() string   { return m.Topic + "/resize" }

// Run blocks until ctx ends. Subscriptions are always removed before it
// returns.
func (m *MQTT) Run(ctx context.Context, emit Emit) error {
	client := m.dial()
	if err := client.Connect(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	defer client.Disconnect()

	err := client.Subscribe(m.progressTopic(), func(payload []byte) {
		p, err := ParseProgress(payload)
		if err != nil {
			log.Printf("[!] MQTT: %v", err)
			return
		}
		emit(Event{Kind: KindProgress, Progress: p})
	})
	if err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", m.progressTopic(), err)
	}
	defer client.Unsubscribe(m.progressTopic())

	err = client.Subscribe(m.resizeTopic(), func(payload []byte) {
		w, h, err := ParseSize(payload)
		if err != nil {
			log.Printf("[!] MQTT: %v", err)
			return
		}
		emit(Event{Kind: KindResize, Width: w, Height: h})
	})
	if err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", m.resizeTopic(), err)
	}
	defer client.Unsubscribe(m.resizeTopic())

	fmt.Printf("[*] MQTT: ожидание прогресса в %s\n", m.progressTopic())
	<-ctx.Done()
	return nil
}

// ParseProgress reads a progress payload and clamps it into [0,1].
func ParseProgress(payload []byte) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("некорректный прогресс %q", payload)
	}
	return math.Max(0, math.Min(1, v)), nil
}

// ParseSize reads "WxH".
func ParseSize(payload []byte) (int, int, error) {
	s := strings.ToLower(strings.TrimSpace(string(payload)))
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("некорректный размер %q", payload)
	}
	w, err1 := strconv.Atoi(ws)
	h, err2 := strconv.Atoi(hs)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("некорректный размер %q", payload)
	}
	return w, h, nil
}

type pahoSubscriber struct {
	client mqtt.Client
}

func (p *pahoSubscriber) Connect() error {
	token := p.client.Connect()
	token.Wait()
	return token.Error()
}

func (p *pahoSubscriber) Subscribe(topic string, fn func(payload []byte)) error {
	token := p.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		fn(msg.Payload())
	})
	token.Wait()
	return token.Error()
}

func (p *pahoSubscriber) Unsubscribe(topics ...string) {
	if token := p.client.Unsubscribe(topics...); !token.WaitTimeout(time.Second) {
		log.Printf("[!] MQTT: отписка от %v не подтверждена", topics)
	}
}

func (p *pahoSubscriber) Disconnect() {
	p.client.Disconnect(250)
}
