package mqtt

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/sweeney/switch-sensor/internal/logic"
)

// DefaultBufferSize is how many messages are held while the broker is unreachable.
const DefaultBufferSize = 256

// Options configures a RealPublisher.
type Options struct {
	Broker      string
	ClientID    string // empty generates one with DefaultClientID
	TopicPrefix string // empty uses DefaultTopicPrefix
	BufferSize  int    // <= 0 uses DefaultBufferSize
}

// DefaultClientID returns a client ID unique to this process.
func DefaultClientID() string {
	return "switch-sensor-" + uuid.NewString()[:8]
}

// RealPublisher publishes to an actual MQTT broker.
// Messages produced while disconnected are buffered and replayed on reconnect.
type RealPublisher struct {
	client      paho.Client
	eventsTopic string
	systemTopic string

	connected atomic.Bool

	// mu guards buf and everUp, and orders replay ahead of new publishes.
	mu     sync.Mutex
	buf    *ringBuffer
	everUp bool
}

// NewRealPublisher creates a publisher for the given broker.
// The connection is retried in the background; an unreachable broker is not
// an error, messages are buffered until it comes up.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.Broker == "" {
		return nil, errors.New("broker address is required")
	}
	if o.ClientID == "" {
		o.ClientID = DefaultClientID()
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}

	p := &RealPublisher{
		eventsTopic: EventsTopic(o.TopicPrefix),
		systemTopic: SystemTopic(o.TopicPrefix),
		buf:         newRingBuffer(o.BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(p.systemTopic, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering until connected", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	reconnect := p.everUp
	p.everUp = true

	pending := p.buf.drainAll()
	if len(pending) > 0 {
		log.Printf("mqtt: replaying %d buffered messages", len(pending))
	}
	for _, m := range pending {
		if err := p.send(m); err != nil {
			log.Printf("mqtt: replay to %s failed: %v", m.topic, err)
		}
	}

	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err == nil {
			if err := p.send(bufferedMsg{topic: p.systemTopic, payload: payload, qos: 1}); err != nil {
				log.Printf("mqtt: publish reconnected event: %v", err)
			}
		}
	}

	// Set after replay so new messages queue behind the buffered ones.
	p.connected.Store(true)
}

func (p *RealPublisher) onConnectionLost(c paho.Client, err error) {
	p.connected.Store(false)
	log.Printf("mqtt: connection lost: %v", err)
}

// send publishes m and waits for completion.
func (p *RealPublisher) send(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	return token.Error()
}

// publish sends m, or buffers it while disconnected. The lock is only held
// for the decision, never while waiting on the broker.
func (p *RealPublisher) publish(m bufferedMsg) error {
	p.mu.Lock()
	if !p.connected.Load() {
		p.buf.push(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.send(m); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Publish sends a switch event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 1 (at-least-once): edges are rare and each one matters
	return p.publish(bufferedMsg{topic: p.eventsTopic, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	return p.publish(bufferedMsg{topic: p.systemTopic, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the broker connection is currently up.
func (p *RealPublisher) IsConnected() bool {
	return p.connected.Load()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if n := p.pending(); n > 0 {
		log.Printf("mqtt: closing with %d unsent messages", n)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

func (p *RealPublisher) pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}
