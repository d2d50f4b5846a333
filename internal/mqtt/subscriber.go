// Package mqtt feeds readings published on an MQTT topic into the ingest path.
//
// Devices that cannot or prefer not to POST over HTTP publish the same JSON
// payload ({"mq_raw": 0.42, "time": "12:00:01"}) to a topic, or their own
// layout described by [Config.ValuePath] and [Config.TimePath]. The
// [Subscriber] keeps one MQTT v5 session open and reconnects with exponential
// backoff when the broker goes away.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
	"github.com/jpalmerr/mqmon/internal/ingest"
	"github.com/jpalmerr/mqmon/internal/store"
	"github.com/jpillora/backoff"
)

const (
	// DefaultTopic is subscribed to when no topic is configured.
	DefaultTopic = "mqmon/ingest"

	defaultPort = "1883"
	keepAlive   = 30
	dialTimeout = 10 * time.Second
)

// Ingester is the write path messages are handed to.
type Ingester interface {
	IngestWith(ctx context.Context, source string, dec *ingest.Decoder, body []byte) (store.Sample, error)
}

// Config describes the broker connection and subscription.
type Config struct {
	// Broker is the broker address: tcp://host:port, mqtt://host:port or host:port.
	Broker string

	// Topic is the topic filter to subscribe to. Defaults to [DefaultTopic].
	Topic string

	// ClientID defaults to "mqmon-<uuid>".
	ClientID string

	// Username and Password are sent only when non-empty.
	Username string
	Password string

	// QoS is the subscription QoS (0 or 1).
	QoS byte

	// ValuePath is the dotted path to the reading, or "$" for a bare
	// number. Defaults to "mq_raw".
	ValuePath string

	// TimePath is the dotted path to the display label. Defaults to "time"
	// when ValuePath is unset, otherwise no label is read.
	TimePath string
}

// Subscriber consumes readings from an MQTT topic.
type Subscriber struct {
	addr     string
	cfg      Config
	decoder  *ingest.Decoder
	ingester Ingester
	logger   *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once
}

// NewSubscriber validates cfg and returns a [Subscriber] that is not yet connected.
func NewSubscriber(cfg Config, ing Ingester, logger *slog.Logger) (*Subscriber, error) {
	addr, err := brokerAddress(cfg.Broker)
	if err != nil {
		return nil, err
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "mqmon-" + uuid.NewString()
	}
	if cfg.QoS > 1 {
		return nil, fmt.Errorf("mqtt qos must be 0 or 1, got %d", cfg.QoS)
	}

	dec := ingest.DefaultDecoder
	if cfg.ValuePath != "" || cfg.TimePath != "" {
		dec, err = ingest.NewDecoder(cfg.ValuePath, cfg.TimePath)
		if err != nil {
			return nil, fmt.Errorf("mqtt payload layout: %w", err)
		}
	}

	return &Subscriber{
		addr:     addr,
		cfg:      cfg,
		decoder:  dec,
		ingester: ing,
		logger:   logger,
		ready:    make(chan struct{}),
	}, nil
}

// Ready is closed once the first subscription has been acknowledged.
func (s *Subscriber) Ready() <-chan struct{} {
	return s.ready
}

// Run connects, subscribes and ingests messages until ctx is cancelled.
//
// Connection failures are retried with jittered exponential backoff
// (100ms up to 30s). Run returns nil once ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    30 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	for {
		connected, err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			b.Reset()
		}

		wait := b.Duration()
		s.logger.Warn("mqtt session ended, reconnecting",
			"broker", s.addr,
			"error", err,
			"retry_in", wait.String(),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// session runs one connection until it is lost or ctx is cancelled.
// connected reports whether the subscription was established.
func (s *Subscriber) session(ctx context.Context) (connected bool, err error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", s.addr, err)
	}
	defer func() { _ = conn.Close() }()

	lost := make(chan error, 1)
	signalLost := func(err error) {
		select {
		case lost <- err:
		default:
		}
	}

	client := paho.NewClient(paho.ClientConfig{
		ClientID: s.cfg.ClientID,
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pr paho.PublishReceived) (bool, error) {
				s.handle(ctx, pr.Packet)
				return true, nil
			},
		},
		OnClientError: signalLost,
		OnServerDisconnect: func(d *paho.Disconnect) {
			signalLost(fmt.Errorf("server disconnected, reason code %d", d.ReasonCode))
		},
	})

	cp := &paho.Connect{
		ClientID:   s.cfg.ClientID,
		KeepAlive:  keepAlive,
		CleanStart: true,
	}
	if s.cfg.Username != "" {
		cp.Username = s.cfg.Username
		cp.UsernameFlag = true
	}
	if s.cfg.Password != "" {
		cp.Password = []byte(s.cfg.Password)
		cp.PasswordFlag = true
	}

	if _, err := client.Connect(ctx, cp); err != nil {
		return false, fmt.Errorf("connect: %w", err)
	}

	if _, err := client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: s.cfg.Topic, QoS: s.cfg.QoS}},
	}); err != nil {
		_ = client.Disconnect(&paho.Disconnect{ReasonCode: 0})
		return false, fmt.Errorf("subscribe %q: %w", s.cfg.Topic, err)
	}

	s.logger.Info("mqtt subscribed", "broker", s.addr, "topic", s.cfg.Topic, "client_id", s.cfg.ClientID)
	s.readyOnce.Do(func() { close(s.ready) })

	select {
	case <-ctx.Done():
		_ = client.Disconnect(&paho.Disconnect{ReasonCode: 0})
		return true, nil
	case err := <-lost:
		return true, fmt.Errorf("connection lost: %w", err)
	}
}

// handle ingests one message. Rejections are logged by the ingester and
// never end the session.
func (s *Subscriber) handle(ctx context.Context, p *paho.Publish) {
	if p == nil {
		return
	}
	_, _ = s.ingester.IngestWith(ctx, ingest.SourceMQTT, s.decoder, p.Payload)
}

// brokerAddress normalizes a broker setting to host:port.
func brokerAddress(broker string) (string, error) {
	if broker == "" {
		return "", errors.New("mqtt broker is required")
	}

	hostport := broker
	if u, err := url.Parse(broker); err == nil && u.Host != "" {
		switch u.Scheme {
		case "tcp", "mqtt":
		default:
			return "", fmt.Errorf("mqtt broker scheme must be tcp or mqtt, got %q", u.Scheme)
		}
		hostport = u.Host
	}

	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		// no port given
		host, port = hostport, defaultPort
	}
	if host == "" || strings.ContainsAny(host+port, "/?#") {
		return "", fmt.Errorf("invalid mqtt broker %q", broker)
	}
	return net.JoinHostPort(host, port), nil
}
