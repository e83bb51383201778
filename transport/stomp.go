// Package transport connects to the upstream STOMP feed and hands
// decoded message bodies to a caller-supplied handler, reconnecting
// on disconnect. It is the Go counterpart of the source's
// stomp.py-based DarwinClient/DarwinListener pair.
package transport

import (
	"fmt"
	"os"
	"time"

	"github.com/go-stomp/stomp/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Config holds the connection parameters for one STOMP feed
// subscription.
type Config struct {
	Host     string
	Port     int
	Topic    string
	Username string
	Password string

	HeartBeat      time.Duration
	ReconnectDelay time.Duration
	SubscriptionID string
	AckMode        stomp.AckMode
}

func (c Config) withDefaults() Config {
	if c.HeartBeat <= 0 {
		c.HeartBeat = 15 * time.Second
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 15 * time.Second
	}
	if c.SubscriptionID == "" {
		c.SubscriptionID = "1"
	}
	if c.AckMode == 0 {
		c.AckMode = stomp.AckAuto
	}
	return c
}

// Handler is called once per message body received on the
// subscription, already detached from the STOMP frame.
type Handler func(body []byte)

// Listener is anything capable of running a subscribe-and-dispatch
// loop until the caller cancels it. The concrete StompListener is the
// only implementation; the interface exists so callers (and tests)
// can substitute a fake feed.
type Listener interface {
	Run(stop <-chan struct{}, handle Handler) error
}

// StompListener connects to a STOMP broker and subscribes to one
// topic, redelivering every message body to handle and reconnecting
// (after ReconnectDelay) whenever the connection drops, until stop is
// closed.
type StompListener struct {
	cfg Config
	log zerolog.Logger
}

func NewStompListener(cfg Config, log zerolog.Logger) *StompListener {
	return &StompListener{cfg: cfg.withDefaults(), log: log}
}

func clientID(username string) string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown-host"
	}
	return fmt.Sprintf("%s-%s", username, host)
}

// Run subscribes and dispatches messages until stop is closed, then
// returns nil. Connection errors are not fatal: each one is logged,
// and Run sleeps ReconnectDelay and retries for as long as stop stays
// open.
func (l *StompListener) Run(stop <-chan struct{}, handle Handler) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if err := l.runOnce(stop, handle); err != nil {
			l.log.Error().Err(err).Msg("stomp connection error, reconnecting")
		}

		select {
		case <-stop:
			return nil
		case <-time.After(l.cfg.ReconnectDelay):
		}
	}
}

func (l *StompListener) runOnce(stop <-chan struct{}, handle Handler) error {
	addr := fmt.Sprintf("%s:%d", l.cfg.Host, l.cfg.Port)
	l.log.Info().Str("addr", addr).Msg("connecting to stomp broker")

	conn, err := stomp.Dial("tcp", addr,
		stomp.ConnOpt.Login(l.cfg.Username, l.cfg.Password),
		stomp.ConnOpt.HeartBeat(l.cfg.HeartBeat, l.cfg.HeartBeat),
		stomp.ConnOpt.Header("client-id", clientID(l.cfg.Username)),
	)
	if err != nil {
		return errors.Wrap(err, "transport: dial stomp broker")
	}
	defer conn.Disconnect()

	host, err := os.Hostname()
	if err != nil {
		host = "unknown-host"
	}

	l.log.Info().Str("topic", l.cfg.Topic).Msg("subscribing")
	sub, err := conn.Subscribe(l.cfg.Topic, l.cfg.AckMode,
		stomp.SubscribeOpt.Id(l.cfg.SubscriptionID),
		stomp.SubscribeOpt.Header("activemq.subscriptionName", host),
	)
	if err != nil {
		return errors.Wrap(err, "transport: subscribe")
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-stop:
			return nil
		case msg, ok := <-sub.C:
			if !ok {
				return fmt.Errorf("transport: subscription channel closed")
			}
			if msg.Err != nil {
				return errors.Wrap(msg.Err, "transport: stomp error frame")
			}
			handle(msg.Body)
		}
	}
}
