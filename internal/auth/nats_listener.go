package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
)

// NATSListener bridges identity-provider session events published on NATS
// into the in-process auth event bus and credential store. It is optional:
// sessions whose authentication changes arrive over HTTP work without it.
type NATSListener struct {
	js           jetstream.JetStream
	events       *Events
	creds        *CredentialStore
	consumerName string
	logger       *logrus.Entry
}

// identityEvent is the identity provider's session event payload.
type identityEvent struct {
	EventType     string    `json:"eventType"`
	SessionID     string    `json:"sessionId"`
	CredentialRef string    `json:"credentialRef,omitempty"`
	Credential    string    `json:"credential,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewNATSListener connects to NATS and prepares the identity event
// consumer.
func NewNATSListener(natsURL string, events *Events, creds *CredentialStore, logger *logrus.Logger) (*NATSListener, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("storefront-sync-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("[NATS] Reconnected to %s", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("[NATS] Disconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	hostname, _ := os.Hostname()
	return &NATSListener{
		js:           js,
		events:       events,
		creds:        creds,
		consumerName: fmt.Sprintf("storefront-sync-%s", hostname),
		logger:       logger.WithField("component", "auth.nats"),
	}, nil
}

// Start begins consuming identity session events until ctx is cancelled.
func (l *NATSListener) Start(ctx context.Context) error {
	if err := l.ensureStream(ctx); err != nil {
		l.logger.WithError(err).Warn("failed to ensure identity events stream")
	}
	go l.consume(ctx)
	l.logger.Info("identity event listener started")
	return nil
}

func (l *NATSListener) ensureStream(ctx context.Context) error {
	_, err := l.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "IDENTITY_EVENTS",
		Subjects:  []string{"identity.session.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	return err
}

func (l *NATSListener) consume(ctx context.Context) {
	consumer, err := l.js.CreateOrUpdateConsumer(ctx, "IDENTITY_EVENTS", jetstream.ConsumerConfig{
		Durable:       l.consumerName,
		FilterSubject: "identity.session.>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		l.logger.WithError(err).Warn("failed to create identity events consumer")
		return
	}

	msgs, err := consumer.Messages()
	if err != nil {
		l.logger.WithError(err).Warn("failed to get identity messages iterator")
		return
	}

	for {
		select {
		case <-ctx.Done():
			msgs.Stop()
			return
		default:
			msg, err := msgs.Next()
			if err != nil {
				if err == context.Canceled {
					return
				}
				l.logger.WithError(err).Error("error getting next identity event")
				time.Sleep(time.Second)
				continue
			}

			if err := l.handle(msg); err != nil {
				l.logger.WithError(err).Error("error handling identity event")
				msg.Nak()
			} else {
				msg.Ack()
			}
		}
	}
}

func (l *NATSListener) handle(msg jetstream.Msg) error {
	var ev identityEvent
	if err := json.Unmarshal(msg.Data(), &ev); err != nil {
		return fmt.Errorf("failed to unmarshal identity event: %w", err)
	}
	if ev.SessionID == "" {
		return fmt.Errorf("identity event missing sessionId")
	}

	switch ev.EventType {
	case "identity.session.authenticated":
		if ev.Credential != "" {
			l.creds.Set(ev.SessionID, ev.Credential)
		}
		l.events.Publish(Event{Type: EventAcquired, SessionID: ev.SessionID, CredentialRef: ev.CredentialRef})
	case "identity.session.revoked", "identity.session.expired":
		l.creds.Remove(ev.SessionID)
		l.events.Publish(Event{Type: EventLost, SessionID: ev.SessionID})
	default:
		l.logger.WithField("eventType", ev.EventType).Debug("ignoring identity event")
	}
	return nil
}
