package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/jordanhubbard/weft/pkg/types"
)

const (
	// SubjectRegenRequest carries regeneration jobs.
	SubjectRegenRequest = "weft.regen.request"

	// regenQueueGroup load-balances jobs across worker instances.
	regenQueueGroup = "weft-regen-workers"
)

// NatsConfig holds NATS connection settings.
type NatsConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// NatsBus is the NATS-backed Bus used when regeneration workers run in
// separate processes.
type NatsBus struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewNatsBus connects to NATS.
func NewNatsBus(cfg NatsConfig) (*NatsBus, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Printf("[Bus] Connected to NATS at %s", cfg.URL)
	return &NatsBus{conn: nc}, nil
}

// Publish sends the job to the regeneration subject.
func (b *NatsBus) Publish(_ context.Context, job types.RegenJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.JobID, err)
	}
	if err := b.conn.Publish(SubjectRegenRequest, data); err != nil {
		return fmt.Errorf("failed to publish job %s: %w", job.JobID, err)
	}
	return nil
}

// Subscribe joins the worker queue group so each job is handled once.
func (b *NatsBus) Subscribe(handler Handler) error {
	sub, err := b.conn.QueueSubscribe(SubjectRegenRequest, regenQueueGroup, func(msg *nats.Msg) {
		var job types.RegenJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			log.Printf("[Bus] Discarding malformed regeneration job: %v", err)
			return
		}
		handler(context.Background(), job)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", SubjectRegenRequest, err)
	}
	b.subs = append(b.subs, sub)
	return nil
}

// Close drains subscriptions and closes the connection.
func (b *NatsBus) Close() error {
	for _, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Printf("[Bus] Unsubscribe failed: %v", err)
		}
	}
	b.conn.Close()
	return nil
}
