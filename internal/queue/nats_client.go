package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	DefaultNATSSubject = "traveldocs.storage.cleanup"
	natsQueueGroup     = "traveldocs-worker"
)

// NATSClient publishes and consumes queue messages over core NATS.
type NATSClient struct {
	conn    *nats.Conn
	subject string
}

// NewNATSClient connects to url; an empty subject uses DefaultNATSSubject.
func NewNATSClient(url, subject string) (*NATSClient, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("NATS_URL is required")
	}
	if strings.TrimSpace(subject) == "" {
		subject = DefaultNATSSubject
	}
	conn, err := nats.Connect(url,
		nats.Name("traveldocs"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSClient{conn: conn, subject: subject}, nil
}

func (n *NATSClient) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode nats message: %w", err)
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Consume delivers messages to handle until ctx is done. Worker instances share one queue group.
func (n *NATSClient) Consume(ctx context.Context, handle func(ctx context.Context, body []byte)) error {
	sub, err := n.conn.QueueSubscribe(n.subject, natsQueueGroup, func(m *nats.Msg) {
		handle(ctx, m.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

func (n *NATSClient) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

var _ Client = (*NATSClient)(nil)
