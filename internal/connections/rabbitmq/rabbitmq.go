package rabbitmq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/config"
)

const (
	dialRetries = 10
	dialDelay   = 2 * time.Second
)

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	pub  confirmPublisher
}

// confirm is the broker's answer for one delivery tag.
type confirm interface {
	WaitContext(ctx context.Context) (bool, error)
}

type confirmPublisher interface {
	publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirm, error)
}

type channelPublisher struct{ ch *amqp.Channel }

func (p channelPublisher) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirm, error) {
	dc, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("channel is not in confirm mode")
	}
	return dc, nil
}

// Dial connects with retries and puts the publishing channel in confirm mode.
func Dial(ctx context.Context, cfg config.RabbitMQConfig, lg *zap.Logger) (*Client, error) {
	vhost := cfg.VHost
	if vhost == "" {
		vhost = "/"
	}
	scheme := "amqp"
	if cfg.UseTLS {
		scheme = "amqps"
	}
	u := fmt.Sprintf("%s://%s:%s@%s:%d/%s",
		scheme, url.PathEscape(cfg.User), url.PathEscape(cfg.Password), cfg.Host, cfg.Port, url.PathEscape(vhost))

	var (
		conn *amqp.Connection
		err  error
	)
	for i := 1; i <= dialRetries; i++ {
		if cfg.UseTLS {
			conn, err = amqp.DialTLS(u, &tls.Config{MinVersion: tls.VersionTLS12})
		} else {
			conn, err = amqp.Dial(u)
		}
		if err == nil {
			break
		}
		lg.Warn("rabbitmq_connect_retry", zap.Int("attempt", i), zap.Error(err))
		select {
		case <-time.After(dialDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq connect canceled: %w", ctx.Err())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("rabbitmq unreachable after %d attempts: %w", dialRetries, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Client{conn: conn, ch: ch, pub: channelPublisher{ch: ch}}, nil
}

// NewChannel opens a dedicated channel, used by consumers so that consuming
// never shares a channel with confirmed publishing.
func (c *Client) NewChannel() (*amqp.Channel, error) {
	return c.conn.Channel()
}

func (c *Client) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Ping is a lightweight health check of the connection.
func (c *Client) Ping(context.Context) error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Publish sends msg and waits for the broker's ack or nack of that message.
// A confirm that arrives after ctx is done is dropped with its own tag and
// never answers a later publish.
func (c *Client) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	dc, err := c.pub.publish(ctx, exchange, key, msg)
	if err != nil {
		return err
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return errors.New("publish NACK from broker")
	}
	return nil
}
