// Package nats publishes engine events to NATS JetStream.
package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/predictive-prefetch/pkg/logger"
)

// DefaultClientName identifies the engine's connections on the server.
const DefaultClientName = "predictive-prefetch"

const (
	reconnectWait    = 2 * time.Second
	reconnectBufSize = 8 * 1024 * 1024
)

// ErrPartialTLS is returned when only some of the mTLS files are configured.
var ErrPartialTLS = errors.New("nats: CA, cert and key files must be set together")

// Config holds NATS connection configuration. TLS is enabled when all three
// of CAFile, CertFile and KeyFile are set.
type Config struct {
	URL      string
	Name     string
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string
}

func (c Config) tlsEnabled() (bool, error) {
	set := 0
	for _, f := range []string{c.CAFile, c.CertFile, c.KeyFile} {
		if f != "" {
			set++
		}
	}
	switch set {
	case 0:
		return false, nil
	case 3:
		return true, nil
	default:
		return false, ErrPartialTLS
	}
}

// connOptions builds the connection options. The connection reconnects
// forever and buffers publishes while disconnected.
func (c Config) connOptions(log *logger.Logger) (nats.Options, error) {
	o := nats.GetDefaultOptions()
	o.Url = c.URL
	o.Name = c.Name
	if o.Name == "" {
		o.Name = DefaultClientName
	}
	o.Token = c.Token
	o.MaxReconnect = -1
	o.ReconnectWait = reconnectWait
	o.ReconnectBufSize = reconnectBufSize

	o.DisconnectedErrCB = func(_ *nats.Conn, err error) {
		if err != nil {
			log.Warn("NATS disconnected", zap.Error(err))
		}
	}
	o.ReconnectedCB = func(nc *nats.Conn) {
		log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
	}
	o.AsyncErrorCB = func(_ *nats.Conn, sub *nats.Subscription, err error) {
		fields := []zap.Field{zap.Error(err)}
		if sub != nil {
			fields = append(fields, zap.String("subject", sub.Subject))
		}
		log.Error("NATS async error", fields...)
	}

	secure, err := c.tlsEnabled()
	if err != nil {
		return o, err
	}
	if secure {
		for _, opt := range []nats.Option{nats.RootCAs(c.CAFile), nats.ClientCert(c.CertFile, c.KeyFile)} {
			if err := opt(&o); err != nil {
				return o, fmt.Errorf("nats tls: %w", err)
			}
		}
	}
	return o, nil
}

// Client owns the NATS connection and its JetStream handle.
type Client struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *logger.Logger
}

// Connect dials NATS and opens JetStream. A deadline on ctx bounds the dial.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o, err := cfg.connOptions(log)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		o.Timeout = time.Until(deadline)
	}

	nc, err := o.Connect()
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open JetStream: %w", err)
	}

	log.Info("connected to NATS", zap.String("url", nc.ConnectedUrl()), zap.String("name", o.Name))
	return &Client{conn: nc, js: js, logger: log}, nil
}

// JetStream returns the JetStream handle.
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// Close drains the connection, closing it outright if the drain fails.
func (c *Client) Close() {
	if c == nil || c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("NATS drain failed", zap.Error(err))
		c.conn.Close()
	}
}

// IsConnected reports whether the connection is up. Safe on a nil client.
func (c *Client) IsConnected() bool {
	return c != nil && c.conn != nil && c.conn.IsConnected()
}
