package natsclient

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/DocLink/config"
	"go.uber.org/zap"
)

const (
	connectTimeout = 5 * time.Second
	reconnectWait  = 2 * time.Second
	defaultHost    = "localhost"
	defaultPort    = 4222
)

// Connect dials NATS and opens a JetStream context. The connection retries
// forever after it has been established once; connection state changes are
// logged.
func Connect(cfg config.NATSConfig, logger *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(ServerURL(cfg), options(cfg, logger)...)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("nats: init jetstream: %w", err)
	}
	return conn, js, nil
}

func options(cfg config.NATSConfig, logger *zap.Logger) []nats.Option {
	opts := []nats.Option{
		nats.Name("doclink"),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrlRedacted()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			fields := []zap.Field{zap.Error(err)}
			if sub != nil {
				fields = append(fields, zap.String("subject", sub.Subject))
			}
			logger.Error("NATS async error", fields...)
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	return opts
}

// EnsureStream creates the stream when it does not exist yet.
func EnsureStream(js nats.JetStreamContext, cfg *nats.StreamConfig) error {
	_, err := js.StreamInfo(cfg.Name)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, nats.ErrStreamNotFound):
		return fmt.Errorf("nats: stream info %s: %w", cfg.Name, err)
	}
	if _, err := js.AddStream(cfg); err != nil {
		return fmt.Errorf("nats: add stream %s: %w", cfg.Name, err)
	}
	return nil
}

// ServerURL returns the nats:// url for cfg, without credentials.
func ServerURL(cfg config.NATSConfig) string {
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	return "nats://" + net.JoinHostPort(host, strconv.Itoa(port))
}
