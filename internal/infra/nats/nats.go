package natsclient

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/sifan077/curto/config"
)

const (
	connectTimeout  = 5 * time.Second
	reconnectWait   = 2 * time.Second
	maxPendingAcks  = 256
	clientName      = "curto"
	defaultNATSHost = "localhost"
	defaultNATSPort = 4222
)

// Connect dials cfg and returns the connection with its JetStream context.
// The client reconnects forever; link events published while disconnected
// are buffered by the library and failed acks are logged.
func Connect(cfg config.NATSConfig, log *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "nats"))

	opts := []nats.Option{
		nats.Name(clientName),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrlRedacted()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			fields := []zap.Field{zap.Error(err)}
			if sub != nil {
				fields = append(fields, zap.String("subject", sub.Subject))
			}
			log.Error("nats async error", fields...)
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	nc, err := nats.Connect(URL(cfg), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: connect %s: %w", URL(cfg), err)
	}

	js, err := nc.JetStream(
		nats.PublishAsyncMaxPending(maxPendingAcks),
		nats.PublishAsyncErrHandler(func(_ nats.JetStream, msg *nats.Msg, err error) {
			log.Warn("link event not acknowledged", zap.String("subject", msg.Subject), zap.Error(err))
		}),
	)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("nats: jetstream context: %w", err)
	}

	return nc, js, nil
}

// URL returns the nats:// address of cfg, defaulting to localhost:4222.
func URL(cfg config.NATSConfig) string {
	host := cfg.Host
	if host == "" {
		host = defaultNATSHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultNATSPort
	}
	return "nats://" + net.JoinHostPort(host, strconv.Itoa(port))
}
