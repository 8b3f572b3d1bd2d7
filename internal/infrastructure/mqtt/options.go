package mqtt

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/pbel78/scratch2/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for a connection acknowledgment.
	defaultConnectTimeout = 10 * time.Second

	// defaultConnectGrace is added to the connect timeout when waiting on the connect token.
	defaultConnectGrace = time.Second

	// defaultOperationTimeout bounds waiting for a publish or subscribe acknowledgment.
	defaultOperationTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12

	// clientIDPrefix starts every generated client ID.
	clientIDPrefix = "scratch2-"
)

// supportedSchemes maps broker URL schemes to whether they use TLS.
var supportedSchemes = map[string]bool{
	"tcp":   false,
	"mqtt":  false,
	"ws":    false,
	"ssl":   true,
	"tls":   true,
	"mqtts": true,
	"wss":   true,
}

// validateTarget checks that a broker URL can be handed to the transport.
func validateTarget(t Target) error {
	if strings.TrimSpace(t.URL) == "" {
		return fmt.Errorf("%w: broker URL is empty", ErrInvalidTarget)
	}

	u, err := url.Parse(t.URL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}

	if _, ok := supportedSchemes[strings.ToLower(u.Scheme)]; !ok {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("%w: broker URL has no host", ErrInvalidTarget)
	}

	return nil
}

// usesTLS reports whether the target's scheme is a TLS transport.
func usesTLS(t Target) bool {
	u, err := url.Parse(t.URL)
	if err != nil {
		return false
	}
	return supportedSchemes[strings.ToLower(u.Scheme)]
}

// generateClientID returns a client ID unique to one connection instance.
func generateClientID() string {
	return clientIDPrefix + uuid.NewString()[:8]
}

// connectOptionsFromConfig fills the per-session connect options from config.
func connectOptionsFromConfig(cfg config.MQTTConfig, target Target, creds Credentials) ConnectOptions {
	opts := ConnectOptions{
		Target:               target,
		Credentials:          creds,
		ClientID:             cfg.Broker.ClientID,
		ConnectTimeout:       time.Duration(cfg.Broker.ConnectTimeout) * time.Second,
		KeepAlive:            time.Duration(cfg.KeepAlive) * time.Second,
		AutoReconnect:        cfg.Reconnect.Enabled,
		MaxReconnectInterval: time.Duration(cfg.Reconnect.MaxDelay) * time.Second,
	}

	if opts.ClientID == "" {
		opts.ClientID = generateClientID()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = defaultKeepAlive
	}

	return opts
}

// buildClientOptions creates paho MQTT options for one connection instance.
//
// This configures:
//   - Broker URL exactly as requested (tcp, ssl, ws, wss)
//   - Client ID and optional credentials
//   - Clean session mode
//   - Auto-reconnect, but never a retry of the initial connect
//   - TLS for secure schemes, honouring the per-request SkipVerify flag
func buildClientOptions(opts ConnectOptions, base *tls.Config) *pahomqtt.ClientOptions {
	po := pahomqtt.NewClientOptions()

	po.AddBroker(opts.Target.URL)
	po.SetClientID(opts.ClientID)

	if opts.Credentials.Username != "" {
		po.SetUsername(opts.Credentials.Username)
		po.SetPassword(opts.Credentials.Password)
	}

	// Clean session - start fresh on connect (no persistent session on broker)
	po.SetCleanSession(true)

	// A failed initial connect is reported as an error, not retried.
	po.SetConnectRetry(false)
	po.SetAutoReconnect(opts.AutoReconnect)
	if opts.MaxReconnectInterval > 0 {
		po.SetMaxReconnectInterval(opts.MaxReconnectInterval)
	}

	po.SetConnectTimeout(opts.ConnectTimeout)
	po.SetKeepAlive(opts.KeepAlive)
	po.SetOrderMatters(false)

	if usesTLS(opts.Target) {
		po.SetTLSConfig(buildTLSConfig(base, opts.Target.SkipVerify))
	}

	return po
}

// buildTLSConfig clones the dialer's base TLS settings for one connection.
func buildTLSConfig(base *tls.Config, skipVerify bool) *tls.Config {
	var tlsConfig *tls.Config
	if base != nil {
		tlsConfig = base.Clone()
	} else {
		tlsConfig = &tls.Config{}
	}

	if tlsConfig.MinVersion < tlsMinVersion {
		tlsConfig.MinVersion = tlsMinVersion
	}
	tlsConfig.InsecureSkipVerify = skipVerify //nolint:gosec // explicit per-connect opt-in

	return tlsConfig
}
