package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/pbel78/scratch2/internal/infrastructure/config"
)

// subscribeFailureCode is the SUBACK return code for a refused subscription.
const subscribeFailureCode = 0x80

// PahoDialer dials brokers with github.com/eclipse/paho.mqtt.golang.
type PahoDialer struct {
	tlsConfig *tls.Config
	logger    Logger
}

// NewPahoDialer prepares the paho transport. A CA bundle named in cfg is
// loaded once here; failure to load it makes the transport unavailable.
func NewPahoDialer(cfg config.MQTTTLSConfig) (*PahoDialer, error) {
	tlsConfig := &tls.Config{MinVersion: tlsMinVersion}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("%w: reading CA file: %w", ErrTransportUnavailable, err)
		}

		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w: no certificates found in %s", ErrTransportUnavailable, cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	return &PahoDialer{tlsConfig: tlsConfig, logger: noopLogger{}}, nil
}

// SetLogger sets the logger used for transport-level warnings.
func (d *PahoDialer) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	d.logger = logger
}

// Dial starts a paho connection and returns immediately. The connect
// outcome arrives through emit.
//
// Event mapping:
//   - OnConnect: ConnectEvent (initial connect and every successful reconnect)
//   - connect token error or timeout: ErrorEvent
//   - connection lost without auto-reconnect: CloseEvent
//   - each reconnect attempt: ReconnectEvent
//   - inbound publish: MessageEvent
func (d *PahoDialer) Dial(opts ConnectOptions, emit func(Event)) (Conn, error) {
	if err := validateTarget(opts.Target); err != nil {
		return nil, err
	}

	po := buildClientOptions(opts, d.tlsConfig)

	po.SetOnConnectHandler(func(_ pahomqtt.Client) {
		emit(ConnectEvent{})
	})

	po.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		d.logger.Warn("mqtt connection lost", "client_id", opts.ClientID, "error", err)
		if !opts.AutoReconnect {
			emit(CloseEvent{Err: err})
		}
	})

	po.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		emit(ReconnectEvent{})
	})

	po.SetDefaultPublishHandler(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		emit(MessageEvent{Topic: msg.Topic(), Payload: msg.Payload()})
	})

	client := pahomqtt.NewClient(po)
	token := client.Connect()

	go func() {
		if !token.WaitTimeout(opts.ConnectTimeout + defaultConnectGrace) {
			emit(ErrorEvent{Err: fmt.Errorf("%w: %w after %v", ErrConnectionFailed, ErrTimeout, opts.ConnectTimeout)})
			return
		}
		if err := token.Error(); err != nil {
			emit(ErrorEvent{Err: fmt.Errorf("%w: %w", ErrConnectionFailed, err)})
		}
	}()

	return &pahoConn{client: client}, nil
}

// pahoConn adapts a paho client to Conn.
type pahoConn struct {
	client pahomqtt.Client
}

func (c *pahoConn) Publish(topic string, qos byte, payload []byte, done func(error)) {
	token := c.client.Publish(topic, qos, false, payload)
	go func() {
		done(waitToken(token))
	}()
}

func (c *pahoConn) Subscribe(topic string, qos byte, done func(error)) {
	// A nil handler routes messages to the default publish handler.
	token := c.client.Subscribe(topic, qos, nil)
	go func() {
		if err := waitToken(token); err != nil {
			done(err)
			return
		}
		if st, ok := token.(*pahomqtt.SubscribeToken); ok {
			for t, code := range st.Result() {
				if code == subscribeFailureCode {
					done(fmt.Errorf("broker refused subscription to %q", t))
					return
				}
			}
		}
		done(nil)
	}()
}

func (c *pahoConn) Close(done func()) {
	go func() {
		c.client.Disconnect(defaultDisconnectQuiesce)
		if done != nil {
			done()
		}
	}()
}

// waitToken waits for a paho token with the default operation timeout.
func waitToken(token pahomqtt.Token) error {
	if !token.WaitTimeout(defaultOperationTimeout) {
		return fmt.Errorf("%w after %v", ErrTimeout, defaultOperationTimeout)
	}
	return token.Error()
}
