package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pbel78/scratch2/internal/bridges/zigbee"
	"github.com/pbel78/scratch2/internal/command"
	"github.com/pbel78/scratch2/internal/infrastructure/config"
	"github.com/pbel78/scratch2/internal/infrastructure/logging"
	"github.com/pbel78/scratch2/internal/infrastructure/mqtt"
)

// errConnectFailed is returned when a session ends before reaching Connected.
var errConnectFailed = errors.New("broker connection failed")

// bridge is the session manager, gateway and dispatcher wired together.
type bridge struct {
	cfg        *config.Config
	log        *logging.Logger
	manager    *mqtt.Manager
	gateway    *mqtt.Gateway
	dispatcher *command.Dispatcher
}

// newBridge assembles the bridge from cfg. Nothing is dialled yet.
func newBridge(cfg *config.Config, log *logging.Logger) (*bridge, error) {
	manager := mqtt.NewPahoManager(cfg.MQTT, log.Component("mqtt"))

	gateway, err := mqtt.NewGateway(manager, cfg.MQTT.QoS)
	if err != nil {
		return nil, fmt.Errorf("creating gateway: %w", err)
	}

	topics := zigbee.Topics{Namespace: cfg.Bridge.Namespace, Suffix: cfg.Bridge.CommandSuffix}
	dispatcher := command.New(manager, gateway, topics)
	dispatcher.SetLogger(log.Component("command"))
	manager.OnMessage(dispatcher.ObserveMessage)

	return &bridge{
		cfg:        cfg,
		log:        log,
		manager:    manager,
		gateway:    gateway,
		dispatcher: dispatcher,
	}, nil
}

// target returns the configured broker target and credentials.
func (b *bridge) target() (mqtt.Target, mqtt.Credentials) {
	return mqtt.Target{URL: b.cfg.MQTT.Broker.URL, SkipVerify: b.cfg.MQTT.TLS.SkipVerify},
		mqtt.Credentials{Username: b.cfg.MQTT.Auth.Username, Password: b.cfg.MQTT.Auth.Password}
}

// connectAndWait connects to the configured broker and blocks until the
// session is Connected, ends, or ctx is done.
func (b *bridge) connectAndWait(ctx context.Context) error {
	if b.cfg.MQTT.Broker.URL == "" {
		return fmt.Errorf("%w: no broker URL (set --url or mqtt.broker.url)", mqtt.ErrInvalidTarget)
	}

	changes := make(chan mqtt.StateChange, 8)
	b.manager.OnStateChange(func(change mqtt.StateChange) {
		select {
		case changes <- change:
		default:
		}
	})

	target, creds := b.target()
	if err := b.manager.Connect(target, creds); err != nil {
		return err
	}

	timeout := time.Duration(b.cfg.MQTT.Broker.ConnectTimeout)*time.Second + time.Second
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if b.manager.IsConnected() {
			return nil
		}
		select {
		case change := <-changes:
			switch change.To {
			case mqtt.StateConnected:
				return nil
			case mqtt.StateDisconnected, mqtt.StateClosed:
				return fmt.Errorf("%w: %s", errConnectFailed, target.URL)
			}
		case <-timer.C:
			return fmt.Errorf("%w: %s: %w", errConnectFailed, target.URL, mqtt.ErrTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// close stops transition timers and disconnects, bounded by a short timeout.
func (b *bridge) close() {
	b.dispatcher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.manager.Close(ctx); err != nil {
		b.log.Warn("mqtt close did not complete", "error", err)
	}
}
