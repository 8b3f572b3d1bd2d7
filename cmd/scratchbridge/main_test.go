package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pbel78/scratch2/internal/auth"
	"github.com/pbel78/scratch2/internal/bridges/zigbee"
	"github.com/pbel78/scratch2/internal/command"
	"github.com/pbel78/scratch2/internal/infrastructure/config"
	"github.com/pbel78/scratch2/internal/infrastructure/logging"
	"github.com/pbel78/scratch2/internal/infrastructure/mqtt"
)

const testSecret = "test-secret-key-at-least-32-chars!"

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SCRATCH2_CONFIG", "")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestParseParameter(t *testing.T) {
	tests := []struct {
		name    string
		action  command.Action
		arg     string
		want    string
		wantErr error
	}{
		{"raw brightness", command.ActionSetBrightness, "128", `{"brightness":128}`, nil},
		{"brightness preset", command.ActionSetBrightness, "50%", `{"brightness":128}`, nil},
		{"brightness state", command.ActionSetBrightness, `{"brightness":7}`, `{"brightness":7}`, nil},
		{"unknown brightness preset", command.ActionSetBrightness, "dim", "", zigbee.ErrUnknownPreset},
		{"rgb triple", command.ActionSetColor, "255, 128,0", `{"color":{"r":255,"g":128,"b":0}}`, nil},
		{"color preset", command.ActionSetColor, "Red", `{"color":{"r":255,"g":0,"b":0}}`, nil},
		{"rgb out of range", command.ActionSetColor, "256,0,0", "", zigbee.ErrMalformedCommandPayload},
		{"unknown color", command.ActionSetColor, "mauve-ish", "", zigbee.ErrUnknownPreset},
		{"power takes none", command.ActionPowerOn, "x", "", command.ErrInvalidCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParameter(tt.action, tt.arg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("parseParameter() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseParameter() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("parseParameter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintResult(t *testing.T) {
	pending := make(chan mqtt.Outcome)

	tests := []struct {
		name    string
		res     command.Result
		wantOut string
		wantErr bool
	}{
		{"sent", command.Result{Status: command.StatusSent}, "Sent\n", false},
		{"error", command.Result{Status: command.StatusError, Err: mqtt.ErrNotConnected}, "Error\n", true},
		{"unacknowledged", command.Result{Status: command.StatusSent, Outcome: pending}, "Sent\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := printResult(&out, tt.res)
			if out.String() != tt.wantOut {
				t.Errorf("output = %q, want %q", out.String(), tt.wantOut)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("printResult() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	t.Setenv("SCRATCH2_CONFIG", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
mqtt:
  broker:
    url: "tcp://from-file:1883"
  auth:
    username: "file-user"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	flags := &globalFlags{configPath: path, url: "wss://myserver:8883", password: "pw", skipVerify: true}
	cfg, err := flags.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.MQTT.Broker.URL != "wss://myserver:8883" {
		t.Errorf("URL = %q", cfg.MQTT.Broker.URL)
	}
	if cfg.MQTT.Auth.Username != "file-user" {
		t.Errorf("Username = %q, want file-user", cfg.MQTT.Auth.Username)
	}
	if cfg.MQTT.Auth.Password != "pw" || !cfg.MQTT.TLS.SkipVerify {
		t.Errorf("auth/tls overrides not applied: %+v %+v", cfg.MQTT.Auth, cfg.MQTT.TLS)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	flags := &globalFlags{configPath: "/nonexistent/path/config.yaml"}
	if _, err := flags.loadConfig(); err == nil {
		t.Error("loadConfig() expected error for missing file")
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("SCRATCH2_JWT_SECRET", testSecret)

	out, err := execute(t, "token", "--subject", "panel", "--role", "viewer")
	if err != nil {
		t.Fatalf("token command error = %v", err)
	}

	claims, err := auth.ParseToken(strings.TrimSpace(out), testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "panel" || claims.Role != auth.RoleViewer {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenCommand_NoSecret(t *testing.T) {
	t.Setenv("SCRATCH2_JWT_SECRET", "")
	if _, err := execute(t, "token"); !errors.Is(err, auth.ErrNoSecret) {
		t.Errorf("error = %v, want ErrNoSecret", err)
	}
}

func TestLampCommand_NoBrokerURL(t *testing.T) {
	t.Setenv("SCRATCH2_MQTT_URL", "")

	out, err := execute(t, "lamp", "on", "lamp-01")
	if !errors.Is(err, mqtt.ErrInvalidTarget) {
		t.Fatalf("error = %v, want ErrInvalidTarget", err)
	}
	if strings.TrimSpace(out) != string(command.StatusError) {
		t.Errorf("output = %q, want Error", out)
	}
}

func TestLampCommand_BadTransition(t *testing.T) {
	_, err := execute(t, "lamp", "on", "lamp-01", "--transition", "soon")
	if !errors.Is(err, zigbee.ErrMalformedCommandPayload) {
		t.Errorf("error = %v, want ErrMalformedCommandPayload", err)
	}
}

func TestLampCommand_Args(t *testing.T) {
	if _, err := execute(t, "lamp", "brightness", "lamp-01"); err == nil {
		t.Error("brightness without a level should fail")
	}
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	cfg := config.Default()
	cfg.API.Port = 0
	cfg.Database.Enabled = true
	cfg.Database.Path = filepath.Join(t.TempDir(), "history.db")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logging.Discard(), false) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}

	if _, err := os.Stat(cfg.Database.Path); err != nil {
		t.Errorf("history database not created: %v", err)
	}
}

func TestRun_ConnectWithoutURL(t *testing.T) {
	cfg := config.Default()
	cfg.API.Enabled = false

	err := run(context.Background(), cfg, logging.Discard(), true)
	if !errors.Is(err, mqtt.ErrInvalidTarget) {
		t.Errorf("run() error = %v, want ErrInvalidTarget", err)
	}
}

func TestWatchFilter(t *testing.T) {
	topics := zigbee.DefaultTopics()

	got, err := watchFilter(topics, "")
	if err != nil || got != "zigbee2mqtt/+" {
		t.Errorf("watchFilter(all) = %q, %v", got, err)
	}

	got, err = watchFilter(topics, "QRB Block 1")
	if err != nil || got != "zigbee2mqtt/QRB Block 1" {
		t.Errorf("watchFilter(device) = %q, %v", got, err)
	}

	if _, err := watchFilter(topics, "lamp/#"); !errors.Is(err, zigbee.ErrMalformedCommandPayload) {
		t.Errorf("watchFilter(wildcard) error = %v", err)
	}
}

func TestLampHelpListsPresets(t *testing.T) {
	out, err := execute(t, "lamp", "color", "--help")
	if err != nil {
		t.Fatalf("help error = %v", err)
	}
	if !strings.Contains(out, "red") {
		t.Errorf("color help does not list presets:\n%s", out)
	}
}
