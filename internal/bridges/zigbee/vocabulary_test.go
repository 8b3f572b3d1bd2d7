package zigbee

import (
	"errors"
	"testing"
)

func TestBrightnessPreset(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"100%", `{"brightness":255}`},
		{"75%", `{"brightness":196}`},
		{"50", `{"brightness":128}`},
		{" 25% ", `{"brightness":64}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BrightnessPreset(tt.name)
			if err != nil {
				t.Fatalf("BrightnessPreset(%q) error = %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("BrightnessPreset(%q) = %s, want %s", tt.name, got, tt.want)
			}
			if err := ValidateBrightnessState(got); err != nil {
				t.Errorf("preset fails validation: %v", err)
			}
		})
	}

	if _, err := BrightnessPreset("10%"); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("BrightnessPreset(10%%) error = %v, want ErrUnknownPreset", err)
	}
}

func TestColorPreset(t *testing.T) {
	got, err := ColorPreset("Purple")
	if err != nil {
		t.Fatalf("ColorPreset() error = %v", err)
	}
	if got != `{"color":{"r":200,"g":6,"b":255}}` {
		t.Errorf("ColorPreset(Purple) = %s", got)
	}

	for _, name := range PresetNames(ColorPresets) {
		state, err := ColorPreset(name)
		if err != nil {
			t.Errorf("ColorPreset(%q) error = %v", name, err)
			continue
		}
		if err := ValidateColorState(state); err != nil {
			t.Errorf("ColorPreset(%q) fails validation: %v", name, err)
		}
	}

	if _, err := ColorPreset("magenta"); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("ColorPreset(magenta) error = %v, want ErrUnknownPreset", err)
	}
}

func TestKnownDevicesAreValidTopics(t *testing.T) {
	seen := make(map[string]bool)
	for _, d := range KnownDevices {
		if err := ValidateDeviceID(d.ID); err != nil {
			t.Errorf("known device %q invalid: %v", d.ID, err)
		}
		if seen[d.ID] {
			t.Errorf("duplicate device %q", d.ID)
		}
		seen[d.ID] = true
	}
}

func TestPresetNamesSorted(t *testing.T) {
	names := PresetNames(BrightnessPresets)
	want := []string{"100%", "25%", "50%", "75%"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("PresetNames() = %v, want %v", names, want)
		}
	}
}
