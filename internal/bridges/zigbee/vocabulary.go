package zigbee

import (
	"fmt"
	"sort"
	"strings"
)

// BrightnessPresets are the named brightness levels offered to users.
var BrightnessPresets = map[string]uint8{
	"100%": 255,
	"75%":  196,
	"50%":  128,
	"25%":  64,
}

// ColorPresets are the named colors offered to users.
var ColorPresets = map[string]RGB{
	"white":  {R: 255, G: 255, B: 255},
	"blue":   {R: 0, G: 0, B: 255},
	"green":  {R: 0, G: 255, B: 0},
	"orange": {R: 255, G: 170, B: 100},
	"purple": {R: 200, G: 6, B: 255},
	"red":    {R: 255, G: 0, B: 0},
	"yellow": {R: 255, G: 234, B: 0},
}

// Device is a known lamp or group friendly name with a short label.
type Device struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}

// KnownDevices lists the lamps and groups of the reference installation.
// Any other valid friendly name may still be addressed directly.
var KnownDevices = []Device{
	{Label: "All QRB", ID: "qrb"},
	{Label: "Block 1", ID: "QRB Block 1"},
	{Label: "Block 2", ID: "QRB Block 2"},
	{Label: "Block 3", ID: "QRB Block 3"},
	{Label: "Ganze Ständerlampe", ID: "Staenderlampe"},
	{Label: "Lamp 01", ID: "Wohnzimmer QRB111 01"},
	{Label: "Lamp 02", ID: "Wohnzimmer QRB111 02"},
	{Label: "Lamp 03", ID: "Wohnzimmer QRB111 03"},
	{Label: "Lamp 04", ID: "Wohnzimmer QRB111 04"},
	{Label: "Lamp 05", ID: "Wohnzimmer QRB111 05"},
	{Label: "Lamp 06", ID: "Wohnzimmer QRB111 06"},
	{Label: "Lamp 07", ID: "Wohnzimmer QRB111 07"},
	{Label: "Lamp 08", ID: "Wohnzimmer QRB111 08"},
	{Label: "Lamp 09", ID: "Wohnzimmer QRB111 09"},
	{Label: "Lamp 10", ID: "Wohnzimmer QRB111 10"},
	{Label: "Lamp 11", ID: "Wohnzimmer QRB111 11"},
	{Label: "Lamp 12", ID: "Wohnzimmer QRB111 12"},
	{Label: "Ständerlampe Oben", ID: "Staenderlampe Oben"},
	{Label: "Ständerlampe Mitte", ID: "Staenderlampe Mitte"},
	{Label: "Ständerlampe Unten", ID: "Staenderlampe Unten"},
}

// BrightnessPreset returns the base state for a named brightness level.
// Names are matched case-insensitively; a bare number like "50" also
// matches "50%".
func BrightnessPreset(name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if !strings.HasSuffix(key, "%") {
		key += "%"
	}
	level, ok := BrightnessPresets[key]
	if !ok {
		return "", fmt.Errorf("%w: brightness %q", ErrUnknownPreset, name)
	}
	return BrightnessState(level), nil
}

// ColorPreset returns the base state for a named color.
func ColorPreset(name string) (string, error) {
	c, ok := ColorPresets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: color %q", ErrUnknownPreset, name)
	}
	return ColorState(c), nil
}

// PresetNames returns the sorted keys of a preset table.
func PresetNames[V any](presets map[string]V) []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
