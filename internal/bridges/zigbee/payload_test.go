package zigbee

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestBuildPayload(t *testing.T) {
	tests := []struct {
		name       string
		base       string
		transition float64
		want       string
	}{
		{"on immediate", StateOn, 0, `{"state":"ON","transition":0}`},
		{"off fade", StateOff, 2, `{"state":"OFF","transition":2}`},
		{"brightness", `{"brightness":128}`, 3, `{"brightness":128,"transition":3}`},
		{"fractional", StateOn, 1.5, `{"state":"ON","transition":1.5}`},
		{"negative zero", StateOn, math.Copysign(0, -1), `{"state":"ON","transition":0}`},
		{"whitespace compacted", `{ "brightness" : 64 }`, 1, `{"brightness":64,"transition":1}`},
		{"color", ColorState(RGB{R: 255, G: 170, B: 100}), 0, `{"color":{"r":255,"g":170,"b":100},"transition":0}`},
		{"existing transition overwritten in place", `{"transition":9,"state":"ON"}`, 4, `{"transition":4,"state":"ON"}`},
		{"empty object", `{}`, 5, `{"transition":5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildPayload(tt.base, tt.transition)
			if err != nil {
				t.Fatalf("BuildPayload(%q, %v) error = %v", tt.base, tt.transition, err)
			}
			if got != tt.want {
				t.Errorf("BuildPayload(%q, %v) = %s, want %s", tt.base, tt.transition, got, tt.want)
			}
		})
	}
}

func TestBuildPayload_DeserialisesToMergedObject(t *testing.T) {
	got, err := BuildPayload(StateOn, 5)
	if err != nil {
		t.Fatalf("BuildPayload() error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(got), &doc); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	want := map[string]any{"state": "ON", "transition": float64(5)}
	if !reflect.DeepEqual(doc, want) {
		t.Errorf("payload = %v, want %v", doc, want)
	}
}

func TestBuildPayload_Malformed(t *testing.T) {
	tests := []struct {
		name       string
		base       string
		transition float64
	}{
		{"not json", "not json", 5},
		{"empty", "", 0},
		{"array", `[1,2]`, 0},
		{"string", `"ON"`, 0},
		{"truncated", `{"state":"ON"`, 0},
		{"negative transition", StateOn, -1},
		{"NaN transition", StateOn, math.NaN()},
		{"infinite transition", StateOn, math.Inf(1)},
		{"transition too long", StateOn, 1e10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildPayload(tt.base, tt.transition)
			if !errors.Is(err, ErrMalformedCommandPayload) {
				t.Errorf("BuildPayload() error = %v, want ErrMalformedCommandPayload", err)
			}
			if got != "" {
				t.Errorf("BuildPayload() payload = %q, want empty", got)
			}
		})
	}
}

func TestParseTransition(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"", 0, false},
		{"  ", 0, false},
		{"0", 0, false},
		{"3", 3, false},
		{" 2.5 ", 2.5, false},
		{"-1", 0, true},
		{"abc", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
		{"1e10", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTransition(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTransition(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTransition(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateBrightnessState(t *testing.T) {
	tests := []struct {
		state   string
		wantErr bool
	}{
		{`{"brightness":0}`, false},
		{`{"brightness":255}`, false},
		{`{"brightness": 128, "state":"ON"}`, false},
		{`{"brightness":256}`, true},
		{`{"brightness":-1}`, true},
		{`{"brightness":12.5}`, true},
		{`{"brightness":"128"}`, true},
		{`{"state":"ON"}`, true},
		{`not json`, true},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			err := ValidateBrightnessState(tt.state)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBrightnessState(%q) error = %v, wantErr %v", tt.state, err, tt.wantErr)
			}
		})
	}
}

func TestValidateColorState(t *testing.T) {
	tests := []struct {
		state   string
		wantErr bool
	}{
		{`{"color":{"r":255,"g":234,"b":0}}`, false},
		{`{"color":{"r":0,"g":0,"b":0}}`, false},
		{`{"color":{"r":255,"g":234}}`, true},
		{`{"color":{"r":300,"g":0,"b":0}}`, true},
		{`{"color":"red"}`, true},
		{`{"brightness":128}`, true},
		{`[]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			err := ValidateColorState(tt.state)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateColorState(%q) error = %v, wantErr %v", tt.state, err, tt.wantErr)
			}
		})
	}
}
