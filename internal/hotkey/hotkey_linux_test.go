//go:build linux

package hotkey

import (
	"testing"

	evdev "github.com/holoplot/go-evdev"
)

func TestKeyCodeFromName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected evdev.EvCode
		wantErr  bool
	}{
		{"right ctrl", "KEY_RIGHTCTRL", 97, false},
		{"f9", "KEY_F9", 67, false},
		{"f12", "KEY_F12", 88, false},
		{"mic mute", "KEY_MICMUTE", 248, false},
		{"case insensitive", "key_rightctrl", 97, false},
		{"with whitespace", "  KEY_F12  ", 88, false},
		{"letters not bindable", "KEY_A", 0, true},
		{"unknown key", "KEY_NONEXISTENT", 0, true},
		{"empty string", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := KeyCodeFromName(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for input %q, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error for input %q: %v", tt.input, err)
				return
			}
			if code != tt.expected {
				t.Errorf("KeyCodeFromName(%q) = %d, want %d", tt.input, code, tt.expected)
			}
		})
	}
}

func TestSortEventPaths(t *testing.T) {
	paths := []string{"/dev/input/event10", "/dev/input/event2", "/dev/input/event7"}
	sortEventPaths(paths)
	want := []string{"/dev/input/event2", "/dev/input/event7", "/dev/input/event10"}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, paths)
		}
	}
}
