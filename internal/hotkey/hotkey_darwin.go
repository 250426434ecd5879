//go:build darwin

package hotkey

import (
	"context"
	"fmt"
	"strings"

	"golang.design/x/hotkey"
)

var modifierMap = map[string]hotkey.Modifier{
	"OPTION": hotkey.ModOption,
	"ALT":    hotkey.ModOption,
	"CTRL":   hotkey.ModCtrl,
	"SHIFT":  hotkey.ModShift,
	"CMD":    hotkey.ModCmd,
}

var keyMap = map[string]hotkey.Key{
	"SPACE":  hotkey.KeySpace,
	"RETURN": hotkey.KeyReturn,
	"ESCAPE": hotkey.KeyEscape,
	"TAB":    hotkey.KeyTab,
	"LEFT":   hotkey.KeyLeft,
	"RIGHT":  hotkey.KeyRight,
	"UP":     hotkey.KeyUp,
	"DOWN":   hotkey.KeyDown,
	"F1":     hotkey.KeyF1,
	"F2":     hotkey.KeyF2,
	"F3":     hotkey.KeyF3,
	"F4":     hotkey.KeyF4,
	"F5":     hotkey.KeyF5,
	"F6":     hotkey.KeyF6,
	"F7":     hotkey.KeyF7,
	"F8":     hotkey.KeyF8,
	"F9":     hotkey.KeyF9,
	"F10":    hotkey.KeyF10,
	"F11":    hotkey.KeyF11,
	"F12":    hotkey.KeyF12,
	"D":      hotkey.KeyD,
	"M":      hotkey.KeyM,
	"N":      hotkey.KeyN,
}

// ParseHotkeyCombo parses a combo like "Option+F9" or "Ctrl+Shift+N".
// evdev-style "KEY_F9" names are accepted for configs shared with Linux
// and bound with Option.
func ParseHotkeyCombo(combo string) ([]hotkey.Modifier, hotkey.Key, string, error) {
	combo = strings.TrimSpace(combo)
	if combo == "" {
		return nil, 0, "", fmt.Errorf("empty hotkey combo")
	}

	upper := strings.ToUpper(combo)
	if strings.HasPrefix(upper, "KEY_") {
		key, ok := keyMap[strings.TrimPrefix(upper, "KEY_")]
		if !ok {
			return nil, 0, "", fmt.Errorf("unknown evdev key: %s (on macOS, use modifier+key combos like Option+F9)", combo)
		}
		return []hotkey.Modifier{hotkey.ModOption}, key, combo, nil
	}

	parts := strings.Split(combo, "+")
	if len(parts) < 2 {
		return nil, 0, "", fmt.Errorf("hotkey must be modifier+key (e.g. Option+F9), got: %s", combo)
	}

	var mods []hotkey.Modifier
	for _, part := range parts[:len(parts)-1] {
		part = strings.TrimSpace(part)
		mod, ok := modifierMap[strings.ToUpper(part)]
		if !ok {
			return nil, 0, "", fmt.Errorf("unknown modifier: %s (valid: Option, Alt, Ctrl, Shift, Cmd)", part)
		}
		mods = append(mods, mod)
	}

	keyStr := strings.TrimSpace(parts[len(parts)-1])
	key, ok := keyMap[strings.ToUpper(keyStr)]
	if !ok {
		return nil, 0, "", fmt.Errorf("unknown key: %s", keyStr)
	}

	return mods, key, combo, nil
}

type darwinListener struct {
	mods    []hotkey.Modifier
	key     hotkey.Key
	keyName string
	hk      *hotkey.Hotkey
}

// NewListener creates a darwin hotkey Listener for the given modifiers, key, and display name.
func NewListener(mods []hotkey.Modifier, key hotkey.Key, keyName string) Listener {
	return &darwinListener{mods: mods, key: key, keyName: keyName}
}

// Start registers the hotkey and calls onPress on every key-down.
// It blocks until the context is cancelled.
func (l *darwinListener) Start(ctx context.Context, onPress func()) error {
	l.hk = hotkey.New(l.mods, l.key)
	if err := l.hk.Register(); err != nil {
		return fmt.Errorf("register hotkey %s: %w (grant Accessibility permissions in System Settings > Privacy & Security)", l.keyName, err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = l.hk.Unregister()
			return ctx.Err()
		case <-l.hk.Keydown():
			if onPress != nil {
				onPress()
			}
		case <-l.hk.Keyup():
		}
	}
}

// Stop unregisters the hotkey.
func (l *darwinListener) Stop() {
	if l.hk != nil {
		_ = l.hk.Unregister()
	}
}

func (l *darwinListener) KeyName() string {
	return l.keyName
}
