//go:build linux

package hotkey

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	evdev "github.com/holoplot/go-evdev"
)

// keyNameMap maps the evdev key names that make sense as a global
// "next device" key to their numeric codes. Letters and digits are left
// out: binding them globally would swallow ordinary typing.
var keyNameMap = map[string]evdev.EvCode{
	"KEY_ESC":        1,
	"KEY_TAB":        15,
	"KEY_LEFTCTRL":   29,
	"KEY_LEFTSHIFT":  42,
	"KEY_RIGHTSHIFT": 54,
	"KEY_LEFTALT":    56,
	"KEY_SPACE":      57,
	"KEY_CAPSLOCK":   58,
	"KEY_F1":         59,
	"KEY_F2":         60,
	"KEY_F3":         61,
	"KEY_F4":         62,
	"KEY_F5":         63,
	"KEY_F6":         64,
	"KEY_F7":         65,
	"KEY_F8":         66,
	"KEY_F9":         67,
	"KEY_F10":        68,
	"KEY_NUMLOCK":    69,
	"KEY_SCROLLLOCK": 70,
	"KEY_F11":        87,
	"KEY_F12":        88,
	"KEY_RIGHTCTRL":  97,
	"KEY_RIGHTALT":   100,
	"KEY_HOME":       102,
	"KEY_PAGEUP":     104,
	"KEY_END":        107,
	"KEY_PAGEDOWN":   109,
	"KEY_INSERT":     110,
	"KEY_PAUSE":      119,
	"KEY_LEFTMETA":   125,
	"KEY_RIGHTMETA":  126,
	"KEY_F13":        183,
	"KEY_F14":        184,
	"KEY_F15":        185,
	"KEY_F16":        186,
	"KEY_F17":        187,
	"KEY_F18":        188,
	"KEY_F19":        189,
	"KEY_F20":        190,
	"KEY_F21":        191,
	"KEY_F22":        192,
	"KEY_F23":        193,
	"KEY_F24":        194,
	"KEY_MICMUTE":    248,
}

// KeyCodeFromName maps an evdev key name string to its numeric key code.
func KeyCodeFromName(name string) (evdev.EvCode, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	code, ok := keyNameMap[upper]
	if !ok {
		return 0, fmt.Errorf("unknown key name: %s", name)
	}
	return code, nil
}

// FindKeyboard opens a specific device path, or auto-detects a keyboard
// by scanning /dev/input/event* for devices that support letter keys.
func FindKeyboard(devicePath string) (*evdev.InputDevice, error) {
	if devicePath != "" {
		dev, err := evdev.Open(devicePath)
		if err != nil {
			return nil, fmt.Errorf("open device %s: %w", devicePath, err)
		}
		return dev, nil
	}

	matches, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, fmt.Errorf("glob /dev/input/event*: %w", err)
	}
	sortEventPaths(matches)

	for _, path := range matches {
		dev, err := evdev.Open(path)
		if err != nil {
			continue
		}
		if isKeyboard(dev) {
			return dev, nil
		}
		_ = dev.Close()
	}

	return nil, fmt.Errorf("no keyboard device found in /dev/input/event* (is the user in the input group?)")
}

// sortEventPaths orders event device paths numerically so event7 comes
// before event10.
func sortEventPaths(paths []string) {
	num := func(p string) int {
		n, _ := strconv.Atoi(strings.TrimPrefix(p, "/dev/input/event"))
		return n
	}
	sort.Slice(paths, func(i, j int) bool { return num(paths[i]) < num(paths[j]) })
}

// isKeyboard reports whether the device has KEY_A and KEY_Z and no
// relative axes, which rules out mice and power buttons.
func isKeyboard(dev *evdev.InputDevice) bool {
	for _, evType := range dev.CapableTypes() {
		if evType == evdev.EV_REL {
			return false
		}
	}

	hasA, hasZ := false, false
	for _, code := range dev.CapableEvents(evdev.EV_KEY) {
		switch code {
		case 30: // KEY_A
			hasA = true
		case 44: // KEY_Z
			hasZ = true
		}
	}
	return hasA && hasZ
}

type linuxListener struct {
	dev     *evdev.InputDevice
	keyCode evdev.EvCode
	keyName string
	mu      sync.Mutex
	closed  bool
}

// NewListener creates a Listener for the given evdev device, key code, and key name.
func NewListener(dev *evdev.InputDevice, keyCode evdev.EvCode, keyName string) Listener {
	return &linuxListener{dev: dev, keyCode: keyCode, keyName: keyName}
}

// Start blocks reading evdev events and calls onPress on each key-down of
// the configured key. Auto-repeat is ignored. It returns when the context
// is cancelled or the device is closed.
func (l *linuxListener) Start(ctx context.Context, onPress func()) error {
	errCh := make(chan error, 1)

	go func() {
		for {
			ev, err := l.dev.ReadOne()
			if err != nil {
				l.mu.Lock()
				closed := l.closed
				l.mu.Unlock()
				if closed || os.IsNotExist(err) || strings.Contains(err.Error(), "file already closed") || strings.Contains(err.Error(), "bad file descriptor") {
					errCh <- nil
					return
				}
				errCh <- fmt.Errorf("read event: %w", err)
				return
			}

			if ev.Type == evdev.EV_KEY && ev.Code == l.keyCode && ev.Value == 1 && onPress != nil {
				onPress()
			}
		}
	}()

	select {
	case <-ctx.Done():
		l.Stop()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Stop closes the evdev device and stops the listener.
func (l *linuxListener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		_ = l.dev.Close()
	}
}

func (l *linuxListener) KeyName() string {
	return l.keyName
}
