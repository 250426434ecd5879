package sound

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSuchDevice is returned by FindInputDevice when nothing matches.
var ErrNoSuchDevice = errors.New("no such input device")

// DeviceNotFoundError reports that the backend sees no devices at all.
// It keeps what the backend returned so the message can show both lists.
type DeviceNotFoundError struct {
	Devices  []Device
	HostAPIs []HostAPI
}

func (e *DeviceNotFoundError) Error() string {
	var b strings.Builder
	b.WriteString("no audio devices found\n\nDevices:\n")
	if len(e.Devices) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, d := range e.Devices {
		fmt.Fprintf(&b, "  %d %s (in=%d, host api %d)\n", d.Index, d.Name, d.MaxInputChannels, d.HostAPI)
	}
	b.WriteString("\nHost APIs:\n")
	if len(e.HostAPIs) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, h := range e.HostAPIs {
		fmt.Fprintf(&b, "  %d %s (%d devices)\n", h.Index, h.Name, h.DeviceCount)
	}
	return strings.TrimRight(b.String(), "\n")
}

// listDevices fetches the raw device list and fails with a
// DeviceNotFoundError when it is empty.
func listDevices(b Backend) ([]Device, error) {
	devices, err := b.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		// The host API list is diagnostic only; a failure here must not
		// mask the missing devices.
		hostAPIs, _ := b.HostAPIs()
		return nil, &DeviceNotFoundError{Devices: devices, HostAPIs: hostAPIs}
	}
	return devices, nil
}

// QueryDevices returns every device with at least one input channel,
// keyed by name. A later device with the same name wins.
func QueryDevices(b Backend) (Registry, error) {
	devices, err := listDevices(b)
	if err != nil {
		return nil, err
	}
	reg := make(Registry)
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			reg[d.Name] = d.HostAPI
		}
	}
	return reg, nil
}

// QueryHostAPIDevices is QueryDevices restricted to one host API.
func QueryHostAPIDevices(b Backend, hostAPI int) (Registry, error) {
	devices, err := listDevices(b)
	if err != nil {
		return nil, err
	}
	reg := make(Registry)
	for _, d := range devices {
		if d.MaxInputChannels > 0 && d.HostAPI == hostAPI {
			reg[d.Name] = d.HostAPI
		}
	}
	return reg, nil
}

// InputDevices returns the input-capable devices in backend order.
func InputDevices(b Backend) ([]Device, error) {
	devices, err := listDevices(b)
	if err != nil {
		return nil, err
	}
	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			out = append(out, d)
		}
	}
	return out, nil
}

// FindInputDevice looks up an input device by exact name, then by
// case-insensitive substring.
func FindInputDevice(b Backend, name string) (Device, error) {
	devices, err := InputDevices(b)
	if err != nil {
		return Device{}, err
	}
	for _, d := range devices {
		if d.Name == name {
			return d, nil
		}
	}
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle != "" {
		for _, d := range devices {
			if strings.Contains(strings.ToLower(d.Name), needle) {
				return d, nil
			}
		}
	}
	return Device{}, fmt.Errorf("%w: %q", ErrNoSuchDevice, name)
}
