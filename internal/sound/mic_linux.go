//go:build linux

package sound

import (
	"os/exec"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// DefaultInputName returns a human-readable name for the system's default
// input. It asks pactl (PulseAudio/PipeWire) for the source description
// first, then falls back to the PortAudio device name.
func (PortAudio) DefaultInputName() string {
	if name := micNameFromPactl(); name != "" {
		return name
	}
	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		return ""
	}
	return dev.Name
}

func micNameFromPactl() string {
	out, err := exec.Command("pactl", "get-default-source").Output()
	if err != nil {
		return ""
	}
	sourceName := strings.TrimSpace(string(out))
	if sourceName == "" {
		return ""
	}

	out, err = exec.Command("pactl", "list", "sources").Output()
	if err != nil {
		return ""
	}
	return describeSource(string(out), sourceName)
}

// describeSource finds the Description line of the named source in
// `pactl list sources` output. Monitor sources capture output, not a
// microphone, and are skipped.
func describeSource(listing, sourceName string) string {
	inSource := false
	for _, line := range strings.Split(listing, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Name: ") {
			inSource = strings.TrimPrefix(trimmed, "Name: ") == sourceName
		}
		if inSource && strings.HasPrefix(trimmed, "Description: ") {
			desc := strings.TrimPrefix(trimmed, "Description: ")
			if strings.HasPrefix(desc, "Monitor of ") {
				return ""
			}
			return desc
		}
	}
	return ""
}
