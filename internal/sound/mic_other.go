//go:build !linux

package sound

import "github.com/gordonklaus/portaudio"

// DefaultInputName returns the PortAudio name of the default input device.
func (PortAudio) DefaultInputName() string {
	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		return ""
	}
	return dev.Name
}
