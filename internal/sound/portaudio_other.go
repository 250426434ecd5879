//go:build !linux

package sound

import "github.com/gordonklaus/portaudio"

// InitPortAudio initializes PortAudio. CoreAudio and WASAPI don't print
// probe noise, so nothing is redirected.
func InitPortAudio() error {
	return portaudio.Initialize()
}

// TerminatePortAudio releases the library.
func TerminatePortAudio() error {
	return portaudio.Terminate()
}
