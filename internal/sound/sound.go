// Package sound enumerates input-capable recording devices and keeps a
// switchable raw PCM input stream on top of a native audio backend.
package sound

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Device describes one device as reported by the backend.
type Device struct {
	Index             int
	Name              string
	MaxInputChannels  int
	HostAPI           int
	DefaultSampleRate float64
}

// HostAPI describes a native audio subsystem (ALSA, CoreAudio, WASAPI, ...).
type HostAPI struct {
	Index       int
	Name        string
	DeviceCount int
}

// Registry maps a device name to the index of its host API.
type Registry map[string]int

// RawInputStream is an open, device-bound capture channel.
type RawInputStream interface {
	Start() error
	Stop() error
	Close() error
	// Read blocks until frames frames are available. overflowed reports
	// that the backend dropped input since the previous read.
	Read(frames int) (data []byte, overflowed bool, err error)
}

// Backend is the boundary to the native audio library.
type Backend interface {
	Devices() ([]Device, error)
	HostAPIs() ([]HostAPI, error)
	DefaultConfig() (StreamConfig, error)
	OpenRawInputStream(device int, cfg StreamConfig, frames int) (RawInputStream, error)
}

// SampleFormat names the on-the-wire sample encoding.
type SampleFormat string

const (
	FormatInt8    SampleFormat = "int8"
	FormatUint8   SampleFormat = "uint8"
	FormatInt16   SampleFormat = "int16"
	FormatInt32   SampleFormat = "int32"
	FormatFloat32 SampleFormat = "float32"
)

// Size returns the number of bytes per sample, or 0 for an unknown format.
func (f SampleFormat) Size() int {
	switch f {
	case FormatInt8, FormatUint8:
		return 1
	case FormatInt16:
		return 2
	case FormatInt32, FormatFloat32:
		return 4
	}
	return 0
}

// ParseSampleFormat accepts the names above, case-insensitively.
func ParseSampleFormat(s string) (SampleFormat, error) {
	f := SampleFormat(strings.ToLower(strings.TrimSpace(s)))
	if f.Size() == 0 {
		return "", fmt.Errorf("unknown sample format %q (valid: int8, uint8, int16, int32, float32)", s)
	}
	return f, nil
}

// Latency is "low", "high", or an explicit duration such as "25ms".
type Latency string

const (
	LatencyLow  Latency = "low"
	LatencyHigh Latency = "high"
)

// Resolve maps the latency class onto a device's suggested latencies.
func (l Latency) Resolve(low, high time.Duration) (time.Duration, error) {
	switch Latency(strings.ToLower(string(l))) {
	case LatencyLow:
		return low, nil
	case LatencyHigh, "":
		return high, nil
	}
	d, err := time.ParseDuration(string(l))
	if err != nil {
		return 0, fmt.Errorf("latency %q: want low, high or a duration", string(l))
	}
	if d < 0 {
		return 0, fmt.Errorf("latency %q: negative", string(l))
	}
	return d, nil
}

const (
	// DefaultBlock is the capture window returned by each read.
	DefaultBlock = 20 * time.Millisecond
	// DefaultSampleRate is used when neither backend nor config supply one.
	DefaultSampleRate = 48000
)

// StreamConfig is the capture configuration shared by every stream a
// PCMStream opens.
type StreamConfig struct {
	// HostAPI is the host API the backend reported with its defaults. It is
	// informational: the device index passed to ChangeDevice decides where
	// a stream opens, and WithOverrides never changes it.
	HostAPI      int
	Channels     int
	SampleFormat SampleFormat
	Latency      Latency
	SampleRate   float64
	Block        time.Duration
}

// Frames returns the number of frames delivered per read.
func (c StreamConfig) Frames() int {
	rate := c.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	block := c.Block
	if block <= 0 {
		block = DefaultBlock
	}
	n := int(math.Round(rate * block.Seconds()))
	if n < 1 {
		n = 1
	}
	return n
}

// BytesPerFrame is the size of one frame across all channels.
func (c StreamConfig) BytesPerFrame() int {
	return c.Channels * c.SampleFormat.Size()
}

// WithOverrides returns c with every non-zero field of o applied, except
// HostAPI.
func (c StreamConfig) WithOverrides(o StreamConfig) StreamConfig {
	if o.Channels > 0 {
		c.Channels = o.Channels
	}
	if o.SampleFormat != "" {
		c.SampleFormat = o.SampleFormat
	}
	if o.Latency != "" {
		c.Latency = o.Latency
	}
	if o.SampleRate > 0 {
		c.SampleRate = o.SampleRate
	}
	if o.Block > 0 {
		c.Block = o.Block
	}
	return c
}
