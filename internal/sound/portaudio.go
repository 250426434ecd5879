package sound

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gordonklaus/portaudio"
)

// PortAudio is the production Backend. Call InitPortAudio before use and
// TerminatePortAudio when done.
type PortAudio struct{}

// Devices lists every PortAudio device, input-capable or not.
func (PortAudio) Devices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	hosts, err := portaudio.HostApis()
	if err != nil {
		return nil, err
	}
	devices := make([]Device, 0, len(infos))
	for _, d := range infos {
		devices = append(devices, Device{
			Index:             d.Index,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			HostAPI:           hostAPIIndex(hosts, d.HostApi),
			DefaultSampleRate: d.DefaultSampleRate,
		})
	}
	return devices, nil
}

// HostAPIs lists the host APIs PortAudio was built with.
func (PortAudio) HostAPIs() ([]HostAPI, error) {
	hosts, err := portaudio.HostApis()
	if err != nil {
		return nil, err
	}
	out := make([]HostAPI, 0, len(hosts))
	for i, h := range hosts {
		out = append(out, HostAPI{Index: i, Name: h.Name, DeviceCount: len(h.Devices)})
	}
	return out, nil
}

// DefaultConfig reads the default host API and input device.
func (PortAudio) DefaultConfig() (StreamConfig, error) {
	hosts, err := portaudio.HostApis()
	if err != nil {
		return StreamConfig{}, err
	}
	host, err := portaudio.DefaultHostApi()
	if err != nil {
		return StreamConfig{}, fmt.Errorf("default host api: %w", err)
	}
	cfg := StreamConfig{
		HostAPI:      hostAPIIndex(hosts, host),
		Channels:     1,
		SampleFormat: FormatInt16,
		Latency:      LatencyHigh,
		SampleRate:   DefaultSampleRate,
		Block:        DefaultBlock,
	}

	defIn, err := portaudio.DefaultInputDevice()
	if err != nil || defIn == nil {
		return cfg, nil
	}
	cfg.Channels = defIn.MaxInputChannels
	if cfg.Channels > 2 {
		cfg.Channels = 2
	}
	if cfg.Channels < 1 {
		cfg.Channels = 1
	}
	if defIn.DefaultSampleRate > 0 {
		cfg.SampleRate = defIn.DefaultSampleRate
	}
	return cfg, nil
}

// DefaultInputDevice returns the index of PortAudio's default input device.
func (PortAudio) DefaultInputDevice() (int, bool) {
	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		return -1, false
	}
	return dev.Index, true
}

// OpenRawInputStream opens a blocking input stream on device. The stream
// is created stopped.
func (PortAudio) OpenRawInputStream(device int, cfg StreamConfig, frames int) (RawInputStream, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	var dev *portaudio.DeviceInfo
	for _, d := range infos {
		if d.Index == device {
			dev = d
			break
		}
	}
	if dev == nil {
		return nil, fmt.Errorf("%w: index %d", ErrNoSuchDevice, device)
	}
	if cfg.Channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", cfg.Channels)
	}

	latency, err := cfg.Latency.Resolve(dev.DefaultLowInputLatency, dev.DefaultHighInputLatency)
	if err != nil {
		return nil, err
	}

	s := &paStream{frames: frames, channels: cfg.Channels, format: cfg.SampleFormat}
	buf, err := s.allocate()
	if err != nil {
		return nil, err
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: cfg.Channels,
			Latency:  latency,
		},
		SampleRate:      cfg.SampleRate,
		FramesPerBuffer: frames,
	}
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, err
	}
	s.stream = stream
	return s, nil
}

func hostAPIIndex(hosts []*portaudio.HostApiInfo, h *portaudio.HostApiInfo) int {
	if h == nil {
		return -1
	}
	for i, candidate := range hosts {
		if candidate == h {
			return i
		}
	}
	for i, candidate := range hosts {
		if candidate.Name == h.Name {
			return i
		}
	}
	return -1
}

// paStream adapts a blocking portaudio.Stream to RawInputStream. Exactly
// one of the typed buffers is set, matching format.
type paStream struct {
	stream   *portaudio.Stream
	frames   int
	channels int
	format   SampleFormat

	i8  []int8
	u8  []uint8
	i16 []int16
	i32 []int32
	f32 []float32
}

func (s *paStream) allocate() (interface{}, error) {
	n := s.frames * s.channels
	switch s.format {
	case FormatInt8:
		s.i8 = make([]int8, n)
		return s.i8, nil
	case FormatUint8:
		s.u8 = make([]uint8, n)
		return s.u8, nil
	case FormatInt16:
		s.i16 = make([]int16, n)
		return s.i16, nil
	case FormatInt32:
		s.i32 = make([]int32, n)
		return s.i32, nil
	case FormatFloat32:
		s.f32 = make([]float32, n)
		return s.f32, nil
	}
	return nil, fmt.Errorf("unsupported sample format %q", s.format)
}

func (s *paStream) Start() error { return s.stream.Start() }
func (s *paStream) Stop() error  { return s.stream.Stop() }
func (s *paStream) Close() error { return s.stream.Close() }

func (s *paStream) Read(frames int) ([]byte, bool, error) {
	if frames != s.frames {
		return nil, false, fmt.Errorf("stream opened for %d frames, asked for %d", s.frames, frames)
	}
	overflowed := false
	if err := s.stream.Read(); err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return nil, false, err
		}
		overflowed = true
	}
	return s.encode(), overflowed, nil
}

// encode copies the typed buffer out as little-endian bytes.
func (s *paStream) encode() []byte {
	out := make([]byte, s.frames*s.channels*s.format.Size())
	switch s.format {
	case FormatInt8:
		for i, v := range s.i8 {
			out[i] = byte(v)
		}
	case FormatUint8:
		copy(out, s.u8)
	case FormatInt16:
		for i, v := range s.i16 {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
		}
	case FormatInt32:
		for i, v := range s.i32 {
			binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
		}
	case FormatFloat32:
		for i, v := range s.f32 {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
	}
	return out
}
