package sound

import (
	"bytes"
	"errors"
)

// fakeStream records lifecycle calls in the order they happen.
type fakeStream struct {
	device  int
	frames  int
	bpf     int
	calls   []string
	started bool
	stopped bool
	closed  bool

	overflow bool
	readErr  error
	startErr error
}

func (s *fakeStream) Start() error {
	s.calls = append(s.calls, "start")
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *fakeStream) Stop() error {
	s.calls = append(s.calls, "stop")
	s.stopped = true
	return nil
}

func (s *fakeStream) Close() error {
	s.calls = append(s.calls, "close")
	s.closed = true
	return nil
}

func (s *fakeStream) Read(frames int) ([]byte, bool, error) {
	s.calls = append(s.calls, "read")
	if s.readErr != nil {
		return nil, false, s.readErr
	}
	return bytes.Repeat([]byte("x"), frames*s.bpf), s.overflow, nil
}

type fakeBackend struct {
	devices    []Device
	hostAPIs   []HostAPI
	devErr     error
	hostErr    error
	defaults   StreamConfig
	opened     []*fakeStream
	openErr    error
	startErr   error
	overflow   bool
	openFrames []int
}

func (b *fakeBackend) Devices() ([]Device, error) {
	return b.devices, b.devErr
}

func (b *fakeBackend) HostAPIs() ([]HostAPI, error) {
	return b.hostAPIs, b.hostErr
}

func (b *fakeBackend) DefaultConfig() (StreamConfig, error) {
	return b.defaults, nil
}

func (b *fakeBackend) OpenRawInputStream(device int, cfg StreamConfig, frames int) (RawInputStream, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	s := &fakeStream{
		device:   device,
		frames:   frames,
		bpf:      cfg.BytesPerFrame(),
		overflow: b.overflow,
		startErr: b.startErr,
	}
	b.opened = append(b.opened, s)
	b.openFrames = append(b.openFrames, frames)
	return s, nil
}

var errBoom = errors.New("boom")

func stereo16() StreamConfig {
	return StreamConfig{
		HostAPI:      0,
		Channels:     2,
		SampleFormat: FormatInt16,
		Latency:      LatencyLow,
		SampleRate:   48000,
	}
}
