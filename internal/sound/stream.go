package sound

import (
	"fmt"
	"sync"
)

// PCMStream owns at most one live raw input stream and can rebind it to
// another device at runtime. The configuration and frame count are fixed
// at construction.
type PCMStream struct {
	mu      sync.Mutex
	backend Backend
	cfg     StreamConfig
	frames  int
	stream  RawInputStream
	device  int
}

// NewPCMStream creates an idle session. No stream is opened until
// ChangeDevice is called.
func NewPCMStream(b Backend, cfg StreamConfig) *PCMStream {
	return &PCMStream{
		backend: b,
		cfg:     cfg,
		frames:  cfg.Frames(),
		device:  -1,
	}
}

// Read blocks for one block of Frames() frames and returns the raw bytes.
// An idle session returns nil without error. Overflow is ignored.
func (s *PCMStream) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil, nil
	}
	data, _, err := s.stream.Read(s.frames)
	if err != nil {
		return nil, fmt.Errorf("read device %d: %w", s.device, err)
	}
	return data, nil
}

// ChangeDevice stops and closes the current stream, if any, then opens
// and starts a new one on device. If the new stream cannot be opened or
// started the session is left idle.
func (s *PCMStream) ChangeDevice(device int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardown()

	stream, err := s.backend.OpenRawInputStream(device, s.cfg, s.frames)
	if err != nil {
		return fmt.Errorf("open device %d: %w", device, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("start device %d: %w", device, err)
	}
	s.stream = stream
	s.device = device
	return nil
}

// teardown releases the current stream. Both calls are best-effort and
// always made. Caller holds mu.
func (s *PCMStream) teardown() {
	if s.stream == nil {
		return
	}
	_ = s.stream.Stop()
	_ = s.stream.Close()
	s.stream = nil
	s.device = -1
}

// Close releases the current stream and returns the session to idle.
func (s *PCMStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown()
	return nil
}

// Device returns the bound device index and whether a stream is open.
func (s *PCMStream) Device() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device, s.stream != nil
}

// Frames returns the fixed frame count per read.
func (s *PCMStream) Frames() int {
	return s.frames
}

// Config returns the configuration captured at construction.
func (s *PCMStream) Config() StreamConfig {
	return s.cfg
}
