package sound

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestPCMStreamIdleRead(t *testing.T) {
	b := &fakeBackend{}
	s := NewPCMStream(b, stereo16())

	data, err := s.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data != nil {
		t.Errorf("expected nil data before any device is selected, got %d bytes", len(data))
	}
	if len(b.opened) != 0 {
		t.Error("expected no stream opened at construction")
	}
	if _, ok := s.Device(); ok {
		t.Error("expected idle session")
	}
}

func TestPCMStreamChangeDevice(t *testing.T) {
	b := &fakeBackend{}
	s := NewPCMStream(b, stereo16())

	if err := s.ChangeDevice(1); err != nil {
		t.Fatalf("ChangeDevice(1): %v", err)
	}
	if len(b.opened) != 1 {
		t.Fatalf("expected 1 stream opened, got %d", len(b.opened))
	}
	first := b.opened[0]
	if first.device != 1 {
		t.Errorf("expected device 1, got %d", first.device)
	}
	if !first.started {
		t.Error("expected stream to be started")
	}
	if dev, ok := s.Device(); !ok || dev != 1 {
		t.Errorf("expected active device 1, got %d (active=%v)", dev, ok)
	}

	data, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(data) != s.Frames()*4 {
		t.Errorf("expected %d bytes, got %d", s.Frames()*4, len(data))
	}

	if err := s.ChangeDevice(2); err != nil {
		t.Fatalf("ChangeDevice(2): %v", err)
	}
	if !first.stopped || !first.closed {
		t.Errorf("expected previous stream stopped and closed, got stopped=%v closed=%v", first.stopped, first.closed)
	}
	if len(b.opened) != 2 || b.opened[1].device != 2 {
		t.Fatalf("expected second stream on device 2")
	}
	if dev, _ := s.Device(); dev != 2 {
		t.Errorf("expected active device 2, got %d", dev)
	}
}

func TestPCMStreamStopBeforeClose(t *testing.T) {
	b := &fakeBackend{}
	s := NewPCMStream(b, stereo16())
	if err := s.ChangeDevice(0); err != nil {
		t.Fatal(err)
	}
	if err := s.ChangeDevice(3); err != nil {
		t.Fatal(err)
	}

	got := strings.Join(b.opened[0].calls, ",")
	if got != "start,stop,close" {
		t.Errorf("expected start,stop,close, got %s", got)
	}
}

func TestPCMStreamRepeatedSwitchesNoLeak(t *testing.T) {
	b := &fakeBackend{}
	s := NewPCMStream(b, stereo16())

	for i := 0; i < 5; i++ {
		if err := s.ChangeDevice(i); err != nil {
			t.Fatalf("ChangeDevice(%d): %v", i, err)
		}
	}

	live := 0
	for _, st := range b.opened {
		if !st.closed {
			live++
		}
	}
	if live != 1 {
		t.Errorf("expected exactly 1 live stream, got %d", live)
	}
	if b.opened[4].closed {
		t.Error("expected latest stream to stay open")
	}
}

func TestPCMStreamReadIgnoresOverflow(t *testing.T) {
	b := &fakeBackend{overflow: true}
	s := NewPCMStream(b, stereo16())
	if err := s.ChangeDevice(1); err != nil {
		t.Fatal(err)
	}

	data, err := s.Read()
	if err != nil {
		t.Fatalf("expected overflow to be ignored, got %v", err)
	}
	if len(data) != s.Frames()*4 {
		t.Errorf("expected %d bytes, got %d", s.Frames()*4, len(data))
	}
}

func TestPCMStreamReadError(t *testing.T) {
	b := &fakeBackend{}
	s := NewPCMStream(b, stereo16())
	if err := s.ChangeDevice(1); err != nil {
		t.Fatal(err)
	}
	b.opened[0].readErr = errBoom

	if _, err := s.Read(); !errors.Is(err, errBoom) {
		t.Errorf("expected wrapped read error, got %v", err)
	}
}

func TestPCMStreamOpenFailureLeavesIdle(t *testing.T) {
	b := &fakeBackend{}
	s := NewPCMStream(b, stereo16())
	if err := s.ChangeDevice(1); err != nil {
		t.Fatal(err)
	}

	b.openErr = errBoom
	if err := s.ChangeDevice(2); !errors.Is(err, errBoom) {
		t.Fatalf("expected open error, got %v", err)
	}
	if !b.opened[0].closed {
		t.Error("expected old stream closed even though the new one failed")
	}
	if _, ok := s.Device(); ok {
		t.Error("expected idle session after failed switch")
	}
	if data, err := s.Read(); data != nil || err != nil {
		t.Errorf("expected idle read, got %d bytes, err=%v", len(data), err)
	}
}

func TestPCMStreamStartFailureClosesNewStream(t *testing.T) {
	b := &fakeBackend{startErr: errBoom}
	s := NewPCMStream(b, stereo16())

	if err := s.ChangeDevice(1); !errors.Is(err, errBoom) {
		t.Fatalf("expected start error, got %v", err)
	}
	if !b.opened[0].closed {
		t.Error("expected unstarted stream to be closed")
	}
	if _, ok := s.Device(); ok {
		t.Error("expected idle session")
	}
}

func TestPCMStreamClose(t *testing.T) {
	b := &fakeBackend{}
	s := NewPCMStream(b, stereo16())
	if err := s.Close(); err != nil {
		t.Fatalf("Close on idle session: %v", err)
	}
	if err := s.ChangeDevice(1); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if !b.opened[0].stopped || !b.opened[0].closed {
		t.Error("expected Close to stop and close the stream")
	}
	if err := s.Close(); err != nil {
		t.Errorf("expected second Close to be a no-op, got %v", err)
	}
}

func TestPCMStreamFrameCountFixed(t *testing.T) {
	b := &fakeBackend{}
	cfg := stereo16()
	cfg.Block = 10 * time.Millisecond
	s := NewPCMStream(b, cfg)

	if s.Frames() != 480 {
		t.Fatalf("expected 480 frames, got %d", s.Frames())
	}
	for i := 0; i < 3; i++ {
		if err := s.ChangeDevice(i); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range b.openFrames {
		if f != 480 {
			t.Errorf("expected every stream opened with 480 frames, got %d", f)
		}
	}
}

// gatedStream blocks Read until release is closed and logs lifecycle
// events in order.
type gatedStream struct {
	mu      sync.Mutex
	events  []string
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStream) log(ev string) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *gatedStream) Start() error { s.log("start"); return nil }
func (s *gatedStream) Stop() error  { s.log("stop"); return nil }
func (s *gatedStream) Close() error { s.log("close"); return nil }

func (s *gatedStream) Read(frames int) ([]byte, bool, error) {
	close(s.entered)
	<-s.release
	s.log("read done")
	return make([]byte, frames*4), false, nil
}

func (s *gatedStream) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

type gatedBackend struct {
	fakeBackend
	first *gatedStream
	used  bool
}

func (b *gatedBackend) OpenRawInputStream(device int, cfg StreamConfig, frames int) (RawInputStream, error) {
	if !b.used {
		b.used = true
		return b.first, nil
	}
	return b.fakeBackend.OpenRawInputStream(device, cfg, frames)
}

func TestPCMStreamChangeDeviceWaitsForRead(t *testing.T) {
	gs := &gatedStream{entered: make(chan struct{}), release: make(chan struct{})}
	b := &gatedBackend{first: gs}
	s := NewPCMStream(b, stereo16())
	if err := s.ChangeDevice(1); err != nil {
		t.Fatal(err)
	}

	readDone := make(chan error, 1)
	go func() {
		_, err := s.Read()
		readDone <- err
	}()
	<-gs.entered

	switched := make(chan error, 1)
	go func() { switched <- s.ChangeDevice(2) }()

	select {
	case <-switched:
		t.Fatal("ChangeDevice returned while a read was in flight")
	case <-time.After(30 * time.Millisecond):
	}
	for _, ev := range gs.snapshot() {
		if ev == "stop" || ev == "close" {
			t.Fatalf("stream torn down during read: %v", gs.snapshot())
		}
	}

	close(gs.release)
	if err := <-readDone; err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := <-switched; err != nil {
		t.Fatalf("ChangeDevice: %v", err)
	}

	want := []string{"start", "read done", "stop", "close"}
	got := gs.snapshot()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected events %v, got %v", want, got)
	}
	if dev, ok := s.Device(); !ok || dev != 2 {
		t.Errorf("expected active device 2, got %d (%v)", dev, ok)
	}
}

func TestPAStreamEncode(t *testing.T) {
	tests := []struct {
		name string
		s    paStream
		want []byte
	}{
		{"int8", paStream{frames: 2, channels: 1, format: FormatInt8, i8: []int8{-1, 2}}, []byte{0xff, 0x02}},
		{"uint8", paStream{frames: 2, channels: 1, format: FormatUint8, u8: []uint8{0x80, 0x7f}}, []byte{0x80, 0x7f}},
		{"int16", paStream{frames: 1, channels: 2, format: FormatInt16, i16: []int16{0x0102, -2}}, []byte{0x02, 0x01, 0xfe, 0xff}},
		{"int32", paStream{frames: 1, channels: 1, format: FormatInt32, i32: []int32{0x01020304}}, []byte{0x04, 0x03, 0x02, 0x01}},
		{"float32", paStream{frames: 1, channels: 1, format: FormatFloat32, f32: []float32{1.0}}, []byte{0x00, 0x00, 0x80, 0x3f}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.encode(); !bytes.Equal(got, tt.want) {
				t.Errorf("encode = % x, want % x", got, tt.want)
			}
		})
	}
}
