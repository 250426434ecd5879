package recorder

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Danondso/soundtap/internal/sound"
)

// blockSource replays a fixed int16 stereo block; nil blocks simulate an
// idle session.
type blockSource struct {
	mu    sync.Mutex
	block []byte
	err   error
	reads int
}

func (s *blockSource) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	if s.block == nil {
		return nil, nil
	}
	out := make([]byte, len(s.block))
	copy(out, s.block)
	// Give the pump loop a chance to observe cancellation between blocks.
	time.Sleep(time.Millisecond)
	return out, nil
}

func stereoBlock(frames int, left, right int16) []byte {
	b := make([]byte, frames*4)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(b[i*4:], uint16(left))
		binary.LittleEndian.PutUint16(b[i*4+2:], uint16(right))
	}
	return b
}

func stereoConfig(rate float64) sound.StreamConfig {
	return sound.StreamConfig{Channels: 2, SampleFormat: sound.FormatInt16, SampleRate: rate}
}

func runFor(t *testing.T, r *Recorder, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if err := r.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected Run to stop on context, got %v", err)
	}
}

func TestRecorderCapturesWhileArmed(t *testing.T) {
	src := &blockSource{block: stereoBlock(160, 1000, 3000)}
	r := New(src, stereoConfig(16000), 16000, 60)

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	if err := r.Start(); err == nil {
		t.Error("expected error when starting twice")
	}
	runFor(t, r, 50*time.Millisecond)

	wavData, truncated, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if truncated {
		t.Error("did not expect truncation")
	}
	samples, sr, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sr != 16000 {
		t.Errorf("expected 16000 Hz, got %d", sr)
	}
	if len(samples) == 0 || len(samples)%160 != 0 {
		t.Fatalf("expected whole blocks of mono samples, got %d", len(samples))
	}
	if samples[0] != 2000 {
		t.Errorf("expected downmixed sample 2000, got %d", samples[0])
	}
}

func TestRecorderStopWithoutStart(t *testing.T) {
	r := New(&blockSource{}, stereoConfig(16000), 16000, 60)
	if _, _, err := r.Stop(); err == nil {
		t.Error("expected error when not recording")
	}
}

func TestRecorderIdleSourceKeepsLevelZero(t *testing.T) {
	src := &blockSource{}
	r := New(src, stereoConfig(48000), 16000, 60)
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	runFor(t, r, 30*time.Millisecond)

	if r.AudioLevel() != 0 {
		t.Errorf("expected level 0 for idle source, got %f", r.AudioLevel())
	}
	if _, _, err := r.Stop(); err == nil {
		t.Error("expected 'no audio captured' error")
	}
}

func TestRecorderTruncatesAtMaxDuration(t *testing.T) {
	// 8000 Hz, 1s limit, 4000-frame blocks: the second block fills it.
	src := &blockSource{block: stereoBlock(4000, 100, 100)}
	r := New(src, stereoConfig(8000), 8000, 1)
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	runFor(t, r, 40*time.Millisecond)

	if r.IsRecording() {
		t.Error("expected recording to stop at max duration")
	}
	wavData, truncated, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !truncated {
		t.Error("expected truncated=true")
	}
	samples, _, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 8000 {
		t.Errorf("expected exactly 8000 samples, got %d", len(samples))
	}
}

func TestRecorderPassthrough(t *testing.T) {
	block := stereoBlock(32, 7, -7)
	src := &blockSource{block: block}
	r := New(src, stereoConfig(48000), 16000, 60)

	var out bytes.Buffer
	var mu sync.Mutex
	r.SetPassthrough(lockedWriter{&mu, &out})
	runFor(t, r, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if out.Len() == 0 || out.Len()%len(block) != 0 {
		t.Fatalf("expected whole raw blocks, got %d bytes", out.Len())
	}
	if !bytes.Equal(out.Bytes()[:len(block)], block) {
		t.Error("expected raw bytes copied unchanged")
	}
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (l lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, os.ErrClosed }

func TestRecorderPassthroughErrorDetaches(t *testing.T) {
	src := &blockSource{block: stereoBlock(32, 1, 1)}
	r := New(src, stereoConfig(48000), 16000, 60)

	var mu sync.Mutex
	var errs []error
	r.OnError = func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}
	r.SetPassthrough(failingWriter{})
	runFor(t, r, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 1 {
		t.Fatalf("expected exactly one passthrough error, got %d", len(errs))
	}
	if !errors.Is(errs[0], os.ErrClosed) {
		t.Errorf("expected wrapped write error, got %v", errs[0])
	}
}

func TestRecorderReportsReadErrors(t *testing.T) {
	boom := errors.New("device unplugged")
	src := &blockSource{err: boom}
	r := New(src, stereoConfig(48000), 16000, 60)

	var mu sync.Mutex
	count := 0
	r.OnError = func(err error) {
		if errors.Is(err, boom) {
			mu.Lock()
			count++
			mu.Unlock()
		}
	}
	runFor(t, r, 80*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("expected one report for a failing stretch, got %d", count)
	}
	// Errors back off by idlePoll, so the source is not hammered.
	if src.reads > 5 {
		t.Errorf("expected back-off between failed reads, got %d reads", src.reads)
	}
}

func TestRecorderReportsAgainAfterRecovery(t *testing.T) {
	boom := errors.New("device unplugged")
	src := &blockSource{err: boom, block: stereoBlock(16, 1, 1)}
	r := New(src, stereoConfig(48000), 16000, 60)

	var mu sync.Mutex
	count := 0
	r.OnError = func(error) {
		mu.Lock()
		count++
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()

	time.Sleep(70 * time.Millisecond)
	src.mu.Lock()
	src.err = nil
	src.mu.Unlock()
	time.Sleep(70 * time.Millisecond)
	src.mu.Lock()
	src.err = boom
	src.mu.Unlock()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Errorf("expected one report per failing stretch (2), got %d", count)
	}
}

func TestRecorderSetLimits(t *testing.T) {
	// Built with a 60s limit, then lowered to 1s at 8000 Hz: the second
	// 4000-frame block fills the take.
	src := &blockSource{block: stereoBlock(4000, 100, 100)}
	r := New(src, stereoConfig(8000), 16000, 60)
	r.SetLimits(8000, 1)
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	runFor(t, r, 40*time.Millisecond)

	if r.IsRecording() {
		t.Fatal("expected the lowered limit to stop the take")
	}
	wavData, truncated, err := r.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if !truncated {
		t.Error("expected truncated=true")
	}
	samples, sr, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatal(err)
	}
	if sr != 8000 {
		t.Errorf("expected new target rate 8000, got %d", sr)
	}
	if len(samples) != 8000 {
		t.Errorf("expected 8000 samples, got %d", len(samples))
	}
}

func TestRecorderElapsed(t *testing.T) {
	r := New(&blockSource{}, stereoConfig(48000), 16000, 60)
	if r.Elapsed() != 0 {
		t.Error("expected zero elapsed while not recording")
	}
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if r.Elapsed() <= 0 {
		t.Error("expected elapsed time while recording")
	}
}

func TestAudioLevel(t *testing.T) {
	src := &blockSource{block: stereoBlock(64, 16384, 16384)}
	r := New(src, stereoConfig(48000), 16000, 60)
	runFor(t, r, 20*time.Millisecond)

	if got := r.AudioLevel(); math.Abs(got-0.5) > 0.001 {
		t.Errorf("expected level 0.5, got %f", got)
	}
}

func TestComputeRMS(t *testing.T) {
	tests := []struct {
		name     string
		buf      []int16
		channels int
		want     float64
	}{
		{"empty", nil, 1, 0},
		{"silence", []int16{0, 0, 0, 0}, 1, 0},
		{"full scale mono", []int16{-32768, -32768}, 1, 1},
		{"stereo cancels", []int16{16384, -16384, 16384, -16384}, 2, 0},
		{"half scale stereo", []int16{16384, 16384}, 2, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeRMS(tt.buf, tt.channels); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("computeRMS = %f, want %f", got, tt.want)
			}
		})
	}
}
