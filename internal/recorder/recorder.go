package recorder

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Danondso/soundtap/internal/sound"
)

// Source delivers raw PCM blocks. A nil block with a nil error means no
// device is selected yet. *sound.PCMStream satisfies it.
type Source interface {
	Read() ([]byte, error)
}

// idlePoll is how long Run waits before polling an idle or failing source again.
const idlePoll = 50 * time.Millisecond

// Recorder pumps blocks out of a Source. It always tracks the input level,
// copies raw bytes to an optional passthrough writer, and accumulates mono
// samples while armed with Start.
type Recorder struct {
	mu             sync.Mutex
	src            Source
	format         sound.SampleFormat
	channels       int
	nativeSR       float64
	targetSR       int
	maxDurationSec int

	buf         []int16
	recording   bool
	truncated   bool
	startTime   time.Time
	passthrough io.Writer
	audioLevel  uint64 // atomic float64 bits; RMS of last block (0.0–1.0)

	// OnError, if set, is called for every failed read or passthrough write.
	OnError func(error)
}

// New creates a Recorder reading from src, which produces blocks in the
// layout described by cfg.
func New(src Source, cfg sound.StreamConfig, targetSampleRate, maxDurationSec int) *Recorder {
	channels := cfg.Channels
	if channels < 1 {
		channels = 1
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = sound.DefaultSampleRate
	}
	return &Recorder{
		src:            src,
		format:         cfg.SampleFormat,
		channels:       channels,
		nativeSR:       rate,
		targetSR:       targetSampleRate,
		maxDurationSec: maxDurationSec,
	}
}

// Run reads from the source until ctx is cancelled. Only the first read
// error of a failing stretch goes to OnError; the next block or idle read
// re-arms reporting.
func (r *Recorder) Run(ctx context.Context) error {
	failing := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		block, err := r.src.Read()
		if err != nil {
			if !failing {
				r.report(err)
			}
			failing = true
			if !sleepCtx(ctx, idlePoll) {
				return ctx.Err()
			}
			continue
		}
		failing = false
		if block == nil {
			atomic.StoreUint64(&r.audioLevel, math.Float64bits(0))
			if !sleepCtx(ctx, idlePoll) {
				return ctx.Err()
			}
			continue
		}

		r.consume(block)
	}
}

func (r *Recorder) consume(block []byte) {
	samples := ToInt16(block, r.format)
	atomic.StoreUint64(&r.audioLevel, math.Float64bits(computeRMS(samples, r.channels)))

	r.mu.Lock()
	var writeErr error
	if r.passthrough != nil {
		if _, err := r.passthrough.Write(block); err != nil {
			r.passthrough = nil
			writeErr = fmt.Errorf("passthrough: %w", err)
		}
	}
	if r.recording {
		r.buf = append(r.buf, DownmixToMono(samples, r.channels)...)
		maxSamples := int(r.nativeSR) * r.maxDurationSec
		if r.maxDurationSec > 0 && len(r.buf) >= maxSamples {
			r.buf = r.buf[:maxSamples]
			r.truncated = true
			r.recording = false
		}
	}
	r.mu.Unlock()

	if writeErr != nil {
		r.report(writeErr)
	}
}

func (r *Recorder) report(err error) {
	if r.OnError != nil {
		r.OnError(err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// SetLimits changes the output sample rate and the max take length. A take
// in progress is truncated against the new limit.
func (r *Recorder) SetLimits(targetSampleRate, maxDurationSec int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targetSR = targetSampleRate
	r.maxDurationSec = maxDurationSec
}

// SetPassthrough copies every raw block to w. Pass nil to stop. A failed
// write detaches the writer.
func (r *Recorder) SetPassthrough(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passthrough = w
}

// Start arms capture. Returns an error if already recording.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return fmt.Errorf("already recording")
	}
	r.buf = nil
	r.truncated = false
	r.startTime = time.Now()
	r.recording = true
	return nil
}

// Stop disarms capture and returns the WAV-encoded audio data.
// The second return value indicates if recording was truncated due to max duration.
func (r *Recorder) Stop() ([]byte, bool, error) {
	r.mu.Lock()
	wasRecording := r.recording
	truncated := r.truncated
	r.recording = false
	r.truncated = false
	samples := r.buf
	r.buf = nil
	nativeSR := r.nativeSR
	targetSR := r.targetSR
	r.mu.Unlock()

	if !wasRecording && !truncated {
		return nil, false, fmt.Errorf("not recording")
	}
	if len(samples) == 0 {
		return nil, truncated, fmt.Errorf("no audio captured")
	}

	if int(nativeSR) != targetSR {
		resampled, err := Resample(samples, nativeSR, float64(targetSR))
		if err != nil {
			return nil, truncated, fmt.Errorf("resample: %w", err)
		}
		samples = resampled
	}

	wavData, err := EncodeWAV(samples, targetSR)
	if err != nil {
		return nil, truncated, fmt.Errorf("encode wav: %w", err)
	}
	return wavData, truncated, nil
}

// IsRecording returns whether the recorder is currently capturing.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Elapsed returns how long the current recording has been running.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return 0
	}
	return time.Since(r.startTime)
}

// AudioLevel returns the RMS amplitude of the most recently read block,
// in the range [0.0, 1.0]. Safe to call from any goroutine.
func (r *Recorder) AudioLevel() float64 {
	return math.Float64frombits(atomic.LoadUint64(&r.audioLevel))
}

// computeRMS computes the root-mean-square of interleaved int16 samples,
// averaging channels per frame, normalized to [0.0, 1.0].
func computeRMS(buf []int16, channels int) float64 {
	if channels < 1 {
		channels = 1
	}
	n := len(buf) / channels
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+channels <= len(buf); i += channels {
		var acc int64
		for c := 0; c < channels; c++ {
			acc += int64(buf[i+c])
		}
		v := float64(acc) / float64(channels) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
