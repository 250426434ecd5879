package chime

import (
	"bytes"
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"

	"github.com/Danondso/soundtap/internal/recorder"
)

const (
	toneSampleRate = 44100
	toneDuration   = 0.15

	// speakerRate is the rate the speaker is opened at; cues recorded at
	// other rates are resampled to it.
	speakerRate     = beep.SampleRate(toneSampleRate)
	resampleQuality = 4
)

// Player manages audio cue playback.
type Player struct {
	switchData []byte
	startData  []byte
	stopData   []byte
	enabled    atomic.Bool
	logger     *log.Logger
	initOnce   sync.Once
	initErr    error
}

// New creates a Player. Empty paths fall back to synthesized tones.
// If enabled is false, every Play method is a no-op.
func New(switchPath, startPath, stopPath string, enabled bool, logger *log.Logger) (*Player, error) {
	p := &Player{logger: logger}
	p.enabled.Store(enabled)

	var err error
	// Switch: quick rising fifth. Start: A4 -> C5. Stop: C5 -> A4.
	if p.switchData, err = loadOrSynth(switchPath, 440, 660); err != nil {
		return nil, fmt.Errorf("switch chime: %w", err)
	}
	if p.startData, err = loadOrSynth(startPath, 440, 523); err != nil {
		return nil, fmt.Errorf("start chime: %w", err)
	}
	if p.stopData, err = loadOrSynth(stopPath, 523, 440); err != nil {
		return nil, fmt.Errorf("stop chime: %w", err)
	}
	return p, nil
}

func loadOrSynth(path string, startFreq, endFreq float64) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return data, nil
	}
	return recorder.EncodeWAV(sweep(toneSampleRate, toneDuration, startFreq, endFreq), toneSampleRate)
}

// sweep renders a linear frequency glide with a half-sine envelope.
func sweep(sampleRate int, duration, startFreq, endFreq float64) []int16 {
	numSamples := int(float64(sampleRate) * duration)
	samples := make([]int16, numSamples)
	for i := 0; i < numSamples; i++ {
		t := float64(i) / float64(sampleRate)
		progress := float64(i) / float64(numSamples)
		freq := startFreq + (endFreq-startFreq)*progress
		envelope := math.Sin(math.Pi * progress)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * envelope * 16000)
	}
	return samples
}

func (p *Player) initSpeaker() {
	p.initOnce.Do(func() {
		p.initErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
}

// atSpeakerRate resamples s when its rate differs from the speaker's.
func atSpeakerRate(s beep.Streamer, format beep.Format) beep.Streamer {
	if format.SampleRate == speakerRate {
		return s
	}
	return beep.Resample(resampleQuality, format.SampleRate, speakerRate, s)
}

func (p *Player) play(data []byte) {
	if !p.enabled.Load() || len(data) == 0 {
		return
	}

	go func() {
		streamer, format, err := wav.Decode(bytes.NewReader(data))
		if err != nil {
			if p.logger != nil {
				p.logger.Printf("chime: wav decode error: %v", err)
			}
			return
		}
		defer streamer.Close()

		p.initSpeaker()
		if p.initErr != nil {
			if p.logger != nil {
				p.logger.Printf("chime: speaker init error: %v", p.initErr)
			}
			return
		}

		done := make(chan struct{})
		speaker.Play(beep.Seq(atSpeakerRate(streamer, format), beep.Callback(func() {
			close(done)
		})))
		<-done
	}()
}

// SetEnabled turns playback on or off.
func (p *Player) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// PlaySwitch plays the device-switched cue (non-blocking).
func (p *Player) PlaySwitch() {
	p.play(p.switchData)
}

// PlayStart plays the recording-started cue (non-blocking).
func (p *Player) PlayStart() {
	p.play(p.startData)
}

// PlayStop plays the recording-stopped cue (non-blocking).
func (p *Player) PlayStop() {
	p.play(p.stopData)
}
