package recorder

import (
	"encoding/binary"
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/Danondso/soundtap/internal/sound"
)

// ToInt16 decodes a little-endian PCM block into int16 samples, scaling
// other widths to the 16-bit range. Trailing partial samples are dropped.
func ToInt16(data []byte, format sound.SampleFormat) []int16 {
	size := format.Size()
	if size == 0 {
		return nil
	}
	out := make([]int16, len(data)/size)
	for i := range out {
		p := data[i*size:]
		switch format {
		case sound.FormatInt8:
			out[i] = int16(int8(p[0])) << 8
		case sound.FormatUint8:
			out[i] = (int16(p[0]) - 128) << 8
		case sound.FormatInt16:
			out[i] = int16(binary.LittleEndian.Uint16(p))
		case sound.FormatInt32:
			out[i] = int16(int32(binary.LittleEndian.Uint32(p)) >> 16)
		case sound.FormatFloat32:
			out[i] = floatToInt16(float64(math.Float32frombits(binary.LittleEndian.Uint32(p))))
		}
	}
	return out
}

func floatToInt16(f float64) int16 {
	v := f * 32768.0
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(math.Round(v))
}

// DownmixToMono averages interleaved frames across channels.
func DownmixToMono(samples []int16, channels int) []int16 {
	if channels <= 1 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}
	mono := make([]int16, len(samples)/channels)
	for i := range mono {
		var acc int32
		for c := 0; c < channels; c++ {
			acc += int32(samples[i*channels+c])
		}
		mono[i] = int16(acc / int32(channels))
	}
	return mono
}

// Resample converts PCM int16 samples from inputRate to outputRate using
// polyphase FIR filtering with Kaiser window (via go-audio-resampling).
// Uses QualityLow preset which provides 16-bit precision, suitable for speech.
func Resample(samples []int16, inputRate, outputRate float64) ([]int16, error) {
	if inputRate == outputRate || len(samples) == 0 {
		return samples, nil
	}

	floats := make([]float64, len(samples))
	for i, s := range samples {
		floats[i] = float64(s) / 32768.0
	}

	resampled, err := resampling.ResampleMono(floats, inputRate, outputRate, resampling.QualityLow)
	if err != nil {
		return nil, fmt.Errorf("resample mono: %w", err)
	}

	out := make([]int16, len(resampled))
	for i, f := range resampled {
		out[i] = floatToInt16(f)
	}
	return out, nil
}
