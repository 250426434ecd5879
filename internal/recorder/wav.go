package recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeSeeker is an in-memory io.WriteSeeker for WAV encoding.
type writeSeeker struct {
	buf []byte
	pos int
}

func (ws *writeSeeker) Write(p []byte) (int, error) {
	end := ws.pos + len(p)
	if end > len(ws.buf) {
		ws.buf = append(ws.buf, make([]byte, end-len(ws.buf))...)
	}
	copy(ws.buf[ws.pos:], p)
	ws.pos = end
	return len(p), nil
}

func (ws *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var newPos int
	switch whence {
	case 0: // io.SeekStart
		newPos = int(offset)
	case 1: // io.SeekCurrent
		newPos = ws.pos + int(offset)
	case 2: // io.SeekEnd
		newPos = len(ws.buf) + int(offset)
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}
	if newPos < 0 || newPos > len(ws.buf) {
		return 0, fmt.Errorf("seek position %d out of bounds [0, %d]", newPos, len(ws.buf))
	}
	ws.pos = newPos
	return int64(ws.pos), nil
}

// EncodeWAV encodes mono int16 PCM samples to WAV format in memory.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	ws := &writeSeeker{}

	intBuf := &audio.IntBuffer{
		Data: make([]int, len(samples)),
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 1,
		},
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		intBuf.Data[i] = int(s)
	}

	enc := wav.NewEncoder(ws, sampleRate, 16, 1, 1)
	if err := enc.Write(intBuf); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav encoder: %w", err)
	}

	return ws.buf, nil
}

// DecodeWAV reads a WAV file from bytes and returns the samples and sample rate.
func DecodeWAV(data []byte) ([]int16, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid WAV file")
	}

	pcmBuf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}

	samples := make([]int16, len(pcmBuf.Data))
	for i, v := range pcmBuf.Data {
		samples[i] = int16(v)
	}

	return samples, int(dec.SampleRate), nil
}

// ValidateWAVHeader reads the canonical 44-byte header and returns the
// sample rate, channel count and bit depth.
func ValidateWAVHeader(data []byte) (sampleRate int, channels int, bitDepth int, err error) {
	if len(data) < 44 {
		return 0, 0, 0, fmt.Errorf("data too short for WAV header")
	}
	if string(data[0:4]) != "RIFF" {
		return 0, 0, 0, fmt.Errorf("not a RIFF file")
	}
	if string(data[8:12]) != "WAVE" {
		return 0, 0, 0, fmt.Errorf("not a WAVE file")
	}

	var hdr struct {
		FmtID         [4]byte
		FmtSize       uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}
	if err := binary.Read(bytes.NewReader(data[12:36]), binary.LittleEndian, &hdr); err != nil {
		return 0, 0, 0, fmt.Errorf("read WAV format: %w", err)
	}
	if string(hdr.FmtID[:]) != "fmt " {
		return 0, 0, 0, fmt.Errorf("missing fmt chunk")
	}

	return int(hdr.SampleRate), int(hdr.NumChannels), int(hdr.BitsPerSample), nil
}

// maxSaveAttempts bounds the -N suffixes tried when takes share a timestamp.
const maxSaveAttempts = 100

// SaveWAV writes data to a timestamped file in dir and returns its path.
// Existing files are never overwritten: a take that lands on a used name
// gets a -1, -2, ... suffix.
func SaveWAV(dir string, data []byte, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	base := "soundtap-" + now.Format("20060102-150405")
	for i := 0; i < maxSaveAttempts; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%d", base, i)
		}
		path := filepath.Join(dir, name+".wav")
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // recordings are user files
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", err
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("no free file name for %s in %s", base, dir)
}
