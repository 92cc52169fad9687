package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Waveform is a decoded mono audio buffer. It is read-only once loaded;
// the prosody worker pool shares it across goroutines without locking.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the buffer length in seconds.
func (w *Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Slice returns the samples covering [start, end) seconds, clamped to the
// buffer. An out-of-range or inverted span yields an empty slice, which
// downstream feature code treats as a degraded (not fatal) input.
func (w *Waveform) Slice(start, end float64) []float64 {
	if w.SampleRate <= 0 || len(w.Samples) == 0 {
		return nil
	}
	lo := int(start * float64(w.SampleRate))
	hi := int(end * float64(w.SampleRate))
	if lo < 0 {
		lo = 0
	}
	if hi > len(w.Samples) {
		hi = len(w.Samples)
	}
	if lo >= hi {
		return nil
	}
	return w.Samples[lo:hi]
}

// wavHeader is the canonical 44-byte RIFF/WAVE PCM header.
type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// LoadWAV decodes a 16-bit PCM WAV file into a mono waveform, averaging
// channels when the source is multichannel. Samples are scaled to [-1, 1].
func LoadWAV(path string) (*Waveform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}
	return DecodeWAV(data)
}

// DecodeWAV decodes 16-bit PCM WAV bytes into a mono waveform.
func DecodeWAV(data []byte) (*Waveform, error) {
	r := bytes.NewReader(data)

	var hdr wavHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("decode wav header: %w", err)
	}
	if string(hdr.ChunkID[:]) != "RIFF" || string(hdr.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE file")
	}
	if hdr.AudioFormat != 1 {
		return nil, fmt.Errorf("unsupported audio format %d (want PCM)", hdr.AudioFormat)
	}
	if hdr.BitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d (want 16)", hdr.BitsPerSample)
	}
	if hdr.NumChannels == 0 || hdr.SampleRate == 0 {
		return nil, fmt.Errorf("invalid wav header: channels=%d rate=%d", hdr.NumChannels, hdr.SampleRate)
	}

	// The fmt chunk may carry extension bytes; skip past them, then walk
	// chunks until the data chunk.
	if hdr.Subchunk1Size > 16 {
		if _, err := r.Seek(int64(hdr.Subchunk1Size-16), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("seek past fmt extension: %w", err)
		}
	}
	var dataSize uint32
	for {
		var id [4]byte
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("no data chunk found")
		}
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, fmt.Errorf("read chunk size: %w", err)
		}
		if string(id[:]) == "data" {
			dataSize = size
			break
		}
		if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("seek past %q chunk: %w", id, err)
		}
	}

	channels := int(hdr.NumChannels)
	frameCount := int(dataSize) / (2 * channels)
	raw := make([]int16, frameCount*channels)
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("read pcm data: %w", err)
	}

	samples := make([]float64, frameCount)
	for i := 0; i < frameCount; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(raw[i*channels+ch])
		}
		samples[i] = sum / float64(channels) / 32768.0
	}

	return &Waveform{Samples: samples, SampleRate: int(hdr.SampleRate)}, nil
}
