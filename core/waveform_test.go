package core

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// buildWAV assembles a 16-bit PCM WAV byte stream for tests.
func buildWAV(t *testing.T, channels int, rate int, frames [][]int16) []byte {
	t.Helper()
	dataSize := len(frames) * channels * 2
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, frame := range frames {
		for _, s := range frame {
			binary.Write(&buf, binary.LittleEndian, s)
		}
	}
	return buf.Bytes()
}

func TestDecodeWAVMono(t *testing.T) {
	frames := [][]int16{{0}, {16384}, {-16384}, {32767}}
	wave, err := DecodeWAV(buildWAV(t, 1, 16000, frames))
	if err != nil {
		t.Fatal(err)
	}
	if wave.SampleRate != 16000 {
		t.Errorf("rate = %d", wave.SampleRate)
	}
	if len(wave.Samples) != 4 {
		t.Fatalf("got %d samples, want 4", len(wave.Samples))
	}
	want := []float64{0, 0.5, -0.5, 32767.0 / 32768.0}
	for i, w := range want {
		if math.Abs(wave.Samples[i]-w) > 1e-9 {
			t.Errorf("sample %d = %v, want %v", i, wave.Samples[i], w)
		}
	}
}

func TestDecodeWAVStereoAveragesToMono(t *testing.T) {
	frames := [][]int16{{16384, 0}, {0, -16384}}
	wave, err := DecodeWAV(buildWAV(t, 2, 44100, frames))
	if err != nil {
		t.Fatal(err)
	}
	if len(wave.Samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(wave.Samples))
	}
	if math.Abs(wave.Samples[0]-0.25) > 1e-9 {
		t.Errorf("sample 0 = %v, want 0.25", wave.Samples[0])
	}
	if math.Abs(wave.Samples[1]+0.25) > 1e-9 {
		t.Errorf("sample 1 = %v, want -0.25", wave.Samples[1])
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, err := DecodeWAV([]byte("definitely not a wav file, not even close")); err == nil {
		t.Error("garbage decoded without error")
	}
}

func TestSliceClamping(t *testing.T) {
	wave := &Waveform{Samples: make([]float64, 16000), SampleRate: 16000}

	cases := []struct {
		name       string
		start, end float64
		wantLen    int
	}{
		{"full", 0, 1, 16000},
		{"interior", 0.25, 0.5, 4000},
		{"past end clamps", 0.5, 99, 8000},
		{"before start clamps", -1, 0.5, 8000},
		{"fully out of range", 5, 6, 0},
		{"inverted", 0.5, 0.25, 0},
		{"zero width", 0.5, 0.5, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := len(wave.Slice(tc.start, tc.end)); got != tc.wantLen {
				t.Errorf("slice [%v,%v) has %d samples, want %d", tc.start, tc.end, got, tc.wantLen)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	wave := &Waveform{Samples: make([]float64, 8000), SampleRate: 16000}
	if d := wave.Duration(); math.Abs(d-0.5) > 1e-9 {
		t.Errorf("duration = %v, want 0.5", d)
	}
	empty := &Waveform{SampleRate: 0}
	if d := empty.Duration(); d != 0 {
		t.Errorf("zero-rate duration = %v", d)
	}
}
