// Package processors implements the multimodal salience and chunking
// engine: prosodic feature extraction, text importance scoring, feature
// normalization, salience fusion, hybrid semantic chunking and adaptive
// representative selection.
package processors

import (
	"math"
	"math/cmplx"
)

// Analysis frame geometry for spectral features.
const (
	mfccWindowSeconds = 0.025
	mfccHopSeconds    = 0.010
	melFilterCount    = 26
)

// fft computes an in-place radix-2 Cooley-Tukey transform. The input
// length must be a power of two.
func fft(buf []complex128) {
	n := len(buf)
	if n <= 1 {
		return
	}
	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			buf[i], buf[j] = buf[j], buf[i]
		}
	}
	for length := 2; length <= n; length <<= 1 {
		ang := -2 * math.Pi / float64(length)
		wl := cmplx.Rect(1, ang)
		for start := 0; start < n; start += length {
			w := complex(1, 0)
			for k := 0; k < length/2; k++ {
				u := buf[start+k]
				v := buf[start+k+length/2] * w
				buf[start+k] = u + v
				buf[start+k+length/2] = u - v
				w *= wl
			}
		}
	}
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// powerSpectrum returns |FFT|^2 of a windowed frame, padded to a power of
// two, keeping the nFFT/2+1 non-redundant bins.
func powerSpectrum(frame []float64) []float64 {
	nFFT := nextPowerOfTwo(len(frame))
	buf := make([]complex128, nFFT)
	for i, v := range frame {
		buf[i] = complex(v, 0)
	}
	fft(buf)
	bins := nFFT/2 + 1
	power := make([]float64, bins)
	for i := 0; i < bins; i++ {
		power[i] = real(buf[i])*real(buf[i]) + imag(buf[i])*imag(buf[i])
	}
	return power
}

func hammingWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func hzToMel(hz float64) float64  { return 2595 * math.Log10(1+hz/700) }
func melToHz(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

// melFilterbank builds triangular filters over the power-spectrum bins.
func melFilterbank(nFilters, nBins, sampleRate int) [][]float64 {
	nFFT := (nBins - 1) * 2
	lowMel := hzToMel(0)
	highMel := hzToMel(float64(sampleRate) / 2)

	// nFilters+2 equally spaced points on the mel scale.
	points := make([]int, nFilters+2)
	for i := range points {
		mel := lowMel + (highMel-lowMel)*float64(i)/float64(nFilters+1)
		points[i] = int(math.Floor((float64(nFFT) + 1) * melToHz(mel) / float64(sampleRate)))
		if points[i] > nBins-1 {
			points[i] = nBins - 1
		}
	}

	bank := make([][]float64, nFilters)
	for f := 0; f < nFilters; f++ {
		filter := make([]float64, nBins)
		left, center, right := points[f], points[f+1], points[f+2]
		for b := left; b < center; b++ {
			if center > left {
				filter[b] = float64(b-left) / float64(center-left)
			}
		}
		for b := center; b <= right && b < nBins; b++ {
			if right > center {
				filter[b] = float64(right-b) / float64(right-center)
			}
		}
		bank[f] = filter
	}
	return bank
}

// dct2 computes the first nCoeff DCT-II coefficients of the input.
func dct2(input []float64, nCoeff int) []float64 {
	n := len(input)
	out := make([]float64, nCoeff)
	for k := 0; k < nCoeff; k++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += input[i] * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/float64(n))
		}
		out[k] = sum
	}
	return out
}

// mfccMean computes an nCoeff-length cepstral vector averaged over all
// analysis frames of the slice. Returns nil when the slice is shorter
// than one frame.
func mfccMean(samples []float64, sampleRate, nCoeff int) []float64 {
	frameLen := int(mfccWindowSeconds * float64(sampleRate))
	hop := int(mfccHopSeconds * float64(sampleRate))
	if frameLen <= 0 || hop <= 0 || len(samples) < frameLen {
		return nil
	}

	window := hammingWindow(frameLen)
	var bank [][]float64
	sums := make([]float64, nCoeff)
	frames := 0

	frame := make([]float64, frameLen)
	for start := 0; start+frameLen <= len(samples); start += hop {
		for i := 0; i < frameLen; i++ {
			frame[i] = samples[start+i] * window[i]
		}
		power := powerSpectrum(frame)
		if bank == nil {
			bank = melFilterbank(melFilterCount, len(power), sampleRate)
		}

		logEnergy := make([]float64, melFilterCount)
		for f, filter := range bank {
			var e float64
			for b, w := range filter {
				e += w * power[b]
			}
			logEnergy[f] = math.Log(e + 1e-10)
		}
		coeffs := dct2(logEnergy, nCoeff)
		for i, c := range coeffs {
			sums[i] += c
		}
		frames++
	}
	if frames == 0 {
		return nil
	}
	for i := range sums {
		sums[i] /= float64(frames)
	}
	return sums
}

// rmsEnergy returns the root-mean-square amplitude of a slice.
func rmsEnergy(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// peakAmplitude returns the maximum absolute sample value.
func peakAmplitude(samples []float64) float64 {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}
