package processors

import "math"

// Voicing decision thresholds for the autocorrelation tracker. A frame is
// voiced when its best normalized autocorrelation peak clears the
// correlation floor and the frame has non-negligible energy.
const (
	voicedCorrelationFloor = 0.30
	voicedEnergyFloor      = 1e-4
)

// pitchTrack estimates the fundamental frequency per analysis frame using
// normalized autocorrelation, restricted to [minHz, maxHz]. Only voiced
// frames contribute; the returned slice holds one estimate per voiced
// frame, in order.
func pitchTrack(samples []float64, sampleRate int, minHz, maxHz float64) []float64 {
	if len(samples) == 0 || sampleRate <= 0 || minHz <= 0 || maxHz <= minHz {
		return nil
	}

	minLag := int(float64(sampleRate) / maxHz)
	maxLag := int(float64(sampleRate) / minHz)
	if minLag < 2 {
		minLag = 2
	}
	frameLen := 2 * maxLag
	if frameLen < 1024 {
		frameLen = 1024
	}
	hop := frameLen / 2
	if len(samples) < frameLen {
		// One short frame is better than no estimate for brief segments.
		frameLen = len(samples)
		hop = frameLen
		if frameLen <= maxLag {
			maxLag = frameLen - 1
		}
		if maxLag <= minLag {
			return nil
		}
	}

	var voiced []float64
	for start := 0; start+frameLen <= len(samples); start += hop {
		frame := samples[start : start+frameLen]
		if f0, ok := framePitch(frame, sampleRate, minLag, maxLag); ok {
			voiced = append(voiced, f0)
		}
		if hop == 0 {
			break
		}
	}
	return voiced
}

// framePitch returns the autocorrelation pitch estimate for one frame and
// whether the frame is voiced.
func framePitch(frame []float64, sampleRate, minLag, maxLag int) (float64, bool) {
	var energy float64
	for _, s := range frame {
		energy += s * s
	}
	if energy/float64(len(frame)) < voicedEnergyFloor {
		return 0, false
	}

	bestLag := 0
	bestCorr := 0.0
	for lag := minLag; lag <= maxLag && lag < len(frame); lag++ {
		var corr float64
		for i := 0; i+lag < len(frame); i++ {
			corr += frame[i] * frame[i+lag]
		}
		corr /= energy
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag == 0 || bestCorr < voicedCorrelationFloor {
		return 0, false
	}
	return float64(sampleRate) / float64(bestLag), true
}

// meanStd returns the mean and population standard deviation of values.
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}
