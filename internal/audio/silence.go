package audio

import "math"

// SampleRate is the fixed capture rate in Hz. Whisper-family models expect
// 16 kHz mono input, so the whole pipeline works in that format.
const SampleRate = 16000

// MinSamples is the minimum input length the transcription engines accept:
// one second of audio. Shorter clips are right-padded with silence.
const MinSamples = SampleRate

// trimWindow is the analysis window for silence detection: 20 ms.
const trimWindow = SampleRate / 50

// TrimSilence strips leading and trailing silence from samples. Sensitivity
// runs 0.0 (keep almost everything) to 1.0 (aggressive); it is mapped onto
// a windowed RMS energy threshold. Input that is entirely silent trims to
// nil - the caller treats that as "no voice activity", not an error.
func TrimSilence(samples []float32, sensitivity float64) []float32 {
	if len(samples) == 0 {
		return nil
	}
	if sensitivity < 0 {
		sensitivity = 0
	}
	if sensitivity > 1 {
		sensitivity = 1
	}

	// 0.0 -> 0.002, 1.0 -> 0.042 RMS. Tuned against pw-record noise floors.
	threshold := 0.002 + sensitivity*0.04

	first, last := -1, -1
	for start := 0; start < len(samples); start += trimWindow {
		end := start + trimWindow
		if end > len(samples) {
			end = len(samples)
		}
		if windowRMS(samples[start:end]) >= threshold {
			if first == -1 {
				first = start
			}
			last = end
		}
	}

	if first == -1 {
		return nil
	}

	out := make([]float32, last-first)
	copy(out, samples[first:last])
	return out
}

// PadToMinDuration right-pads samples with silence up to min samples.
// Already-long-enough input is returned unchanged.
func PadToMinDuration(samples []float32, min int) []float32 {
	if len(samples) >= min {
		return samples
	}
	padded := make([]float32, min)
	copy(padded, samples)
	return padded
}

// Duration returns the play time of samples in seconds at the fixed rate.
func Duration(samples []float32) float64 {
	return float64(len(samples)) / float64(SampleRate)
}

func windowRMS(window []float32) float64 {
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, s := range window {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(window)))
}
