package audio

import (
	"bytes"
	"encoding/binary"
	"math"
)

// EncodeWAV converts float32 samples to a 16-bit PCM mono WAV file at the
// fixed sample rate, the format the HTTP transcription APIs expect.
func EncodeWAV(samples []float32) []byte {
	var buf bytes.Buffer

	const channels = 1
	const bitsPerSample = 16
	const byteRate = SampleRate * channels * bitsPerSample / 8
	const blockAlign = channels * bitsPerSample / 8

	dataSize := len(samples) * 2
	fileSize := 36 + dataSize

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(fileSize))
	buf.WriteString("WAVE")

	// fmt chunk
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	// data chunk
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, pcm16(s))
	}

	return buf.Bytes()
}

// DecodeS16LE converts raw little-endian 16-bit PCM bytes (the pw-record
// output format) to float32 samples in [-1, 1). A trailing odd byte is
// dropped.
func DecodeS16LE(data []byte) []float32 {
	n := len(data) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		samples[i] = float32(v) / 32768.0
	}
	return samples
}

func pcm16(s float32) int16 {
	f := float64(s)
	if f > 1 {
		f = 1
	}
	if f < -1 {
		f = -1
	}
	return int16(math.Round(f * 32767))
}
