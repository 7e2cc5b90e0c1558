// Package audio holds the PCM framing shared by the capture client and the
// relay: floating-point samples are quantized to 16-bit signed little-endian
// PCM, the only encoding the recognizer stream accepts.
package audio

import "encoding/binary"

// FrameSize is the reference capture buffer size in samples. Small enough to
// keep end-to-end latency low, large enough to avoid flooding the transport.
const FrameSize = 4096

// EncodePCM quantizes float32 samples in [-1, 1] to 16-bit signed
// little-endian PCM bytes. Out-of-range samples are clamped.
func EncodePCM(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s < 0 {
			v = int16(s * 0x8000)
		} else {
			v = int16(s * 0x7FFF)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// DecodePCM is the inverse of EncodePCM, used by tests and local playback.
// A trailing odd byte is ignored.
func DecodePCM(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		if v < 0 {
			out[i] = float32(v) / 0x8000
		} else {
			out[i] = float32(v) / 0x7FFF
		}
	}
	return out
}
