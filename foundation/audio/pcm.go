// Package audio converts telephony and model audio between sample rates and
// wire formats, and provides the sample queue used for pacing.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodePCM16 serialises samples as 16-bit signed little-endian PCM.
func EncodePCM16(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}

// DecodePCM16 parses 16-bit signed little-endian PCM. A trailing odd byte is
// ignored.
func DecodePCM16(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

// EncodeBase64 returns the base64 form of samples as PCM16.
func EncodeBase64(samples []int16) string {
	return base64.StdEncoding.EncodeToString(EncodePCM16(samples))
}

// DecodeBase64 parses base64 PCM16 audio.
func DecodeBase64(s string) ([]int16, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("audio: decode base64: %w", err)
	}
	return DecodePCM16(raw), nil
}

// SamplesFor returns how many samples at rate fit in ms milliseconds.
func SamplesFor(rate, ms int) int {
	return rate * ms / 1000
}
