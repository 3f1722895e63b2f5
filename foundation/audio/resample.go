package audio

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// headroom is the gain applied when converting back to int16 so that filter
// overshoot does not clip.
const headroom = 0.90

// Resampler converts one continuous mono stream between two rates. The
// filter state carries over between calls to Process, so consecutive chunks
// join without losing samples at the seams. A Resampler is owned by a single
// goroutine.
type Resampler struct {
	r resampling.Resampler
}

// NewResampler returns a stream resampler from fromRate to toRate. Equal
// rates give a pass-through Resampler.
func NewResampler(fromRate, toRate int) (*Resampler, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid rates %d -> %d", fromRate, toRate)
	}
	if fromRate == toRate {
		return &Resampler{}, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(fromRate),
		OutputRate: float64(toRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	return &Resampler{r: r}, nil
}

// Process converts the next chunk of the stream. Output may lag input by
// the filter latency until Flush is called.
func (rs *Resampler) Process(samples []int16) []int16 {
	if rs.r == nil || len(samples) == 0 {
		return samples
	}

	out, err := rs.r.Process(toFloat(samples))
	if err != nil {
		return nil
	}
	return toInt16(out)
}

// Flush returns what the filter still holds and readies the Resampler for
// a new stream.
func (rs *Resampler) Flush() []int16 {
	if rs.r == nil {
		return nil
	}
	defer rs.r.Reset()

	tail, err := rs.r.Flush()
	if err != nil {
		return nil
	}
	return toInt16(tail)
}

// Reset drops the filter state without producing output.
func (rs *Resampler) Reset() {
	if rs.r != nil {
		rs.r.Reset()
	}
}

// Resample converts a whole mono buffer from fromRate to toRate. Equal
// rates or empty input return samples unchanged. Output is scaled by a fixed
// headroom and hard clipped to the int16 range. Invalid rates or a filter
// failure return nil. Use a Resampler for audio that arrives in chunks.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if len(samples) == 0 || fromRate == toRate {
		return samples
	}

	rs, err := NewResampler(fromRate, toRate)
	if err != nil {
		return nil
	}

	out := rs.Process(samples)
	if out == nil {
		return nil
	}
	return append(out, rs.Flush()...)
}

func toFloat(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / 32768.0
	}
	return out
}

func toInt16(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := s * headroom
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = int16(math.Round(v * 32767.0))
	}
	return out
}
