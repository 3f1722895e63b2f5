package audio

// DefaultFadeLen and DefaultCrossfadeLen are the boundary lengths, in samples,
// used on the telephony side.
const (
	DefaultFadeLen      = 16
	DefaultCrossfadeLen = 8
)

// ApplyFade returns a copy of samples with a linear ramp in over the first
// fadeLen samples and a ramp out over the last fadeLen. Blocks shorter than
// two ramps are returned unchanged.
func ApplyFade(samples []int16, fadeLen int) []int16 {
	if fadeLen <= 0 || len(samples) < fadeLen*2 {
		return samples
	}
	out := FadeIn(samples, fadeLen)
	fadeOutInPlace(out, fadeLen)
	return out
}

// FadeIn returns a copy of samples with a linear ramp in over the first
// fadeLen samples.
func FadeIn(samples []int16, fadeLen int) []int16 {
	out := append([]int16(nil), samples...)
	n := min(fadeLen, len(out))
	for i := 0; i < n; i++ {
		out[i] = scale(out[i], ramp(i, fadeLen))
	}
	return out
}

// FadeOut returns a copy of samples with a linear ramp out over the last
// fadeLen samples.
func FadeOut(samples []int16, fadeLen int) []int16 {
	out := append([]int16(nil), samples...)
	fadeOutInPlace(out, fadeLen)
	return out
}

// FadeOutTail ramps out the last fadeLen samples held in q.
func FadeOutTail(q *Queue, fadeLen int) {
	n := min(fadeLen, q.Len())
	start := q.Len() - n
	for i := 0; i < n; i++ {
		q.Set(start+i, scale(q.At(start+i), 1-ramp(i+fadeLen-n, fadeLen)))
	}
}

// CrossfadeAppend appends samples to q. When q already holds audio, the last
// xfadeLen queued samples are blended against the first xfadeLen new samples
// with a weight rising from 0 to 1, and the remaining new samples are
// appended unmodified. Short inputs fall back to a plain append.
func CrossfadeAppend(q *Queue, samples []int16, xfadeLen int) {
	if xfadeLen <= 0 || q.Len() < xfadeLen || len(samples) < xfadeLen {
		q.Push(samples...)
		return
	}

	start := q.Len() - xfadeLen
	for i := 0; i < xfadeLen; i++ {
		w := float64(i+1) / float64(xfadeLen+1)
		old := float64(q.At(start + i))
		q.Set(start+i, clip16(old*(1-w)+float64(samples[i])*w))
	}
	q.Push(samples[xfadeLen:]...)
}

func fadeOutInPlace(out []int16, fadeLen int) {
	n := min(fadeLen, len(out))
	start := len(out) - n
	for i := 0; i < n; i++ {
		out[start+i] = scale(out[start+i], 1-ramp(i+fadeLen-n, fadeLen))
	}
}

// ramp is the weight of position i in a linear ramp of length n that starts
// at 0 and ends at 1.
func ramp(i, n int) float64 {
	if n <= 1 {
		return 1
	}
	return float64(i) / float64(n-1)
}

func scale(s int16, w float64) int16 {
	return clip16(float64(s) * w)
}

func clip16(v float64) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	}
	return int16(v)
}
