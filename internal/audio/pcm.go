package audio

import "slices"

func bytesToLES16Slice(src []byte, dst []int16) []int16 {
	s16len := len(src) / 2
	dst = slices.Grow(dst, s16len)
	for i := 0; i < s16len; i++ {
		dst = append(dst, int16(src[i*2])|(int16(src[i*2+1])<<8))
	}
	return dst
}

// pcmAssembler turns arbitrary byte writes into whole s16 samples, carrying
// an odd trailing byte over to the next write.
type pcmAssembler struct {
	carry   []byte
	scratch []byte
	samples []int16
}

func (a *pcmAssembler) samplesFrom(p []byte) []int16 {
	if len(a.carry) > 0 {
		a.scratch = append(a.scratch[:0], a.carry...)
		a.scratch = append(a.scratch, p...)
		p = a.scratch
		a.carry = a.carry[:0]
	}
	if len(p)%2 == 1 {
		a.carry = append(a.carry, p[len(p)-1])
		p = p[:len(p)-1]
	}
	a.samples = bytesToLES16Slice(p, a.samples[:0])
	return a.samples
}

// linearResampler converts interleaved s16 audio between sample rates by
// linear interpolation, keeping state across calls.
type linearResampler struct {
	channels int
	step     float64

	pos     float64
	prev    []int16
	hasPrev bool
	frames  []int16
}

func newLinearResampler(fromRate, toRate, channels int) *linearResampler {
	if channels <= 0 {
		channels = 1
	}
	return &linearResampler{
		channels: channels,
		step:     float64(fromRate) / float64(toRate),
		prev:     make([]int16, channels),
	}
}

func (r *linearResampler) process(in []int16, out []int16) []int16 {
	ch := r.channels
	if len(in) < ch {
		return out
	}

	buf := in
	if r.hasPrev {
		r.frames = append(r.frames[:0], r.prev...)
		r.frames = append(r.frames, in...)
		buf = r.frames
	}
	n := len(buf) / ch

	for {
		i := int(r.pos)
		if i+1 >= n {
			break
		}
		frac := r.pos - float64(i)
		for c := 0; c < ch; c++ {
			a := float64(buf[i*ch+c])
			b := float64(buf[(i+1)*ch+c])
			out = append(out, int16(a+(b-a)*frac))
		}
		r.pos += r.step
	}

	copy(r.prev, buf[(n-1)*ch:n*ch])
	r.hasPrev = true
	r.pos -= float64(n - 1)
	return out
}
