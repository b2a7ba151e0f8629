package audio

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"arenamic/internal/ports"
)

const wavBitDepth = 16

// wavEncoder collects PCM and emits one complete WAV file on Close, since
// the RIFF header carries the total data size.
type wavEncoder struct {
	format  ports.StreamFormat
	pcm     pcmAssembler
	samples []int
}

func newWAVEncoder(format ports.StreamFormat) (Encoder, error) {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("invalid wav format %+v", format)
	}
	return &wavEncoder{format: format}, nil
}

func (e *wavEncoder) Write(pcm []byte) error {
	for _, sample := range e.pcm.samplesFrom(pcm) {
		e.samples = append(e.samples, int(sample))
	}
	return nil
}

func (e *wavEncoder) Flush() ([]byte, error) {
	return nil, nil
}

func (e *wavEncoder) Close() ([]byte, error) {
	if len(e.samples) == 0 {
		return nil, nil
	}

	out := &writeSeekBuffer{}
	enc := wav.NewEncoder(out, e.format.SampleRate, wavBitDepth, e.format.Channels, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: e.format.Channels,
			SampleRate:  e.format.SampleRate,
		},
		Data:           e.samples,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wav: %w", err)
	}
	e.samples = nil
	return out.Bytes(), nil
}

// writeSeekBuffer is an in-memory io.WriteSeeker for the wav encoder.
type writeSeekBuffer struct {
	buf []byte
	pos int
}

func (b *writeSeekBuffer) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.buf) {
		if end > cap(b.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, b.buf)
			b.buf = grown
		} else {
			b.buf = b.buf[:end]
		}
	}
	copy(b.buf[b.pos:], p)
	b.pos = end
	return len(p), nil
}

func (b *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = b.pos
	case io.SeekEnd:
		base = len(b.buf)
	default:
		return 0, errors.New("invalid whence")
	}
	next := int64(base) + offset
	if next < 0 {
		return 0, errors.New("negative position")
	}
	b.pos = int(next)
	return next, nil
}

func (b *writeSeekBuffer) Bytes() []byte {
	return b.buf
}
