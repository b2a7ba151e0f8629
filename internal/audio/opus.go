package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	opusIDSig      = "OpusHead"
	opusCommentSig = "OpusTags"
	opusVendor     = "arenamic"

	opusSampleRate   = 48000
	opusFrameMS      = 20
	opusFrameSamples = opusSampleRate * opusFrameMS / 1000
	opusMaxPacket    = 4000

	// Encoder lookahead at 48 kHz that decoders drop from the start.
	opusPreSkip = 312
)

// opusFrameEncoder is the subset of the opus codec the Ogg encoder needs.
type opusFrameEncoder interface {
	Encode(pcm []int16, frameSize int, out []byte) ([]byte, error)
}

// oggOpusEncoder resamples to 48 kHz, encodes 20 ms frames and writes one
// Ogg page per packet. Headers are written with the first packet.
type oggOpusEncoder struct {
	codec     opusFrameEncoder
	channels  int
	inputRate int

	pcm       pcmAssembler
	resampler *linearResampler
	resampled []int16
	pending   []int16
	packet    []byte

	out            bytes.Buffer
	ogg            *oggWriter
	headersWritten bool
	granule        uint64
	packets        int
}

func newOggOpusEncoder(codec opusFrameEncoder, inputRate, channels int) (*oggOpusEncoder, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("opus supports 1 or 2 channels, got %d", channels)
	}
	if inputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", inputRate)
	}
	e := &oggOpusEncoder{
		codec:     codec,
		channels:  channels,
		inputRate: inputRate,
		packet:    make([]byte, opusMaxPacket),
	}
	if inputRate != opusSampleRate {
		e.resampler = newLinearResampler(inputRate, opusSampleRate, channels)
	}
	e.ogg = newOggWriter(&e.out)
	return e, nil
}

func (e *oggOpusEncoder) Write(pcm []byte) error {
	samples := e.pcm.samplesFrom(pcm)
	if e.resampler != nil {
		e.resampled = e.resampler.process(samples, e.resampled[:0])
		samples = e.resampled
	}
	e.pending = append(e.pending, samples...)

	frameLen := opusFrameSamples * e.channels
	consumed := 0
	for len(e.pending)-consumed >= frameLen {
		if err := e.encodeFrame(e.pending[consumed : consumed+frameLen]); err != nil {
			return err
		}
		consumed += frameLen
	}
	e.pending = append(e.pending[:0], e.pending[consumed:]...)
	return nil
}

func (e *oggOpusEncoder) Flush() ([]byte, error) {
	return e.drain(), nil
}

func (e *oggOpusEncoder) Close() ([]byte, error) {
	if len(e.pending) > 0 {
		frame := make([]int16, opusFrameSamples*e.channels)
		copy(frame, e.pending)
		e.pending = e.pending[:0]
		if err := e.encodeFrame(frame); err != nil {
			return nil, err
		}
	}
	if e.packets == 0 {
		return nil, nil
	}
	if err := e.ogg.finish(e.granule); err != nil {
		return nil, err
	}
	return e.drain(), nil
}

func (e *oggOpusEncoder) encodeFrame(frame []int16) error {
	encoded, err := e.codec.Encode(frame, opusFrameSamples, e.packet)
	if err != nil {
		return fmt.Errorf("opus encode failed: %w", err)
	}
	if len(encoded) > 255*255 {
		return fmt.Errorf("opus packet of %d bytes does not fit one ogg page", len(encoded))
	}
	if !e.headersWritten {
		if err := e.writeHeaders(); err != nil {
			return err
		}
		e.headersWritten = true
	}
	e.granule += opusFrameSamples
	e.packets++
	return e.ogg.writePage(e.ogg.newPage(encoded, e.granule))
}

func (e *oggOpusEncoder) writeHeaders() error {
	idHeader := make([]byte, 19)
	copy(idHeader[0:], opusIDSig)
	idHeader[8] = 1
	idHeader[9] = uint8(e.channels)
	binary.LittleEndian.PutUint16(idHeader[10:], opusPreSkip)
	binary.LittleEndian.PutUint32(idHeader[12:], uint32(e.inputRate))
	binary.LittleEndian.PutUint16(idHeader[16:], 0)
	idHeader[18] = 0

	idPage := e.ogg.newPage(idHeader, 0)
	idPage.isFirst = true
	if err := e.ogg.writePage(idPage); err != nil {
		return err
	}

	commentHeader := make([]byte, 8+4+len(opusVendor)+4)
	copy(commentHeader[0:], opusCommentSig)
	binary.LittleEndian.PutUint32(commentHeader[8:], uint32(len(opusVendor)))
	copy(commentHeader[12:], opusVendor)
	binary.LittleEndian.PutUint32(commentHeader[12+len(opusVendor):], 0)
	return e.ogg.writePage(e.ogg.newPage(commentHeader, 0))
}

func (e *oggOpusEncoder) drain() []byte {
	if e.out.Len() == 0 {
		return nil
	}
	chunk := append([]byte(nil), e.out.Bytes()...)
	e.out.Reset()
	return chunk
}
