//go:build cgo && !noaudio

package audio

import (
	"github.com/companyzero/gopus"

	"arenamic/internal/ports"
)

const opusBitrate = 32000

func init() {
	registerBuiltin(MimeOggOpus, newGopusEncoder)
	registerBuiltin(MimeOgg, newGopusEncoder)
}

func newGopusEncoder(format ports.StreamFormat) (Encoder, error) {
	codec, err := gopus.NewEncoder(opusSampleRate, format.Channels, gopus.Voip)
	if err != nil {
		return nil, err
	}
	codec.SetBitrate(opusBitrate)
	return newOggOpusEncoder(codec, format.SampleRate, format.Channels)
}
