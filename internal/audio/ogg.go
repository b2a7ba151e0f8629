package audio

import (
	"encoding/binary"
	"io"
	"math/rand/v2"
)

const oggSig = "OggS"

type oggPage struct {
	isFirst  bool
	isLast   bool
	granule  uint64
	serial   uint32
	sequence uint32

	segmentTable []uint8
	segments     [][]byte
	payloadSize  int
}

var oggChecksumTable = oggCRCTable()

// oggWriter writes a single logical Ogg bitstream, one packet per page.
type oggWriter struct {
	w        io.Writer
	serial   uint32
	sequence uint32
}

func newOggWriter(out io.Writer) *oggWriter {
	return &oggWriter{w: out, serial: rand.Uint32()}
}

func (o *oggWriter) newPage(payload []byte, granule uint64) oggPage {
	table, segments := partition(payload)
	page := oggPage{
		granule:      granule,
		serial:       o.serial,
		sequence:     o.sequence,
		segmentTable: table,
		segments:     segments,
		payloadSize:  len(payload),
	}
	o.sequence++
	return page
}

func (o *oggWriter) writePage(p oggPage) error {
	headerSize := 27 + len(p.segmentTable)
	buf := make([]byte, headerSize+p.payloadSize)

	headerType := uint8(0)
	if p.isFirst {
		headerType |= 0x2
	}
	if p.isLast {
		headerType |= 0x4
	}

	copy(buf[0:], oggSig)
	buf[4] = 0
	buf[5] = headerType
	binary.LittleEndian.PutUint64(buf[6:], p.granule)
	binary.LittleEndian.PutUint32(buf[14:], p.serial)
	binary.LittleEndian.PutUint32(buf[18:], p.sequence)
	buf[26] = uint8(len(p.segmentTable))
	copy(buf[27:], p.segmentTable)

	idx := headerSize
	for _, s := range p.segments {
		idx += copy(buf[idx:], s)
	}

	var checksum uint32
	for i := range buf {
		checksum = (checksum << 8) ^ oggChecksumTable[byte(checksum>>24)^buf[i]]
	}
	binary.LittleEndian.PutUint32(buf[22:], checksum)

	_, err := o.w.Write(buf)
	return err
}

// finish writes an empty end-of-stream page.
func (o *oggWriter) finish(granule uint64) error {
	page := o.newPage(nil, granule)
	page.isLast = true
	return o.writePage(page)
}

// partition splits a packet into lacing values of at most 255 bytes.
func partition(p []byte) ([]uint8, [][]byte) {
	hint := len(p)/255 + 1
	table := make([]uint8, 0, hint)
	segments := make([][]byte, 0, hint)

	for len(p) > 255 {
		table = append(table, 255)
		segments = append(segments, p[:255])
		p = p[255:]
	}
	table = append(table, uint8(len(p)))
	segments = append(segments, p)

	// A packet of exactly 255 bytes is terminated by a zero lacing value.
	if len(p) == 255 {
		table = append(table, 0)
		segments = append(segments, []byte{})
	}
	return table, segments
}

func oggCRCTable() *[256]uint32 {
	var table [256]uint32
	const poly = 0x04c11db7

	for i := range table {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = (r << 1) ^ poly
			} else {
				r <<= 1
			}
		}
		table[i] = r
	}
	return &table
}
