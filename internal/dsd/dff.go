package dsd

import (
	"encoding/binary"
	"fmt"
	"io"
)

type dffChunk struct {
	id   string
	body int64
	size int64
}

// next returns the offset of the chunk following c. Chunks are padded to an
// even length.
func (c dffChunk) next() int64 {
	return c.body + c.size + c.size&1
}

func readDFFChunk(r io.ReaderAt, off int64) (dffChunk, error) {
	var hdr [dffChunkHeaderSize]byte
	if _, err := r.ReadAt(hdr[:], off); err != nil {
		return dffChunk{}, fmt.Errorf("%w: chunk at %d: %w", ErrInvalidHeader, off, err)
	}
	size := binary.BigEndian.Uint64(hdr[4:12])
	if size > 1<<62 {
		return dffChunk{}, fmt.Errorf("%w: chunk %q size %d", ErrInvalidHeader, hdr[0:4], size)
	}
	return dffChunk{
		id:   string(hdr[0:4]),
		body: off + dffChunkHeaderSize,
		size: int64(size),
	}, nil
}

// parseDFF walks the FRM8 form of a DSDIFF file. All fields are big-endian
// and sample data is always MSB first.
func parseDFF(r io.ReaderAt) (layout, error) {
	var form [dffFormHeaderSize]byte
	if _, err := r.ReadAt(form[:], 0); err != nil {
		return layout{}, fmt.Errorf("%w: FRM8 chunk: %w", ErrInvalidHeader, err)
	}
	if string(form[12:16]) != dffFormType {
		return layout{}, fmt.Errorf("%w: form type %q", ErrUnsupportedFormat, form[12:16])
	}
	end := dffChunkHeaderSize + int64(binary.BigEndian.Uint64(form[4:12]))

	l := layout{
		blockSize:  dffBlockSize,
		interleave: byteInterleaved,
	}

	off := int64(dffFormHeaderSize)
	for range dffMaxChunks {
		if off+dffChunkHeaderSize > end {
			break
		}
		c, err := readDFFChunk(r, off)
		if err != nil {
			return layout{}, err
		}

		switch c.id {
		case dffPropID:
			if err := parseDFFProp(r, c, &l); err != nil {
				return layout{}, err
			}
		case dffDSTID:
			return layout{}, ErrCompressed
		case dffDataID:
			if l.channels == 0 {
				return layout{}, fmt.Errorf("%w: sound data before PROP chunk", ErrInvalidHeader)
			}
			l.dataOffset = c.body
			l.dataBytes = c.size / int64(l.channels)
			return l, nil
		}

		off = c.next()
	}

	return layout{}, fmt.Errorf("%w: no DSD sound data chunk", ErrInvalidHeader)
}

func parseDFFProp(r io.ReaderAt, prop dffChunk, l *layout) error {
	var kind [4]byte
	if _, err := r.ReadAt(kind[:], prop.body); err != nil {
		return fmt.Errorf("%w: PROP chunk: %w", ErrInvalidHeader, err)
	}
	if string(kind[:]) != dffSoundType {
		return nil
	}

	end := prop.body + prop.size
	off := prop.body + int64(len(kind))
	for range dffMaxChunks {
		if off+dffChunkHeaderSize > end {
			return nil
		}
		c, err := readDFFChunk(r, off)
		if err != nil {
			return err
		}

		var buf [4]byte
		switch c.id {
		case dffRateID:
			if _, err := r.ReadAt(buf[:4], c.body); err != nil {
				return fmt.Errorf("%w: FS chunk: %w", ErrInvalidHeader, err)
			}
			l.sampleRate = int(binary.BigEndian.Uint32(buf[:4]))
		case dffChanID:
			if _, err := r.ReadAt(buf[:2], c.body); err != nil {
				return fmt.Errorf("%w: CHNL chunk: %w", ErrInvalidHeader, err)
			}
			l.channels = int(binary.BigEndian.Uint16(buf[:2]))
		case dffCmprID:
			if _, err := r.ReadAt(buf[:4], c.body); err != nil {
				return fmt.Errorf("%w: CMPR chunk: %w", ErrInvalidHeader, err)
			}
			switch string(buf[:4]) {
			case dffRawCmpr:
			case dffDSTID:
				return ErrCompressed
			default:
				return fmt.Errorf("%w: compression %q", ErrUnsupportedFormat, buf[:4])
			}
		}

		off = c.next()
	}
	return nil
}
