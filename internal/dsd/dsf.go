package dsd

import (
	"encoding/binary"
	"fmt"
	"io"
)

// parseDSF reads the DSD, fmt and data chunks of a DSF file. All fields are
// little-endian.
func parseDSF(r io.ReaderAt) (layout, error) {
	le := binary.LittleEndian

	var hdr [dsfHeaderChunkSize]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return layout{}, fmt.Errorf("%w: DSD chunk: %w", ErrInvalidHeader, err)
	}
	fmtOff := int64(le.Uint64(hdr[4:12]))
	if fmtOff < dsfHeaderChunkSize {
		return layout{}, fmt.Errorf("%w: DSD chunk size %d", ErrInvalidHeader, fmtOff)
	}

	var fmtChunk [dsfFmtChunkSize]byte
	if _, err := r.ReadAt(fmtChunk[:], fmtOff); err != nil {
		return layout{}, fmt.Errorf("%w: fmt chunk: %w", ErrInvalidHeader, err)
	}
	if string(fmtChunk[0:4]) != dsfFmtID {
		return layout{}, fmt.Errorf("%w: expected fmt chunk, got %q", ErrInvalidHeader, fmtChunk[0:4])
	}
	fmtSize := int64(le.Uint64(fmtChunk[4:12]))
	if fmtSize < dsfFmtChunkSize {
		return layout{}, fmt.Errorf("%w: fmt chunk size %d", ErrInvalidHeader, fmtSize)
	}

	if id := le.Uint32(fmtChunk[dsfFmtFormatIDOff:]); id != dsfFormatRaw {
		return layout{}, fmt.Errorf("%w: DSF format id %d", ErrUnsupportedFormat, id)
	}

	l := layout{
		channels:   int(le.Uint32(fmtChunk[dsfFmtChannelsOff:])),
		sampleRate: int(le.Uint32(fmtChunk[dsfFmtRateOff:])),
		blockSize:  int(le.Uint32(fmtChunk[dsfFmtBlockSizeOff:])),
		interleave: blockInterleaved,
	}

	switch bps := le.Uint32(fmtChunk[dsfFmtBitsOff:]); bps {
	case dsfBitsLSBFirst:
		l.lsbFirst = true
	case dsfBitsMSBFirst:
	default:
		return layout{}, fmt.Errorf("%w: %d bits per sample", ErrInvalidHeader, bps)
	}

	if l.blockSize <= 0 || l.blockSize > maxBlockSize {
		return layout{}, fmt.Errorf("%w: block size %d", ErrInvalidHeader, l.blockSize)
	}

	samples := int64(le.Uint64(fmtChunk[dsfFmtSamplesOff:]))
	l.dataBytes = (samples + bitsPerByte - 1) / bitsPerByte

	dataOff := fmtOff + fmtSize
	var dataHdr [dsfChunkHeaderSize]byte
	if _, err := r.ReadAt(dataHdr[:], dataOff); err != nil {
		return layout{}, fmt.Errorf("%w: data chunk: %w", ErrInvalidHeader, err)
	}
	if string(dataHdr[0:4]) != dsfDataID {
		return layout{}, fmt.Errorf("%w: expected data chunk, got %q", ErrInvalidHeader, dataHdr[0:4])
	}
	l.dataOffset = dataOff + dsfChunkHeaderSize

	return l, nil
}
