// Package dsd reads DSD audio from DSF and DSDIFF containers and converts the
// bitstream into interleaved 32-bit samples, either as DSD-over-PCM frames or
// as lowpass filtered PCM.
//
// A File delivers planar blocks of raw DSD bytes. Blocks are normalized to
// MSB-first order with Block.MSBOrder, optionally decimated by a Decimator
// and packed by a DoPPacker or PCMPacker.
package dsd

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Common errors returned while opening a container.
var (
	// ErrUnsupportedFormat indicates the input is neither DSF nor DSDIFF.
	ErrUnsupportedFormat = errors.New("unsupported DSD container")

	// ErrInvalidHeader indicates a malformed or truncated container header.
	ErrInvalidHeader = errors.New("invalid DSD header")

	// ErrCompressed indicates DST compressed DSDIFF data.
	ErrCompressed = errors.New("DST compressed DSD is not supported")
)

// interleaving describes how channel data is laid out in the data chunk.
type interleaving int

const (
	// blockInterleaved stores blockSize bytes of channel 0, then of channel
	// 1 and so on (DSF).
	blockInterleaved interleaving = iota

	// byteInterleaved stores one byte per channel in turn (DSDIFF).
	byteInterleaved
)

// layout is the container-independent description of the audio data.
type layout struct {
	sampleRate int
	channels   int
	lsbFirst   bool
	dataOffset int64
	// dataBytes is the number of valid bytes per channel.
	dataBytes  int64
	blockSize  int
	interleave interleaving
}

// File is an opened DSD source.
type File struct {
	r      io.ReaderAt
	closer io.Closer
	layout

	start int64
	stop  int64
	pos   int64

	raw   []byte
	block *Block
}

// Open opens a DSF or DSDIFF file.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	d, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	d.closer = f
	return d, nil
}

// NewReader parses the container header from r.
func NewReader(r io.ReaderAt) (*File, error) {
	var magic [4]byte
	if _, err := r.ReadAt(magic[:], 0); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}

	var (
		l   layout
		err error
	)
	switch string(magic[:]) {
	case dsfMagic:
		l, err = parseDSF(r)
	case dffMagic:
		l, err = parseDFF(r)
	default:
		return nil, fmt.Errorf("%w: magic %q", ErrUnsupportedFormat, magic[:])
	}
	if err != nil {
		return nil, err
	}

	if l.channels < 1 || l.channels > maxChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidHeader, l.channels)
	}
	if l.sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidHeader, l.sampleRate)
	}

	return &File{
		r:      r,
		layout: l,
		stop:   l.dataBytes,
		raw:    make([]byte, l.blockSize*l.channels),
		block:  NewBlock(l.channels, l.blockSize),
	}, nil
}

// SampleRate returns the DSD bit rate per channel in Hz.
func (f *File) SampleRate() int { return f.sampleRate }

// Channels returns the number of channels.
func (f *File) Channels() int { return f.channels }

// MaxBytesPerChannel is the largest BytesPerChannel a Read can return.
func (f *File) MaxBytesPerChannel() int { return f.blockSize }

// Len returns the number of bytes per channel between the start and stop
// positions.
func (f *File) Len() int64 { return f.stop - f.start }

// SetStart positions the reader ms milliseconds into the stream.
func (f *File) SetStart(ms uint32) {
	f.start = min(f.msToBytes(ms), f.stop)
	f.pos = f.start
}

// SetStop ends the stream ms milliseconds from its beginning.
func (f *File) SetStop(ms uint32) {
	f.stop = max(min(f.msToBytes(ms), f.dataBytes), f.start)
	f.pos = min(f.pos, f.stop)
}

func (f *File) msToBytes(ms uint32) int64 {
	return int64(ms) * int64(f.sampleRate) / (bitsPerByte * msPerSecond)
}

// Read returns the next block of DSD data, or io.EOF once the stop position
// is reached. The returned block is reused by the next call.
func (f *File) Read() (*Block, error) {
	if f.pos >= f.stop {
		return nil, io.EOF
	}

	var (
		n   int
		err error
	)
	switch f.interleave {
	case blockInterleaved:
		n, err = f.readBlockInterleaved()
	default:
		n, err = f.readByteInterleaved()
	}
	if err != nil {
		return nil, err
	}

	f.pos += int64(n)
	f.block.BytesPerChannel = n
	f.block.LSBFirst = f.lsbFirst
	return f.block, nil
}

// readBlockInterleaved reads from the block group containing pos. Reads never
// cross a block group boundary.
func (f *File) readBlockInterleaved() (int, error) {
	bs := int64(f.blockSize)
	group := f.pos / bs
	off := int(f.pos % bs)
	n := int(min(bs-int64(off), f.stop-f.pos))

	groupOffset := f.dataOffset + group*bs*int64(f.channels)
	need := (f.channels-1)*f.blockSize + off + n
	if err := f.readFull(f.raw, groupOffset, need); err != nil {
		return 0, err
	}

	for ch := range f.channels {
		base := ch*f.blockSize + off
		copy(f.block.Data[ch][:n], f.raw[base:base+n])
	}
	return n, nil
}

func (f *File) readByteInterleaved() (int, error) {
	n := int(min(int64(f.blockSize), f.stop-f.pos))
	raw := f.raw[:n*f.channels]
	if err := f.readFull(raw, f.dataOffset+f.pos*int64(f.channels), len(raw)); err != nil {
		return 0, err
	}

	for ch := range f.channels {
		dst := f.block.Data[ch][:n]
		for i := range dst {
			dst[i] = raw[i*f.channels+ch]
		}
	}
	return n, nil
}

// readFull fills buf from off. At least need bytes must be present; the
// rest of a short final block group is padded with DSD silence.
func (f *File) readFull(buf []byte, off int64, need int) error {
	n, err := f.r.ReadAt(buf, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read DSD data: %w", err)
	}
	if n < need {
		return fmt.Errorf("DSD data ends at byte %d, expected %d: %w", off+int64(n), off+int64(need), io.ErrUnexpectedEOF)
	}
	for i := n; i < len(buf); i++ {
		buf[i] = dsdSilence
	}
	return nil
}

// Close releases the underlying file, if any.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}
