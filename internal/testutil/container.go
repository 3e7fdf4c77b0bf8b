package testutil

import (
	"bytes"
	"encoding/binary"
)

// DSFOptions describes a synthetic DSF file.
type DSFOptions struct {
	SampleRate int
	// BlockSize is the per-channel block length; 4096 when zero.
	BlockSize int
	// LSBFirst writes bits-per-sample 1. Data is stored exactly as given.
	LSBFirst bool
}

// DSF builds a DSF file holding data, one slice per channel. All channel
// slices must have the same length.
func DSF(opts DSFOptions, data [][]byte) []byte {
	le := binary.LittleEndian
	blockSize := opts.BlockSize
	if blockSize == 0 {
		blockSize = 4096
	}
	channels := len(data)
	perChannel := 0
	if channels > 0 {
		perChannel = len(data[0])
	}
	groups := (perChannel + blockSize - 1) / blockSize
	payload := groups * blockSize * channels

	var buf bytes.Buffer
	w64 := func(v uint64) { _ = binary.Write(&buf, le, v) }
	w32 := func(v uint32) { _ = binary.Write(&buf, le, v) }

	buf.WriteString("DSD ")
	w64(28)
	w64(uint64(28 + 52 + 12 + payload))
	w64(0)

	bits := uint32(8)
	if opts.LSBFirst {
		bits = 1
	}
	buf.WriteString("fmt ")
	w64(52)
	w32(1)
	w32(0)
	w32(uint32(channels))
	w32(uint32(channels))
	w32(uint32(opts.SampleRate))
	w32(bits)
	w64(uint64(perChannel) * 8)
	w32(uint32(blockSize))
	w32(0)

	buf.WriteString("data")
	w64(uint64(12 + payload))

	for g := range groups {
		for ch := range channels {
			block := make([]byte, blockSize)
			lo := g * blockSize
			copy(block, data[ch][lo:min(lo+blockSize, perChannel)])
			buf.Write(block)
		}
	}
	return buf.Bytes()
}

// DFFOptions describes a synthetic DSDIFF file.
type DFFOptions struct {
	SampleRate int
	// Compression is the CMPR id; "DSD " when empty.
	Compression string
}

// DFF builds a DSDIFF file holding data, one slice per channel, stored byte
// interleaved.
func DFF(opts DFFOptions, data [][]byte) []byte {
	be := binary.BigEndian
	cmpr := opts.Compression
	if cmpr == "" {
		cmpr = "DSD "
	}
	channels := len(data)
	perChannel := 0
	if channels > 0 {
		perChannel = len(data[0])
	}

	chunk := func(dst *bytes.Buffer, id string, body []byte) {
		dst.WriteString(id)
		_ = binary.Write(dst, be, uint64(len(body)))
		dst.Write(body)
		if len(body)%2 == 1 {
			dst.WriteByte(0)
		}
	}

	var prop bytes.Buffer
	prop.WriteString("SND ")

	fs := make([]byte, 4)
	be.PutUint32(fs, uint32(opts.SampleRate))
	chunk(&prop, "FS  ", fs)

	chnl := make([]byte, 2, 2+4*channels)
	be.PutUint16(chnl, uint16(channels))
	for ch := range channels {
		chnl = append(chnl, []byte{'C', '0' + byte(ch/10), '0' + byte(ch%10), ' '}...)
	}
	chunk(&prop, "CHNL", chnl)

	name := "not compressed"
	cmprBody := append([]byte(cmpr), byte(len(name)))
	cmprBody = append(cmprBody, name...)
	chunk(&prop, "CMPR", cmprBody)

	samples := make([]byte, 0, perChannel*channels)
	for i := range perChannel {
		for ch := range channels {
			samples = append(samples, data[ch][i])
		}
	}

	var form bytes.Buffer
	form.WriteString("DSD ")
	chunk(&form, "FVER", []byte{1, 5, 0, 0})
	chunk(&form, "PROP", prop.Bytes())
	chunk(&form, "DSD ", samples)

	var out bytes.Buffer
	chunk(&out, "FRM8", form.Bytes())
	return out.Bytes()
}

// Pattern returns n bytes of channel data where byte i is seed+i.
func Pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}
