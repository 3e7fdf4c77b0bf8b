package dsd

import "math/bits"

// Block is one read worth of planar DSD data. It is owned by the reader that
// produced it and is overwritten by the next read.
type Block struct {
	Channels int
	// BytesPerChannel is the number of valid bytes in each channel slice.
	BytesPerChannel int
	// Data holds one slice per channel. Each slice has capacity for the
	// reader's maximum block size.
	Data [][]byte
	// LSBFirst is set when the oldest bit of each byte is its least
	// significant one.
	LSBFirst bool
}

// NewBlock allocates a block able to hold maxBytesPerChannel bytes for each
// channel.
func NewBlock(channels, maxBytesPerChannel int) *Block {
	data := make([][]byte, channels)
	for ch := range channels {
		data[ch] = make([]byte, maxBytesPerChannel)
	}
	return &Block{Channels: channels, Data: data}
}

// MaxBytesPerChannel is the largest number of bytes per channel a block can
// carry.
func (b *Block) MaxBytesPerChannel() int {
	if len(b.Data) == 0 {
		return 0
	}
	return cap(b.Data[0])
}

// Channel returns the valid bytes of channel ch.
func (b *Block) Channel(ch int) []byte {
	return b.Data[ch][:b.BytesPerChannel]
}

// MSBOrder rewrites the block so the oldest bit of every byte is the most
// significant one. It is a no-op for blocks already in that order.
func (b *Block) MSBOrder() {
	if !b.LSBFirst {
		return
	}
	for ch := range b.Channels {
		data := b.Channel(ch)
		for i, v := range data {
			data[i] = bits.Reverse8(v)
		}
	}
	b.LSBFirst = false
}
