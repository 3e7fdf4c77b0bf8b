package dsd

// Decimator transforms a block before packing. The returned block may be the
// input itself or a buffer owned by the decimator.
type Decimator interface {
	Decimate(in *Block) *Block
	// MaxBytesPerChannel returns the largest output block for an input block
	// of at most inMax bytes per channel.
	MaxBytesPerChannel(inMax int) int
}

// PassThrough is the identity Decimator.
type PassThrough struct{}

// Decimate returns in unchanged.
func (PassThrough) Decimate(in *Block) *Block { return in }

// MaxBytesPerChannel returns inMax.
func (PassThrough) MaxBytesPerChannel(inMax int) int { return inMax }

// HalfRate halves the DSD bit rate. Each pair of bits is averaged and
// requantized to one bit with first-order error feedback, which preserves the
// pulse density of the stream. Input must be MSB first.
type HalfRate struct {
	out      *Block
	feedback []float64
}

// NewHalfRate returns a decimator for blocks of up to maxBytesPerChannel
// bytes.
func NewHalfRate(channels, maxBytesPerChannel int) *HalfRate {
	return &HalfRate{
		out:      NewBlock(channels, maxBytesPerChannel/2),
		feedback: make([]float64, channels),
	}
}

// MaxBytesPerChannel returns inMax/2.
func (h *HalfRate) MaxBytesPerChannel(inMax int) int { return inMax / 2 }

// Decimate returns a block of half the input length. A trailing odd byte is
// dropped.
func (h *HalfRate) Decimate(in *Block) *Block {
	n := in.BytesPerChannel / 2

	for ch := range in.Channels {
		src := in.Channel(ch)
		dst := h.out.Data[ch][:n]
		e := h.feedback[ch]

		for i := range dst {
			word := uint16(src[2*i])<<8 | uint16(src[2*i+1])
			var b byte
			for k := range bitsPerByte {
				v := (bitLevel(word, 15-2*k)+bitLevel(word, 14-2*k))/2 + e
				if v >= 0 {
					b |= 1 << (7 - k)
					e = v - 1
				} else {
					e = v + 1
				}
			}
			dst[i] = b
		}
		h.feedback[ch] = e
	}

	h.out.BytesPerChannel = n
	h.out.LSBFirst = false
	return h.out
}

func bitLevel(word uint16, bit int) float64 {
	if word&(1<<bit) != 0 {
		return 1
	}
	return -1
}
