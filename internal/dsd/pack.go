package dsd

// DoPPacker packs DSD bytes into DSD-over-PCM frames. Each output sample
// carries a marker byte followed by two DSD bytes of one channel. The marker
// alternates between 0x05 and 0xFA on every frame, continuing across blocks.
type DoPPacker struct {
	marker byte
}

// NewDoPPacker returns a packer whose first frame carries marker 0x05.
func NewDoPPacker() *DoPPacker {
	return &DoPPacker{marker: dopMarkerA}
}

// Frames returns the number of frames b packs into. A trailing odd byte is
// dropped.
func (p *DoPPacker) Frames(b *Block) int {
	return b.BytesPerChannel / 2
}

// Pack writes Frames(b) interleaved frames to out. Samples are left-justified
// (marker in bits 31..24) unless rightJustify is set, in which case the
// 24-bit word occupies the low bits.
func (p *DoPPacker) Pack(b *Block, out []int32, rightJustify bool) int {
	frames := p.Frames(b)
	channels := b.Channels

	for i := range frames {
		marker := uint32(p.marker)
		row := out[i*channels : (i+1)*channels]
		for ch := range channels {
			d := b.Data[ch]
			s := int32(marker<<24 | uint32(d[2*i])<<16 | uint32(d[2*i+1])<<8)
			if rightJustify {
				s >>= justifyShift
			}
			row[ch] = s
		}
		p.toggle()
	}
	return frames
}

// Marker returns the marker the next frame will carry.
func (p *DoPPacker) Marker() byte { return p.marker }

func (p *DoPPacker) toggle() {
	if p.marker == dopMarkerA {
		p.marker = dopMarkerB
	} else {
		p.marker = dopMarkerA
	}
}

type firState struct {
	history [firBytes]byte
	head    int
}

// PCMPacker converts DSD to PCM with one output sample per DSD byte, i.e. at
// one eighth of the DSD bit rate. Filter history is kept per channel so
// consecutive blocks form one continuous stream.
type PCMPacker struct {
	tables *byteTables
	states []firState
}

// NewPCMPacker returns a packer for the given channel count. Filter history
// starts as DSD silence.
func NewPCMPacker(channels int) *PCMPacker {
	states := make([]firState, channels)
	for i := range states {
		for j := range states[i].history {
			states[i].history[j] = dsdSilence
		}
	}
	return &PCMPacker{tables: pcmTables, states: states}
}

// Frames returns the number of frames b packs into.
func (p *PCMPacker) Frames(b *Block) int {
	return b.BytesPerChannel
}

// Pack filters b and writes Frames(b) interleaved samples to out. Samples are
// left-justified 32-bit values unless rightJustify is set, in which case they
// are shifted down to 24 bits.
func (p *PCMPacker) Pack(b *Block, out []int32, rightJustify bool) int {
	channels := b.Channels
	for ch := range channels {
		st := &p.states[ch]
		for i, v := range b.Channel(ch) {
			st.head = (st.head + 1) % firBytes
			st.history[st.head] = v

			var acc float64
			idx := st.head
			for age := range firBytes {
				acc += p.tables[age][st.history[idx]]
				idx--
				if idx < 0 {
					idx = firBytes - 1
				}
			}

			s := toSample(acc)
			if rightJustify {
				s >>= justifyShift
			}
			out[i*channels+ch] = s
		}
	}
	return b.BytesPerChannel
}
