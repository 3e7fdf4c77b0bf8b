package pipeline

// Justify converts frames*channels left-justified 32-bit samples in place to
// right-justified 24-bit values with an arithmetic shift, preserving sign.
func Justify(samples []int32, frames, channels int) {
	for i := range samples[:frames*channels] {
		samples[i] >>= justifyShift
	}
}
