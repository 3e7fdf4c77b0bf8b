package pipeline

// Sample layout
const (
	// justifyShift converts a left-justified 32-bit sample to a
	// right-justified 24-bit one.
	justifyShift = 8

	// sampleBytes is the storage width of a stage buffer sample.
	sampleBytes = 4
)
