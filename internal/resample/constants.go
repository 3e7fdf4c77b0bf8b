package resample

const (
	// fullScale maps left-justified 32-bit samples to [-1, 1).
	fullScale = 1 << 31

	stereoChannels = 2

	// pendingSlack covers filter tail frames released on top of the
	// steady-state output of one batch.
	pendingSlack = 1024

	growthFactor = 2

	// tailFactor and tailBatches size the silence fed while draining.
	tailFactor  = 2
	tailBatches = 4
)
