package main

// Exit codes
const (
	exitOK    = 0
	exitError = 1
)

// Time conversion
const (
	secondsPerMinute = 60
	msPerSecond      = 1000
)

// Output buffering
const (
	outputBufferSize = 256 * 1024 // 256KB write buffer
)

// Progress reporting
const (
	progressInterval = 10 // Log progress every N%
	percentScale     = 100
)
