package dsd

// Container identifiers
const (
	dsfMagic     = "DSD "
	dsfFmtID     = "fmt "
	dsfDataID    = "data"
	dffMagic     = "FRM8"
	dffFormType  = "DSD "
	dffPropID    = "PROP"
	dffSoundType = "SND "
	dffRateID    = "FS  "
	dffChanID    = "CHNL"
	dffCmprID    = "CMPR"
	dffDataID    = "DSD "
	dffDSTID     = "DST "
	dffRawCmpr   = "DSD "
)

// DSF header layout
const (
	dsfHeaderChunkSize = 28
	dsfFmtChunkSize    = 52
	dsfFormatRaw       = 0
	dsfBitsLSBFirst    = 1
	dsfBitsMSBFirst    = 8

	// Offsets inside the fmt chunk.
	dsfFmtFormatIDOff  = 16
	dsfFmtChannelsOff  = 24
	dsfFmtRateOff      = 28
	dsfFmtBitsOff      = 32
	dsfFmtSamplesOff   = 36
	dsfFmtBlockSizeOff = 44
	dsfChunkHeaderSize = 12
)

// DSDIFF layout
const (
	dffChunkHeaderSize = 12
	dffFormHeaderSize  = 16
	dffBlockSize       = 4096
	dffMaxChunks       = 64
)

// Stream limits and unit conversions
const (
	maxChannels  = 8
	bitsPerByte  = 8
	msPerSecond  = 1000
	maxBlockSize = 1 << 20
)

// DoP markers alternate on every frame.
const (
	dopMarkerA byte = 0x05
	dopMarkerB byte = 0xFA
)

// Sample alignment
const (
	// justifyShift moves a left-justified 24-bit sample into the low bits.
	justifyShift = 8
	fullScale    = 1 << 31
)

// PCM conversion filter
const (
	// firBytes is the filter length in DSD bytes; taps = firBytes * 8.
	firBytes = 12
	// firCutoff is the normalized cutoff (cycles per DSD bit). The packed
	// rate is 1/8 of the bit rate, so its Nyquist is at 1/16.
	firCutoff = 0.05
	// dsdSilence is the idle pattern used to prime filter history.
	dsdSilence byte = 0x69
)
