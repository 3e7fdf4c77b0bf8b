package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tphakala/dsdflac/internal/dsd"
	"github.com/tphakala/dsdflac/internal/pipeline"
	"github.com/tphakala/dsdflac/internal/policy"
)

// openInput opens a DSD file and applies the optional start and stop
// positions in milliseconds.
func openInput(path string, start, stop *uint32) (*dsd.File, error) {
	src, err := dsd.Open(path)
	if err != nil {
		return nil, err
	}
	if start != nil {
		src.SetStart(*start)
	}
	if stop != nil {
		src.SetStop(*stop)
	}
	return src, nil
}

// output is a buffered sink over a file or standard output.
type output struct {
	file *os.File
	w    *bufio.Writer
}

// createOutput creates path, or wraps stdout when path is empty.
func createOutput(path string, stdout io.Writer) (*output, error) {
	if path == "" {
		return &output{w: bufio.NewWriterSize(stdout, outputBufferSize)}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &output{file: f, w: bufio.NewWriterSize(f, outputBufferSize)}, nil
}

func (o *output) Write(p []byte) (int, error) {
	return o.w.Write(p)
}

// Close flushes buffered data and closes the file. Standard output is left
// open.
func (o *output) Close() error {
	flushErr := o.w.Flush()
	if o.file == nil {
		return flushErr
	}
	if err := o.file.Close(); err != nil && flushErr == nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if flushErr != nil {
		return fmt.Errorf("failed to write output: %w", flushErr)
	}
	return nil
}

// newDecimator returns the decimation strategy selected by mode.
func newDecimator(mode policy.Mode, maxBytesPerChannel int) dsd.Decimator {
	if mode.HalfRate {
		return dsd.NewHalfRate(mode.Channels, maxBytesPerChannel)
	}
	return dsd.PassThrough{}
}

// newPacker returns the packer for the negotiated encapsulation.
func newPacker(mode policy.Mode) pipeline.Packer {
	if mode.DoP {
		return dsd.NewDoPPacker()
	}
	return dsd.NewPCMPacker(mode.Channels)
}

// packedFrames estimates the number of frames the packer produces for the
// trimmed source.
func packedFrames(src *dsd.File, mode policy.Mode) int64 {
	n := src.Len()
	if mode.HalfRate {
		n /= 2
	}
	if mode.DoP {
		n /= 2
	}
	return n
}

// exactFrames returns the encoded stream length when it is known up front.
// DoP and halfrate drop odd bytes per block and resampling output length
// depends on the filter, so only direct PCM qualifies.
func exactFrames(src *dsd.File, mode policy.Mode) (int64, bool) {
	if mode.DoP || mode.HalfRate || mode.Limiting() {
		return 0, false
	}
	n := packedFrames(src, mode)
	return n, n > 0
}

// progressTracker handles progress reporting.
type progressTracker struct {
	totalFrames  int64
	lastProgress int
	logger       *slog.Logger
}

// newProgressTracker creates a new progress tracker.
func newProgressTracker(totalFrames int64, logger *slog.Logger) *progressTracker {
	return &progressTracker{
		totalFrames: totalFrames,
		logger:      logger,
	}
}

// report logs progress if a threshold was crossed.
func (p *progressTracker) report(st pipeline.Stats) {
	if p.totalFrames <= 0 {
		return
	}

	progress := int(float64(st.PackedFrames) / float64(p.totalFrames) * percentScale)
	if progress >= p.lastProgress+progressInterval {
		p.logger.Info("progress", "percent", progress)
		p.lastProgress = progress
	}
}
