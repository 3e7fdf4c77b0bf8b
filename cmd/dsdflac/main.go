// Command dsdflac transcodes a DSF or DSDIFF file into a 24-bit FLAC stream
// carrying either PCM or DSD-over-PCM (DoP).
//
// Usage:
//
//	dsdflac -o out.flac input.dsf                  # DSD64 -> 352.8kHz PCM
//	dsdflac -u input.dsf > out.flac                # DoP at 176.4kHz
//	dsdflac -r 96000 -R h:0:3 input.dff -o out.flac # Limit to 96kHz with 3dB headroom
//	dsdflac -s 1:30 -e 2:00 -o clip.flac input.dsf # Keep 30 seconds
//
// The -R resampler profile is a colon separated list of
// recipe:flags:attenuation:precision:passband:stopband:phase where every
// field may be left empty. Recipe letters are q, l, m, h and v for the
// quality tier, L, I and M for the phase response and s for a steep filter.
//
// DoP is abandoned for PCM when the -r ceiling is below the DoP frame rate.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/audio"

	"github.com/tphakala/dsdflac/internal/encoder"
	"github.com/tphakala/dsdflac/internal/pipeline"
	"github.com/tphakala/dsdflac/internal/policy"
	"github.com/tphakala/dsdflac/internal/profile"
	"github.com/tphakala/dsdflac/internal/resample"
)

// compressionLevel is the fastest libFLAC setting.
const compressionLevel = 0

var errMissingInput = errors.New("missing input file")

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		os.Exit(exitOK)
	default:
		os.Exit(exitError)
	}
}

// options holds the parsed command line.
type options struct {
	input   string
	output  string
	ceiling uint
	profile string
	start   *uint32
	stop    *uint32
	dop     bool
	verbose bool
}

// run parses args, converts the input and reports failures on stderr.
func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	logger := newLogger(stderr, opts.verbose)

	start := time.Now()
	st, rate, err := convert(opts, stdout, logger)
	if err != nil {
		logger.Error("conversion failed", "error", err)
		return err
	}
	elapsed := time.Since(start)

	attrs := []any{
		"input", filepath.Base(opts.input),
		"blocks", st.Blocks,
		"frames", st.EncodedFrames,
		"duration", elapsed.Round(time.Millisecond),
	}
	if secs := elapsed.Seconds(); secs > 0 && rate > 0 {
		attrs = append(attrs, "speed", fmt.Sprintf("%.1fx", float64(st.EncodedFrames)/float64(rate)/secs))
	}
	logger.Info("conversion complete", attrs...)
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// parseArgs parses the command line. Flags may appear before or after the
// input path; when several paths are given the last one is used.
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("dsdflac", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		opts        options
		start, stop string
	)
	fs.StringVar(&opts.output, "o", "", "Output file (default standard output)")
	fs.UintVar(&opts.ceiling, "r", 0, "Maximum output sample rate in Hz, 0 for unconstrained")
	fs.StringVar(&opts.profile, "R", "", "Resampler profile recipe:flags:attenuation:precision:passband:stopband:phase")
	fs.StringVar(&start, "s", "", "Start position as mins:secs")
	fs.StringVar(&stop, "e", "", "End position as mins:secs")
	fs.BoolVar(&opts.dop, "u", false, "Encapsulate DSD as DoP")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")
	fs.Usage = func() { usage(fs) }

	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			break
		}
		opts.input = rest[0]
		args = rest[1:]
	}

	if opts.input == "" {
		fs.Usage()
		return nil, errMissingInput
	}

	for _, t := range []struct {
		text string
		dst  **uint32
	}{
		{start, &opts.start},
		{stop, &opts.stop},
	} {
		if t.text == "" {
			continue
		}
		ms, err := parseTime(t.text)
		if err != nil {
			fmt.Fprintln(stderr, err)
			fs.Usage()
			return nil, err
		}
		*t.dst = &ms
	}

	return &opts, nil
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintf(out, "Usage: %s [options] <input.dsf|input.dff>\n\n", fs.Name())
	fmt.Fprintf(out, "Options:\n")
	fs.PrintDefaults()
	fmt.Fprintf(out, "\nExamples:\n")
	fmt.Fprintf(out, "  %s -o out.flac input.dsf            # Direct PCM at 1/8 of the DSD rate\n", fs.Name())
	fmt.Fprintf(out, "  %s -u -o out.flac input.dsf         # DoP at 1/16 of the DSD rate\n", fs.Name())
	fmt.Fprintf(out, "  %s -r 96000 -R v -o out.flac in.dff # PCM limited to 96kHz\n", fs.Name())
}

// parseTime converts mins:secs to milliseconds. Seconds may be fractional;
// a value without a colon is taken as seconds.
func parseTime(s string) (uint32, error) {
	var mins uint64
	secText := s
	if m, sec, ok := strings.Cut(s, ":"); ok {
		v, err := strconv.ParseUint(m, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid time %q: %w", s, err)
		}
		mins, secText = v, sec
	}

	secs, err := strconv.ParseFloat(secText, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if secs < 0 || math.IsNaN(secs) {
		return 0, fmt.Errorf("invalid time %q", s)
	}

	ms := (secs + float64(mins*secondsPerMinute)) * msPerSecond
	if ms > math.MaxUint32 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return uint32(ms), nil
}

// convert runs the whole transcode and returns the driver statistics with
// the encoded sample rate.
func convert(opts *options, stdout io.Writer, logger *slog.Logger) (st pipeline.Stats, rate int, err error) {
	// 1. Open the source and apply the trim
	src, err := openInput(opts.input, opts.start, opts.stop)
	if err != nil {
		return st, 0, err
	}
	defer func() { _ = src.Close() }()

	// 2. Negotiate the stream
	mode := policy.Select(policy.Request{
		SourceRate: src.SampleRate(),
		Channels:   src.Channels(),
		Ceiling:    int(min(opts.ceiling, math.MaxInt32)),
		DoP:        opts.dop,
	})
	if opts.dop && !mode.DoP {
		logger.Info("DoP disabled, ceiling is below the DoP rate",
			"ceiling", opts.ceiling,
			"dop_rate", src.SampleRate()/policy.DoPRatio)
	}

	decimator := newDecimator(mode, src.MaxBytesPerChannel())
	capacity := policy.Capacity(decimator.MaxBytesPerChannel(src.MaxBytesPerChannel()), mode.DoP)

	logger.Info("input",
		"file", filepath.Base(opts.input),
		"dsd_rate", src.SampleRate(),
		"channels", src.Channels(),
		"dop", mode.DoP,
		"halfrate", mode.HalfRate,
		"working_rate", mode.WorkingRate,
		"output_rate", mode.OutputRate())

	// 3. Create the output and encoder
	out, err := createOutput(opts.output, stdout)
	if err != nil {
		return st, 0, err
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}()

	encOpts := []encoder.Option{encoder.WithCompressionLevel(compressionLevel)}
	if frames, ok := exactFrames(src, mode); ok {
		encOpts = append(encOpts, encoder.WithTotalFrames(frames))
	}
	enc, err := encoder.New(out, mode.Format(), encOpts...)
	if err != nil {
		return st, 0, err
	}
	// Releases the encoder. Output is only finalized by the driver.
	defer func() { _ = enc.Close() }()

	driverOpts := []pipeline.Option{
		pipeline.WithDecimator(decimator),
		pipeline.WithLogger(logger),
	}
	if opts.verbose {
		progress := newProgressTracker(packedFrames(src, mode), logger)
		driverOpts = append(driverOpts, pipeline.WithProgress(progress.report))
	}

	// 4. Create the resampler when a ceiling applies
	if mode.Limiting() {
		p := profile.Parse(opts.profile)
		rs, err := resample.New(p, float64(mode.WorkingRate), float64(mode.Limit), mode.Channels, capacity)
		if err != nil {
			return st, 0, err
		}
		defer func() { _ = rs.Close() }()

		logger.Info("resampling",
			"from", mode.WorkingRate,
			"to", mode.Limit,
			"ratio", rs.Ratio(),
			"latency", rs.Latency(),
			"profile", p)
		driverOpts = append(driverOpts, pipeline.WithResampler(rs))
	}

	// 5. Stream
	d := pipeline.New(pipeline.Config{
		Format:   &audio.Format{NumChannels: mode.Channels, SampleRate: mode.WorkingRate},
		Capacity: capacity,
	}, src, newPacker(mode), enc, driverOpts...)

	st, err = d.Run()
	logger.Debug("encoder statistics",
		"frames", enc.Frames(),
		"bytes", enc.BytesWritten())
	return st, mode.OutputRate(), err
}
