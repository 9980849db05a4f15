// Command hlsparse reads an HLS playlist, reports its violations and prints
// it back in canonical form.
//
//	hlsparse [flags] [file]
//
// The playlist is read from stdin when no file is given or file is "-".
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mogiioin/hls-parser/m3u8"
)

const (
	exitOK      = 0
	exitInvalid = 1 // the playlist could not be parsed or written
	exitUsage   = 2
)

type config struct {
	strict      bool
	silent      bool
	allowCCNone bool
	format      string
	minVersion  bool
	logLevel    string
	noColor     bool
	input       string
}

var errUsage = errors.New("usage error")

func (c *config) validate() error {
	switch c.format {
	case "m3u8", "json", "none":
	default:
		return fmt.Errorf("%w: -format must be m3u8, json or none, got %q", errUsage, c.format)
	}
	if _, err := zapcore.ParseLevel(c.logLevel); err != nil {
		return fmt.Errorf("%w: -log-level: %v", errUsage, err)
	}
	return nil
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet("hlsparse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&cfg.strict, "strict", false, "abort on the first violation")
	fs.BoolVar(&cfg.silent, "silent", false, "do not log violations")
	fs.BoolVar(&cfg.allowCCNone, "allow-cc-none", false, "write CLOSED-CAPTIONS=NONE for variants without captions")
	fs.StringVar(&cfg.format, "format", "m3u8", "output format (m3u8, json, none)")
	fs.BoolVar(&cfg.minVersion, "min-version", false, "print the minimal compatibility version")
	fs.StringVar(&cfg.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.noColor, "no-color", false, "disable coloured output")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: hlsparse [flags] [file]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	switch fs.NArg() {
	case 0:
		cfg.input = "-"
	case 1:
		cfg.input = fs.Arg(0)
	default:
		return nil, fmt.Errorf("%w: at most one file is accepted", errUsage)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(level string, w io.Writer) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.WarnLevel
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl)).Named("hlsparse")
}

func openInput(name string, stdin io.Reader) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open playlist: %w", err)
	}
	return f, nil
}

// printSummary counts the violations per kind. The violations themselves
// are logged by the parser and the writer.
func printSummary(w io.Writer, stage string, diags m3u8.Diagnostics) {
	if len(diags) == 0 {
		return
	}
	counts := make(map[m3u8.ErrorKind]int)
	var kinds []m3u8.ErrorKind
	for _, d := range diags {
		if counts[d.Kind] == 0 {
			kinds = append(kinds, d.Kind)
		}
		counts[d.Kind]++
	}
	fmt.Fprintf(w, "%s %d violation(s)\n", color.Yellow.Sprint(stage+":"), len(diags))
	for _, k := range kinds {
		fmt.Fprintf(w, "  %s %d\n", k, counts[k])
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return exitUsage
	}
	if cfg.noColor {
		color.Enable = false
	}
	log := newLogger(cfg.logLevel, stderr)
	defer log.Sync() //nolint:errcheck

	opts := m3u8.Options{
		StrictMode:              cfg.strict,
		Silent:                  cfg.silent,
		AllowClosedCaptionsNone: cfg.allowCCNone,
		Logger:                  log,
	}

	in, err := openInput(cfg.input, stdin)
	if err != nil {
		fmt.Fprintln(stderr, color.Red.Sprint(err.Error()))
		return exitInvalid
	}
	defer in.Close()

	p, diags, err := m3u8.DecodeFrom(in, opts)
	if err != nil {
		fmt.Fprintln(stderr, color.Red.Sprint(err.Error()))
		return exitInvalid
	}
	log.Debug("parsed playlist",
		zap.Stringer("type", p.ListType()),
		zap.Int("version", p.Common().Version),
		zap.Int("diagnostics", len(diags)))
	if !cfg.silent {
		printSummary(stderr, "parse", diags)
	}

	if cfg.minVersion {
		ver, reason := p.CalcMinVersion()
		fmt.Fprintf(stdout, "minimal version %d: %s\n", ver, reason)
	}

	switch cfg.format {
	case "m3u8":
		s, wdiags, err := m3u8.Stringify(p, opts)
		if err != nil {
			fmt.Fprintln(stderr, color.Red.Sprint(err.Error()))
			return exitInvalid
		}
		if !cfg.silent {
			printSummary(stderr, "write", wdiags)
		}
		fmt.Fprintln(stdout, s)
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(p); err != nil {
			fmt.Fprintln(stderr, color.Red.Sprint(err.Error()))
			return exitInvalid
		}
	}
	return exitOK
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
