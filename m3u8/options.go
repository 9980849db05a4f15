package m3u8

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Action tells the parser or writer what to do after a violation.
type Action uint

const (
	Continue Action = iota // Continue records the violation and goes on best-effort
	Abort                  // Abort stops the call and returns the violation as error
)

// Policy decides per violation whether a call continues or aborts.
type Policy func(d *Diagnosis) Action

// Strict aborts on the first violation.
func Strict(*Diagnosis) Action { return Abort }

// Lenient never aborts. Violations are logged and collected.
func Lenient(*Diagnosis) Action { return Continue }

// Options configures a single Parse or Stringify call.
type Options struct {
	StrictMode              bool            // StrictMode selects the Strict policy. Lenient otherwise.
	Silent                  bool            // Silent disables logging of violations in lenient mode
	AllowClosedCaptionsNone bool            // AllowClosedCaptionsNone writes CLOSED-CAPTIONS=NONE for variants without captions
	Policy                  Policy          // Policy overrides StrictMode when set
	Logger                  *zap.Logger     // Logger receives lenient-mode violations. A stderr logger is used if nil.
	CustomDecoders          []CustomDecoder // CustomDecoders decode tags that are otherwise dropped as unknown
}

func (o Options) policy() Policy {
	if o.Policy != nil {
		return o.Policy
	}
	if o.StrictMode {
		return Strict
	}
	return Lenient
}

func (o Options) logger() *zap.Logger {
	if o.Silent {
		return zap.NewNop()
	}
	if o.Logger != nil {
		return o.Logger
	}
	return stderrLogger()
}

var (
	stderrOnce sync.Once
	stderrLog  *zap.Logger
)

func stderrLogger() *zap.Logger {
	stderrOnce.Do(func() {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zapcore.WarnLevel)
		stderrLog = zap.New(core).Named("hls")
	})
	return stderrLog
}

// reporter is the single funnel for violations of one call.
type reporter struct {
	policy    Policy
	log       *zap.Logger
	diagnoses Diagnostics
}

func newReporter(opts Options) *reporter {
	return &reporter{policy: opts.policy(), log: opts.logger()}
}

// report records a violation. It returns the diagnosis as error if the
// policy aborts, nil otherwise.
func (r *reporter) report(kind ErrorKind, reason error, format string, args ...interface{}) error {
	d := newDiagnosis(kind, reason, format, args...)
	r.diagnoses = append(r.diagnoses, d)
	if r.policy(d) == Abort {
		return d
	}
	r.log.Warn("invalid playlist",
		zap.Stringer("kind", d.Kind),
		zap.String("msg", d.Msg))
	return nil
}

// fatal records a violation that ends the call whatever the policy says.
func (r *reporter) fatal(kind ErrorKind, reason error, format string, args ...interface{}) error {
	d := newDiagnosis(kind, reason, format, args...)
	r.diagnoses = append(r.diagnoses, d)
	return d
}

// Process-wide defaults. The primary API takes Options explicitly; these
// are an opt-in convenience. Concurrent callers that change them share one
// configuration.
var (
	defaultMu   sync.RWMutex
	defaultOpts Options
)

// SetOptions replaces the process-wide default options.
func SetOptions(opts Options) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultOpts = opts
}

// GetOptions returns a copy of the process-wide default options.
func GetOptions() Options {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultOpts
}

// ParseWithDefaults parses text with the process-wide default options.
func ParseWithDefaults(text string) (Playlist, error) {
	p, _, err := Parse(text, GetOptions())
	return p, err
}

// StringifyWithDefaults serializes p with the process-wide default options.
func StringifyWithDefaults(p Playlist) (string, error) {
	s, _, err := Stringify(p, GetOptions())
	return s, err
}
