package m3u8

/*
 This file defines decoders and encoders for scalar values.
*/

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrNotYesOrNo = errors.New("value must be YES or NO")
var ErrMalformedHex = errors.New("malformed hexadecimal sequence")

var reNumberPrefix = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// TimeParse allows globally apply and/or override Time Parser function.
// Available variants:
//   - FullTimeParse - implements full featured ISO/IEC 8601:2004
//   - StrictTimeParse - implements only RFC3339 Nanoseconds format
var TimeParse func(value string) (time.Time, error) = FullTimeParse

// StrictTimeParse implements RFC3339 with Nanoseconds accuracy.
func StrictTimeParse(value string) (time.Time, error) {
	return time.Parse(DATETIME, value)
}

// FullTimeParse implements ISO/IEC 8601:2004.
func FullTimeParse(value string) (time.Time, error) {
	layouts := []string{
		"2006-01-02T15:04:05.999999999Z0700",
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05.999999999Z07",
	}
	var (
		err error
		t   time.Time
	)
	for _, layout := range layouts {
		if t, err = time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return t, err
}

// formatDate writes t in UTC with millisecond precision.
func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// toNumber decodes the leading decimal number of s.
// Input without a numeric prefix decodes to 0.
func toNumber(s string) float64 {
	m := reNumberPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	v, _ := strconv.ParseFloat(m, 64)
	return v
}

func toInt(s string) int {
	return int(toNumber(s))
}

// hexToBytes decodes an optionally 0x-prefixed hex string. Pairs that are
// not hexadecimal decode to 0 and make the returned error non-nil.
func hexToBytes(s string) ([]byte, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	if b, err := hex.DecodeString(s); err == nil {
		return b, nil
	}
	out := make([]byte, 0, (len(s)+1)/2)
	for i := 0; i < len(s); i += 2 {
		end := i + 2
		if end > len(s) {
			end = len(s)
		}
		v, err := strconv.ParseUint(s[i:end], 16, 8)
		if err != nil {
			v = 0
		}
		out = append(out, byte(v))
	}
	return out, fmt.Errorf("%q: %w", s, ErrMalformedHex)
}

// bytesToHex encodes b as 0x followed by upper-case hex digits.
func bytesToHex(b []byte) string {
	return "0x" + strings.ToUpper(hex.EncodeToString(b))
}

// DeQuote trims white space and strips one surrounding double quote on
// each side.
func DeQuote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

// splitAttributeList splits an attribute list at commas that are not
// inside single or double quotes.
func splitAttributeList(s string) []string {
	var (
		list   []string
		quotes []rune
		start  int
	)
	for i, c := range s {
		switch {
		case c == ',' && len(quotes) == 0:
			list = append(list, strings.TrimSpace(s[start:i]))
			start = i + 1
		case c == '"' || c == '\'':
			if len(quotes) > 0 && quotes[len(quotes)-1] == c {
				quotes = quotes[:len(quotes)-1]
			} else {
				quotes = append(quotes, c)
			}
		}
	}
	return append(list, strings.TrimSpace(s[start:]))
}

// parseByteRange decodes <n>[@<o>]. A missing offset is -1.
func parseByteRange(s string) *ByteRange {
	length, offset, found := strings.Cut(s, "@")
	br := &ByteRange{Length: int64(toNumber(length)), Offset: -1}
	if found && offset != "" {
		br.Offset = int64(toNumber(offset))
	}
	return br
}

// parseResolution decodes <width>x<height>.
func parseResolution(s string) *Resolution {
	w, h, _ := strings.Cut(s, "x")
	return &Resolution{Width: toInt(w), Height: toInt(h)}
}

// parseAllowedCPC decodes "<KEYFORMAT>:<CPC>/<CPC>,<KEYFORMAT>:<CPC>".
func parseAllowedCPC(s string) []AllowedCPC {
	var list []AllowedCPC
	for _, item := range strings.Split(s, ",") {
		format, cpcs, _ := strings.Cut(strings.TrimSpace(item), ":")
		if format == "" {
			continue
		}
		entry := AllowedCPC{Format: format}
		if cpcs != "" {
			entry.CPCList = strings.Split(cpcs, "/")
		}
		list = append(list, entry)
	}
	return list
}

// parseUserAttribute decodes the raw value of an X- attribute: a quoted
// string, a hexadecimal sequence or a number.
func parseUserAttribute(raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, `"`):
		return DeQuote(raw), nil
	case strings.HasPrefix(raw, "0x"), strings.HasPrefix(raw, "0X"):
		return hexToBytes(raw)
	}
	return toNumber(raw), nil
}

func yesOrNo(v string) (bool, error) {
	switch v {
	case "YES":
		return true, nil
	case "NO":
		return false, nil
	}
	return false, fmt.Errorf("value %q: %w", v, ErrNotYesOrNo)
}

// formatNumber writes v with the fewest digits that represent it exactly.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatFixed rounds v to decimals places and writes exactly that many.
func formatFixed(v float64, decimals int) string {
	return strconv.FormatFloat(roundTo(v, decimals), 'f', decimals, 64)
}

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow10(decimals)
	return math.Round(v*factor) / factor
}

func isInteger(v float64) bool {
	return v == math.Trunc(v)
}
