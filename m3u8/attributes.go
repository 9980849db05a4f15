package m3u8

/*
 This file defines the attribute-list grammar: a static table from attribute
 name to decoder, and typed accessors on the decoded list.
*/

import (
	"fmt"
	"strings"
	"time"
)

// attributes maps attribute names of one tag to their decoded values.
type attributes map[string]interface{}

// attributeDecoder decodes the raw text after '=', quotes included.
type attributeDecoder func(raw string) (interface{}, error)

func decodeString(raw string) (interface{}, error) {
	return DeQuote(raw), nil
}

func decodeNumber(raw string) (interface{}, error) {
	return toNumber(DeQuote(raw)), nil
}

func decodeFlag(raw string) (interface{}, error) {
	return yesOrNo(DeQuote(raw))
}

func decodeHex(raw string) (interface{}, error) {
	return hexToBytes(DeQuote(raw))
}

func decodeDate(raw string) (interface{}, error) {
	v := DeQuote(raw)
	t, err := TimeParse(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", v, err)
	}
	return t, nil
}

func decodeByteRange(raw string) (interface{}, error) {
	return parseByteRange(DeQuote(raw)), nil
}

func decodeResolution(raw string) (interface{}, error) {
	return parseResolution(DeQuote(raw)), nil
}

func decodeAllowedCPC(raw string) (interface{}, error) {
	return parseAllowedCPC(DeQuote(raw)), nil
}

var attributeDecoders = map[string]attributeDecoder{
	"URI":               decodeString,
	"START-DATE":        decodeDate,
	"END-DATE":          decodeDate,
	"IV":                decodeHex,
	"BYTERANGE":         decodeByteRange,
	"RESOLUTION":        decodeResolution,
	"ALLOWED-CPC":       decodeAllowedCPC,
	"END-ON-NEXT":       decodeFlag,
	"DEFAULT":           decodeFlag,
	"AUTOSELECT":        decodeFlag,
	"FORCED":            decodeFlag,
	"PRECISE":           decodeFlag,
	"CAN-BLOCK-RELOAD":  decodeFlag,
	"INDEPENDENT":       decodeFlag,
	"GAP":               decodeFlag,
	"DURATION":          decodeNumber,
	"PLANNED-DURATION":  decodeNumber,
	"BANDWIDTH":         decodeNumber,
	"AVERAGE-BANDWIDTH": decodeNumber,
	"FRAME-RATE":        decodeNumber,
	"TIME-OFFSET":       decodeNumber,
	"CAN-SKIP-UNTIL":    decodeNumber,
	"HOLD-BACK":         decodeNumber,
	"PART-HOLD-BACK":    decodeNumber,
	"PART-TARGET":       decodeNumber,
	"BYTERANGE-START":   decodeNumber,
	"BYTERANGE-LENGTH":  decodeNumber,
	"LAST-MSN":          decodeNumber,
	"LAST-PART":         decodeNumber,
	"SKIPPED-SEGMENTS":  decodeNumber,
	"SCORE":             decodeNumber,
	"PROGRAM-ID":        decodeNumber,
}

func lookupAttributeDecoder(name string) attributeDecoder {
	if dec, ok := attributeDecoders[name]; ok {
		return dec
	}
	switch {
	case strings.HasPrefix(name, "SCTE35-"):
		return decodeHex
	case strings.HasPrefix(name, "X-"):
		return parseUserAttribute
	}
	return decodeString
}

// decodeAttributes decodes a NAME=VALUE list. A value that fails to decode
// is reported as RangeOrFormatError and kept with its fallback value.
func decodeAttributes(param string, report violationFunc) (attributes, error) {
	attrs := make(attributes)
	for _, item := range splitAttributeList(param) {
		key, value, _ := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		v, err := lookupAttributeDecoder(key)(value)
		if err != nil {
			if rerr := report(RangeOrFormatError, err, "attribute %s: %v", key, err); rerr != nil {
				return nil, rerr
			}
		}
		attrs[key] = v
	}
	return attrs, nil
}

func (a attributes) has(name string) bool {
	_, ok := a[name]
	return ok
}

func (a attributes) str(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a attributes) number(name string) float64 {
	v, _ := a[name].(float64)
	return v
}

func (a attributes) integer(name string) int {
	return int(a.number(name))
}

func (a attributes) flag(name string) bool {
	v, _ := a[name].(bool)
	return v
}

func (a attributes) bytes(name string) []byte {
	v, _ := a[name].([]byte)
	return v
}

func (a attributes) date(name string) time.Time {
	v, _ := a[name].(time.Time)
	return v
}

func (a attributes) byteRange(name string) *ByteRange {
	v, _ := a[name].(*ByteRange)
	return v
}

func (a attributes) resolution(name string) *Resolution {
	v, _ := a[name].(*Resolution)
	return v
}

func (a attributes) allowedCPC(name string) []AllowedCPC {
	v, _ := a[name].([]AllowedCPC)
	return v
}

// userAttributes keeps the X- and SCTE35- attributes of a date range.
func (a attributes) userAttributes() map[string]interface{} {
	out := make(map[string]interface{})
	for k, v := range a {
		if strings.HasPrefix(k, "X-") || strings.HasPrefix(k, "SCTE35-") {
			out[k] = v
		}
	}
	return out
}
