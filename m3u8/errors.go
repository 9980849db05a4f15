package m3u8

/*
 This file defines the error taxonomy shared by the parser and the writer.
*/

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a playlist violation.
type ErrorKind uint

const (
	// use 0 for undefined kind
	StructuralError ErrorKind = iota + 1
	CardinalityError
	RequiredAttributeError
	ReferentialError
	RangeOrFormatError
	VersionMismatchError
)

func (k ErrorKind) String() string {
	switch k {
	case StructuralError:
		return "StructuralError"
	case CardinalityError:
		return "CardinalityError"
	case RequiredAttributeError:
		return "RequiredAttributeError"
	case ReferentialError:
		return "ReferentialError"
	case RangeOrFormatError:
		return "RangeOrFormatError"
	case VersionMismatchError:
		return "VersionMismatchError"
	}
	return "Unknown"
}

// Kind sentinels. Every Diagnosis matches exactly one of them with errors.Is.
var ErrStructural = errors.New("structural error")
var ErrCardinality = errors.New("cardinality error")
var ErrRequiredAttribute = errors.New("required attribute missing")
var ErrReferential = errors.New("referential error")
var ErrRangeOrFormat = errors.New("value out of range or malformed")
var ErrVersionMismatch = errors.New("EXT-X-VERSION too low")

// Specific violations, wrapped by a Diagnosis in addition to its kind.
var ErrMissingHeader = errors.New("#EXTM3U absent")
var ErrMixedTags = errors.New("the file contains both media and master playlist tags")
var ErrMissingURI = errors.New("URI line missing")
var ErrDurationExceedsTarget = errors.New("EXTINF duration exceeds target duration")
var ErrDanglingByterange = errors.New("EXT-X-BYTERANGE offset cannot be resolved")
var ErrRedundantRendition = errors.New("redundant EXT-X-MEDIA rendition")
var ErrRedundantTag = errors.New("redundant tag")

func (k ErrorKind) sentinel() error {
	switch k {
	case StructuralError:
		return ErrStructural
	case CardinalityError:
		return ErrCardinality
	case RequiredAttributeError:
		return ErrRequiredAttribute
	case ReferentialError:
		return ErrReferential
	case RangeOrFormatError:
		return ErrRangeOrFormat
	case VersionMismatchError:
		return ErrVersionMismatch
	}
	return nil
}

// Diagnosis is one violation found while parsing or writing a playlist.
// It is returned as the error of an aborted call and collected in
// Diagnostics for calls that continue.
type Diagnosis struct {
	Kind   ErrorKind // Kind of the violation
	Reason error     // Reason is a specific sentinel such as ErrMixedTags. May be nil.
	Msg    string    // Msg describes the violation
}

func newDiagnosis(kind ErrorKind, reason error, format string, args ...interface{}) *Diagnosis {
	return &Diagnosis{Kind: kind, Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

func (d *Diagnosis) Error() string {
	return fmt.Sprintf("invalid playlist: %s: %s", d.Kind, d.Msg)
}

// Unwrap makes both the kind sentinel and the reason visible to errors.Is.
func (d *Diagnosis) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := d.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if d.Reason != nil {
		errs = append(errs, d.Reason)
	}
	return errs
}

// Diagnostics lists the violations of one Parse or Stringify call in the
// order they were found.
type Diagnostics []*Diagnosis

// Err joins all diagnoses into one error, or returns nil if there are none.
func (ds Diagnostics) Err() error {
	if len(ds) == 0 {
		return nil
	}
	errs := make([]error, len(ds))
	for i, d := range ds {
		errs[i] = d
	}
	return errors.Join(errs...)
}

// HasKind reports whether any diagnosis is of the given kind.
func (ds Diagnostics) HasKind(kind ErrorKind) bool {
	for _, d := range ds {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

func (ds Diagnostics) String() string {
	msgs := make([]string, len(ds))
	for i, d := range ds {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "\n")
}

// violationFunc receives a violation and returns a non-nil error when the
// current call must stop.
type violationFunc func(kind ErrorKind, reason error, format string, args ...interface{}) error

// abortOnFirst is the violationFunc used by Validate methods.
func abortOnFirst(kind ErrorKind, reason error, format string, args ...interface{}) error {
	return newDiagnosis(kind, reason, format, args...)
}
