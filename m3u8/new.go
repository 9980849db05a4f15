package m3u8

/*
 This file defines constructors and entity validation. The parser runs the
 same checks through its reporter; Validate stops at the first violation.
*/

import (
	"strings"
)

// NewMasterPlaylist creates a new empty master playlist.
func NewMasterPlaylist() *MasterPlaylist {
	return &MasterPlaylist{PlaylistBase: PlaylistBase{IsMasterPlaylist: true}}
}

// NewMediaPlaylist creates a new empty media playlist.
func NewMediaPlaylist() *MediaPlaylist {
	return &MediaPlaylist{}
}

// Append appends a variant to the master playlist.
func (p *MasterPlaylist) Append(v *Variant) error {
	if err := v.Validate(); err != nil {
		return err
	}
	p.Variants = append(p.Variants, v)
	return nil
}

// AppendSegment appends a segment the way Parse does: the media sequence
// number follows the last segment, a missing Key or Map is inherited from
// it, and a byte range without offset continues the previous one.
func (p *MediaPlaylist) AppendSegment(seg *Segment) error {
	if err := seg.Validate(); err != nil {
		return err
	}
	seg.MediaSequenceNumber = p.MediaSequenceBase + p.Skip
	if n := len(p.Segments); n > 0 {
		seg.MediaSequenceNumber = p.Segments[n-1].MediaSequenceNumber + 1
	}
	return p.addSegment(seg, abortOnFirst)
}

// AppendPrefetchSegment appends a prefetch segment after all segments.
func (p *MediaPlaylist) AppendPrefetchSegment(seg *PrefetchSegment) error {
	if err := seg.Validate(); err != nil {
		return err
	}
	seg.MediaSequenceNumber = p.MediaSequenceBase + p.Skip + len(p.Segments)
	if n := len(p.PrefetchSegments); n > 0 {
		seg.MediaSequenceNumber = p.PrefetchSegments[n-1].MediaSequenceNumber + 1
	} else if n := len(p.Segments); n > 0 {
		seg.MediaSequenceNumber = p.Segments[n-1].MediaSequenceNumber + 1
	}
	p.addPrefetchSegment(seg)
	return nil
}

// NewRendition validates r and returns a copy of it.
func NewRendition(r Rendition) (*Rendition, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// NewVariant validates v and returns a copy of it.
func NewVariant(v Variant) (*Variant, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

// NewSessionData validates sd and returns a copy of it.
func NewSessionData(sd SessionData) (*SessionData, error) {
	if err := sd.Validate(); err != nil {
		return nil, err
	}
	return &sd, nil
}

// NewKey validates k and returns a copy of it.
func NewKey(k Key) (*Key, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return &k, nil
}

// NewMap validates m and returns a copy of it.
func NewMap(m Map) (*Map, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewDateRange validates dr and returns a copy of it.
func NewDateRange(dr DateRange) (*DateRange, error) {
	if err := dr.Validate(); err != nil {
		return nil, err
	}
	if dr.Attributes == nil {
		dr.Attributes = make(map[string]interface{})
	}
	return &dr, nil
}

// NewSpliceInfo validates si and returns it.
func NewSpliceInfo(si SpliceInfo) (SpliceInfo, error) {
	if err := si.Validate(); err != nil {
		return SpliceInfo{}, err
	}
	return si, nil
}

// NewSegment validates seg and returns a copy of it.
func NewSegment(seg Segment) (*Segment, error) {
	if err := seg.Validate(); err != nil {
		return nil, err
	}
	return &seg, nil
}

// NewPartialSegment validates part and returns a copy of it.
func NewPartialSegment(part PartialSegment) (*PartialSegment, error) {
	if err := part.Validate(); err != nil {
		return nil, err
	}
	return &part, nil
}

// NewPrefetchSegment validates seg and returns a copy of it.
func NewPrefetchSegment(seg PrefetchSegment) (*PrefetchSegment, error) {
	if err := seg.Validate(); err != nil {
		return nil, err
	}
	return &seg, nil
}

// NewRenditionReport validates rr and returns a copy of it.
func NewRenditionReport(rr RenditionReport) (*RenditionReport, error) {
	if err := rr.Validate(); err != nil {
		return nil, err
	}
	return &rr, nil
}

// Validate returns the first violation of the EXT-X-MEDIA rules.
func (r *Rendition) Validate() error { return r.check(abortOnFirst) }

func (r *Rendition) check(report violationFunc) error {
	var missing []string
	if r.Type == "" {
		missing = append(missing, "TYPE")
	}
	if r.GroupID == "" {
		missing = append(missing, "GROUP-ID")
	}
	if r.Name == "" {
		missing = append(missing, "NAME")
	}
	if len(missing) > 0 {
		if err := report(RequiredAttributeError, nil, "EXT-X-MEDIA: %s required", strings.Join(missing, ", ")); err != nil {
			return err
		}
	}
	switch r.Type {
	case "", AUDIO, VIDEO:
	case SUBTITLES:
		if r.URI == "" {
			if err := report(RequiredAttributeError, nil, "EXT-X-MEDIA %q: URI is required for TYPE=SUBTITLES", r.Name); err != nil {
				return err
			}
		}
	case CLOSEDCAPTIONS:
		if r.InstreamID == "" {
			if err := report(RequiredAttributeError, nil, "EXT-X-MEDIA %q: INSTREAM-ID is required for TYPE=CLOSED-CAPTIONS", r.Name); err != nil {
				return err
			}
		}
		if r.URI != "" {
			if err := report(RangeOrFormatError, nil, "EXT-X-MEDIA %q: URI must not be present for TYPE=CLOSED-CAPTIONS", r.Name); err != nil {
				return err
			}
		}
	default:
		if err := report(RangeOrFormatError, nil, "EXT-X-MEDIA %q: unknown TYPE %q", r.Name, r.Type); err != nil {
			return err
		}
	}
	if r.Forced && r.Type != SUBTITLES {
		return report(RangeOrFormatError, nil, "EXT-X-MEDIA %q: FORCED must only be present for TYPE=SUBTITLES", r.Name)
	}
	return nil
}

// Validate returns the first violation of the variant or its renditions.
func (v *Variant) Validate() error {
	if err := v.check(abortOnFirst); err != nil {
		return err
	}
	for _, renditionType := range renditionTypes {
		for _, r := range v.Renditions(renditionType) {
			if err := r.Validate(); err != nil {
				return err
			}
			if r.Type != renditionType {
				return newDiagnosis(ReferentialError, nil, "rendition %q of TYPE %s is in the %s group", r.Name, r.Type, renditionType)
			}
		}
	}
	return nil
}

func (v *Variant) check(report violationFunc) error {
	if v.URI == "" {
		if err := report(RequiredAttributeError, nil, "variant: URI is required"); err != nil {
			return err
		}
	}
	if v.Bandwidth == 0 {
		return report(RequiredAttributeError, nil, "variant %q: BANDWIDTH is required", v.URI)
	}
	return nil
}

// Validate returns the first violation of the EXT-X-SESSION-DATA rules.
func (sd *SessionData) Validate() error { return sd.check(abortOnFirst) }

func (sd *SessionData) check(report violationFunc) error {
	if sd.ID == "" {
		if err := report(RequiredAttributeError, nil, "EXT-X-SESSION-DATA: DATA-ID is required"); err != nil {
			return err
		}
	}
	if (sd.Value == "") == (sd.URI == "") {
		return report(RequiredAttributeError, nil, "EXT-X-SESSION-DATA %q: exactly one of VALUE or URI is required", sd.ID)
	}
	return nil
}

// Validate returns the first violation of the EXT-X-KEY rules.
func (k *Key) Validate() error { return k.check(abortOnFirst) }

func (k *Key) check(report violationFunc) error {
	switch {
	case k.Method == "":
		return report(RequiredAttributeError, nil, "EXT-X-KEY: METHOD is required")
	case k.Method == "NONE":
		if k.URI != "" || k.IV != nil || k.Format != "" || k.FormatVersion != "" {
			return report(RangeOrFormatError, nil, "EXT-X-KEY: METHOD=NONE must not have other attributes")
		}
		return nil
	case k.URI == "":
		if err := report(RequiredAttributeError, nil, "EXT-X-KEY: URI is required unless METHOD=NONE"); err != nil {
			return err
		}
	}
	if k.IV != nil && len(k.IV) != 16 {
		return report(RangeOrFormatError, nil, "EXT-X-KEY: IV must be a 128-bit unsigned integer, got %d bytes", len(k.IV))
	}
	return nil
}

// Validate returns the first violation of the EXT-X-MAP rules.
func (m *Map) Validate() error { return m.check(abortOnFirst) }

func (m *Map) check(report violationFunc) error {
	if m.URI == "" {
		return report(RequiredAttributeError, nil, "EXT-X-MAP: URI is required")
	}
	return nil
}

// Validate returns the first violation of the EXT-X-DATERANGE rules.
func (dr *DateRange) Validate() error { return dr.check(abortOnFirst) }

func (dr *DateRange) check(report violationFunc) error {
	if dr.ID == "" {
		if err := report(RequiredAttributeError, nil, "EXT-X-DATERANGE: ID is required"); err != nil {
			return err
		}
	}
	if dr.EndOnNext && dr.Class == "" {
		if err := report(RequiredAttributeError, nil, "EXT-X-DATERANGE %q: CLASS is required with END-ON-NEXT=YES", dr.ID); err != nil {
			return err
		}
	}
	if dr.Start.IsZero() {
		if err := report(RequiredAttributeError, nil, "EXT-X-DATERANGE %q: START-DATE is required", dr.ID); err != nil {
			return err
		}
	} else if !dr.End.IsZero() && dr.End.Before(dr.Start) {
		if err := report(RangeOrFormatError, nil, "EXT-X-DATERANGE %q: END-DATE must be equal to or later than START-DATE", dr.ID); err != nil {
			return err
		}
	}
	if dr.Duration < 0 || dr.PlannedDuration < 0 {
		return report(RangeOrFormatError, nil, "EXT-X-DATERANGE %q: DURATION and PLANNED-DURATION must not be negative", dr.ID)
	}
	return nil
}

// Validate returns the first violation of the marker rules.
func (si SpliceInfo) Validate() error { return si.check(abortOnFirst) }

func (si SpliceInfo) check(report violationFunc) error {
	switch si.Type {
	case SpliceOut:
		if si.Duration < 0 {
			return report(RangeOrFormatError, nil, "EXT-X-CUE-OUT: duration must not be negative")
		}
	case SpliceIn:
	case SpliceRaw:
		if si.TagName == "" {
			return report(RequiredAttributeError, nil, "RAW marker: tag name is required")
		}
	default:
		return report(RangeOrFormatError, nil, "marker type must be OUT, IN or RAW, got %q", si.Type)
	}
	return nil
}

// Validate returns the first violation of the segment or the entities it
// carries.
func (seg *Segment) Validate() error { return seg.check(abortOnFirst) }

func (seg *Segment) check(report violationFunc) error {
	if seg.Duration < 0 {
		if err := report(RangeOrFormatError, nil, "segment %q: duration must not be negative", seg.URI); err != nil {
			return err
		}
	}
	if seg.Key != nil {
		if err := seg.Key.check(report); err != nil {
			return err
		}
	}
	if seg.Map != nil {
		if err := seg.Map.check(report); err != nil {
			return err
		}
	}
	if seg.DateRange != nil {
		if err := seg.DateRange.check(report); err != nil {
			return err
		}
	}
	for _, m := range seg.Markers {
		if err := m.check(report); err != nil {
			return err
		}
	}
	for _, part := range seg.Parts {
		if err := part.check(report); err != nil {
			return err
		}
	}
	return nil
}

// Validate returns the first violation of the EXT-X-PART rules.
func (part *PartialSegment) Validate() error { return part.check(abortOnFirst) }

func (part *PartialSegment) check(report violationFunc) error {
	if part.URI == "" {
		return report(RequiredAttributeError, nil, "partial segment: URI is required")
	}
	return nil
}

// Validate returns the first violation of the EXT-X-PREFETCH rules.
func (seg *PrefetchSegment) Validate() error { return seg.check(abortOnFirst) }

func (seg *PrefetchSegment) check(report violationFunc) error {
	if seg.URI == "" {
		return report(RequiredAttributeError, nil, "EXT-X-PREFETCH: URI is required")
	}
	if seg.Key != nil {
		return seg.Key.check(report)
	}
	return nil
}

// Validate returns the first violation of the EXT-X-RENDITION-REPORT rules.
func (rr *RenditionReport) Validate() error { return rr.check(abortOnFirst) }

func (rr *RenditionReport) check(report violationFunc) error {
	if rr.URI == "" {
		return report(RequiredAttributeError, nil, "EXT-X-RENDITION-REPORT: URI is required")
	}
	return nil
}
