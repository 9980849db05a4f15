package m3u8

/*
 This file defines the checks that run after all segments of a media
 playlist are assembled.
*/

import (
	"math"
	"time"
)

type dateInterval struct {
	id         string
	start, end int64 // milliseconds since epoch
}

func millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// checkDateRange cross-validates the EXT-X-DATERANGE tags of segments and
// resolves END-ON-NEXT ranges to the start of the next range of the same
// class. Ranges sharing an ID describe the same range and are not checked
// for overlap against each other.
func checkDateRange(segments []*Segment, report violationFunc) error {
	earliest := make(map[string]time.Time)
	ranges := make(map[string][]dateInterval)
	var hasDateRange, hasProgramDateTime bool
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if !seg.ProgramDateTime.IsZero() {
			hasProgramDateTime = true
		}
		dr := seg.DateRange
		if dr == nil {
			continue
		}
		hasDateRange = true
		if dr.Start.IsZero() {
			continue
		}
		if dr.EndOnNext && (!dr.End.IsZero() || dr.Duration != 0) {
			if err := report(RangeOrFormatError, nil,
				"EXT-X-DATERANGE %q with END-ON-NEXT=YES must not contain DURATION or END-DATE attributes", dr.ID); err != nil {
				return err
			}
		}
		start := millis(dr.Start)
		if !dr.End.IsZero() && dr.Duration != 0 {
			if int64(math.Round(float64(start)+dr.Duration*1000)) != millis(dr.End) {
				if err := report(RangeOrFormatError, nil,
					"EXT-X-DATERANGE %q: END-DATE must be equal to START-DATE plus DURATION", dr.ID); err != nil {
					return err
				}
			}
		}
		if dr.EndOnNext {
			dr.End = earliest[dr.Class]
		}
		earliest[dr.Class] = dr.Start
		end := start + int64(math.Round(dr.Duration*1000))
		if !dr.End.IsZero() {
			end = millis(dr.End)
		}
		for _, other := range ranges[dr.Class] {
			if other.id == dr.ID {
				continue
			}
			if (other.start <= start && other.end > start) || (other.start >= start && other.start < end) {
				if err := report(RangeOrFormatError, nil,
					"EXT-X-DATERANGE tags %q and %q with the same CLASS must not overlap", dr.ID, other.id); err != nil {
					return err
				}
				break
			}
		}
		ranges[dr.Class] = append(ranges[dr.Class], dateInterval{id: dr.ID, start: start, end: end})
	}
	if hasDateRange && !hasProgramDateTime {
		return report(StructuralError, nil,
			"a playlist with an EXT-X-DATERANGE tag must also contain at least one EXT-X-PROGRAM-DATE-TIME tag")
	}
	return nil
}

// checkLowLatencyCompatibility enforces the timing rules of low-latency
// playlists and fills in omitted LAST-MSN and LAST-PART of rendition reports.
func checkLowLatencyCompatibility(p *MediaPlaylist, containsParts bool, report violationFunc) error {
	ll := p.LowLatencyCompatibility
	target := float64(p.TargetDuration)
	if ll.CanSkipUntil != 0 && ll.CanSkipUntil < target*6 {
		if err := report(RangeOrFormatError, nil,
			"the skip boundary CAN-SKIP-UNTIL=%s must be at least six times the EXT-X-TARGETDURATION", formatNumber(ll.CanSkipUntil)); err != nil {
			return err
		}
	}
	if ll.HoldBack != 0 && ll.HoldBack < target*3 {
		if err := report(RangeOrFormatError, nil,
			"HOLD-BACK=%s must be at least three times the EXT-X-TARGETDURATION", formatNumber(ll.HoldBack)); err != nil {
			return err
		}
	}
	if containsParts {
		if err := checkParts(p, report); err != nil {
			return err
		}
	}
	if len(p.Segments) == 0 {
		return nil
	}
	last := p.Segments[len(p.Segments)-1]
	for _, rr := range p.RenditionReports {
		if rr.LastMSN == nil {
			msn := last.MediaSequenceNumber
			rr.LastMSN = &msn
		}
		if rr.LastPart == nil && len(last.Parts) > 0 {
			part := len(last.Parts) - 1
			rr.LastPart = &part
		}
	}
	return nil
}

func checkParts(p *MediaPlaylist, report violationFunc) error {
	ll := p.LowLatencyCompatibility
	partTarget := p.PartTargetDuration
	if partTarget == 0 {
		if err := report(RequiredAttributeError, nil,
			"EXT-X-PART-INF is required if a playlist contains one or more EXT-X-PART tags"); err != nil {
			return err
		}
	}
	if ll.PartHoldBack == 0 {
		if err := report(RequiredAttributeError, nil,
			"EXT-X-SERVER-CONTROL: PART-HOLD-BACK attribute is mandatory if a playlist contains EXT-X-PART tags"); err != nil {
			return err
		}
	} else if ll.PartHoldBack < partTarget {
		if err := report(RangeOrFormatError, nil,
			"PART-HOLD-BACK=%s must be at least PART-TARGET=%s", formatNumber(ll.PartHoldBack), formatNumber(partTarget)); err != nil {
			return err
		}
	}
	for i, seg := range p.Segments {
		if len(seg.Parts) > 0 && i < len(p.Segments)-3 {
			if err := report(RangeOrFormatError, nil,
				"segment %d: EXT-X-PART tags must be removed once they are more than three target durations from the end of the playlist",
				seg.MediaSequenceNumber); err != nil {
				return err
			}
		}
		for j, part := range seg.Parts {
			if part.Hint || part.Duration == 0 || partTarget == 0 {
				continue
			}
			if part.Duration > partTarget {
				if err := report(RangeOrFormatError, nil,
					"partial segment %q: duration %s exceeds PART-TARGET=%s", part.URI, formatNumber(part.Duration), formatNumber(partTarget)); err != nil {
					return err
				}
			}
			if j < len(seg.Parts)-1 && part.Duration < partTarget*0.85 {
				if err := report(RangeOrFormatError, nil,
					"partial segment %q: all partial segments except the last part of a segment must last at least 85%% of PART-TARGET", part.URI); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
