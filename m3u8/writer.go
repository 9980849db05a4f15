package m3u8

/*
 This file defines functions related to playlist generation.
*/

import (
	"bytes"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
)

var ErrNoPlaylist = errors.New("no playlist to write")

// tags written every time, even if identical to the line before
var alwaysWritten = map[string]bool{
	"EXTINF":              true,
	"EXT-X-BYTERANGE":     true,
	"EXT-X-DISCONTINUITY": true,
	"EXT-X-STREAM-INF":    true,
	"EXT-X-CUE-OUT":       true,
	"EXT-X-CUE-IN":        true,
}

// tags silently dropped when identical to the last line of the same tag
var droppedWhenRepeated = map[string]bool{
	"EXT-X-KEY": true,
	"EXT-X-MAP": true,
}

// lineWriter collects output lines and suppresses redundant tags.
type lineWriter struct {
	*reporter
	lines   []string
	media   map[string]bool   // EXT-X-MEDIA lines already written
	lastTag map[string]string // last written line per tag name
}

func newLineWriter(opts Options) *lineWriter {
	return &lineWriter{
		reporter: newReporter(opts),
		media:    make(map[string]bool),
		lastTag:  make(map[string]string),
	}
}

func tagNameOf(line string) string {
	name, _, _ := strings.Cut(line[1:], ":")
	return name
}

func (w *lineWriter) push(line string) error {
	if !strings.HasPrefix(line, "#") {
		w.lines = append(w.lines, line)
		return nil
	}
	name := tagNameOf(line)
	switch {
	case alwaysWritten[name]:
	case name == "EXT-X-MEDIA":
		if w.media[line] {
			return nil
		}
		w.media[line] = true
	case droppedWhenRepeated[name]:
		if w.lastTag[name] == line {
			return nil
		}
	case len(w.lines) > 0 && w.lines[len(w.lines)-1] == line:
		return w.report(CardinalityError, ErrRedundantTag, "redundant tag %s", line)
	}
	w.lastTag[name] = line
	w.lines = append(w.lines, line)
	return nil
}

func (w *lineWriter) pushCustom(custom CustomMap) error {
	names := make([]string, 0, len(custom))
	for name := range custom {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		buf := custom[name].Encode()
		if buf == nil {
			continue
		}
		for _, l := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
			if err := w.push(l); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stringify serializes a playlist. Violations that the policy lets pass are
// returned as Diagnostics; err is the violation that stopped the call.
func Stringify(p Playlist, opts Options) (string, Diagnostics, error) {
	w := newLineWriter(opts)
	var err error
	switch pl := p.(type) {
	case *MasterPlaylist:
		if pl == nil {
			return "", nil, ErrNoPlaylist
		}
		err = w.writeMaster(pl, opts)
	case *MediaPlaylist:
		if pl == nil {
			return "", nil, ErrNoPlaylist
		}
		err = w.writeMedia(pl)
	default:
		return "", nil, ErrNoPlaylist
	}
	if err != nil {
		return "", w.diagnoses, err
	}
	return strings.Join(w.lines, "\n"), w.diagnoses, nil
}

// Encode serializes a playlist into a buffer.
func Encode(p Playlist, opts Options) (*bytes.Buffer, error) {
	s, _, err := Stringify(p, opts)
	if err != nil {
		return nil, err
	}
	return bytes.NewBufferString(s), nil
}

func (w *lineWriter) writeHeader(base *PlaylistBase) error {
	lines := []string{"#EXTM3U"}
	if base.Version > 0 {
		lines = append(lines, "#EXT-X-VERSION:"+strconv.Itoa(base.Version))
	}
	if base.IndependentSegments {
		lines = append(lines, "#EXT-X-INDEPENDENT-SEGMENTS")
	}
	if base.Start != nil {
		var buf bytes.Buffer
		buf.WriteString("#EXT-X-START:TIME-OFFSET=")
		buf.WriteString(formatNumber(roundTo(base.Start.Offset, 3)))
		if base.Start.Precise {
			writeUnQuoted(&buf, "PRECISE", "YES")
		}
		lines = append(lines, buf.String())
	}
	for _, l := range lines {
		if err := w.push(l); err != nil {
			return err
		}
	}
	return nil
}

func (w *lineWriter) writeMaster(p *MasterPlaylist, opts Options) error {
	if err := w.writeHeader(&p.PlaylistBase); err != nil {
		return err
	}
	for _, sd := range p.SessionDataList {
		if err := w.push(sessionDataLine(sd)); err != nil {
			return err
		}
	}
	for _, key := range p.SessionKeyList {
		l, err := w.keyLine("#EXT-X-SESSION-KEY:", key)
		if err != nil {
			return err
		}
		if err := w.push(l); err != nil {
			return err
		}
	}
	if err := w.pushCustom(p.Custom); err != nil {
		return err
	}
	for _, v := range p.Variants {
		for _, renditionType := range renditionTypes {
			for _, r := range v.Renditions(renditionType) {
				if err := w.push(renditionLine(r)); err != nil {
					return err
				}
			}
		}
		if err := w.push(variantLine(v, opts.AllowClosedCaptionsNone)); err != nil {
			return err
		}
		if !v.IsIFrameOnly {
			if err := w.push(v.URI); err != nil {
				return err
			}
		}
	}
	return nil
}

func renditionLine(r *Rendition) string {
	var buf bytes.Buffer
	buf.WriteString("#EXT-X-MEDIA:TYPE=")
	buf.WriteString(r.Type)
	writeQuoted(&buf, "GROUP-ID", r.GroupID)
	writeQuoted(&buf, "NAME", r.Name)
	if r.IsDefault {
		writeUnQuoted(&buf, "DEFAULT", "YES")
	}
	if r.Autoselect {
		writeUnQuoted(&buf, "AUTOSELECT", "YES")
	}
	if r.Forced {
		writeUnQuoted(&buf, "FORCED", "YES")
	}
	if r.Language != "" {
		writeQuoted(&buf, "LANGUAGE", r.Language)
	}
	if r.AssocLanguage != "" {
		writeQuoted(&buf, "ASSOC-LANGUAGE", r.AssocLanguage)
	}
	if r.InstreamID != "" {
		writeQuoted(&buf, "INSTREAM-ID", r.InstreamID)
	}
	if r.Characteristics != "" {
		writeQuoted(&buf, "CHARACTERISTICS", r.Characteristics)
	}
	if r.Channels != "" {
		writeQuoted(&buf, "CHANNELS", r.Channels)
	}
	if r.URI != "" {
		writeQuoted(&buf, "URI", r.URI)
	}
	return buf.String()
}

func variantLine(v *Variant, allowClosedCaptionsNone bool) string {
	var buf bytes.Buffer
	if v.IsIFrameOnly {
		buf.WriteString("#EXT-X-I-FRAME-STREAM-INF:BANDWIDTH=")
	} else {
		buf.WriteString("#EXT-X-STREAM-INF:BANDWIDTH=")
	}
	buf.WriteString(strconv.Itoa(v.Bandwidth))
	if v.AverageBandwidth != 0 {
		writeUnQuoted(&buf, "AVERAGE-BANDWIDTH", strconv.Itoa(v.AverageBandwidth))
	}
	if v.IsIFrameOnly {
		writeQuoted(&buf, "URI", v.URI)
	}
	if v.Codecs != "" {
		writeQuoted(&buf, "CODECS", v.Codecs)
	}
	if v.Resolution != nil {
		writeUnQuoted(&buf, "RESOLUTION", strconv.Itoa(v.Resolution.Width)+"x"+strconv.Itoa(v.Resolution.Height))
	}
	if v.FrameRate != 0 {
		writeUnQuoted(&buf, "FRAME-RATE", formatFixed(v.FrameRate, 3))
	}
	if v.HDCPLevel != "" {
		writeUnQuoted(&buf, "HDCP-LEVEL", v.HDCPLevel)
	}
	for _, renditionType := range renditionTypes {
		if group := v.Renditions(renditionType); len(group) > 0 {
			writeQuoted(&buf, renditionType, group[0].GroupID)
		} else if renditionType == CLOSEDCAPTIONS && allowClosedCaptionsNone && !v.IsIFrameOnly {
			writeUnQuoted(&buf, CLOSEDCAPTIONS, "NONE")
		}
	}
	if v.Score != nil {
		writeUnQuoted(&buf, "SCORE", formatNumber(*v.Score))
	}
	if len(v.AllowedCPC) > 0 {
		list := make([]string, len(v.AllowedCPC))
		for i, cpc := range v.AllowedCPC {
			list[i] = cpc.Format + ":" + strings.Join(cpc.CPCList, "/")
		}
		writeQuoted(&buf, "ALLOWED-CPC", strings.Join(list, ","))
	}
	if v.VideoRange != "" {
		writeUnQuoted(&buf, "VIDEO-RANGE", v.VideoRange)
	}
	if v.StableVariantID != "" {
		writeQuoted(&buf, "STABLE-VARIANT-ID", v.StableVariantID)
	}
	if v.ProgramID != nil {
		writeUnQuoted(&buf, "PROGRAM-ID", strconv.Itoa(*v.ProgramID))
	}
	return buf.String()
}

func sessionDataLine(sd *SessionData) string {
	var buf bytes.Buffer
	buf.WriteString(`#EXT-X-SESSION-DATA:DATA-ID="`)
	buf.WriteString(sd.ID)
	buf.WriteRune('"')
	if sd.Value != "" {
		writeQuoted(&buf, "VALUE", sd.Value)
	}
	if sd.URI != "" {
		writeQuoted(&buf, "URI", sd.URI)
	}
	if sd.Language != "" {
		writeQuoted(&buf, "LANGUAGE", sd.Language)
	}
	return buf.String()
}

func (w *lineWriter) keyLine(tag string, key *Key) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(tag)
	buf.WriteString("METHOD=")
	buf.WriteString(key.Method)
	if key.URI != "" {
		writeQuoted(&buf, "URI", key.URI)
	}
	if key.IV != nil {
		if len(key.IV) != 16 {
			if err := w.report(RangeOrFormatError, nil, "IV must be a 128-bit unsigned integer, got %d bytes", len(key.IV)); err != nil {
				return "", err
			}
		}
		writeUnQuoted(&buf, "IV", bytesToHex(key.IV))
	}
	if key.Format != "" {
		writeQuoted(&buf, "KEYFORMAT", key.Format)
	}
	if key.FormatVersion != "" {
		writeQuoted(&buf, "KEYFORMATVERSIONS", key.FormatVersion)
	}
	return buf.String(), nil
}

func (w *lineWriter) writeMedia(p *MediaPlaylist) error {
	if err := w.writeHeader(&p.PlaylistBase); err != nil {
		return err
	}
	lines := []string{"#EXT-X-TARGETDURATION:" + strconv.Itoa(p.TargetDuration)}
	if ll := p.LowLatencyCompatibility; ll != nil {
		var buf bytes.Buffer
		if ll.CanBlockReload {
			writeUnQuoted(&buf, "CAN-BLOCK-RELOAD", "YES")
		}
		if ll.CanSkipUntil != 0 {
			writeUnQuoted(&buf, "CAN-SKIP-UNTIL", formatNumber(ll.CanSkipUntil))
		}
		if ll.HoldBack != 0 {
			writeUnQuoted(&buf, "HOLD-BACK", formatNumber(ll.HoldBack))
		}
		if ll.PartHoldBack != 0 {
			writeUnQuoted(&buf, "PART-HOLD-BACK", formatNumber(ll.PartHoldBack))
		}
		lines = append(lines, "#EXT-X-SERVER-CONTROL:"+strings.TrimPrefix(buf.String(), ","))
	}
	if p.PartTargetDuration != 0 {
		lines = append(lines, "#EXT-X-PART-INF:PART-TARGET="+formatNumber(p.PartTargetDuration))
	}
	if p.MediaSequenceBase != 0 {
		lines = append(lines, "#EXT-X-MEDIA-SEQUENCE:"+strconv.Itoa(p.MediaSequenceBase))
	}
	if p.DiscontinuitySequenceBase != 0 {
		lines = append(lines, "#EXT-X-DISCONTINUITY-SEQUENCE:"+strconv.Itoa(p.DiscontinuitySequenceBase))
	}
	if p.PlaylistType != 0 {
		lines = append(lines, "#EXT-X-PLAYLIST-TYPE:"+p.PlaylistType.String())
	}
	if p.IsIFrame {
		lines = append(lines, "#EXT-X-I-FRAMES-ONLY")
	}
	if p.Skip > 0 {
		lines = append(lines, "#EXT-X-SKIP:SKIPPED-SEGMENTS="+strconv.Itoa(p.Skip))
	}
	for _, l := range lines {
		if err := w.push(l); err != nil {
			return err
		}
	}
	if err := w.pushCustom(p.Custom); err != nil {
		return err
	}

	var prev *Segment
	cueOut := false
	for _, seg := range p.Segments {
		if err := w.writeSegment(seg, prev, p.Version); err != nil {
			return err
		}
		for _, m := range seg.Markers {
			switch m.Type {
			case SpliceOut:
				cueOut = true
			case SpliceIn:
				cueOut = false
			}
		}
		prev = seg
	}
	if cueOut && p.PlaylistType == VOD {
		if err := w.push("#EXT-X-CUE-IN"); err != nil {
			return err
		}
	}
	if err := w.writePrefetchSegments(p, prev); err != nil {
		return err
	}
	if p.Endlist {
		if err := w.push("#EXT-X-ENDLIST"); err != nil {
			return err
		}
	}
	for _, rr := range p.RenditionReports {
		var buf bytes.Buffer
		buf.WriteString(`#EXT-X-RENDITION-REPORT:URI="`)
		buf.WriteString(rr.URI)
		buf.WriteRune('"')
		if rr.LastMSN != nil {
			writeUnQuoted(&buf, "LAST-MSN", strconv.Itoa(*rr.LastMSN))
		}
		if rr.LastPart != nil {
			writeUnQuoted(&buf, "LAST-PART", strconv.Itoa(*rr.LastPart))
		}
		if err := w.push(buf.String()); err != nil {
			return err
		}
	}
	return nil
}

func (w *lineWriter) writePrefetchSegments(p *MediaPlaylist, prev *Segment) error {
	if len(p.PrefetchSegments) > 2 {
		if err := w.report(CardinalityError, nil,
			"a server must not add more than two EXT-X-PREFETCH tags, got %d", len(p.PrefetchSegments)); err != nil {
			return err
		}
	}
	var key *Key
	if prev != nil {
		key = prev.Key
	}
	for _, seg := range p.PrefetchSegments {
		if seg.Discontinuity {
			if err := w.push("#EXT-X-PREFETCH-DISCONTINUITY"); err != nil {
				return err
			}
		}
		if seg.Key != nil && seg.Key != key {
			l, err := w.keyLine("#EXT-X-KEY:", seg.Key)
			if err != nil {
				return err
			}
			if err := w.push(l); err != nil {
				return err
			}
		}
		key = seg.Key
		if err := w.push("#EXT-X-PREFETCH:" + seg.URI); err != nil {
			return err
		}
	}
	return nil
}

// writeSegment writes the tags of seg. Key and Map are written only when
// they are not the instance inherited from prev.
func (w *lineWriter) writeSegment(seg, prev *Segment, version int) error {
	var lines []string
	if seg.Discontinuity {
		lines = append(lines, "#EXT-X-DISCONTINUITY")
	}
	if seg.Gap {
		lines = append(lines, "#EXT-X-GAP")
	}
	if seg.Key != nil && (prev == nil || prev.Key != seg.Key) {
		l, err := w.keyLine("#EXT-X-KEY:", seg.Key)
		if err != nil {
			return err
		}
		lines = append(lines, l)
	}
	if seg.Map != nil && (prev == nil || prev.Map != seg.Map) {
		lines = append(lines, mapLine(seg.Map))
	}
	if !seg.ProgramDateTime.IsZero() {
		lines = append(lines, "#EXT-X-PROGRAM-DATE-TIME:"+formatDate(seg.ProgramDateTime))
	}
	if seg.DateRange != nil {
		l, err := w.dateRangeLine(seg.DateRange)
		if err != nil {
			return err
		}
		lines = append(lines, l)
	}
	for _, m := range seg.Markers {
		lines = append(lines, markerLine(m))
	}
	for _, l := range lines {
		if err := w.push(l); err != nil {
			return err
		}
	}
	if err := w.pushCustom(seg.Custom); err != nil {
		return err
	}
	lines = lines[:0]
	for _, part := range seg.Parts {
		lines = append(lines, partLine(part))
	}
	if seg.URI != "" {
		duration := formatNumber(seg.Duration)
		if version > 0 && version < 3 {
			duration = strconv.Itoa(int(math.Round(seg.Duration)))
		}
		lines = append(lines, "#EXTINF:"+duration+","+seg.Title)
		if seg.ByteRange != nil {
			lines = append(lines, "#EXT-X-BYTERANGE:"+byteRangeString(seg.ByteRange))
		}
		lines = append(lines, seg.URI)
	}
	for _, l := range lines {
		if err := w.push(l); err != nil {
			return err
		}
	}
	return nil
}

func byteRangeString(br *ByteRange) string {
	s := strconv.FormatInt(br.Length, 10)
	if br.Offset >= 0 {
		s += "@" + strconv.FormatInt(br.Offset, 10)
	}
	return s
}

func writeHintRange(buf *bytes.Buffer, br *ByteRange) {
	if br == nil {
		return
	}
	if br.Offset >= 0 {
		writeUnQuoted(buf, "BYTERANGE-START", strconv.FormatInt(br.Offset, 10))
	}
	if br.Length > 0 {
		writeUnQuoted(buf, "BYTERANGE-LENGTH", strconv.FormatInt(br.Length, 10))
	}
}

func mapLine(m *Map) string {
	var buf bytes.Buffer
	if m.Hint {
		buf.WriteString("#EXT-X-PRELOAD-HINT:TYPE=MAP")
		writeQuoted(&buf, "URI", m.URI)
		writeHintRange(&buf, m.ByteRange)
		return buf.String()
	}
	buf.WriteString(`#EXT-X-MAP:URI="`)
	buf.WriteString(m.URI)
	buf.WriteRune('"')
	if m.ByteRange != nil {
		writeQuoted(&buf, "BYTERANGE", byteRangeString(m.ByteRange))
	}
	return buf.String()
}

func partLine(part *PartialSegment) string {
	var buf bytes.Buffer
	if part.Hint {
		buf.WriteString("#EXT-X-PRELOAD-HINT:TYPE=PART")
		writeQuoted(&buf, "URI", part.URI)
		writeHintRange(&buf, part.ByteRange)
		return buf.String()
	}
	buf.WriteString("#EXT-X-PART:DURATION=")
	buf.WriteString(formatNumber(part.Duration))
	writeQuoted(&buf, "URI", part.URI)
	if part.ByteRange != nil {
		writeQuoted(&buf, "BYTERANGE", byteRangeString(part.ByteRange))
	}
	if part.Independent {
		writeUnQuoted(&buf, "INDEPENDENT", "YES")
	}
	if part.Gap {
		writeUnQuoted(&buf, "GAP", "YES")
	}
	return buf.String()
}

func markerLine(m SpliceInfo) string {
	switch m.Type {
	case SpliceOut:
		if m.Duration == 0 {
			return "#EXT-X-CUE-OUT"
		}
		return "#EXT-X-CUE-OUT:" + formatNumber(m.Duration)
	case SpliceIn:
		return "#EXT-X-CUE-IN"
	}
	if m.Value == "" {
		return "#" + m.TagName
	}
	return "#" + m.TagName + ":" + m.Value
}

// dateRangeLine writes an EXT-X-DATERANGE tag. END-DATE is left out for
// END-ON-NEXT ranges since parsing resolves it from the next range.
func (w *lineWriter) dateRangeLine(dr *DateRange) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(`#EXT-X-DATERANGE:ID="`)
	buf.WriteString(dr.ID)
	buf.WriteRune('"')
	if dr.Start.IsZero() {
		if err := w.report(RequiredAttributeError, nil, "EXT-X-DATERANGE %q: START-DATE is required", dr.ID); err != nil {
			return "", err
		}
	} else {
		writeQuoted(&buf, "START-DATE", formatDate(dr.Start))
	}
	if !dr.End.IsZero() && !dr.EndOnNext {
		writeQuoted(&buf, "END-DATE", formatDate(dr.End))
	}
	if dr.Duration != 0 {
		writeUnQuoted(&buf, "DURATION", formatNumber(dr.Duration))
	}
	if dr.PlannedDuration != 0 {
		writeUnQuoted(&buf, "PLANNED-DURATION", formatNumber(dr.PlannedDuration))
	}
	if dr.Class != "" {
		writeQuoted(&buf, "CLASS", dr.Class)
	}
	if dr.EndOnNext {
		writeUnQuoted(&buf, "END-ON-NEXT", "YES")
	}
	keys := make([]string, 0, len(dr.Attributes))
	for k := range dr.Attributes {
		if strings.HasPrefix(k, "X-") || strings.HasPrefix(k, "SCTE35-") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := dr.Attributes[k].(type) {
		case float64:
			writeUnQuoted(&buf, k, formatNumber(v))
		case int:
			writeUnQuoted(&buf, k, strconv.Itoa(v))
		case []byte:
			writeUnQuoted(&buf, k, bytesToHex(v))
		case string:
			writeQuoted(&buf, k, v)
		}
	}
	return buf.String(), nil
}

func writeQuoted(buf *bytes.Buffer, key, value string) {
	buf.WriteRune(',')
	buf.WriteString(key)
	buf.WriteString(`="`)
	buf.WriteString(value)
	buf.WriteRune('"')
}

func writeUnQuoted(buf *bytes.Buffer, key, value string) {
	buf.WriteRune(',')
	buf.WriteString(key)
	buf.WriteRune('=')
	buf.WriteString(value)
}
