package m3u8

/*
 This file defines functions related to playlist parsing.
*/

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
)

var reAbsoluteURI = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// parseState is the accumulator of one Parse call.
type parseState struct {
	*reporter
	opts               Options
	listType           ListType // 0 until a master or media tag is seen
	seen               map[string]bool
	hasMap             bool
	targetDuration     int
	compatibleVersion  int
	versionReason      string
	closedCaptionsNone map[*Variant]bool
}

func newParseState(opts Options) *parseState {
	return &parseState{
		reporter:           newReporter(opts),
		opts:               opts,
		seen:               make(map[string]bool),
		compatibleVersion:  minVer,
		versionReason:      minVerReason,
		closedCaptionsNone: make(map[*Variant]bool),
	}
}

func (s *parseState) requireVersion(ver int, reason string) {
	updateMin(&s.compatibleVersion, &s.versionReason, ver, reason)
}

// Parse parses a master or a media playlist. The kind is detected from the
// tags. Violations that the policy lets pass are returned as Diagnostics;
// err is the violation that stopped the call, if any.
func Parse(text string, opts Options) (Playlist, Diagnostics, error) {
	s := newParseState(opts)
	p, err := s.parse(text)
	if err != nil {
		return nil, s.diagnoses, err
	}
	return p, s.diagnoses, nil
}

// DecodeFrom reads a playlist from an io.Reader and parses it.
func DecodeFrom(reader io.Reader, opts Options) (Playlist, Diagnostics, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, nil, fmt.Errorf("read playlist: %w", err)
	}
	return Parse(buf.String(), opts)
}

func (s *parseState) parse(text string) (Playlist, error) {
	lines, err := s.lex(text)
	if err != nil {
		return nil, err
	}
	var p Playlist
	if s.listType == MASTER {
		p, err = s.parseMaster(lines)
	} else {
		p, err = s.parseMedia(lines)
	}
	if err != nil {
		return nil, err
	}
	base := p.Common()
	if s.compatibleVersion > minVer && base.Version < s.compatibleVersion {
		if err := s.report(VersionMismatchError, nil, "EXT-X-VERSION needs to be %d or higher: %s",
			s.compatibleVersion, s.versionReason); err != nil {
			return nil, err
		}
	}
	base.Source = text
	return p, nil
}

// parseCommon handles the tags shared by both playlist kinds.
func (s *parseState) parseCommon(base *PlaylistBase, tag *tagLine) error {
	switch tag.name {
	case "EXT-X-VERSION":
		if s.seen[tag.name] {
			if err := s.report(CardinalityError, nil, "a playlist must not contain more than one EXT-X-VERSION tag"); err != nil {
				return err
			}
		}
		s.seen[tag.name] = true
		base.Version = int(tag.number)
	case "EXT-X-INDEPENDENT-SEGMENTS":
		if base.IndependentSegments {
			if err := s.report(CardinalityError, nil, "EXT-X-INDEPENDENT-SEGMENTS tag must not appear more than once in a playlist"); err != nil {
				return err
			}
		}
		base.IndependentSegments = true
	case "EXT-X-START":
		if base.Start != nil {
			if err := s.report(CardinalityError, nil, "EXT-X-START tag must not appear more than once in a playlist"); err != nil {
				return err
			}
		}
		if !tag.attrs.has("TIME-OFFSET") {
			if err := s.report(RequiredAttributeError, nil, "EXT-X-START: TIME-OFFSET attribute is required"); err != nil {
				return err
			}
		}
		base.Start = &Start{Offset: tag.attrs.number("TIME-OFFSET"), Precise: tag.attrs.flag("PRECISE")}
	}
	return nil
}

func setCustom(m *CustomMap, t CustomTag) {
	if *m == nil {
		*m = make(CustomMap)
	}
	(*m)[t.TagName()] = t
}

// renditionGroups holds the EXT-X-MEDIA renditions by TYPE and GROUP-ID.
type renditionGroups map[[2]string][]*Rendition

func (g renditionGroups) lookup(renditionType, groupID string) []*Rendition {
	return g[[2]string{renditionType, groupID}]
}

// Parse master playlist. Internal function.
func (s *parseState) parseMaster(lines []line) (*MasterPlaylist, error) {
	p := NewMasterPlaylist()
	groups, err := s.parseRenditions(lines)
	if err != nil {
		return nil, err
	}
	for i, l := range lines {
		if l.isURI() {
			continue
		}
		tag := l.tag
		if tag.custom != nil {
			setCustom(&p.Custom, tag.custom)
			continue
		}
		switch tag.name {
		case "EXT-X-STREAM-INF":
			if i+1 >= len(lines) || !lines[i+1].isURI() {
				if err := s.report(StructuralError, ErrMissingURI, "EXT-X-STREAM-INF must be followed by a URI line"); err != nil {
					return nil, err
				}
				continue
			}
			variant, err := s.parseVariant(tag.attrs, lines[i+1].uri, false, groups)
			if err != nil {
				return nil, err
			}
			p.Variants = append(p.Variants, variant)
		case "EXT-X-I-FRAME-STREAM-INF":
			variant, err := s.parseVariant(tag.attrs, tag.attrs.str("URI"), true, groups)
			if err != nil {
				return nil, err
			}
			p.Variants = append(p.Variants, variant)
		case "EXT-X-SESSION-DATA":
			if err := s.parseSessionData(p, tag.attrs); err != nil {
				return nil, err
			}
		case "EXT-X-SESSION-KEY":
			if err := s.parseSessionKey(p, tag.attrs); err != nil {
				return nil, err
			}
		default:
			if err := s.parseCommon(&p.PlaylistBase, tag); err != nil {
				return nil, err
			}
		}
	}
	if err := s.checkVariants(p); err != nil {
		return nil, err
	}
	return p, nil
}

// parseRenditions collects every EXT-X-MEDIA tag once. Variants share the
// resulting *Rendition values.
func (s *parseState) parseRenditions(lines []line) (renditionGroups, error) {
	groups := make(renditionGroups)
	for _, l := range lines {
		if !l.is("EXT-X-MEDIA") {
			continue
		}
		attrs := l.tag.attrs
		if attrs.str("TYPE") == "" || attrs.str("GROUP-ID") == "" {
			if err := s.report(RequiredAttributeError, nil, "EXT-X-MEDIA: TYPE and GROUP-ID attributes are required"); err != nil {
				return nil, err
			}
			continue
		}
		r := &Rendition{
			Type:            attrs.str("TYPE"),
			URI:             attrs.str("URI"),
			GroupID:         attrs.str("GROUP-ID"),
			Language:        attrs.str("LANGUAGE"),
			AssocLanguage:   attrs.str("ASSOC-LANGUAGE"),
			Name:            attrs.str("NAME"),
			IsDefault:       attrs.flag("DEFAULT"),
			Autoselect:      attrs.flag("AUTOSELECT"),
			Forced:          attrs.flag("FORCED"),
			InstreamID:      attrs.str("INSTREAM-ID"),
			Characteristics: attrs.str("CHARACTERISTICS"),
			Channels:        attrs.str("CHANNELS"),
		}
		if err := r.check(s.report); err != nil {
			return nil, err
		}
		key := [2]string{r.Type, r.GroupID}
		if err := checkRedundantRendition(groups[key], r, s.report); err != nil {
			return nil, err
		}
		groups[key] = append(groups[key], r)
	}
	return groups, nil
}

func checkRedundantRendition(group []*Rendition, r *Rendition, report violationFunc) error {
	defaultFound := false
	for _, item := range group {
		if item.Name == r.Name {
			return report(CardinalityError, ErrRedundantRendition,
				"all EXT-X-MEDIA tags in group %q must have different NAME attributes, %q repeats", r.GroupID, r.Name)
		}
		if item.IsDefault {
			defaultFound = true
		}
	}
	if defaultFound && r.IsDefault {
		return report(CardinalityError, ErrRedundantRendition,
			"EXT-X-MEDIA group %q must not have more than one member with DEFAULT=YES", r.GroupID)
	}
	return nil
}

func (s *parseState) parseVariant(attrs attributes, uri string, iFrameOnly bool, groups renditionGroups) (*Variant, error) {
	v := &Variant{
		URI:              uri,
		IsIFrameOnly:     iFrameOnly,
		Bandwidth:        attrs.integer("BANDWIDTH"),
		AverageBandwidth: attrs.integer("AVERAGE-BANDWIDTH"),
		Codecs:           attrs.str("CODECS"),
		Resolution:       attrs.resolution("RESOLUTION"),
		FrameRate:        attrs.number("FRAME-RATE"),
		HDCPLevel:        attrs.str("HDCP-LEVEL"),
		AllowedCPC:       attrs.allowedCPC("ALLOWED-CPC"),
		VideoRange:       attrs.str("VIDEO-RANGE"),
		StableVariantID:  attrs.str("STABLE-VARIANT-ID"),
	}
	if attrs.has("SCORE") {
		score := attrs.number("SCORE")
		if score < 0 {
			if err := s.report(RangeOrFormatError, nil, "SCORE must be a positive decimal-floating-point number, got %s", formatNumber(score)); err != nil {
				return nil, err
			}
		}
		v.Score = &score
	}
	if attrs.has("PROGRAM-ID") {
		id := attrs.integer("PROGRAM-ID")
		v.ProgramID = &id
	}
	for _, renditionType := range renditionTypes {
		groupID := attrs.str(renditionType)
		if groupID == "" {
			continue
		}
		if renditionType == CLOSEDCAPTIONS && groupID == "NONE" {
			s.closedCaptionsNone[v] = true
			continue
		}
		group := groups.lookup(renditionType, groupID)
		if len(group) == 0 {
			if err := s.report(ReferentialError, nil,
				"%s attribute %q must match the GROUP-ID attribute of an EXT-X-MEDIA tag whose TYPE attribute is %s",
				renditionType, groupID, renditionType); err != nil {
				return nil, err
			}
			continue
		}
		list, current := v.group(renditionType)
		*list = append([]*Rendition(nil), group...)
		for i, r := range group {
			if r.IsDefault {
				*current = i
			}
			if renditionType == CLOSEDCAPTIONS && strings.HasPrefix(r.InstreamID, "SERVICE") {
				s.requireVersion(7, "SERVICE value for the INSTREAM-ID attribute of the EXT-X-MEDIA")
			}
		}
	}
	if err := v.check(s.report); err != nil {
		return nil, err
	}
	return v, nil
}

// checkVariants runs the checks that span all variants.
func (s *parseState) checkVariants(p *MasterPlaylist) error {
	var withScore, streams, ccNone int
	for _, v := range p.Variants {
		if v.Score != nil {
			withScore++
		}
		if v.IsIFrameOnly {
			continue
		}
		streams++
		if s.closedCaptionsNone[v] {
			ccNone++
		}
	}
	if withScore > 0 && withScore < len(p.Variants) {
		if err := s.report(CardinalityError, nil,
			"if any variant stream contains the SCORE attribute, then all variant streams should have one"); err != nil {
			return err
		}
	}
	if ccNone > 0 && ccNone < streams {
		if err := s.report(CardinalityError, nil,
			"if there is a variant with CLOSED-CAPTIONS=NONE, all EXT-X-STREAM-INF tags must have this attribute with a value of NONE"); err != nil {
			return err
		}
	}
	return nil
}

func (s *parseState) parseSessionData(p *MasterPlaylist, attrs attributes) error {
	sd := &SessionData{
		ID:       attrs.str("DATA-ID"),
		Value:    attrs.str("VALUE"),
		URI:      attrs.str("URI"),
		Language: attrs.str("LANGUAGE"),
	}
	if err := sd.check(s.report); err != nil {
		return err
	}
	for _, item := range p.SessionDataList {
		if item.ID == sd.ID && item.Language == sd.Language {
			if err := s.report(CardinalityError, nil,
				"a playlist must not contain more than one EXT-X-SESSION-DATA tag with DATA-ID %q and LANGUAGE %q", sd.ID, sd.Language); err != nil {
				return err
			}
			break
		}
	}
	p.SessionDataList = append(p.SessionDataList, sd)
	return nil
}

func (s *parseState) parseSessionKey(p *MasterPlaylist, attrs attributes) error {
	if attrs.str("METHOD") == "NONE" {
		if err := s.report(RangeOrFormatError, nil, "EXT-X-SESSION-KEY: the value of the METHOD attribute must not be NONE"); err != nil {
			return err
		}
	}
	key := s.decodeKey(attrs)
	if err := key.check(s.report); err != nil {
		return err
	}
	for _, item := range p.SessionKeyList {
		if sameKey(item, key) {
			if err := s.report(CardinalityError, nil,
				"a master playlist must not contain more than one EXT-X-SESSION-KEY tag with the same METHOD, URI, IV, KEYFORMAT and KEYFORMATVERSIONS"); err != nil {
				return err
			}
			break
		}
	}
	p.SessionKeyList = append(p.SessionKeyList, key)
	return nil
}

func (s *parseState) decodeKey(attrs attributes) *Key {
	if attrs.has("IV") {
		s.requireVersion(2, "IV attribute of the EXT-X-KEY tag")
	}
	if attrs.has("KEYFORMAT") || attrs.has("KEYFORMATVERSIONS") {
		s.requireVersion(5, "KEYFORMAT or KEYFORMATVERSIONS attributes of the EXT-X-KEY tag")
	}
	return &Key{
		Method:        attrs.str("METHOD"),
		URI:           attrs.str("URI"),
		IV:            attrs.bytes("IV"),
		Format:        attrs.str("KEYFORMAT"),
		FormatVersion: attrs.str("KEYFORMATVERSIONS"),
	}
}

func sameKey(a, b *Key) bool {
	return a.Method == b.Method &&
		a.URI == b.URI &&
		bytes.Equal(a.IV, b.IV) &&
		a.Format == b.Format &&
		a.FormatVersion == b.FormatVersion
}

// Parse media playlist. Internal function.
func (s *parseState) parseMedia(lines []line) (*MediaPlaylist, error) {
	p := NewMediaPlaylist()
	var (
		pending            []line // segment tags since the last URI line
		mediaSequence      int
		discontinuityFound bool
		prefetchFound      bool
		containsParts      bool
	)
	for _, l := range lines {
		if l.isURI() {
			if len(pending) == 0 {
				if err := s.report(StructuralError, nil, "URI line %q is not preceded by any segment tags", l.uri); err != nil {
					return nil, err
				}
			}
			if p.TargetDuration == 0 {
				if err := s.report(StructuralError, nil, "the EXT-X-TARGETDURATION tag is required"); err != nil {
					return nil, err
				}
			}
			if prefetchFound {
				if err := s.report(StructuralError, nil, "media segments must appear before all EXT-X-PREFETCH segments"); err != nil {
					return nil, err
				}
			}
			seg, err := s.parseSegment(pending, l.uri, mediaSequence)
			if err != nil {
				return nil, err
			}
			mediaSequence++
			if err := p.addSegment(seg, s.report); err != nil {
				return nil, err
			}
			containsParts = containsParts || len(seg.Parts) > 0
			pending = nil
			continue
		}

		tag := l.tag
		if tag.custom != nil {
			if tag.segment {
				pending = append(pending, l)
			} else {
				setCustom(&p.Custom, tag.custom)
			}
			continue
		}
		if tag.category == categorySegment {
			pending = append(pending, l)
			if tag.name == "EXT-X-DISCONTINUITY" {
				discontinuityFound = true
			}
			continue
		}

		attrs := tag.attrs
		switch tag.name {
		case "EXT-X-TARGETDURATION":
			p.TargetDuration = int(tag.number)
			s.targetDuration = p.TargetDuration
		case "EXT-X-MEDIA-SEQUENCE":
			if len(p.Segments) > 0 || len(pending) > 0 {
				if err := s.report(StructuralError, nil, "the EXT-X-MEDIA-SEQUENCE tag must appear before the first media segment in the playlist"); err != nil {
					return nil, err
				}
			}
			p.MediaSequenceBase = int(tag.number)
			mediaSequence = p.MediaSequenceBase
		case "EXT-X-DISCONTINUITY-SEQUENCE":
			if len(p.Segments) > 0 || len(pending) > 0 {
				if err := s.report(StructuralError, nil, "the EXT-X-DISCONTINUITY-SEQUENCE tag must appear before the first media segment in the playlist"); err != nil {
					return nil, err
				}
			}
			if discontinuityFound {
				if err := s.report(StructuralError, nil, "the EXT-X-DISCONTINUITY-SEQUENCE tag must appear before any EXT-X-DISCONTINUITY tag"); err != nil {
					return nil, err
				}
			}
			p.DiscontinuitySequenceBase = int(tag.number)
		case "EXT-X-ENDLIST":
			p.Endlist = true
		case "EXT-X-PLAYLIST-TYPE":
			switch tag.param {
			case "EVENT":
				p.PlaylistType = EVENT
			case "VOD":
				p.PlaylistType = VOD
			default:
				if err := s.report(RangeOrFormatError, nil, "EXT-X-PLAYLIST-TYPE must be EVENT or VOD, got %q", tag.param); err != nil {
					return nil, err
				}
			}
		case "EXT-X-I-FRAMES-ONLY":
			s.requireVersion(4, "EXT-X-I-FRAMES-ONLY tag")
			p.IsIFrame = true
		case "EXT-X-SERVER-CONTROL":
			if !attrs.flag("CAN-BLOCK-RELOAD") {
				if err := s.report(RequiredAttributeError, nil, "EXT-X-SERVER-CONTROL: CAN-BLOCK-RELOAD=YES is mandatory for low-latency HLS"); err != nil {
					return nil, err
				}
			}
			p.LowLatencyCompatibility = &LowLatencyCompatibility{
				CanBlockReload: attrs.flag("CAN-BLOCK-RELOAD"),
				CanSkipUntil:   attrs.number("CAN-SKIP-UNTIL"),
				HoldBack:       attrs.number("HOLD-BACK"),
				PartHoldBack:   attrs.number("PART-HOLD-BACK"),
			}
		case "EXT-X-PART-INF":
			if !attrs.has("PART-TARGET") {
				if err := s.report(RequiredAttributeError, nil, "EXT-X-PART-INF: PART-TARGET attribute is mandatory"); err != nil {
					return nil, err
				}
			}
			p.PartTargetDuration = attrs.number("PART-TARGET")
		case "EXT-X-RENDITION-REPORT":
			if err := s.parseRenditionReport(p, attrs); err != nil {
				return nil, err
			}
		case "EXT-X-SKIP":
			if !attrs.has("SKIPPED-SEGMENTS") {
				if err := s.report(RequiredAttributeError, nil, "EXT-X-SKIP: SKIPPED-SEGMENTS attribute is mandatory"); err != nil {
					return nil, err
				}
			}
			s.requireVersion(9, "EXT-X-SKIP tag")
			p.Skip = attrs.integer("SKIPPED-SEGMENTS")
			mediaSequence += p.Skip
		case "EXT-X-PREFETCH":
			seg, err := s.parsePrefetchSegment(pending, tag.param, mediaSequence)
			if err != nil {
				return nil, err
			}
			mediaSequence++
			p.addPrefetchSegment(seg)
			prefetchFound = true
			pending = nil
		default:
			if err := s.parseCommon(&p.PlaylistBase, tag); err != nil {
				return nil, err
			}
		}
	}

	// Segment tags without a closing URI line only form a segment when it
	// is still being loaded: it ends in a part hint and the playlist is open.
	if len(pending) > 0 {
		seg, err := s.parseSegment(pending, "", mediaSequence)
		if err != nil {
			return nil, err
		}
		n := len(seg.Parts)
		switch {
		case n > 0 && !p.Endlist && seg.Parts[n-1].Hint:
			if err := p.addSegment(seg, s.report); err != nil {
				return nil, err
			}
			containsParts = true
		case n > 0 && !p.Endlist:
			if err := s.report(StructuralError, nil,
				"a playlist with EXT-X-PART tags and without EXT-X-ENDLIST must end with an EXT-X-PRELOAD-HINT tag with TYPE=PART"); err != nil {
				return nil, err
			}
		}
	}

	if !p.IsIFrame && s.hasMap {
		s.requireVersion(6, "EXT-X-MAP tag in a Media Playlist that does not contain EXT-X-I-FRAMES-ONLY")
	}
	if err := checkDateRange(p.Segments, s.report); err != nil {
		return nil, err
	}
	if p.LowLatencyCompatibility != nil {
		if err := checkLowLatencyCompatibility(p, containsParts, s.report); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *parseState) parseRenditionReport(p *MediaPlaylist, attrs attributes) error {
	rr := &RenditionReport{URI: attrs.str("URI")}
	if err := rr.check(s.report); err != nil {
		return err
	}
	if reAbsoluteURI.MatchString(rr.URI) {
		if err := s.report(RangeOrFormatError, nil, "EXT-X-RENDITION-REPORT: URI %q must be relative to the playlist URI", rr.URI); err != nil {
			return err
		}
	}
	if attrs.has("LAST-MSN") {
		msn := attrs.integer("LAST-MSN")
		rr.LastMSN = &msn
	}
	if attrs.has("LAST-PART") {
		part := attrs.integer("LAST-PART")
		rr.LastPart = &part
	}
	p.RenditionReports = append(p.RenditionReports, rr)
	return nil
}

// parseSegment reduces the segment tags preceding a URI line into a Segment.
func (s *parseState) parseSegment(lines []line, uri string, mediaSequence int) (*Segment, error) {
	seg := &Segment{URI: uri, MediaSequenceNumber: mediaSequence}
	var mapHint, partHint bool
	for _, l := range lines {
		tag := l.tag
		if tag.custom != nil {
			setCustom(&seg.Custom, tag.custom)
			continue
		}
		attrs := tag.attrs
		switch tag.name {
		case "EXTINF":
			if !isInteger(tag.duration) {
				s.requireVersion(3, "floating-point EXTINF duration values")
			}
			if int(math.Round(tag.duration)) > s.targetDuration {
				if err := s.report(RangeOrFormatError, ErrDurationExceedsTarget,
					"EXTINF duration %s, when rounded to the nearest integer, must be less than or equal to the target duration %d",
					formatNumber(tag.duration), s.targetDuration); err != nil {
					return nil, err
				}
			}
			seg.Duration = tag.duration
			seg.Title = tag.title
		case "EXT-X-BYTERANGE":
			s.requireVersion(4, "EXT-X-BYTERANGE tag")
			seg.ByteRange = tag.byteRange
		case "EXT-X-DISCONTINUITY":
			if err := s.beforeParts(seg, tag.name); err != nil {
				return nil, err
			}
			seg.Discontinuity = true
		case "EXT-X-KEY":
			if err := s.beforeParts(seg, tag.name); err != nil {
				return nil, err
			}
			key := s.decodeKey(attrs)
			if err := key.check(s.report); err != nil {
				return nil, err
			}
			seg.Key = key
		case "EXT-X-MAP":
			if err := s.beforeParts(seg, tag.name); err != nil {
				return nil, err
			}
			s.requireVersion(5, "EXT-X-MAP tag")
			s.hasMap = true
			m := &Map{URI: attrs.str("URI"), ByteRange: attrs.byteRange("BYTERANGE")}
			if err := m.check(s.report); err != nil {
				return nil, err
			}
			seg.Map = m
		case "EXT-X-PROGRAM-DATE-TIME":
			seg.ProgramDateTime = tag.date
		case "EXT-X-DATERANGE":
			dr := &DateRange{
				ID:              attrs.str("ID"),
				Class:           attrs.str("CLASS"),
				Start:           attrs.date("START-DATE"),
				End:             attrs.date("END-DATE"),
				Duration:        attrs.number("DURATION"),
				PlannedDuration: attrs.number("PLANNED-DURATION"),
				EndOnNext:       attrs.flag("END-ON-NEXT"),
				Attributes:      attrs.userAttributes(),
			}
			if err := dr.check(s.report); err != nil {
				return nil, err
			}
			seg.DateRange = dr
		case "EXT-X-CUE-OUT":
			seg.Markers = append(seg.Markers, SpliceInfo{Type: SpliceOut, Duration: tag.number})
		case "EXT-X-CUE-IN":
			seg.Markers = append(seg.Markers, SpliceInfo{Type: SpliceIn})
		case "EXT-X-CUE-OUT-CONT", "EXT-X-CUE", "EXT-OATCLS-SCTE35", "EXT-X-ASSET", "EXT-X-SCTE35":
			seg.Markers = append(seg.Markers, SpliceInfo{Type: SpliceRaw, TagName: tag.name, Value: tag.param})
		case "EXT-X-PRELOAD-HINT":
			hintType := attrs.str("TYPE")
			if hintType == "" {
				if err := s.report(RequiredAttributeError, nil, "EXT-X-PRELOAD-HINT: TYPE attribute is mandatory"); err != nil {
					return nil, err
				}
				continue
			}
			if (hintType == "PART" && partHint) || (hintType == "MAP" && mapHint) {
				if err := s.report(CardinalityError, nil,
					"servers should not add more than one EXT-X-PRELOAD-HINT tag with TYPE=%s to a playlist", hintType); err != nil {
					return nil, err
				}
			}
			if attrs.str("URI") == "" {
				if err := s.report(RequiredAttributeError, nil, "EXT-X-PRELOAD-HINT: URI attribute is mandatory"); err != nil {
					return nil, err
				}
				continue
			}
			switch hintType {
			case "MAP":
				mapHint = true
				s.hasMap = true
				seg.Map = &Map{Hint: true, URI: attrs.str("URI"), ByteRange: hintByteRange(attrs)}
			case "PART":
				partHint = true
				part := &PartialSegment{Hint: true, URI: attrs.str("URI"), ByteRange: hintByteRange(attrs)}
				if err := s.addPart(seg, part); err != nil {
					return nil, err
				}
			}
		case "EXT-X-PART":
			if attrs.str("URI") == "" {
				if err := s.report(RequiredAttributeError, nil, "EXT-X-PART: URI attribute is mandatory"); err != nil {
					return nil, err
				}
				continue
			}
			if !attrs.has("DURATION") {
				if err := s.report(RequiredAttributeError, nil, "EXT-X-PART: DURATION attribute is mandatory"); err != nil {
					return nil, err
				}
			}
			part := &PartialSegment{
				URI:         attrs.str("URI"),
				Duration:    attrs.number("DURATION"),
				Independent: attrs.flag("INDEPENDENT"),
				ByteRange:   attrs.byteRange("BYTERANGE"),
				Gap:         attrs.flag("GAP"),
			}
			if err := s.addPart(seg, part); err != nil {
				return nil, err
			}
		case "EXT-X-GAP":
			seg.Gap = true
		}
	}
	return seg, nil
}

func (s *parseState) beforeParts(seg *Segment, name string) error {
	if len(seg.Parts) == 0 {
		return nil
	}
	return s.report(StructuralError, nil, "%s must appear before the first EXT-X-PART tag of the parent segment", name)
}

func (s *parseState) addPart(seg *Segment, part *PartialSegment) error {
	if seg.Gap && !part.Gap {
		if err := s.report(RequiredAttributeError, nil, "partial segment %q must have GAP=YES in a gap segment", part.URI); err != nil {
			return err
		}
	}
	seg.Parts = append(seg.Parts, part)
	return nil
}

// hintByteRange returns nil unless BYTERANGE-START or BYTERANGE-LENGTH is
// present. A missing BYTERANGE-START leaves Offset at -1.
func hintByteRange(attrs attributes) *ByteRange {
	if !attrs.has("BYTERANGE-START") && !attrs.has("BYTERANGE-LENGTH") {
		return nil
	}
	br := &ByteRange{Length: int64(attrs.number("BYTERANGE-LENGTH")), Offset: -1}
	if attrs.has("BYTERANGE-START") {
		br.Offset = int64(attrs.number("BYTERANGE-START"))
	}
	return br
}

func (s *parseState) parsePrefetchSegment(lines []line, uri string, mediaSequence int) (*PrefetchSegment, error) {
	seg := &PrefetchSegment{URI: uri, MediaSequenceNumber: mediaSequence}
	if err := seg.check(s.report); err != nil {
		return nil, err
	}
	for _, l := range lines {
		tag := l.tag
		switch tag.name {
		case "EXTINF", "EXT-X-DISCONTINUITY", "EXT-X-MAP":
			if err := s.report(StructuralError, nil, "a prefetch segment must not be advertised with an %s tag", tag.name); err != nil {
				return nil, err
			}
		case "EXT-X-PREFETCH-DISCONTINUITY":
			seg.Discontinuity = true
		case "EXT-X-KEY":
			key := s.decodeKey(tag.attrs)
			if err := key.check(s.report); err != nil {
				return nil, err
			}
			seg.Key = key
		}
	}
	return seg, nil
}

// addSegment appends seg after numbering its discontinuity sequence, filling
// in the Key and Map of the previous segment and resolving a byte range
// without offset.
func (p *MediaPlaylist) addSegment(seg *Segment, report violationFunc) error {
	seg.DiscontinuitySequence = p.DiscontinuitySequenceBase
	var prev *Segment
	if n := len(p.Segments); n > 0 {
		prev = p.Segments[n-1]
		seg.DiscontinuitySequence = prev.DiscontinuitySequence
		if seg.Key == nil {
			seg.Key = prev.Key
		}
		if seg.Map == nil {
			seg.Map = prev.Map
		}
	}
	if seg.Discontinuity {
		seg.DiscontinuitySequence++
	}
	if br := seg.ByteRange; br != nil && br.Offset == -1 {
		switch {
		case prev == nil:
			if err := report(RangeOrFormatError, ErrDanglingByterange,
				"if offset of EXT-X-BYTERANGE is not present, a previous media segment must appear in the playlist"); err != nil {
				return err
			}
		case prev.ByteRange != nil && prev.URI == seg.URI:
			br.Offset = prev.ByteRange.Offset + prev.ByteRange.Length
		default:
			if err := report(RangeOrFormatError, ErrDanglingByterange,
				"if offset of EXT-X-BYTERANGE is not present, the previous media segment must be a sub-range of %q", seg.URI); err != nil {
				return err
			}
		}
	}
	p.Segments = append(p.Segments, seg)
	return nil
}

// addPrefetchSegment continues the discontinuity sequence and the key of the
// segments before it.
func (p *MediaPlaylist) addPrefetchSegment(seg *PrefetchSegment) {
	dseq := p.DiscontinuitySequenceBase
	var key *Key
	if n := len(p.PrefetchSegments); n > 0 {
		dseq, key = p.PrefetchSegments[n-1].DiscontinuitySequence, p.PrefetchSegments[n-1].Key
	} else if n := len(p.Segments); n > 0 {
		dseq, key = p.Segments[n-1].DiscontinuitySequence, p.Segments[n-1].Key
	}
	if seg.Discontinuity {
		dseq++
	}
	seg.DiscontinuitySequence = dseq
	if seg.Key == nil {
		seg.Key = key
	}
	p.PrefetchSegments = append(p.PrefetchSegments, seg)
}
