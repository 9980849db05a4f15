package m3u8

/*
 This file defines the lexical pass: playlist text to a sequence of typed
 tag and URI lines.
*/

import (
	"strings"
	"time"
)

type tagCategory uint

const (
	categoryUnknown tagCategory = iota
	categoryBasic
	categorySegment
	categoryMediaPlaylist
	categoryMasterPlaylist
	categoryMediaOrMaster
)

func (c tagCategory) String() string {
	switch c {
	case categoryBasic:
		return "Basic"
	case categorySegment:
		return "Segment"
	case categoryMediaPlaylist:
		return "MediaPlaylist"
	case categoryMasterPlaylist:
		return "MasterPlaylist"
	case categoryMediaOrMaster:
		return "MediaOrMasterPlaylist"
	}
	return "Unknown"
}

var tagCategories = map[string]tagCategory{
	"EXTM3U":                       categoryBasic,
	"EXT-X-VERSION":                categoryBasic,
	"EXTINF":                       categorySegment,
	"EXT-X-BYTERANGE":              categorySegment,
	"EXT-X-DISCONTINUITY":          categorySegment,
	"EXT-X-PREFETCH-DISCONTINUITY": categorySegment,
	"EXT-X-KEY":                    categorySegment,
	"EXT-X-MAP":                    categorySegment,
	"EXT-X-PROGRAM-DATE-TIME":      categorySegment,
	"EXT-X-DATERANGE":              categorySegment,
	"EXT-X-CUE-OUT":                categorySegment,
	"EXT-X-CUE-IN":                 categorySegment,
	"EXT-X-CUE-OUT-CONT":           categorySegment,
	"EXT-X-CUE":                    categorySegment,
	"EXT-OATCLS-SCTE35":            categorySegment,
	"EXT-X-ASSET":                  categorySegment,
	"EXT-X-SCTE35":                 categorySegment,
	"EXT-X-PART":                   categorySegment,
	"EXT-X-PRELOAD-HINT":           categorySegment,
	"EXT-X-GAP":                    categorySegment,
	"EXT-X-TARGETDURATION":         categoryMediaPlaylist,
	"EXT-X-MEDIA-SEQUENCE":         categoryMediaPlaylist,
	"EXT-X-DISCONTINUITY-SEQUENCE": categoryMediaPlaylist,
	"EXT-X-ENDLIST":                categoryMediaPlaylist,
	"EXT-X-PLAYLIST-TYPE":          categoryMediaPlaylist,
	"EXT-X-I-FRAMES-ONLY":          categoryMediaPlaylist,
	"EXT-X-SERVER-CONTROL":         categoryMediaPlaylist,
	"EXT-X-PART-INF":               categoryMediaPlaylist,
	"EXT-X-PREFETCH":               categoryMediaPlaylist,
	"EXT-X-RENDITION-REPORT":       categoryMediaPlaylist,
	"EXT-X-SKIP":                   categoryMediaPlaylist,
	"EXT-X-MEDIA":                  categoryMasterPlaylist,
	"EXT-X-STREAM-INF":             categoryMasterPlaylist,
	"EXT-X-I-FRAME-STREAM-INF":     categoryMasterPlaylist,
	"EXT-X-SESSION-DATA":           categoryMasterPlaylist,
	"EXT-X-SESSION-KEY":            categoryMasterPlaylist,
	"EXT-X-INDEPENDENT-SEGMENTS":   categoryMediaOrMaster,
	"EXT-X-START":                  categoryMediaOrMaster,
}

// repeatable media playlist tags, exempt from the one-per-playlist rule
var repeatableTags = map[string]bool{
	"EXT-X-RENDITION-REPORT": true,
	"EXT-X-PREFETCH":         true,
}

type valueKind uint

const (
	rawValue valueKind = iota
	noValue
	numberValue
	extinfValue
	byteRangeValue
	dateValue
	attributeListValue
	cueOutValue
)

var tagValueKinds = map[string]valueKind{
	"EXTM3U":                       noValue,
	"EXT-X-DISCONTINUITY":          noValue,
	"EXT-X-PREFETCH-DISCONTINUITY": noValue,
	"EXT-X-ENDLIST":                noValue,
	"EXT-X-I-FRAMES-ONLY":          noValue,
	"EXT-X-INDEPENDENT-SEGMENTS":   noValue,
	"EXT-X-CUE-IN":                 noValue,
	"EXT-X-GAP":                    noValue,
	"EXT-X-VERSION":                numberValue,
	"EXT-X-TARGETDURATION":         numberValue,
	"EXT-X-MEDIA-SEQUENCE":         numberValue,
	"EXT-X-DISCONTINUITY-SEQUENCE": numberValue,
	"EXTINF":                       extinfValue,
	"EXT-X-BYTERANGE":              byteRangeValue,
	"EXT-X-PROGRAM-DATE-TIME":      dateValue,
	"EXT-X-CUE-OUT":                cueOutValue,
	"EXT-X-KEY":                    attributeListValue,
	"EXT-X-MAP":                    attributeListValue,
	"EXT-X-DATERANGE":              attributeListValue,
	"EXT-X-MEDIA":                  attributeListValue,
	"EXT-X-STREAM-INF":             attributeListValue,
	"EXT-X-I-FRAME-STREAM-INF":     attributeListValue,
	"EXT-X-SESSION-DATA":           attributeListValue,
	"EXT-X-SESSION-KEY":            attributeListValue,
	"EXT-X-START":                  attributeListValue,
	"EXT-X-SERVER-CONTROL":         attributeListValue,
	"EXT-X-PART-INF":               attributeListValue,
	"EXT-X-PART":                   attributeListValue,
	"EXT-X-PRELOAD-HINT":           attributeListValue,
	"EXT-X-RENDITION-REPORT":       attributeListValue,
	"EXT-X-SKIP":                   attributeListValue,
}

// tagLine is a recognized tag. Which value fields are set depends on the tag.
type tagLine struct {
	name      string
	category  tagCategory
	param     string // text after the first ':'
	number    float64
	duration  float64 // EXTINF
	title     string  // EXTINF
	byteRange *ByteRange
	date      time.Time
	attrs     attributes
	custom    CustomTag // set for tags claimed by a CustomDecoder
	segment   bool      // custom tag applies to a segment
}

// line is either a tag or a URI.
type line struct {
	tag *tagLine
	uri string
}

func (l line) isURI() bool {
	return l.tag == nil
}

func (l line) is(name string) bool {
	return l.tag != nil && l.tag.name == name
}

// lex splits text into lines. Blank lines, comments and unknown tags are
// dropped.
func (s *parseState) lex(text string) ([]line, error) {
	var lines []line
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if !strings.HasPrefix(l, "#") {
			lines = append(lines, line{uri: l})
			continue
		}
		if tag, err := s.lexCustom(l); err != nil {
			return nil, err
		} else if tag != nil {
			lines = append(lines, line{tag: tag})
			continue
		}
		if !strings.HasPrefix(l, "#EXT") {
			continue
		}
		tag, err := s.lexTag(l)
		if err != nil {
			return nil, err
		}
		if tag != nil {
			lines = append(lines, line{tag: tag})
		}
	}
	if len(lines) == 0 || !lines[0].is("EXTM3U") {
		return nil, s.fatal(StructuralError, ErrMissingHeader, "the EXTM3U tag must be the first line")
	}
	return lines, nil
}

func (s *parseState) lexCustom(text string) (*tagLine, error) {
	for _, cd := range s.opts.CustomDecoders {
		if !strings.HasPrefix(text, cd.TagName()) {
			continue
		}
		ct, err := cd.Decode(text)
		if err != nil {
			if rerr := s.report(RangeOrFormatError, err, "custom tag %s: %v", cd.TagName(), err); rerr != nil {
				return nil, rerr
			}
			return nil, nil
		}
		return &tagLine{name: cd.TagName(), custom: ct, segment: cd.SegmentTag()}, nil
	}
	return nil, nil
}

func (s *parseState) lexTag(text string) (*tagLine, error) {
	name, param, _ := strings.Cut(text[1:], ":")
	name = strings.TrimSpace(name)
	param = strings.TrimSpace(param)
	category := tagCategories[name]
	if err := s.commit(category); err != nil {
		return nil, err
	}
	if category == categoryUnknown {
		return nil, nil
	}
	if category == categoryMediaPlaylist && !repeatableTags[name] {
		if s.seen[name] {
			if err := s.report(CardinalityError, nil, "there must not be more than one %s tag in a media playlist", name); err != nil {
				return nil, err
			}
		}
		s.seen[name] = true
	}

	tag := &tagLine{name: name, category: category, param: param}
	switch tagValueKinds[name] {
	case numberValue:
		tag.number = toNumber(param)
	case extinfValue:
		duration, title, _ := strings.Cut(param, ",")
		tag.duration = toNumber(duration)
		tag.title = title
	case byteRangeValue:
		tag.byteRange = parseByteRange(param)
	case dateValue:
		t, err := TimeParse(param)
		if err != nil {
			if rerr := s.report(RangeOrFormatError, err, "%s: %v", name, err); rerr != nil {
				return nil, rerr
			}
		}
		tag.date = t
	case cueOutValue:
		if strings.Contains(param, "=") {
			attrs, err := decodeAttributes(param, s.report)
			if err != nil {
				return nil, err
			}
			tag.number = attrs.number("DURATION")
		} else {
			tag.number = toNumber(param)
		}
	case attributeListValue:
		attrs, err := decodeAttributes(param, s.report)
		if err != nil {
			return nil, err
		}
		tag.attrs = attrs
	}
	return tag, nil
}

// commit records which kind of playlist the tags so far belong to.
func (s *parseState) commit(category tagCategory) error {
	var want ListType
	switch category {
	case categorySegment, categoryMediaPlaylist:
		want = MEDIA
	case categoryMasterPlaylist:
		want = MASTER
	default:
		return nil
	}
	if s.listType == 0 {
		s.listType = want
		return nil
	}
	if s.listType != want {
		return s.fatal(StructuralError, ErrMixedTags, "the file contains both media and master playlist tags")
	}
	return nil
}
