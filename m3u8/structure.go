package m3u8

/*
 This file defines data structures related to package.
*/

import (
	"bytes"
	"time"
)

const (
	// DATETIME represents format for EXT-X-PROGRAM-DATE-TIME timestamps when parsed strictly.
	// Format is [ISO/IEC 8601:2004] according to the [HLS spec].
	DATETIME = time.RFC3339Nano

	// dateLayout is the layout used when writing dates: UTC with millisecond precision.
	dateLayout = "2006-01-02T15:04:05.000Z"
)

// Playlist is either a *MasterPlaylist or a *MediaPlaylist.
// The shared fields live in the embedded PlaylistBase.
type Playlist interface {
	Common() *PlaylistBase
	ListType() ListType
	CalcMinVersion() (ver int, reason string)
}

// CustomDecoder interface for decoding custom and unsupported tags
type CustomDecoder interface {
	// TagName should return the full identifier including the leading '#' as well as the
	// trailing ':' if the tag also contains a value or attribute list
	TagName() string
	// Decode parses a line from the playlist and returns the CustomTag representation
	Decode(line string) (CustomTag, error)
	// SegmentTag should return true if this CustomDecoder should apply per segment.
	// Should returns false if it a MediaPlaylist header tag.
	// This value is ignored for MasterPlaylists.
	SegmentTag() bool
}

// CustomTag interface for encoding custom and unsupported tags
type CustomTag interface {
	// TagName should return the full identifier including the leading '#' as well as the
	// trailing ':' if the tag also contains a value or attribute list
	TagName() string
	// Encode should return the complete tag string as a *bytes.Buffer.
	// Return nil to not write anything to the m3u8.
	Encode() *bytes.Buffer
	// String should return the encoded tag as a string.
	String() string
}

// CustomMap maps custom tags names to CustomTag
type CustomMap map[string]CustomTag

// ListType is the discriminant of a Playlist.
type ListType uint

const (
	// use 0 for undefined type
	MASTER ListType = iota + 1
	MEDIA
)

func (t ListType) String() string {
	switch t {
	case MASTER:
		return "MASTER"
	case MEDIA:
		return "MEDIA"
	}
	return "UNKNOWN"
}

// MediaType is EXT-X-PLAYLIST-TYPE tag
type MediaType uint

const (
	// use 0 for undefined
	EVENT MediaType = iota + 1
	VOD
)

func (t MediaType) String() string {
	switch t {
	case EVENT:
		return "EVENT"
	case VOD:
		return "VOD"
	}
	return ""
}

// Rendition types of EXT-X-MEDIA.
const (
	AUDIO          = "AUDIO"
	VIDEO          = "VIDEO"
	SUBTITLES      = "SUBTITLES"
	CLOSEDCAPTIONS = "CLOSED-CAPTIONS"
)

// renditionTypes is the order in which rendition groups are matched and written.
var renditionTypes = []string{AUDIO, VIDEO, SUBTITLES, CLOSEDCAPTIONS}

// PlaylistBase holds the fields shared by master and media playlists.
type PlaylistBase struct {
	IsMasterPlaylist    bool      // IsMasterPlaylist is set by NewMasterPlaylist and Parse
	URI                 string    // URI the playlist was loaded from. Not resolved by this package.
	Version             int       // EXT-X-VERSION. 0 if absent.
	IndependentSegments bool      // EXT-X-INDEPENDENT-SEGMENTS
	Start               *Start    // EXT-X-START
	Source              string    // Source is the text the playlist was parsed from
	Custom              CustomMap // Custom-provided playlist tags
}

// Common returns the shared fields.
func (b *PlaylistBase) Common() *PlaylistBase { return b }

// ListType returns MASTER.
func (p *MasterPlaylist) ListType() ListType { return MASTER }

// ListType returns MEDIA.
func (p *MediaPlaylist) ListType() ListType { return MEDIA }

// Start corresponds to EXT-X-START.
type Start struct {
	Offset  float64 // TIME-OFFSET (positive or negative)
	Precise bool    // PRECISE=YES
}

// MasterPlaylist represents a master (multivariant) playlist which
// provides parameters and lists one or more media playlists. URI lines in the
// playlist identify media playlists.
type MasterPlaylist struct {
	PlaylistBase
	Variants        []*Variant     // Variants is a list of media playlists
	SessionDataList []*SessionData // EXT-X-SESSION-DATA tags
	SessionKeyList  []*Key         // EXT-X-SESSION-KEY tags
}

// MediaPlaylist represents a single bitrate playlist aka media playlist.
// URI lines in the Playlist point to media segments.
type MediaPlaylist struct {
	PlaylistBase
	TargetDuration            int                      // EXT-X-TARGETDURATION
	MediaSequenceBase         int                      // EXT-X-MEDIA-SEQUENCE
	DiscontinuitySequenceBase int                      // EXT-X-DISCONTINUITY-SEQUENCE
	Endlist                   bool                     // EXT-X-ENDLIST
	PlaylistType              MediaType                // EXT-X-PLAYLIST-TYPE (EVENT, VOD or empty)
	IsIFrame                  bool                     // EXT-X-I-FRAMES-ONLY
	Segments                  []*Segment               // Segments in playlist order
	PrefetchSegments          []*PrefetchSegment       // EXT-X-PREFETCH segments after all segments
	LowLatencyCompatibility   *LowLatencyCompatibility // EXT-X-SERVER-CONTROL
	PartTargetDuration        float64                  // EXT-X-PART-INF:PART-TARGET. 0 if absent.
	RenditionReports          []*RenditionReport       // EXT-X-RENDITION-REPORT tags
	Skip                      int                      // EXT-X-SKIP:SKIPPED-SEGMENTS
}

// LowLatencyCompatibility corresponds to EXT-X-SERVER-CONTROL.
// Zero values mean the attribute is absent.
type LowLatencyCompatibility struct {
	CanBlockReload bool    // CAN-BLOCK-RELOAD
	CanSkipUntil   float64 // CAN-SKIP-UNTIL
	HoldBack       float64 // HOLD-BACK
	PartHoldBack   float64 // PART-HOLD-BACK
}

// Variant represents an EXT-X-STREAM-INF or EXT-X-I-FRAME-STREAM-INF tag.
type Variant struct {
	URI               string            // URI of the media playlist. Attribute for I-frame playlists.
	IsIFrameOnly      bool              // EXT-X-I-FRAME-STREAM-INF
	Bandwidth         int               // BANDWIDTH (required)
	AverageBandwidth  int               // AVERAGE-BANDWIDTH
	Score             *float64          // SCORE
	Codecs            string            // CODECS
	Resolution        *Resolution       // RESOLUTION
	FrameRate         float64           // FRAME-RATE
	HDCPLevel         string            // HDCP-LEVEL: NONE, TYPE-0, TYPE-1
	AllowedCPC        []AllowedCPC      // ALLOWED-CPC
	VideoRange        string            // VIDEO-RANGE: SDR, HLG, PQ
	StableVariantID   string            // STABLE-VARIANT-ID
	ProgramID         *int              // PROGRAM-ID. Removed in version 6
	Audio             []*Rendition      // AUDIO group
	Video             []*Rendition      // VIDEO group
	Subtitles         []*Rendition      // SUBTITLES group
	ClosedCaptions    []*Rendition      // CLOSED-CAPTIONS group
	CurrentRenditions CurrentRenditions // index of the selected rendition per group
}

// CurrentRenditions holds the index of the selected rendition per group.
type CurrentRenditions struct {
	Audio          int
	Video          int
	Subtitles      int
	ClosedCaptions int
}

// Renditions returns the rendition group of the given TYPE.
func (v *Variant) Renditions(renditionType string) []*Rendition {
	switch renditionType {
	case AUDIO:
		return v.Audio
	case VIDEO:
		return v.Video
	case SUBTITLES:
		return v.Subtitles
	case CLOSEDCAPTIONS:
		return v.ClosedCaptions
	}
	return nil
}

func (v *Variant) group(renditionType string) (*[]*Rendition, *int) {
	switch renditionType {
	case AUDIO:
		return &v.Audio, &v.CurrentRenditions.Audio
	case VIDEO:
		return &v.Video, &v.CurrentRenditions.Video
	case SUBTITLES:
		return &v.Subtitles, &v.CurrentRenditions.Subtitles
	case CLOSEDCAPTIONS:
		return &v.ClosedCaptions, &v.CurrentRenditions.ClosedCaptions
	}
	return nil, nil
}

// Resolution is the RESOLUTION attribute.
type Resolution struct {
	Width  int
	Height int
}

// AllowedCPC is one entry of the ALLOWED-CPC attribute.
type AllowedCPC struct {
	Format  string   // KEYFORMAT the entry applies to
	CPCList []string // Content Protection Configurations
}

// Rendition represents an EXT-X-MEDIA tag.
// Attributes are listed in the same order as in RFC8216bis for easy comparison.
type Rendition struct {
	Type            string // TYPE: AUDIO, VIDEO, SUBTITLES or CLOSED-CAPTIONS
	URI             string // URI. Required for SUBTITLES, forbidden for CLOSED-CAPTIONS
	GroupID         string // GROUP-ID
	Language        string // LANGUAGE
	AssocLanguage   string // ASSOC-LANGUAGE
	Name            string // NAME. Unique within the group
	IsDefault       bool   // DEFAULT
	Autoselect      bool   // AUTOSELECT
	Forced          bool   // FORCED
	InstreamID      string // INSTREAM-ID. Required for CLOSED-CAPTIONS
	Characteristics string // CHARACTERISTICS
	Channels        string // CHANNELS
}

// Segment represents a media segment included in a media playlist.
type Segment struct {
	URI                   string       // URI is the path to the media segment. Empty for a trailing partial segment.
	Duration              float64      // EXTINF first parameter. Duration in seconds.
	Title                 string       // EXTINF optional second parameter.
	ByteRange             *ByteRange   // EXT-X-BYTERANGE
	Discontinuity         bool         // EXT-X-DISCONTINUITY
	MediaSequenceNumber   int          // sequence number of the segment
	DiscontinuitySequence int          // discontinuity sequence number of the segment
	Key                   *Key         // EXT-X-KEY, own or inherited (shared pointer)
	Map                   *Map         // EXT-X-MAP, own or inherited (shared pointer)
	ProgramDateTime       time.Time    // EXT-X-PROGRAM-DATE-TIME. Zero if absent.
	DateRange             *DateRange   // EXT-X-DATERANGE
	Markers               []SpliceInfo // CUE and SCTE-35 adjacent tags
	Parts                 []*PartialSegment
	Gap                   bool      // EXT-X-GAP
	Custom                CustomMap // Custom holds custom tags
}

// ByteRange is a sub-range of a resource. Offset is -1 until resolved.
type ByteRange struct {
	Length int64
	Offset int64
}

// PartialSegment corresponds to EXT-X-PART, or to EXT-X-PRELOAD-HINT with TYPE=PART.
type PartialSegment struct {
	Hint        bool       // Hint is true for EXT-X-PRELOAD-HINT
	URI         string     // URI
	Duration    float64    // DURATION
	Independent bool       // INDEPENDENT
	ByteRange   *ByteRange // BYTERANGE, or BYTERANGE-START/BYTERANGE-LENGTH of a hint
	Gap         bool       // GAP
}

// PrefetchSegment corresponds to EXT-X-PREFETCH.
type PrefetchSegment struct {
	URI                   string
	Discontinuity         bool // EXT-X-PREFETCH-DISCONTINUITY
	MediaSequenceNumber   int
	DiscontinuitySequence int
	Key                   *Key
}

// Key structure represents information about stream encryption
// (EXT-X-KEY and EXT-X-SESSION-KEY tags).
type Key struct {
	Method        string // METHOD parameter
	URI           string // URI parameter
	IV            []byte // IV parameter, 16 bytes
	Format        string // KEYFORMAT parameter
	FormatVersion string // KEYFORMATVERSIONS parameter
}

// Map (EXT-X-MAP tag) specifies how obtain the Media
// Initialization Section required to parse the applicable
// Media Segments.
//
// It applies to every Media Segment that appears after it in the
// Playlist until the next EXT-X-MAP tag or until the end of the
// playlist.
type Map struct {
	Hint      bool       // Hint is true for EXT-X-PRELOAD-HINT with TYPE=MAP
	URI       string     // URI is the path to the Media Initialization Section.
	MimeType  string     // MIME type of the section, not written to the playlist
	ByteRange *ByteRange // BYTERANGE
}

// DateRange corresponds to EXT-X-DATERANGE tag.
type DateRange struct {
	ID              string                 // ID is mandatory quoted string ID
	Class           string                 // CLASS is a client-defined quoted string
	Start           time.Time              // START-DATE
	End             time.Time              // END-DATE. Zero if absent.
	Duration        float64                // DURATION in seconds. 0 if absent.
	PlannedDuration float64                // PLANNED-DURATION in seconds. 0 if absent.
	EndOnNext       bool                   // END-ON-NEXT=YES
	Attributes      map[string]interface{} // X-* and SCTE35-* attributes: string, float64 or []byte
}

// SpliceType is the kind of a SpliceInfo marker.
type SpliceType string

const (
	SpliceOut SpliceType = "OUT" // EXT-X-CUE-OUT
	SpliceIn  SpliceType = "IN"  // EXT-X-CUE-IN
	SpliceRaw SpliceType = "RAW" // other cue tag kept verbatim
)

// SpliceInfo is a cue marker attached to a segment.
type SpliceInfo struct {
	Type     SpliceType
	Duration float64 // OUT only
	TagName  string  // RAW only, without the leading '#'
	Value    string  // RAW only
}

// SessionData represents an EXT-X-SESSION-DATA tag.
type SessionData struct {
	ID       string // DATA-ID is a mandatory quoted-string
	Value    string // VALUE is a quoted-string
	URI      string // URI is a quoted-string
	Language string // LANGUAGE is a quoted-string containing an [RFC5646] language tag
}

// RenditionReport represents an EXT-X-RENDITION-REPORT tag.
type RenditionReport struct {
	URI      string // URI, relative to the media playlist
	LastMSN  *int   // LAST-MSN
	LastPart *int   // LAST-PART
}

/*
[HLS spec]: https://datatracker.ietf.org/doc/html/draft-pantos-hls-rfc8216bis-16
[ISO/IEC 8601:2004]:http://www.iso.org/iso/catalogue_detail?csnumber=40874
[RFC5646]: https://datatracker.ietf.org/doc/html/rfc5646
*/
