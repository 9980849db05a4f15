package m3u8

/*
Playlist parsing tests.
*/

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
)

var strict = Options{StrictMode: true}
var lenient = Options{Silent: true}

func parseMediaText(t *testing.T, text string, opts Options) (*MediaPlaylist, Diagnostics, error) {
	t.Helper()
	p, diags, err := Parse(text, opts)
	if err != nil {
		return nil, diags, err
	}
	media, ok := p.(*MediaPlaylist)
	if !ok {
		t.Fatalf("expected a media playlist, got %T", p)
	}
	return media, diags, nil
}

func parseMasterText(t *testing.T, text string, opts Options) (*MasterPlaylist, Diagnostics, error) {
	t.Helper()
	p, diags, err := Parse(text, opts)
	if err != nil {
		return nil, diags, err
	}
	master, ok := p.(*MasterPlaylist)
	if !ok {
		t.Fatalf("expected a master playlist, got %T", p)
	}
	return master, diags, nil
}

func TestParseCueOutMarker(t *testing.T) {
	is := is.New(t)
	text := "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:9,\nhttp://example.com/1\n#EXT-X-CUE-OUT:30\n#EXTINF:10,\nhttp://example.com/2\n"
	p, diags, err := parseMediaText(t, text, strict)
	is.NoErr(err)
	is.Equal(len(diags), 0)
	is.Equal(p.ListType(), MEDIA)
	is.Equal(len(p.Segments), 2) // must be 2 segments
	is.Equal(len(p.Segments[0].Markers), 0)
	is.Equal(p.Segments[1].Markers, []SpliceInfo{{Type: SpliceOut, Duration: 30}})
	is.Equal(p.Segments[1].MediaSequenceNumber, 1)
	is.Equal(p.Source, text)
}

func TestParseStreamInfResolution(t *testing.T) {
	is := is.New(t)
	p, _, err := parseMasterText(t, "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1280000,RESOLUTION=123x456\n/video/main.m3u8\n", strict)
	is.NoErr(err)
	is.Equal(p.ListType(), MASTER)
	is.True(p.IsMasterPlaylist)
	is.Equal(len(p.Variants), 1)
	is.Equal(p.Variants[0].URI, "/video/main.m3u8")
	is.Equal(p.Variants[0].Bandwidth, 1280000)
	is.Equal(*p.Variants[0].Resolution, Resolution{Width: 123, Height: 456})
}

func TestParseVariantGroupReference(t *testing.T) {
	is := is.New(t)
	const text = "#EXTM3U\n" +
		`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="%s",NAME="English",URI="audio.m3u8"` + "\n" +
		`#EXT-X-STREAM-INF:BANDWIDTH=1280000,AUDIO="test"` + "\n" +
		"/video/main.m3u8"

	_, _, err := Parse(fmt.Sprintf(text, "test1"), strict)
	is.True(errors.Is(err, ErrReferential)) // group test does not exist

	p, _, err := parseMasterText(t, fmt.Sprintf(text, "test"), strict)
	is.NoErr(err)
	is.Equal(len(p.Variants[0].Audio), 1)
	is.Equal(p.Variants[0].Audio[0].URI, "audio.m3u8")
}

func TestParseMapVersion(t *testing.T) {
	cases := []struct {
		version  int
		iFrames  bool
		mismatch bool
	}{
		{5, false, true},
		{6, false, false},
		{4, true, true},
		{5, true, false},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("v%d-iframes-%t", c.version, c.iFrames), func(t *testing.T) {
			is := is.New(t)
			text := fmt.Sprintf("#EXTM3U\n#EXT-X-VERSION:%d\n#EXT-X-TARGETDURATION:10\n", c.version)
			if c.iFrames {
				text += "#EXT-X-I-FRAMES-ONLY\n"
			}
			text += "#EXT-X-MAP:URI=\"init.mp4\"\n#EXTINF:10,\n0.mp4"
			_, _, err := Parse(text, strict)
			if c.mismatch {
				is.True(errors.Is(err, ErrVersionMismatch)) // declared version too low
				return
			}
			is.NoErr(err)
		})
	}
}

func TestParseMapWithoutURI(t *testing.T) {
	is := is.New(t)
	_, _, err := Parse("#EXTM3U\n#EXT-X-VERSION:6\n#EXT-X-TARGETDURATION:10\n#EXT-X-MAP:BYTERANGE=\"720@0\"\n#EXTINF:10,\n0.mp4", strict)
	is.True(errors.Is(err, ErrRequiredAttribute))
}

func TestParseRenditionReportDefaults(t *testing.T) {
	is := is.New(t)
	text := `#EXTM3U
#EXT-X-TARGETDURATION:4
#EXT-X-SERVER-CONTROL:CAN-BLOCK-RELOAD=YES,PART-HOLD-BACK=3.0
#EXT-X-PART-INF:PART-TARGET=1.0
#EXT-X-MEDIA-SEQUENCE:1990
#EXTINF:4.0,
fileSequence1990.mp4
#EXT-X-PART:DURATION=1.0,URI="filePart1991.0.mp4",INDEPENDENT=YES
#EXT-X-PART:DURATION=1.0,URI="filePart1991.1.mp4"
#EXT-X-PRELOAD-HINT:TYPE=PART,URI="filePart1991.2.mp4"
#EXT-X-RENDITION-REPORT:URI="../1M/waitForMSN.php"
#EXT-X-RENDITION-REPORT:URI="../4M/waitForMSN.php"
`
	p, _, err := parseMediaText(t, text, strict)
	is.NoErr(err)
	is.Equal(len(p.Segments), 2) // trailing segment holds the parts
	last := p.Segments[1]
	is.Equal(last.URI, "")
	is.Equal(len(last.Parts), 3)
	is.True(last.Parts[0].Independent)
	is.True(last.Parts[2].Hint)
	is.Equal(len(p.RenditionReports), 2)
	for _, rr := range p.RenditionReports {
		is.Equal(*rr.LastMSN, 1991) // MSN of the last segment
		is.Equal(*rr.LastPart, 2)   // index of its last part
	}
}

func TestParseRenditionReportAbsoluteURI(t *testing.T) {
	is := is.New(t)
	_, _, err := Parse("#EXTM3U\n#EXT-X-TARGETDURATION:4\n#EXTINF:4,\n1.mp4\n#EXT-X-RENDITION-REPORT:URI=\"https://example.com/1M.m3u8\",LAST-MSN=1", strict)
	is.True(errors.Is(err, ErrRangeOrFormat)) // rendition report URIs are relative
}

func TestParseVersionFloor(t *testing.T) {
	const media = "#EXTM3U\n#EXT-X-VERSION:%d\n#EXT-X-TARGETDURATION:10\n"
	cases := []struct {
		name    string
		minimum int
		text    string
	}{
		{"IV", 2, media + "#EXT-X-KEY:METHOD=AES-128,URI=\"k\",IV=0x00000000000000000000000000000001\n#EXTINF:10,\n1.ts"},
		{"fractional EXTINF", 3, media + "#EXTINF:9.5,\n1.ts"},
		{"byterange", 4, media + "#EXTINF:10,\n#EXT-X-BYTERANGE:100@0\n1.ts"},
		{"i-frames only", 4, media + "#EXT-X-I-FRAMES-ONLY\n#EXTINF:10,\n1.ts"},
		{"KEYFORMAT", 5, media + "#EXT-X-KEY:METHOD=SAMPLE-AES,URI=\"k\",KEYFORMAT=\"com.apple.streamingkeydelivery\"\n#EXTINF:10,\n1.ts"},
		{"map", 6, media + "#EXT-X-MAP:URI=\"init.mp4\"\n#EXTINF:10,\n1.mp4"},
		{"SERVICE", 7, "#EXTM3U\n#EXT-X-VERSION:%d\n" +
			"#EXT-X-MEDIA:TYPE=CLOSED-CAPTIONS,GROUP-ID=\"cc\",NAME=\"English\",INSTREAM-ID=\"SERVICE1\"\n" +
			"#EXT-X-STREAM-INF:BANDWIDTH=1280000,CLOSED-CAPTIONS=\"cc\"\nmain.m3u8"},
		{"skip", 9, media + "#EXT-X-SKIP:SKIPPED-SEGMENTS=3\n#EXTINF:10,\n1.ts"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			_, _, err := Parse(fmt.Sprintf(c.text, c.minimum-1), strict)
			is.True(errors.Is(err, ErrVersionMismatch)) // one below the floor fails

			p, _, err := Parse(fmt.Sprintf(c.text, c.minimum), strict)
			is.NoErr(err) // the floor itself passes
			ver, _ := p.CalcMinVersion()
			is.Equal(ver, c.minimum)
		})
	}
}

func TestParseVersionMismatchReason(t *testing.T) {
	is := is.New(t)
	_, _, err := Parse("#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:9.5,\n1.ts", strict)
	is.True(errors.Is(err, ErrVersionMismatch)) // missing version counts as too low
	is.True(strings.Contains(err.Error(), "floating-point EXTINF duration values"))
}

func TestParseByteRangeInheritance(t *testing.T) {
	is := is.New(t)
	p, _, err := parseMediaText(t, `#EXTM3U
#EXT-X-VERSION:4
#EXT-X-TARGETDURATION:10
#EXTINF:10,
#EXT-X-BYTERANGE:1000@500
main.ts
#EXTINF:10,
#EXT-X-BYTERANGE:2000
main.ts
#EXTINF:10,
#EXT-X-BYTERANGE:300
main.ts`, strict)
	is.NoErr(err)
	is.Equal(*p.Segments[1].ByteRange, ByteRange{Length: 2000, Offset: 1500}) // previous offset + length
	is.Equal(*p.Segments[2].ByteRange, ByteRange{Length: 300, Offset: 3500})
}

func TestParseDanglingByteRange(t *testing.T) {
	cases := map[string]string{
		"first segment": "#EXTM3U\n#EXT-X-VERSION:4\n#EXT-X-TARGETDURATION:10\n#EXTINF:10,\n#EXT-X-BYTERANGE:1000\nmain.ts",
		"other uri": "#EXTM3U\n#EXT-X-VERSION:4\n#EXT-X-TARGETDURATION:10\n#EXTINF:10,\n#EXT-X-BYTERANGE:1000@0\nmain.ts\n" +
			"#EXTINF:10,\n#EXT-X-BYTERANGE:1000\nother.ts",
		"no range before": "#EXTM3U\n#EXT-X-VERSION:4\n#EXT-X-TARGETDURATION:10\n#EXTINF:10,\nmain.ts\n" +
			"#EXTINF:10,\n#EXT-X-BYTERANGE:1000\nmain.ts",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			is := is.New(t)
			_, _, err := Parse(text, strict)
			is.True(errors.Is(err, ErrDanglingByterange))
			is.True(errors.Is(err, ErrRangeOrFormat))
		})
	}
}

func TestParseKeyAndMapInheritance(t *testing.T) {
	is := is.New(t)
	p, _, err := parseMediaText(t, `#EXTM3U
#EXT-X-VERSION:6
#EXT-X-TARGETDURATION:10
#EXT-X-DISCONTINUITY-SEQUENCE:4
#EXT-X-KEY:METHOD=AES-128,URI="k1"
#EXT-X-MAP:URI="init.mp4"
#EXTINF:10,
1.ts
#EXTINF:10,
2.ts
#EXT-X-DISCONTINUITY
#EXT-X-KEY:METHOD=AES-128,URI="k2"
#EXTINF:10,
3.ts`, strict)
	is.NoErr(err)
	s := p.Segments
	is.True(s[0].Key == s[1].Key) // inherited key is the same instance
	is.True(s[1].Key != s[2].Key)
	is.Equal(s[2].Key.URI, "k2")
	is.True(s[0].Map == s[2].Map) // map carries over the key change
	is.Equal(s[0].DiscontinuitySequence, 4)
	is.Equal(s[1].DiscontinuitySequence, 4)
	is.Equal(s[2].DiscontinuitySequence, 5)
	is.True(s[2].Discontinuity)
}

func TestParseSegmentViolations(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		kind   error
		reason error
	}{
		{"duration exceeds target", "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:10.5,\n1.ts", ErrRangeOrFormat, ErrDurationExceedsTarget},
		{"missing target duration", "#EXTM3U\n#EXTINF:10,\n1.ts", ErrStructural, nil},
		{"uri without tags", "#EXTM3U\n#EXT-X-TARGETDURATION:10\n1.ts", ErrStructural, nil},
		{"media sequence after segment", "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:10,\n1.ts\n#EXT-X-MEDIA-SEQUENCE:3", ErrStructural, nil},
		{"media sequence inside first segment", "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:9,\n#EXT-X-MEDIA-SEQUENCE:5\nhttp://x/1", ErrStructural, nil},
		{"discontinuity sequence inside first segment", "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXT-X-PROGRAM-DATE-TIME:2020-01-01T00:00:00Z\n#EXT-X-DISCONTINUITY-SEQUENCE:3\n#EXTINF:10,\n1.ts", ErrStructural, nil},
		{"discontinuity sequence after discontinuity", "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXT-X-DISCONTINUITY\n#EXT-X-DISCONTINUITY-SEQUENCE:3\n#EXTINF:10,\n1.ts", ErrStructural, nil},
		{"bad playlist type", "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXT-X-PLAYLIST-TYPE:LIVE\n#EXTINF:10,\n1.ts", ErrRangeOrFormat, nil},
		{"key without method", "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXT-X-KEY:URI=\"k\"\n#EXTINF:10,\n1.ts", ErrRequiredAttribute, nil},
		{"key none with uri", "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXT-X-KEY:METHOD=NONE,URI=\"k\"\n#EXTINF:10,\n1.ts", ErrRangeOrFormat, nil},
		{"short IV", "#EXTM3U\n#EXT-X-VERSION:2\n#EXT-X-TARGETDURATION:10\n#EXT-X-KEY:METHOD=AES-128,URI=\"k\",IV=0x01\n#EXTINF:10,\n1.ts", ErrRangeOrFormat, nil},
		{"duplicate version", "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n#EXTINF:10,\n1.ts", ErrCardinality, nil},
		{"start without offset", "#EXTM3U\n#EXT-X-START:PRECISE=YES\n#EXT-X-TARGETDURATION:10\n#EXTINF:10,\n1.ts", ErrRequiredAttribute, nil},
		{"server control without blocking reload", "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXT-X-SERVER-CONTROL:HOLD-BACK=30\n#EXTINF:10,\n1.ts", ErrRequiredAttribute, nil},
		{"skip without count", "#EXTM3U\n#EXT-X-VERSION:9\n#EXT-X-TARGETDURATION:10\n#EXT-X-SKIP:X=1\n#EXTINF:10,\n1.ts", ErrRequiredAttribute, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			_, diags, err := Parse(c.text, strict)
			is.True(errors.Is(err, c.kind)) // strict mode aborts with the violation
			if c.reason != nil {
				is.True(errors.Is(err, c.reason))
			}
			is.Equal(len(diags), 1)

			p, diags, err := Parse(c.text, lenient)
			is.NoErr(err)        // lenient mode goes on
			is.True(p != nil)    // with a best-effort playlist
			is.True(len(diags) > 0)
			is.True(errors.Is(diags.Err(), c.kind))
		})
	}
}

func TestParseMasterViolations(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		kind   error
		reason error
	}{
		{"stream-inf without uri", "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1", ErrStructural, ErrMissingURI},
		{"stream-inf without bandwidth", "#EXTM3U\n#EXT-X-STREAM-INF:CODECS=\"avc1.4d401e\"\nmain.m3u8", ErrRequiredAttribute, nil},
		{"redundant rendition name", "#EXTM3U\n" +
			"#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=\"a\",NAME=\"English\"\n" +
			"#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=\"a\",NAME=\"English\"\n" +
			"#EXT-X-STREAM-INF:BANDWIDTH=1,AUDIO=\"a\"\nmain.m3u8", ErrCardinality, ErrRedundantRendition},
		{"two default renditions", "#EXTM3U\n" +
			"#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=\"a\",NAME=\"English\",DEFAULT=YES\n" +
			"#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=\"a\",NAME=\"German\",DEFAULT=YES\n" +
			"#EXT-X-STREAM-INF:BANDWIDTH=1,AUDIO=\"a\"\nmain.m3u8", ErrCardinality, ErrRedundantRendition},
		{"rendition without group", "#EXTM3U\n#EXT-X-MEDIA:TYPE=AUDIO,NAME=\"English\"\n#EXT-X-STREAM-INF:BANDWIDTH=1\nmain.m3u8", ErrRequiredAttribute, nil},
		{"subtitles without uri", "#EXTM3U\n#EXT-X-MEDIA:TYPE=SUBTITLES,GROUP-ID=\"s\",NAME=\"English\"\n#EXT-X-STREAM-INF:BANDWIDTH=1\nmain.m3u8", ErrRequiredAttribute, nil},
		{"closed captions with uri", "#EXTM3U\n#EXT-X-MEDIA:TYPE=CLOSED-CAPTIONS,GROUP-ID=\"c\",NAME=\"English\",INSTREAM-ID=\"CC1\",URI=\"cc.m3u8\"\n#EXT-X-STREAM-INF:BANDWIDTH=1\nmain.m3u8", ErrRangeOrFormat, nil},
		{"forced audio", "#EXTM3U\n#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=\"a\",NAME=\"English\",FORCED=YES\n#EXT-X-STREAM-INF:BANDWIDTH=1\nmain.m3u8", ErrRangeOrFormat, nil},
		{"partial score", "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1,SCORE=1.5\nlow.m3u8\n#EXT-X-STREAM-INF:BANDWIDTH=2\nhigh.m3u8", ErrCardinality, nil},
		{"negative score", "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1,SCORE=-1\nlow.m3u8", ErrRangeOrFormat, nil},
		{"partial closed captions none", "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1,CLOSED-CAPTIONS=NONE\nlow.m3u8\n#EXT-X-STREAM-INF:BANDWIDTH=2\nhigh.m3u8", ErrCardinality, nil},
		{"session data twice", "#EXTM3U\n" +
			"#EXT-X-SESSION-DATA:DATA-ID=\"com.example.title\",VALUE=\"a\",LANGUAGE=\"en\"\n" +
			"#EXT-X-SESSION-DATA:DATA-ID=\"com.example.title\",VALUE=\"b\",LANGUAGE=\"en\"\n" +
			"#EXT-X-STREAM-INF:BANDWIDTH=1\nmain.m3u8", ErrCardinality, nil},
		{"session data with value and uri", "#EXTM3U\n#EXT-X-SESSION-DATA:DATA-ID=\"x\",VALUE=\"a\",URI=\"b.json\"\n#EXT-X-STREAM-INF:BANDWIDTH=1\nmain.m3u8", ErrRequiredAttribute, nil},
		{"session key none", "#EXTM3U\n#EXT-X-SESSION-KEY:METHOD=NONE\n#EXT-X-STREAM-INF:BANDWIDTH=1\nmain.m3u8", ErrRangeOrFormat, nil},
		{"session key twice", "#EXTM3U\n" +
			"#EXT-X-SESSION-KEY:METHOD=AES-128,URI=\"k\"\n" +
			"#EXT-X-SESSION-KEY:METHOD=AES-128,URI=\"k\"\n" +
			"#EXT-X-STREAM-INF:BANDWIDTH=1\nmain.m3u8", ErrCardinality, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			_, _, err := Parse(c.text, strict)
			is.True(errors.Is(err, c.kind))
			if c.reason != nil {
				is.True(errors.Is(err, c.reason))
			}
			_, diags, err := Parse(c.text, lenient)
			is.NoErr(err)
			is.True(errors.Is(diags.Err(), c.kind)) // recorded in lenient mode
		})
	}
}

func TestParseMasterRenditions(t *testing.T) {
	is := is.New(t)
	p, _, err := parseMasterText(t, `#EXTM3U
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aac",NAME="English",LANGUAGE="en",URI="en.m3u8"
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aac",NAME="Deutsch",DEFAULT=YES,AUTOSELECT=YES,LANGUAGE="de",URI="de.m3u8"
#EXT-X-MEDIA:TYPE=SUBTITLES,GROUP-ID="subs",NAME="English",FORCED=YES,URI="subs/en.m3u8"
#EXT-X-STREAM-INF:BANDWIDTH=1280000,AUDIO="aac",SUBTITLES="subs",CLOSED-CAPTIONS=NONE,PROGRAM-ID=1
low.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=2560000,AUDIO="aac",CLOSED-CAPTIONS=NONE,FRAME-RATE=59.94,VIDEO-RANGE=PQ
high.m3u8
#EXT-X-I-FRAME-STREAM-INF:BANDWIDTH=86000,URI="iframe.m3u8"
`, strict)
	is.NoErr(err)
	is.Equal(len(p.Variants), 3)
	low, high, iframe := p.Variants[0], p.Variants[1], p.Variants[2]
	is.Equal(len(low.Audio), 2)
	is.True(low.Audio[1] == high.Audio[1]) // variants share rendition instances
	is.Equal(low.CurrentRenditions.Audio, 1) // DEFAULT=YES selects the rendition
	is.Equal(len(low.Subtitles), 1)
	is.True(low.Subtitles[0].Forced)
	is.Equal(len(low.ClosedCaptions), 0)
	is.Equal(*low.ProgramID, 1)
	is.Equal(high.FrameRate, 59.94)
	is.Equal(high.VideoRange, "PQ")
	is.True(iframe.IsIFrameOnly)
	is.Equal(iframe.URI, "iframe.m3u8")
}

func TestParseSessionDataAndKeys(t *testing.T) {
	is := is.New(t)
	p, _, err := parseMasterText(t, `#EXTM3U
#EXT-X-VERSION:5
#EXT-X-SESSION-DATA:DATA-ID="com.example.lyrics",URI="lyrics.json"
#EXT-X-SESSION-DATA:DATA-ID="com.example.title",VALUE="This is an example",LANGUAGE="en"
#EXT-X-SESSION-DATA:DATA-ID="com.example.title",VALUE="Este es un ejemplo",LANGUAGE="es"
#EXT-X-SESSION-KEY:METHOD=SAMPLE-AES,URI="skd://key",KEYFORMAT="com.apple.streamingkeydelivery",KEYFORMATVERSIONS="1"
#EXT-X-STREAM-INF:BANDWIDTH=1280000
main.m3u8`, strict)
	is.NoErr(err)
	is.Equal(len(p.SessionDataList), 3)
	is.Equal(p.SessionDataList[0].URI, "lyrics.json")
	is.Equal(p.SessionDataList[2].Language, "es")
	is.Equal(len(p.SessionKeyList), 1)
	is.Equal(p.SessionKeyList[0].Format, "com.apple.streamingkeydelivery")
}

func TestParseGap(t *testing.T) {
	is := is.New(t)
	_, _, err := Parse("#EXTM3U\n#EXTINF:10,\n#EXT-X-GAP\n1.ts", strict)
	is.True(errors.Is(err, ErrStructural)) // target duration still required

	const parts = "#EXTM3U\n#EXT-X-TARGETDURATION:4\n#EXT-X-GAP\n#EXT-X-PART:DURATION=1,URI=\"p.mp4\"%s\n#EXTINF:4,\n1.mp4"
	_, _, err = Parse(fmt.Sprintf(parts, ""), strict)
	is.True(errors.Is(err, ErrRequiredAttribute)) // parts of a gap segment need GAP=YES
	_, _, err = Parse(fmt.Sprintf(parts, ",GAP=YES"), strict)
	is.NoErr(err)

	p, _, err := parseMediaText(t, "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:10,\n1.ts\n#EXT-X-GAP\n#EXTINF:10,\n2.ts\n#EXT-X-ENDLIST", strict)
	is.NoErr(err)
	is.True(!p.Segments[0].Gap)
	is.True(p.Segments[1].Gap)
	is.True(p.Endlist)
}

func TestParsePreloadHints(t *testing.T) {
	is := is.New(t)
	p, _, err := parseMediaText(t, `#EXTM3U
#EXT-X-VERSION:6
#EXT-X-TARGETDURATION:4
#EXTINF:4,
1.mp4
#EXT-X-PRELOAD-HINT:TYPE=MAP,URI="init2.mp4"
#EXT-X-PRELOAD-HINT:TYPE=PART,URI="2.part.mp4",BYTERANGE-START=0`, strict)
	is.NoErr(err)
	last := p.Segments[1]
	is.True(last.Map.Hint)
	is.Equal(last.Map.URI, "init2.mp4")
	is.Equal(*last.Parts[0].ByteRange, ByteRange{Offset: 0, Length: 0})
	is.True(p.Segments[0].Map == nil)

	_, _, err = Parse("#EXTM3U\n#EXT-X-TARGETDURATION:4\n#EXTINF:4,\n1.mp4\n"+
		"#EXT-X-PRELOAD-HINT:TYPE=PART,URI=\"a.mp4\"\n#EXT-X-PRELOAD-HINT:TYPE=PART,URI=\"b.mp4\"", strict)
	is.True(errors.Is(err, ErrCardinality)) // one hint per type

	_, _, err = Parse("#EXTM3U\n#EXT-X-TARGETDURATION:4\n#EXTINF:4,\n1.mp4\n#EXT-X-PRELOAD-HINT:TYPE=PART", strict)
	is.True(errors.Is(err, ErrRequiredAttribute))

	_, _, err = Parse("#EXTM3U\n#EXT-X-TARGETDURATION:4\n#EXTINF:4,\n1.mp4\n#EXT-X-PART:DURATION=1,URI=\"a.mp4\"", strict)
	is.True(errors.Is(err, ErrStructural)) // open playlist must end with a part hint

	_, _, err = Parse("#EXTM3U\n#EXT-X-TARGETDURATION:4\n#EXT-X-PART:DURATION=1,URI=\"a.mp4\"\n#EXT-X-KEY:METHOD=NONE\n#EXTINF:4,\n1.mp4", strict)
	is.True(errors.Is(err, ErrStructural)) // key must precede the parts
}

func TestParsePrefetch(t *testing.T) {
	is := is.New(t)
	p, _, err := parseMediaText(t, `#EXTM3U
#EXT-X-TARGETDURATION:2
#EXT-X-VERSION:3
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-DISCONTINUITY-SEQUENCE:0
#EXT-X-PROGRAM-DATE-TIME:2018-09-05T20:59:06.531Z
#EXTINF:2.000
https://foo.com/bar/0.ts
#EXT-X-PROGRAM-DATE-TIME:2018-09-05T20:59:08.531Z
#EXTINF:2.000
https://foo.com/bar/1.ts
#EXT-X-PREFETCH-DISCONTINUITY
#EXT-X-PREFETCH:https://foo.com/bar/5.ts
#EXT-X-PREFETCH:https://foo.com/bar/6.ts`, strict)
	is.NoErr(err)
	is.Equal(len(p.Segments), 2)
	is.Equal(len(p.PrefetchSegments), 2)
	first, second := p.PrefetchSegments[0], p.PrefetchSegments[1]
	is.Equal(first.URI, "https://foo.com/bar/5.ts")
	is.True(first.Discontinuity)
	is.Equal(first.MediaSequenceNumber, 2)
	is.Equal(first.DiscontinuitySequence, 1)
	is.True(!second.Discontinuity)
	is.Equal(second.MediaSequenceNumber, 3)
	is.Equal(second.DiscontinuitySequence, 1)
	is.True(p.Segments[1].ProgramDateTime.Equal(time.Date(2018, 9, 5, 20, 59, 8, 531e6, time.UTC)))

	_, _, err = Parse("#EXTM3U\n#EXT-X-TARGETDURATION:2\n#EXTINF:2,\n0.ts\n#EXT-X-PREFETCH:1.ts\n#EXTINF:2,\n2.ts", strict)
	is.True(errors.Is(err, ErrStructural)) // segments come before prefetch segments

	_, _, err = Parse("#EXTM3U\n#EXT-X-TARGETDURATION:2\n#EXTINF:2,\n#EXT-X-PREFETCH:1.ts", strict)
	is.True(errors.Is(err, ErrStructural)) // no EXTINF for prefetch segments
}

func TestParseDateRanges(t *testing.T) {
	is := is.New(t)
	p, _, err := parseMediaText(t, `#EXTM3U
#EXT-X-TARGETDURATION:10
#EXT-X-PROGRAM-DATE-TIME:2020-01-01T00:00:00.000Z
#EXT-X-DATERANGE:ID="a",CLASS="ad",START-DATE="2020-01-01T00:00:00.000Z",END-ON-NEXT=YES,X-AD-ID="1234"
#EXTINF:10,
1.ts
#EXT-X-DATERANGE:ID="b",CLASS="ad",START-DATE="2020-01-01T00:00:10.000Z",DURATION=5,SCTE35-OUT=0xFC00
#EXTINF:10,
2.ts`, strict)
	is.NoErr(err)
	a, b := p.Segments[0].DateRange, p.Segments[1].DateRange
	is.True(a.End.Equal(b.Start)) // END-ON-NEXT ends at the next range of the class
	is.Equal(a.Attributes["X-AD-ID"], "1234")
	is.Equal(b.Duration, 5.0)
	is.Equal(b.Attributes["SCTE35-OUT"], []byte{0xfc, 0x00})
}

func TestParseDateRangeViolations(t *testing.T) {
	const head = "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXT-X-PROGRAM-DATE-TIME:2020-01-01T00:00:00.000Z\n"
	cases := []struct {
		name string
		text string
		kind error
	}{
		{"no program date time", "#EXTM3U\n#EXT-X-TARGETDURATION:10\n" +
			"#EXT-X-DATERANGE:ID=\"a\",START-DATE=\"2020-01-01T00:00:00.000Z\"\n#EXTINF:10,\n1.ts", ErrStructural},
		{"missing start date", head + "#EXT-X-DATERANGE:ID=\"a\",DURATION=5\n#EXTINF:10,\n1.ts", ErrRequiredAttribute},
		{"end-on-next without class", head + "#EXT-X-DATERANGE:ID=\"a\",START-DATE=\"2020-01-01T00:00:00.000Z\",END-ON-NEXT=YES\n#EXTINF:10,\n1.ts", ErrRequiredAttribute},
		{"end-on-next with duration", head + "#EXT-X-DATERANGE:ID=\"a\",CLASS=\"c\",START-DATE=\"2020-01-01T00:00:00.000Z\",END-ON-NEXT=YES,DURATION=5\n#EXTINF:10,\n1.ts", ErrRangeOrFormat},
		{"end before start", head + "#EXT-X-DATERANGE:ID=\"a\",START-DATE=\"2020-01-01T00:00:10.000Z\",END-DATE=\"2020-01-01T00:00:00.000Z\"\n#EXTINF:10,\n1.ts", ErrRangeOrFormat},
		{"end does not match duration", head + "#EXT-X-DATERANGE:ID=\"a\",START-DATE=\"2020-01-01T00:00:00.000Z\",END-DATE=\"2020-01-01T00:00:10.000Z\",DURATION=5\n#EXTINF:10,\n1.ts", ErrRangeOrFormat},
		{"overlap", head +
			"#EXT-X-DATERANGE:ID=\"a\",CLASS=\"c\",START-DATE=\"2020-01-01T00:00:00.000Z\",END-DATE=\"2020-01-01T00:00:10.000Z\"\n#EXTINF:10,\n1.ts\n" +
			"#EXT-X-DATERANGE:ID=\"b\",CLASS=\"c\",START-DATE=\"2020-01-01T00:00:05.000Z\",DURATION=5\n#EXTINF:10,\n2.ts", ErrRangeOrFormat},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			_, _, err := Parse(c.text, strict)
			is.True(errors.Is(err, c.kind))
		})
	}
}

func TestParseDateRangeSameIDDoesNotOverlap(t *testing.T) {
	is := is.New(t)
	_, _, err := Parse(`#EXTM3U
#EXT-X-TARGETDURATION:10
#EXT-X-PROGRAM-DATE-TIME:2014-03-05T11:14:50.000Z
#EXT-X-DATERANGE:ID="splice-6FFFFFF0",START-DATE="2014-03-05T11:15:00.000Z",PLANNED-DURATION=59.993
#EXTINF:10,
1.ts
#EXT-X-DATERANGE:ID="splice-6FFFFFF0",START-DATE="2014-03-05T11:15:00.000Z",DURATION=59.993
#EXTINF:10,
2.ts`, strict)
	is.NoErr(err) // the second tag completes the first range
}

func TestParseLowLatencyViolations(t *testing.T) {
	build := func(serverControl, partInf, parts string) string {
		text := "#EXTM3U\n#EXT-X-TARGETDURATION:4\n#EXT-X-SERVER-CONTROL:" + serverControl + "\n"
		if partInf != "" {
			text += "#EXT-X-PART-INF:PART-TARGET=" + partInf + "\n"
		}
		return text + "#EXTINF:4,\n1.mp4\n" + parts + "#EXT-X-PRELOAD-HINT:TYPE=PART,URI=\"hint.mp4\""
	}
	const goodParts = "#EXT-X-PART:DURATION=1,URI=\"a.mp4\"\n#EXT-X-PART:DURATION=1,URI=\"b.mp4\"\n"
	cases := []struct {
		name string
		text string
		kind error
	}{
		{"skip boundary too small", build("CAN-BLOCK-RELOAD=YES,CAN-SKIP-UNTIL=12,PART-HOLD-BACK=3", "1", goodParts), ErrRangeOrFormat},
		{"hold back too small", build("CAN-BLOCK-RELOAD=YES,HOLD-BACK=8,PART-HOLD-BACK=3", "1", goodParts), ErrRangeOrFormat},
		{"part hold back missing", build("CAN-BLOCK-RELOAD=YES", "1", goodParts), ErrRequiredAttribute},
		{"part hold back below part target", build("CAN-BLOCK-RELOAD=YES,PART-HOLD-BACK=0.5", "1", goodParts), ErrRangeOrFormat},
		{"part inf missing", build("CAN-BLOCK-RELOAD=YES,PART-HOLD-BACK=3", "", goodParts), ErrRequiredAttribute},
		{"part too long", build("CAN-BLOCK-RELOAD=YES,PART-HOLD-BACK=3", "1", "#EXT-X-PART:DURATION=1.5,URI=\"a.mp4\"\n"), ErrRangeOrFormat},
		{"part too short", build("CAN-BLOCK-RELOAD=YES,PART-HOLD-BACK=3", "1", "#EXT-X-PART:DURATION=0.5,URI=\"a.mp4\"\n#EXT-X-PART:DURATION=1,URI=\"b.mp4\"\n"), ErrRangeOrFormat},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			_, _, err := Parse(c.text, strict)
			is.True(errors.Is(err, c.kind))
		})
	}

	is := is.New(t)
	_, _, err := Parse(build("CAN-BLOCK-RELOAD=YES,CAN-SKIP-UNTIL=24,HOLD-BACK=12,PART-HOLD-BACK=3", "1", goodParts), strict)
	is.NoErr(err) // all limits respected
}

func TestParseOldParts(t *testing.T) {
	is := is.New(t)
	text := "#EXTM3U\n#EXT-X-TARGETDURATION:4\n#EXT-X-SERVER-CONTROL:CAN-BLOCK-RELOAD=YES,PART-HOLD-BACK=3\n#EXT-X-PART-INF:PART-TARGET=1\n" +
		"#EXT-X-PART:DURATION=1,URI=\"0.a.mp4\"\n#EXTINF:4,\n0.mp4\n"
	for i := 1; i < 4; i++ {
		text += fmt.Sprintf("#EXTINF:4,\n%d.mp4\n", i)
	}
	text += "#EXT-X-PRELOAD-HINT:TYPE=PART,URI=\"hint.mp4\""
	_, _, err := Parse(text, strict)
	is.True(errors.Is(err, ErrRangeOrFormat)) // parts only in the last three segments
}

func TestParseMixedTagsIsFatal(t *testing.T) {
	is := is.New(t)
	for _, opts := range []Options{strict, lenient} {
		p, diags, err := Parse("#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\nmain.m3u8\n#EXTINF:10,\n1.ts", opts)
		is.True(errors.Is(err, ErrMixedTags))
		is.True(errors.Is(err, ErrStructural))
		is.True(p == nil)
		is.Equal(len(diags), 1)
	}
}

func TestDecodeFrom(t *testing.T) {
	is := is.New(t)
	p, _, err := DecodeFrom(strings.NewReader("#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:10,\n1.ts\n#EXT-X-ENDLIST\n"), strict)
	is.NoErr(err)
	media := p.(*MediaPlaylist)
	is.True(media.Endlist)
	is.Equal(media.Segments[0].URI, "1.ts")
}

func TestParseLenientLogsViolations(t *testing.T) {
	is := is.New(t)
	p, diags, err := Parse("#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:12,\n1.ts\n#EXTINF:10,\n2.ts", lenient)
	is.NoErr(err)
	is.Equal(len(p.(*MediaPlaylist).Segments), 2) // both segments kept
	is.Equal(len(diags), 1)
	is.True(diags.HasKind(RangeOrFormatError))
	is.True(errors.Is(diags[0], ErrDurationExceedsTarget))
}
