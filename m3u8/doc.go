/*
Package m3u8 parses, validates and generates HLS m3u8 playlists.

HLS (HTTP Live Streaming) is an evolving protocol with multiple versions.
Versions 1-7 are described in [IETF RFC8216][rfc8216], and the protocol has continued
to evolve in a series of Internet Drafts [rfc8216bis]. The package follows
[rfc8216bis-16] including the low-latency extensions, together with the
EXT-X-PREFETCH tags of the LHLS proposal and the common CUE-OUT/CUE-IN ad markers.

## Structure and design of the code

There are two types of m3u8 playlists: MasterPlaylist and MediaPlaylist.
These are represented as two different structs sharing an embedded PlaylistBase,
and both implement the Playlist interface.

Parse detects the type of the playlist from its tags and returns the typed value.
Every violation of the protocol is classified by an ErrorKind and handed to the
Policy of the call. The Strict policy aborts on the first violation, the Lenient
policy logs it and goes on best-effort. All violations of a call are returned
as Diagnostics. Errors returned by the package can be inspected with errors.Is,
both against the kind sentinels such as ErrCardinality and specific ones such
as ErrMixedTags.

For generating playlists, one starts by calling either NewMasterPlaylist or NewMediaPlaylist
and appends Variants or Segments. Every entity has a constructor that validates it,
for instance NewKey or NewSegment. Stringify turns a playlist back into text.

	p := NewMediaPlaylist()
	p.TargetDuration = 10
	for i := 0; i < 3; i++ {
		seg, _ := NewSegment(Segment{URI: fmt.Sprintf("test%d.ts", i), Duration: 10})
		_ = p.AppendSegment(seg)
	}
	s, _, _ := Stringify(p, Options{StrictMode: true})
	fmt.Println(s)

Next example shows parsing of a master playlist:

	f, _ := os.Open("master.m3u8")
	p, diags, err := DecodeFrom(bufio.NewReader(f), Options{})
	if err == nil {
		master := p.(*MasterPlaylist)
		fmt.Println(len(master.Variants), len(diags))
	}

Segments share their Key and Map with the segments that inherit them, so
that a change to a key applies to the whole run of segments using it.
CalcMinVersion reports the lowest EXT-X-VERSION a playlist needs, and why.

[rfc8216]: https://tools.ietf.org/html/rfc8216
[rfc8216bis]: https://tools.ietf.org/html/draft-pantos-rfc8216bis
[rfc8216bis-16]: https://tools.ietf.org/html/draft-pantos-rfc8216bis-16
*/
package m3u8
