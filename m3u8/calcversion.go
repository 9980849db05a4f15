package m3u8

import (
	"strings"
)

const (
	minVer       = 1
	minVerReason = "minimal version of the protocol"
)

func updateMin(ver *int, reason *string, newVer int, newReason string) {
	if newVer <= *ver { // only update if higher version
		return
	}
	*ver = newVer
	*reason = newReason
}

// keyVersion applies the rules for EXT-X-KEY and EXT-X-SESSION-KEY attributes.
func keyVersion(key *Key, ver *int, reason *string) {
	if key == nil {
		return
	}
	if len(key.IV) > 0 {
		updateMin(ver, reason, 2, "IV attribute of the EXT-X-KEY tag")
	}
	if key.Format != "" || key.FormatVersion != "" {
		updateMin(ver, reason, 5, "KEYFORMAT or KEYFORMATVERSIONS attributes of the EXT-X-KEY tag")
	}
}

// CalcMinVersion returns the minimal version of the HLS protocol that is
// required to support the playlist according to the [HLS Protocol Version Compatibility].
// The reason is a human-readable string explaining why the version is required.
// Parse requires a declared EXT-X-VERSION of at least this value.
func (p *MasterPlaylist) CalcMinVersion() (ver int, reason string) {
	ver = minVer
	reason = minVerReason

	for _, key := range p.SessionKeyList {
		keyVersion(key, &ver, &reason)
	}

	// A Multivariant Playlist MUST indicate an EXT-X-VERSION of 7 or higher
	// if it contains:
	// *  "SERVICE" values for the INSTREAM-ID attribute of the EXT-X-MEDIA
	for _, variant := range p.Variants {
		for _, r := range variant.ClosedCaptions {
			if strings.HasPrefix(r.InstreamID, "SERVICE") {
				updateMin(&ver, &reason, 7, "SERVICE value for the INSTREAM-ID attribute of the EXT-X-MEDIA")
				break
			}
		}
	}
	return ver, reason
}

// CalcMinVersion returns the minimal version of the HLS protocol that is
// required to support the playlist according to the [HLS Protocol Version Compatibility].
// The reason is a human-readable string explaining why the version is required.
// Parse requires a declared EXT-X-VERSION of at least this value.
func (p *MediaPlaylist) CalcMinVersion() (ver int, reason string) {
	ver = minVer
	reason = minVerReason

	hasMap := false
	for _, seg := range p.Segments {
		if !isInteger(seg.Duration) {
			updateMin(&ver, &reason, 3, "floating-point EXTINF duration values")
		}
		if seg.ByteRange != nil {
			updateMin(&ver, &reason, 4, "EXT-X-BYTERANGE tag")
		}
		keyVersion(seg.Key, &ver, &reason)
		if seg.Map != nil {
			hasMap = true
			if !seg.Map.Hint {
				updateMin(&ver, &reason, 5, "EXT-X-MAP tag")
			}
		}
	}
	for _, seg := range p.PrefetchSegments {
		keyVersion(seg.Key, &ver, &reason)
	}
	if p.IsIFrame {
		updateMin(&ver, &reason, 4, "EXT-X-I-FRAMES-ONLY tag")
	}
	if hasMap && !p.IsIFrame {
		updateMin(&ver, &reason, 6,
			"EXT-X-MAP tag in a Media Playlist that does not contain EXT-X-I-FRAMES-ONLY")
	}
	if p.Skip > 0 {
		updateMin(&ver, &reason, 9, "EXT-X-SKIP tag")
	}
	return ver, reason
}

// [HLS Protocol Version Compatibility]: https://tools.ietf.org/html/draft-pantos-hls-rfc8216bis-16#section-8

/*
From https://tools.ietf.org/html/draft-pantos-hls-rfc8216bis-16

8.  Protocol Version Compatibility

   A Media Playlist MUST indicate an EXT-X-VERSION of 2 or higher if it
   contains:

   *  The IV attribute of the EXT-X-KEY tag.

   A Media Playlist MUST indicate an EXT-X-VERSION of 3 or higher if it
   contains:

   *  Floating-point EXTINF duration values.

   A Media Playlist MUST indicate an EXT-X-VERSION of 4 or higher if it
   contains:

   *  The EXT-X-BYTERANGE tag.

   *  The EXT-X-I-FRAMES-ONLY tag.

   A Media Playlist MUST indicate an EXT-X-VERSION of 5 or higher if it
   contains:

   *  The KEYFORMAT and KEYFORMATVERSIONS attributes of the EXT-X-KEY
      tag.

   *  The EXT-X-MAP tag.

   A Media Playlist MUST indicate an EXT-X-VERSION of 6 or higher if it
   contains:

   *  The EXT-X-MAP tag in a Media Playlist that does not contain EXT-
      X-I-FRAMES-ONLY.

   A Multivariant Playlist MUST indicate an EXT-X-VERSION of 7 or higher
   if it contains:

   *  "SERVICE" values for the INSTREAM-ID attribute of the EXT-X-MEDIA
      tag.

   A Playlist MUST indicate an EXT-X-VERSION of 9 or higher if it
   contains:

   *  The EXT-X-SKIP tag.
*/
