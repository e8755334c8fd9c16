package limiter

import (
	"encoding/base32"
	"hash/crc32"
	"strings"

	"github.com/dfinity/ic-wasm/internal/icerr"
)

// decodePrincipal parses an IC principal's textual form (lowercase,
// dash-grouped base32 with a leading 4-byte big-endian CRC32 checksum) into
// its raw bytes, validating the checksum. No example repo carries a
// principal codec; this is small enough, and specific enough to the IC's own
// encoding, that pulling in a dependency for it isn't worth it.
func decodePrincipal(text string) ([]byte, error) {
	clean := strings.ToUpper(strings.ReplaceAll(text, "-", ""))
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(clean)
	if err != nil {
		return nil, icerr.WrapParse(err, "decoding playground backend principal %q", text)
	}
	if len(raw) < 4 {
		return nil, icerr.NewConfiguration("playground backend principal %q is too short", text)
	}
	checksum, body := raw[:4], raw[4:]
	want := crc32.ChecksumIEEE(body)
	got := uint32(checksum[0])<<24 | uint32(checksum[1])<<16 | uint32(checksum[2])<<8 | uint32(checksum[3])
	if want != got {
		return nil, icerr.NewConfiguration("playground backend principal %q fails its checksum", text)
	}
	return body, nil
}
