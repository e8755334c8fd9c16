package limiter

import (
	"encoding/base32"
	"hash/crc32"
	"strings"
	"testing"

	"github.com/dfinity/ic-wasm/internal/icerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodePrincipalForTest is decodePrincipal's inverse, used only to build
// fixtures: real principal text in the wild is produced by the IC's own
// tooling, never by this codebase.
func encodePrincipalForTest(body []byte) string {
	sum := crc32.ChecksumIEEE(body)
	raw := append([]byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)}, body...)
	text := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw))
	var grouped []string
	for i := 0; i < len(text); i += 5 {
		end := i + 5
		if end > len(text) {
			end = len(text)
		}
		grouped = append(grouped, text[i:end])
	}
	return strings.Join(grouped, "-")
}

func TestDecodePrincipalRoundTrip(t *testing.T) {
	body := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	text := encodePrincipalForTest(body)

	got, err := decodePrincipal(text)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestDecodePrincipalBadChecksum(t *testing.T) {
	body := []byte{0xAA, 0xBB, 0xCC}
	text := encodePrincipalForTest(body)
	corrupted := strings.Replace(text, text[:1], "z", 1)

	_, err := decodePrincipal(corrupted)
	require.Error(t, err)
	assert.True(t, icerr.IsConfiguration(err) || icerr.IsParse(err))
}
