package metadata

import (
	"testing"

	"github.com/dfinity/ic-wasm/internal/icerr"
	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddThenGetRoundTrips(t *testing.T) {
	m := wasm.New()
	Add(m, "candid:service", Public, []byte("service : {}"))

	got, err := Get(m, "candid:service")
	require.NoError(t, err)
	assert.Equal(t, "service : {}", got)
}

func TestAddIsIdempotentAcrossVisibilityFlips(t *testing.T) {
	m := wasm.New()
	Add(m, "build", Private, []byte("v1"))
	Add(m, "build", Public, []byte("v2"))

	entries := List(m)
	require.Len(t, entries, 1, "a name is never both public and private at once")
	assert.Equal(t, "build", entries[0].Name)
	assert.Equal(t, Public, entries[0].Visibility)

	got, err := Get(m, "build")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)
}

func TestRepeatedAddWithSameVisibilityReplaces(t *testing.T) {
	m := wasm.New()
	Add(m, "git:commit", Public, []byte("abc"))
	Add(m, "git:commit", Public, []byte("def"))

	assert.Len(t, m.Customs, 1, "re-adding the same name/visibility must replace, not accumulate sections")
	got, err := Get(m, "git:commit")
	require.NoError(t, err)
	assert.Equal(t, "def", got)
}

func TestRemoveReportsWhetherAnythingExisted(t *testing.T) {
	m := wasm.New()
	assert.False(t, Remove(m, "absent"))

	Add(m, "present", Private, []byte("x"))
	assert.True(t, Remove(m, "present"))
	assert.False(t, Remove(m, "present"), "a second removal finds nothing left")
}

func TestGetMissingIsConfigurationError(t *testing.T) {
	m := wasm.New()
	_, err := Get(m, "nope")
	require.Error(t, err)
	assert.True(t, icerr.IsConfiguration(err))
}

func TestListOnlyReportsIcpPrefixedSections(t *testing.T) {
	m := wasm.New()
	Add(m, "candid:args", Public, []byte("x"))
	m.AddCustom("name", []byte("unrelated"))

	entries := List(m)
	require.Len(t, entries, 1)
	assert.Equal(t, "candid:args", entries[0].Name)
}
