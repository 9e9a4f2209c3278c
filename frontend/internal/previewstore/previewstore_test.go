package previewstore

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itchan-dev/caster/shared/domain"
)

func TestAllocateRelease(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	handle, err := store.Allocate(domain.File{Name: "cat.png", Data: []byte("meow")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(handle, "file://"))
	assert.True(t, strings.HasSuffix(handle, ".png"))
	assert.Equal(t, 1, store.Live())

	rc, err := store.Open(handle)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "meow", string(data))

	path := store.live[handle]
	require.NoError(t, store.Release(handle))
	assert.Equal(t, 0, store.Live())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRelease_Twice(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	handle, err := store.Allocate(domain.File{Name: "a.gif", Data: []byte("x")})
	require.NoError(t, err)

	require.NoError(t, store.Release(handle))
	assert.ErrorIs(t, store.Release(handle), ErrUnknownHandle)
	assert.ErrorIs(t, store.Release("file:///nope"), ErrUnknownHandle)
}

func TestAllocate_DistinctHandles(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	a, err := store.Allocate(domain.File{Name: "same.png", Data: []byte("1")})
	require.NoError(t, err)
	b, err := store.Allocate(domain.File{Name: "same.png", Data: []byte("2")})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, store.Live())
}

func TestCleanup(t *testing.T) {
	store, err := NewTemp(t.TempDir())
	require.NoError(t, err)

	_, err = store.Allocate(domain.File{Name: "a.png", Data: []byte("1")})
	require.NoError(t, err)

	require.NoError(t, store.Cleanup())
	assert.Equal(t, 0, store.Live())
	_, err = os.Stat(store.rootPath)
	assert.True(t, os.IsNotExist(err))
}
