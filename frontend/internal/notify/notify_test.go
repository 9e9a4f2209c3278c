package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostSent(t *testing.T) {
	assert.Equal(t, "/tweet/abc123", PostSent("/tweet/", "abc123").Link)
	assert.Equal(t, "/tweet/abc123", PostSent("/tweet", "abc123").Link)
	assert.Equal(t, LevelSuccess, PostSent("/tweet/", "x").Level)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_, ok := r.Last()
	assert.False(t, ok)

	r.Notify(Error(MsgUploadFailed))
	r.Notify(PostSent("/tweet/", "h"))

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, MsgPostSent, last.Message)
	require.Len(t, r.All(), 2)
	assert.Equal(t, LevelError, r.All()[0].Level)
}
