package composer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itchan-dev/caster/shared/domain"
	"github.com/itchan-dev/caster/shared/hub"
)

func attachments(t *testing.T, names ...string) domain.Attachments {
	var out domain.Attachments
	for _, f := range pngFiles(t, names...) {
		out = append(out, &domain.Attachment{Id: f.Name, File: f, PreviewURL: "blob:" + f.Name})
	}
	return out
}

func TestPipeline_Success(t *testing.T) {
	uploader := &mockUploader{}
	builder := &mockBuilder{}
	hubMock := &mockHub{hash: "abc123"}
	p := NewPipeline(uploader, builder, hubMock)

	var states []State
	p.OnTransition = func(s State) { states = append(states, s) }

	res := p.Run(context.Background(), Submission{
		Text:        "two pics and a link",
		Fid:         42,
		Attachments: attachments(t, "a.png", "b.png"),
		EmbedURLs:   []domain.URL{"https://example.com/x"},
		ParentURL:   "https://warpcast.com/~/channel/go",
	})

	require.True(t, res.Succeeded())
	assert.Equal(t, "abc123", res.Hash)
	assert.Equal(t, NoFailure, res.Failure)
	assert.Equal(t, []State{StateUploading, StateBuilding, StateSubmitting, StateSucceeded}, states)

	require.Len(t, builder.Params(), 1)
	params := builder.Params()[0]
	assert.Equal(t, []domain.Embed{
		{URL: "https://i.imgur.com/a.png"},
		{URL: "https://i.imgur.com/b.png"},
		{URL: "https://example.com/x"},
	}, params.Embeds, "uploads first, in order, then previews")
	assert.Equal(t, domain.Fid(42), params.Fid)
	assert.Equal(t, "https://warpcast.com/~/channel/go", params.ParentURL)
	assert.Empty(t, params.ParentCastHash)
}

func TestPipeline_Reply(t *testing.T) {
	builder := &mockBuilder{}
	p := NewPipeline(&mockUploader{}, builder, &mockHub{hash: "ff"})

	res := p.Run(context.Background(), Submission{
		Text:   "agreed",
		Fid:    1,
		Parent: &domain.ParentRef{Hash: "0xabcdef", Fid: 77, Username: "bob"},
	})
	require.True(t, res.Succeeded())

	params := builder.Params()[0]
	assert.Equal(t, "0xabcdef", params.ParentCastHash)
	assert.Equal(t, domain.Fid(77), params.ParentCastFid)
}

func TestPipeline_UploadsSequentiallyAndAbortsOnFailure(t *testing.T) {
	uploader := &mockUploader{upload: func(ctx context.Context, file domain.File) (string, bool) {
		if file.Name == "2.png" {
			return "", false
		}
		return "https://i.imgur.com/" + file.Name, true
	}}
	builder := &mockBuilder{}
	hubMock := &mockHub{hash: "abc123"}
	p := NewPipeline(uploader, builder, hubMock)

	res := p.Run(context.Background(), Submission{Fid: 1, Attachments: attachments(t, "1.png", "2.png", "3.png")})

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, UploadFailure, res.Failure)
	assert.ErrorIs(t, res.Err, ErrUploadFailed)
	assert.Equal(t, []string{"1.png", "2.png"}, uploader.Calls(), "3rd upload must never be attempted")
	assert.Empty(t, builder.Params())
	assert.Zero(t, hubMock.Sent())
}

func TestPipeline_Failures(t *testing.T) {
	tests := []struct {
		name    string
		builder *mockBuilder
		hub     *mockHub
		kind    FailureKind
		wantErr error
	}{
		{"builder error", &mockBuilder{err: hub.ErrMissingFid}, &mockHub{hash: "ab"}, ConstructionFailure, hub.ErrMissingFid},
		{"hub error", &mockBuilder{}, &mockHub{err: assert.AnError}, HubFailure, assert.AnError},
		{"empty acknowledgment", &mockBuilder{}, &mockHub{hash: ""}, HubFailure, ErrEmptyAckHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var last State
			p := NewPipeline(&mockUploader{}, tt.builder, tt.hub)
			p.OnTransition = func(s State) { last = s }

			res := p.Run(context.Background(), Submission{Text: "x", Fid: 1})
			assert.Equal(t, StateFailed, res.State)
			assert.Equal(t, StateFailed, last)
			assert.Equal(t, tt.kind, res.Failure)
			assert.ErrorIs(t, res.Err, tt.wantErr)
			assert.Empty(t, res.Hash)
		})
	}
}

type nilBuilder struct{}

func (nilBuilder) Build(hub.CastParams) (*hub.Message, error) { return nil, nil }

func TestPipeline_NilMessageIsConstructionFailure(t *testing.T) {
	p := NewPipeline(&mockUploader{}, nilBuilder{}, &mockHub{hash: "ab"})
	res := p.Run(context.Background(), Submission{Text: "x", Fid: 1})
	assert.Equal(t, ConstructionFailure, res.Failure)
	assert.ErrorIs(t, res.Err, ErrNoMessage)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "uploading", StateUploading.String())
	assert.True(t, StateSubmitting.InFlight())
	assert.False(t, StateFailed.InFlight())
	assert.Equal(t, "hub_failure", HubFailure.String())
}
