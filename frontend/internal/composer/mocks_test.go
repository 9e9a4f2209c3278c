package composer

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/itchan-dev/caster/frontend/internal/notify"
	"github.com/itchan-dev/caster/shared/api"
	"github.com/itchan-dev/caster/shared/clock"
	"github.com/itchan-dev/caster/shared/domain"
	"github.com/itchan-dev/caster/shared/hub"
	"github.com/itchan-dev/caster/shared/validation"
)

// mockHandles records every allocation and release and flags double releases.
type mockHandles struct {
	t        *testing.T
	mu       sync.Mutex
	next     int
	released map[string]int
	live     map[string]bool
	failOn   int // 1-based allocation that fails, 0 never
}

func newMockHandles(t *testing.T) *mockHandles {
	return &mockHandles{t: t, released: make(map[string]int), live: make(map[string]bool)}
}

func (m *mockHandles) Allocate(file domain.File) (domain.URL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	if m.next == m.failOn {
		return "", fmt.Errorf("disk full")
	}
	h := fmt.Sprintf("blob:%d:%s", m.next, file.Name)
	m.live[h] = true
	return h, nil
}

func (m *mockHandles) Release(handle domain.URL) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released[handle]++
	if m.released[handle] > 1 {
		m.t.Errorf("handle %s released %d times", handle, m.released[handle])
	}
	if !m.live[handle] {
		return fmt.Errorf("unknown handle %s", handle)
	}
	delete(m.live, handle)
	return nil
}

func (m *mockHandles) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// mockPreviews answers with fetch, or with one slot per URL titled after it.
type mockPreviews struct {
	mu    sync.Mutex
	calls [][]string
	fetch func(ctx context.Context, urls []string) (api.PreviewsResponse, error)
}

func (m *mockPreviews) FetchPreviews(ctx context.Context, urls []string) (api.PreviewsResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), urls...))
	m.mu.Unlock()

	if m.fetch != nil {
		return m.fetch(ctx, urls)
	}
	resp := make(api.PreviewsResponse, len(urls))
	for i, u := range urls {
		resp[i] = &domain.EmbedPreview{URL: u, Title: "title of " + u}
	}
	return resp, nil
}

func (m *mockPreviews) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.calls...)
}

type mockUploader struct {
	mu     sync.Mutex
	calls  []string
	upload func(ctx context.Context, file domain.File) (string, bool)
}

func (m *mockUploader) UploadImage(ctx context.Context, file domain.File) (string, bool) {
	m.mu.Lock()
	m.calls = append(m.calls, file.Name)
	m.mu.Unlock()

	if m.upload != nil {
		return m.upload(ctx, file)
	}
	return "https://i.imgur.com/" + file.Name, true
}

func (m *mockUploader) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type mockBuilder struct {
	mu     sync.Mutex
	params []hub.CastParams
	err    error
}

func (m *mockBuilder) Build(params hub.CastParams) (*hub.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = append(m.params, params)
	if m.err != nil {
		return nil, m.err
	}
	return &hub.Message{Data: hub.MessageData{
		Type: hub.MessageTypeCastAdd,
		Fid:  params.Fid,
		CastAddBody: &hub.CastAddBody{
			Text:   params.Text,
			Embeds: params.Embeds,
		},
	}}, nil
}

func (m *mockBuilder) Params() []hub.CastParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]hub.CastParams(nil), m.params...)
}

type mockHub struct {
	mu   sync.Mutex
	sent []*hub.Message
	hash string
	err  error
}

func (m *mockHub) SubmitMessage(ctx context.Context, msg *hub.Message) (*hub.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	if m.err != nil {
		return nil, m.err
	}
	hash, err := hex.DecodeString(m.hash)
	if err != nil {
		return nil, err
	}
	return &hub.Message{Data: msg.Data, Hash: hash}, nil
}

func (m *mockHub) Sent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fixture struct {
	t        *testing.T
	clock    *clock.Fake
	handles  *mockHandles
	previews *mockPreviews
	uploader *mockUploader
	builder  *mockBuilder
	hub      *mockHub
	notes    *notify.Recorder
	identity domain.Identity
	cfg      Config
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		t:        t,
		clock:    clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		handles:  newMockHandles(t),
		previews: &mockPreviews{},
		uploader: &mockUploader{},
		builder:  &mockBuilder{},
		hub:      &mockHub{hash: "abc123"},
		notes:    &notify.Recorder{},
		identity: domain.Identity{Fid: 42, Username: "alice"},
		cfg:      testConfig(),
	}
}

func testConfig() Config {
	return Config{
		InputLimit:         280,
		ElevatedInputLimit: 560,
		MaxEmbeds:          2,
		EmbedDebounce:      1500 * time.Millisecond,
		SettleDelay:        0,
		Attachments: validation.AttachmentRules{
			MaxCount:     4,
			AllowedMimes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
			MaxBytes:     1 << 20,
		},
		PostURLPrefix: "/tweet/",
	}
}

func (f *fixture) controller(opts Options) *Controller {
	c := New(f.cfg, Deps{
		Identity: f.identity,
		Previews: f.previews,
		Handles:  f.handles,
		Uploader: f.uploader,
		Builder:  f.builder,
		Hub:      f.hub,
		Notifier: f.notes,
		Clock:    f.clock,
	}, opts)
	f.t.Cleanup(c.Close)
	return c
}

// settle moves the clock past the debounce window and waits for fetches.
func (f *fixture) settle(c *Controller) {
	f.t.Helper()
	f.clock.Advance(f.cfg.EmbedDebounce)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(f.t, c.WaitEmbeds(ctx))
}

func pngFile(t *testing.T, name string) domain.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return domain.File{Name: name, MimeType: "image/png", Data: buf.Bytes()}
}

func pngFiles(t *testing.T, names ...string) []domain.File {
	files := make([]domain.File, 0, len(names))
	for _, n := range names {
		files = append(files, pngFile(t, n))
	}
	return files
}
