// Package composer holds the draft state machine of a cast composer: the
// attachment manager, the debounced link preview resolver, the submission
// pipeline and the Controller that serializes user actions over them.
package composer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/itchan-dev/caster/frontend/internal/notify"
	"github.com/itchan-dev/caster/shared/clock"
	"github.com/itchan-dev/caster/shared/config"
	"github.com/itchan-dev/caster/shared/domain"
	"github.com/itchan-dev/caster/shared/logger"
	"github.com/itchan-dev/caster/shared/validation"
)

var (
	ErrNotValid           = errors.New("draft is not valid to submit")
	ErrMissingParent      = errors.New("reply has no parent cast")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrClosed             = errors.New("composer is closed")
)

type Config struct {
	InputLimit         int
	ElevatedInputLimit int
	MaxEmbeds          int
	EmbedDebounce      time.Duration
	SettleDelay        time.Duration
	Attachments        validation.AttachmentRules
	PostURLPrefix      string
}

func ConfigFrom(cfg *config.Config) Config {
	c := cfg.Public.Composer
	return Config{
		InputLimit:         c.InputLimit,
		ElevatedInputLimit: c.ElevatedInputLimit,
		MaxEmbeds:          c.MaxEmbeds,
		EmbedDebounce:      c.EmbedDebounce,
		SettleDelay:        c.SettleDelay,
		Attachments: validation.AttachmentRules{
			MaxCount:     c.MaxAttachments,
			AllowedMimes: c.AllowedImageMimes,
			MaxBytes:     c.MaxAttachmentBytes,
		},
		PostURLPrefix: cfg.Public.Endpoints.PostURLPrefix,
	}
}

// Options describe where the composer is mounted.
type Options struct {
	Reply      bool // inline reply under a cast
	ReplyModal bool // reply in a modal
	Modal      bool // new cast in a modal
	Parent     *domain.ParentRef
	ParentURL  string // channel the cast is posted into
	OnClose    func()
}

func (o Options) replying() bool { return o.Reply || o.ReplyModal }

// keepsDraft reports whether a successful submission leaves the draft for the
// surrounding modal to dispose of.
func (o Options) keepsDraft() bool { return o.Modal || o.ReplyModal }

// Deps are the collaborators of a Controller.
type Deps struct {
	Identity domain.Identity
	Previews PreviewFetcher
	Handles  PreviewHandles
	Uploader Uploader
	Builder  MessageBuilder
	Hub      HubSubmitter
	Notifier notify.Notifier
	Clock    clock.Clock
}

// View is a consistent snapshot of a composer for rendering.
type View struct {
	Draft    Draft
	Previews []domain.ImagePreview
	Validity Validity
	State    State
}

// Controller owns one draft. All mutations run under mu; network calls run
// outside it and re-enter through the same lock.
type Controller struct {
	cfg       Config
	opts      Options
	identity  domain.Identity
	notifier  notify.Notifier
	clock     clock.Clock
	limit     int
	debouncer *Debouncer
	resolver  *EmbedResolver
	pipeline  *Pipeline

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	draft       Draft
	attachments *AttachmentManager
	state       State
	submitting  bool
	closed      bool
	fetches     int
	idle        chan struct{} // closed when fetches drops to zero
}

func New(cfg Config, deps Deps, opts Options) *Controller {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.LogNotifier{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:         cfg,
		opts:        opts,
		identity:    deps.Identity,
		notifier:    deps.Notifier,
		clock:       deps.Clock,
		limit:       deps.Identity.InputLimit(cfg.InputLimit, cfg.ElevatedInputLimit),
		debouncer:   NewDebouncer(deps.Clock, cfg.EmbedDebounce),
		resolver:    NewEmbedResolver(deps.Previews),
		pipeline:    NewPipeline(deps.Uploader, deps.Builder, deps.Hub),
		ctx:         ctx,
		cancel:      cancel,
		draft:       newDraft(),
		attachments: NewAttachmentManager(cfg.Attachments, deps.Handles),
		idle:        make(chan struct{}),
	}
	close(c.idle)
	c.pipeline.OnTransition = c.setState
	return c
}

// OnTextChange stores text and schedules embed extraction once typing pauses.
func (c *Controller) OnTextChange(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.draft.Text = text
	c.mu.Unlock()

	// extractEmbeds reads the text under the lock when it fires
	c.debouncer.Trigger(c.extractEmbeds)
}

// OnFilesSelected adds a batch of files. A rejected batch leaves the draft
// unchanged and notifies the user.
func (c *Controller) OnFilesSelected(files []domain.File) error {
	if len(files) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	_, _, err := c.attachments.AddFiles(files, c.attachments.Count())
	if err != nil {
		log := logger.Component("composer")
		if validation.IsValidationError(err) {
			log.Debug("attachments rejected", "error", err)
			c.notifier.Notify(notify.Error(notify.MsgBadAttachments))
		} else {
			log.Error("failed to add attachments", "error", err)
		}
		return err
	}
	c.draft.Attachments = c.attachments.Attachments()
	return nil
}

// OnPaste attaches pasted files, unless the clipboard also carries text: the
// text goes to the editor and the files are ignored.
func (c *Controller) OnPaste(text string, files []domain.File) error {
	if text != "" {
		return nil
	}
	return c.OnFilesSelected(files)
}

func (c *Controller) OnRemoveAttachment(id domain.AttachmentId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.attachments.RemoveAttachment(id)
	c.draft.Attachments = c.attachments.Attachments()
}

// OnIgnoreEmbed dismisses a preview and re-extracts right away, so a further
// URL of the text can take its slot.
func (c *Controller) OnIgnoreEmbed(url domain.URL) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.draft.IgnoredEmbedURLs[url] = struct{}{}
	c.retargetLocked()
}

// OnSubmit runs the submission pipeline on a snapshot of the draft. Guard
// rejections return an error and have no side effect; pipeline failures are
// reported in the Result with a nil error.
func (c *Controller) OnSubmit(ctx context.Context) (Result, error) {
	log := logger.Component("composer").With("fid", c.identity.Fid)

	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		state := c.state
		c.mu.Unlock()
		submissionsTotal.WithLabelValues("rejected").Inc()
		log.Debug("submit rejected", "error", err)
		return Result{State: state}, err
	}
	c.submitting = true
	sub := Submission{
		Text:        strings.TrimSpace(c.draft.Text),
		Fid:         c.identity.Fid,
		Attachments: c.attachments.Attachments(),
		EmbedURLs:   c.draft.EmbedURLs(),
		ParentURL:   c.opts.ParentURL,
	}
	if c.opts.replying() {
		parent := *c.opts.Parent
		sub.Parent = &parent
	}
	c.mu.Unlock()

	res := c.pipeline.Run(ctx, sub)
	submissionsTotal.WithLabelValues(outcome(res)).Inc()

	if !res.Succeeded() {
		msg := notify.MsgCreateFailed
		if res.Failure == UploadFailure {
			msg = notify.MsgUploadFailed
		}
		c.notifier.Notify(notify.Error(msg))

		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
		return res, nil
	}

	c.notifier.Notify(notify.PostSent(c.cfg.PostURLPrefix, res.Hash))

	// let the surrounding navigation settle before the composer is reused
	if err := c.clock.Sleep(ctx, c.cfg.SettleDelay); err != nil {
		log.Debug("settle delay cut short", "error", err)
	}

	c.mu.Lock()
	closed := c.closed
	if !c.opts.keepsDraft() && !closed {
		c.resetLocked()
	}
	c.submitting = false
	c.mu.Unlock()

	// a composer torn down mid-submission has nobody left to signal
	if c.opts.OnClose != nil && !closed {
		c.opts.OnClose()
	}
	return res, nil
}

func (c *Controller) guardLocked() error {
	switch {
	case c.closed:
		return ErrClosed
	case c.submitting:
		return ErrSubmissionInFlight
	case !c.draft.Validity(c.limit).IsValidToSubmit:
		return ErrNotValid
	case c.opts.replying() && (c.opts.Parent == nil || c.opts.Parent.Hash == ""):
		return ErrMissingParent
	}
	return nil
}

// OnDiscard empties the draft and releases every preview handle.
func (c *Controller) OnDiscard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.resetLocked()
}

// Close tears the composer down. Preview handles are released; later calls
// are no-ops and late preview responses are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.resetLocked()
	c.closed = true
	c.cancel()
}

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Draft:    c.draft.clone(),
		Previews: c.attachments.Previews(),
		Validity: c.draft.Validity(c.limit),
		State:    c.state,
	}
}

// FlushEmbeds runs a pending debounced extraction immediately.
func (c *Controller) FlushEmbeds() bool {
	return c.debouncer.Flush()
}

// WaitEmbeds flushes the debounce and blocks until no preview fetch is in flight.
func (c *Controller) WaitEmbeds(ctx context.Context) error {
	c.FlushEmbeds()
	for {
		c.mu.Lock()
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
			c.mu.Lock()
			done := c.fetches == 0
			c.mu.Unlock()
			if done {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Controller) extractEmbeds() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.retargetLocked()
}

// retargetLocked recomputes the candidate URLs. When the target changes,
// embeds outside it are dropped at once and the new set is fetched.
func (c *Controller) retargetLocked() {
	urls := ExtractCandidateURLs(c.draft.Text, c.draft.IgnoredEmbedURLs, c.cfg.MaxEmbeds)
	key, changed := c.resolver.Retarget(urls)
	c.draft.Embeds = keepEmbeds(c.draft.Embeds, urls)
	if !changed || len(urls) == 0 {
		return
	}

	if c.fetches == 0 {
		c.idle = make(chan struct{})
	}
	c.fetches++
	go c.fetchEmbeds(key, urls)
}

func (c *Controller) fetchEmbeds(key string, urls []string) {
	log := logger.Component("embed_resolver").With("key", key)
	previews, err := c.resolver.Resolve(c.ctx, urls)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.fetchDoneLocked()

	switch {
	case c.closed:
	case !c.resolver.IsCurrent(key):
		stalePreviewsTotal.Inc()
		log.Debug("dropping stale previews")
	case err != nil:
		c.draft.Embeds = nil
	default:
		c.draft.Embeds = previews
	}
}

func (c *Controller) fetchDoneLocked() {
	c.fetches--
	if c.fetches == 0 {
		close(c.idle)
	}
}

func (c *Controller) resetLocked() {
	c.debouncer.Stop()
	c.attachments.Clear()
	c.resolver.Reset()
	c.draft = newDraft()
}

func outcome(res Result) string {
	if res.Succeeded() {
		return "succeeded"
	}
	return res.Failure.String()
}
