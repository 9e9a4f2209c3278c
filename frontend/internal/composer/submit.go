package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/itchan-dev/caster/shared/domain"
	"github.com/itchan-dev/caster/shared/hub"
	"github.com/itchan-dev/caster/shared/logger"
)

type State int

const (
	StateIdle State = iota
	StateUploading
	StateBuilding
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUploading:
		return "uploading"
	case StateBuilding:
		return "building"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// InFlight reports whether the pipeline is between entry and a terminal state.
func (s State) InFlight() bool {
	return s == StateUploading || s == StateBuilding || s == StateSubmitting
}

type FailureKind int

const (
	NoFailure FailureKind = iota
	UploadFailure
	ConstructionFailure
	HubFailure
)

func (k FailureKind) String() string {
	switch k {
	case NoFailure:
		return "none"
	case UploadFailure:
		return "upload_failure"
	case ConstructionFailure:
		return "construction_failure"
	case HubFailure:
		return "hub_failure"
	}
	return fmt.Sprintf("failure(%d)", int(k))
}

var (
	ErrUploadFailed = errors.New("attachment upload failed")
	ErrNoMessage    = errors.New("message builder returned nothing")
	ErrEmptyAckHash = errors.New("hub acknowledgment has no hash")
)

// Uploader is the media host. A false ok is a failed upload; it never errors.
type Uploader interface {
	UploadImage(ctx context.Context, file domain.File) (link string, ok bool)
}

// MessageBuilder turns cast parameters into a signed message.
type MessageBuilder interface {
	Build(params hub.CastParams) (*hub.Message, error)
}

// HubSubmitter sends a signed message and returns the hub's acknowledgment.
type HubSubmitter interface {
	SubmitMessage(ctx context.Context, msg *hub.Message) (*hub.Message, error)
}

// Submission is the immutable draft snapshot a pipeline run works on.
type Submission struct {
	Text        string
	Fid         domain.Fid
	Attachments domain.Attachments
	EmbedURLs   []domain.URL      // resolved link previews, appended after uploads
	Parent      *domain.ParentRef // set only when replying
	ParentURL   string
}

// Result is the terminal outcome of one run.
type Result struct {
	State   State
	Hash    domain.CastHash // set on success
	Failure FailureKind
	Err     error
}

func (r Result) Succeeded() bool { return r.State == StateSucceeded }

// Pipeline uploads attachments in order, builds the message and submits it.
type Pipeline struct {
	uploader Uploader
	builder  MessageBuilder
	hub      HubSubmitter

	// OnTransition, if set, observes every state change of Run.
	OnTransition func(State)
}

func NewPipeline(uploader Uploader, builder MessageBuilder, hub HubSubmitter) *Pipeline {
	return &Pipeline{uploader: uploader, builder: builder, hub: hub}
}

// Run always ends in StateSucceeded or StateFailed.
func (p *Pipeline) Run(ctx context.Context, sub Submission) Result {
	log := logger.Component("submission").With("fid", sub.Fid, "attachments", len(sub.Attachments))

	p.transition(log, StateUploading)
	links := make([]domain.URL, 0, len(sub.Attachments))
	for i, a := range sub.Attachments {
		link, ok := p.uploader.UploadImage(ctx, a.File)
		if !ok {
			uploadsTotal.WithLabelValues("error").Inc()
			return p.fail(log, UploadFailure, fmt.Errorf("%w: %d of %d (%s)", ErrUploadFailed, i+1, len(sub.Attachments), a.File.Name))
		}
		uploadsTotal.WithLabelValues("ok").Inc()
		links = append(links, link)
	}

	p.transition(log, StateBuilding)
	params := hub.CastParams{
		Text:      sub.Text,
		Fid:       sub.Fid,
		ParentURL: sub.ParentURL,
	}
	for _, u := range append(links, sub.EmbedURLs...) {
		params.Embeds = append(params.Embeds, domain.Embed{URL: u})
	}
	if sub.Parent != nil {
		params.ParentCastHash = sub.Parent.Hash
		params.ParentCastFid = sub.Parent.Fid
	}
	msg, err := p.builder.Build(params)
	if err != nil {
		return p.fail(log, ConstructionFailure, err)
	}
	if msg == nil {
		return p.fail(log, ConstructionFailure, ErrNoMessage)
	}

	p.transition(log, StateSubmitting)
	ack, err := p.hub.SubmitMessage(ctx, msg)
	if err != nil {
		return p.fail(log, HubFailure, err)
	}
	if ack == nil || len(ack.Hash) == 0 {
		return p.fail(log, HubFailure, ErrEmptyAckHash)
	}

	hash := ack.HashHex()
	p.transition(log, StateSucceeded)
	log.Info("cast submitted", "hash", hash)
	return Result{State: StateSucceeded, Hash: hash}
}

func (p *Pipeline) fail(log *slog.Logger, kind FailureKind, err error) Result {
	p.transition(log, StateFailed)
	log.Warn("submission failed", "kind", kind, "error", err)
	return Result{State: StateFailed, Failure: kind, Err: err}
}

func (p *Pipeline) transition(log *slog.Logger, s State) {
	log.Debug("submission state", "state", s)
	if p.OnTransition != nil {
		p.OnTransition(s)
	}
}
