// Package notify carries the short user-facing messages a composer emits
// (the toast equivalents).
package notify

import (
	"strings"
	"sync"

	"github.com/itchan-dev/caster/shared/logger"
)

const (
	MsgUploadFailed   = "Failed to upload image"
	MsgCreateFailed   = "Failed to create post"
	MsgPostSent       = "Your post was sent"
	MsgBadAttachments = "Please choose a GIF or photo up to 4"
)

type Level int

const (
	LevelSuccess Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "success"
}

type Notification struct {
	Level   Level
	Message string
	Link    string // empty when there is nothing to navigate to
}

type Notifier interface {
	Notify(n Notification)
}

func Error(msg string) Notification { return Notification{Level: LevelError, Message: msg} }

// PostSent links to the new cast, e.g. PostSent("/tweet/", "abc123") -> /tweet/abc123.
func PostSent(prefix, hash string) Notification {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return Notification{Level: LevelSuccess, Message: MsgPostSent, Link: prefix + hash}
}

// LogNotifier writes notifications to the global logger.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	log := logger.Component("notify")
	if n.Level == LevelError {
		log.Warn(n.Message)
		return
	}
	log.Info(n.Message, "link", n.Link)
}

// Recorder keeps every notification it receives. Safe for concurrent use.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.all...)
}

// Last returns the most recent notification, or false if none arrived.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.all) == 0 {
		return Notification{}, false
	}
	return r.all[len(r.all)-1], true
}
