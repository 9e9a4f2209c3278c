package composer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/itchan-dev/caster/shared/domain"
	"github.com/itchan-dev/caster/shared/logger"
	"github.com/itchan-dev/caster/shared/validation"
)

// PreviewHandles allocates the transient display handle of an attachment.
// Every allocated handle must be released exactly once.
type PreviewHandles interface {
	Allocate(file domain.File) (domain.URL, error)
	Release(handle domain.URL) error
}

// AttachmentManager owns the attachments of one draft and their preview
// handles. It is not safe for concurrent use; the Controller serializes calls.
type AttachmentManager struct {
	rules   validation.AttachmentRules
	handles PreviewHandles

	attachments domain.Attachments
	previews    []domain.ImagePreview
}

func NewAttachmentManager(rules validation.AttachmentRules, handles PreviewHandles) *AttachmentManager {
	return &AttachmentManager{rules: rules, handles: handles}
}

// AddFiles validates files as one batch against currentCount and, if accepted,
// allocates one preview handle per file. Both returned slices follow input order.
// On a validation error nothing changes.
func (m *AttachmentManager) AddFiles(files []domain.File, currentCount int) ([]domain.ImagePreview, domain.Attachments, error) {
	if err := validation.ValidateImageFiles(files, currentCount, m.rules); err != nil {
		return nil, nil, err
	}

	previews := make([]domain.ImagePreview, 0, len(files))
	added := make(domain.Attachments, 0, len(files))
	for _, file := range files {
		handle, err := m.handles.Allocate(file)
		if err != nil {
			for _, a := range added {
				m.release(a.PreviewURL)
			}
			return nil, nil, fmt.Errorf("failed to allocate preview for %s: %w", file.Name, err)
		}
		previewHandlesLive.Inc()

		a := &domain.Attachment{Id: uuid.NewString(), File: file, PreviewURL: handle}
		added = append(added, a)
		width, height := validation.ExtractImageDimensions(file)
		previews = append(previews, domain.ImagePreview{Id: a.Id, Src: handle, Width: width, Height: height})
	}

	m.attachments = append(m.attachments, added...)
	m.previews = append(m.previews, previews...)
	return previews, added, nil
}

// RemoveAttachment is a no-op for an unknown id.
func (m *AttachmentManager) RemoveAttachment(id domain.AttachmentId) {
	for i, a := range m.attachments {
		if a.Id != id {
			continue
		}
		m.attachments = append(m.attachments[:i:i], m.attachments[i+1:]...)
		m.previews = append(m.previews[:i:i], m.previews[i+1:]...)
		m.release(a.PreviewURL)
		return
	}
}

// Clear releases every handle and empties the manager.
func (m *AttachmentManager) Clear() {
	for _, a := range m.attachments {
		m.release(a.PreviewURL)
	}
	m.attachments = nil
	m.previews = nil
}

func (m *AttachmentManager) Attachments() domain.Attachments {
	return append(domain.Attachments(nil), m.attachments...)
}

func (m *AttachmentManager) Previews() []domain.ImagePreview {
	return append([]domain.ImagePreview(nil), m.previews...)
}

func (m *AttachmentManager) Count() int {
	return len(m.attachments)
}

func (m *AttachmentManager) release(handle domain.URL) {
	previewHandlesLive.Dec()
	if err := m.handles.Release(handle); err != nil {
		logger.Component("composer").Warn("failed to release preview handle", "handle", handle, "error", err)
	}
}
