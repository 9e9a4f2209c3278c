package validation

import "errors"

// ErrInvalidMimeType is returned when a selected file is not an accepted image type
var ErrInvalidMimeType = errors.New("invalid MIME type")

// ErrTooManyAttachments is returned when a selection would exceed the attachment cap
var ErrTooManyAttachments = errors.New("too many attachments")

// ErrFileTooLarge is returned when a single file exceeds the configured size
var ErrFileTooLarge = errors.New("file too large")

var ErrEmptyFile = errors.New("empty file")

// IsValidationError reports whether err is one of the attachment rejections above.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidMimeType) ||
		errors.Is(err, ErrTooManyAttachments) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrEmptyFile)
}
