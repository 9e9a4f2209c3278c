package validation

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/itchan-dev/caster/shared/domain"
)

// AttachmentRules bounds what a draft may carry.
type AttachmentRules struct {
	MaxCount     int
	AllowedMimes []string
	MaxBytes     int64
}

// ValidateImageFiles checks a batch of newly selected files against the rules,
// given how many attachments the draft already holds. The batch is accepted or
// rejected as a whole.
func ValidateImageFiles(files []domain.File, currentCount int, rules AttachmentRules) error {
	if currentCount+len(files) > rules.MaxCount {
		return fmt.Errorf("%w: %d selected, %d already attached, max %d",
			ErrTooManyAttachments, len(files), currentCount, rules.MaxCount)
	}

	allowedMimes := BuildAllowedMimeMap(rules.AllowedMimes)
	for _, file := range files {
		if file.Size() == 0 {
			return fmt.Errorf("%w (file: %s)", ErrEmptyFile, file.Name)
		}
		if rules.MaxBytes > 0 && file.Size() > rules.MaxBytes {
			return fmt.Errorf("%w: %d bytes (file: %s)", ErrFileTooLarge, file.Size(), file.Name)
		}
		mimeType := DetectMimeType(file)
		if !allowedMimes[mimeType] {
			return fmt.Errorf("%w: %q (file: %s)", ErrInvalidMimeType, mimeType, file.Name)
		}
	}
	return nil
}

func BuildAllowedMimeMap(mimes []string) map[string]bool {
	allowedMimes := make(map[string]bool, len(mimes))
	for _, m := range mimes {
		allowedMimes[strings.ToLower(m)] = true
	}
	return allowedMimes
}

// DetectMimeType trusts the decoded image format first, then the declared type,
// then the file extension.
func DetectMimeType(file domain.File) string {
	if _, format, err := image.DecodeConfig(bytes.NewReader(file.Data)); err == nil {
		return "image/" + format
	}

	mimeType := strings.ToLower(file.MimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		if detected := mime.TypeByExtension(strings.ToLower(filepath.Ext(file.Name))); detected != "" {
			mimeType = detected
		}
	}
	// drop parameters such as "; charset=binary"
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if strings.HasPrefix(mimeType, "image/") {
		// An image type whose bytes do not decode is not an image we can send.
		return "application/octet-stream"
	}
	return mimeType
}

// ExtractImageDimensions returns nil, nil when the data is not a decodable image.
func ExtractImageDimensions(file domain.File) (*int, *int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(file.Data))
	if err != nil {
		return nil, nil
	}
	width, height := cfg.Width, cfg.Height
	return &width, &height
}
