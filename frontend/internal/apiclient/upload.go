package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"

	"github.com/itchan-dev/caster/shared/api"
	"github.com/itchan-dev/caster/shared/domain"
	"github.com/itchan-dev/caster/shared/logger"
)

// UploadImage posts one file to the image host and returns its public link.
// Failures are reported as ok == false, never as a panic or error value.
func (c *APIClient) UploadImage(ctx context.Context, file domain.File) (link string, ok bool) {
	log := logger.Component("apiclient").With("file", file.Name, "bytes", file.Size())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", file.Name)
	if err != nil {
		log.Error("failed to build upload form", "error", err)
		return "", false
	}
	if _, err := part.Write(file.Data); err != nil {
		log.Error("failed to build upload form", "error", err)
		return "", false
	}
	if err := writer.WriteField("type", "file"); err != nil {
		log.Error("failed to build upload form", "error", err)
		return "", false
	}
	if err := writer.Close(); err != nil {
		log.Error("failed to build upload form", "error", err)
		return "", false
	}

	resp, err := c.do(ctx, http.MethodPost, "/image", writer.FormDataContentType(), &body)
	if err != nil {
		log.Warn("image upload failed", "error", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("image upload rejected", "error", readError(resp, "upload image"))
		return "", false
	}

	var uploaded api.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		log.Warn("failed to parse upload JSON", "error", err)
		return "", false
	}
	if !uploaded.Success || uploaded.Data.Link == "" {
		log.Warn("image host returned no link", "status", uploaded.Status)
		return "", false
	}
	return uploaded.Data.Link, true
}
