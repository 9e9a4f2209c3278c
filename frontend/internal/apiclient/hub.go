package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/itchan-dev/caster/shared/hub"
)

const hubContentType = "application/cbor"

// SubmitMessage sends a signed message to the hub and decodes its acknowledgment.
func (c *APIClient) SubmitMessage(ctx context.Context, msg *hub.Message) (*hub.Message, error) {
	encoded, err := hub.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/submitMessage", hubContentType, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp, "submit message")
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read hub acknowledgment: %w", err)
	}
	var ack hub.Message
	if err := hub.Unmarshal(raw, &ack); err != nil {
		return nil, fmt.Errorf("failed to decode hub acknowledgment: %w", err)
	}
	if len(ack.Hash) != hub.HashLength {
		return nil, fmt.Errorf("hub acknowledgment carries a %d byte hash", len(ack.Hash))
	}
	return &ack, nil
}
