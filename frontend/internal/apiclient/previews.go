package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/itchan-dev/caster/shared/api"
)

// FetchPreviews calls GET /previews?urls=a,b. The result has one slot per input URL.
func (c *APIClient) FetchPreviews(ctx context.Context, urls []string) (api.PreviewsResponse, error) {
	query := url.Values{"urls": {strings.Join(urls, ",")}}
	resp, err := c.do(ctx, http.MethodGet, "/previews?"+query.Encode(), "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp, "fetch previews")
	}

	var previews api.PreviewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&previews); err != nil {
		return nil, fmt.Errorf("failed to parse previews JSON: %w", err)
	}
	if len(previews) != len(urls) {
		return nil, fmt.Errorf("previews service returned %d slots for %d urls", len(previews), len(urls))
	}
	return previews, nil
}
