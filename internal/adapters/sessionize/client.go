package sessionize

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"talkregistration/internal/domain"
)

// DefaultBaseURL is the public Sessionize API root.
const DefaultBaseURL = "https://sessionize.com/api/v2"

type sessionizeHTTPFetcher struct {
	client  *http.Client
	baseURL string
}

// NewHTTPFetcher returns a fetcher that calls the Sessionize API at baseURL.
// An empty baseURL uses DefaultBaseURL.
func NewHTTPFetcher(client *http.Client, baseURL string) domain.SessionFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &sessionizeHTTPFetcher{client: client, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (f *sessionizeHTTPFetcher) Fetch(ctx context.Context, sessionizeID string) (domain.SessionizeAgenda, error) {
	if strings.TrimSpace(sessionizeID) == "" {
		return domain.SessionizeAgenda{}, fmt.Errorf("sessionize id is required: %w", domain.ErrInvalidInput)
	}
	endpoint := fmt.Sprintf("%s/%s/view/All", f.baseURL, url.PathEscape(sessionizeID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.SessionizeAgenda{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return domain.SessionizeAgenda{}, fmt.Errorf("failed to fetch from sessionize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.SessionizeAgenda{}, fmt.Errorf("sessionize event %q: %w", sessionizeID, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.SessionizeAgenda{}, fmt.Errorf("sessionize api returned status: %d", resp.StatusCode)
	}

	var data domain.SessionizeAgenda
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return domain.SessionizeAgenda{}, fmt.Errorf("failed to decode sessionize response: %w", err)
	}
	return data, nil
}
