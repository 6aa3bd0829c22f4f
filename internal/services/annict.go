// Annict REST API implementation of [Source]
//
// Response types based on https://developers.annict.com/docs/rest-api/v1
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ymgch/anisync/internal/models"
	"github.com/ymgch/anisync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	annictBaseURL  = "https://api.annict.com"
	annictAuthURL  = "https://annict.com/oauth/authorize"
	annictTokenURL = "https://annict.com/oauth/token"
	annictPageSize = 50
	// Delay between page requests; Annict asks integrations to stay polite.
	annictPageDelay = 200 * time.Millisecond
)

// annictWorksPage is one page of the paginated works listing.
type annictWorksPage struct {
	Works      []models.Work `json:"works"`
	TotalCount int           `json:"total_count"`
	NextPage   *int          `json:"next_page"`
	PrevPage   *int          `json:"prev_page"`
}

// AnnictService implements [Source] against the Annict REST API.
type AnnictService struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewAnnictService creates an Annict client with the given user token.
//
// baseURL defaults to the public API host; client defaults to [http.DefaultClient].
func NewAnnictService(token, baseURL string, client *http.Client) *AnnictService {
	if baseURL == "" {
		baseURL = annictBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &AnnictService{
		baseURL:    baseURL,
		token:      token,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Every(annictPageDelay), 1),
	}
}

// AnnictOAuthConfig builds the OAuth2 configuration for the Annict
// authorization code flow with read scope.
func AnnictOAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{"read"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  annictAuthURL,
			TokenURL: annictTokenURL,
		},
	}
}

// SetPageDelay overrides the inter-page pacing delay.
func (s *AnnictService) SetPageDelay(d time.Duration) {
	if d <= 0 {
		return
	}
	s.limiter = rate.NewLimiter(rate.Every(d), 1)
}

// Authenticated reports whether a user token is configured.
func (s *AnnictService) Authenticated() bool {
	return s.token != ""
}

func (s *AnnictService) get(ctx context.Context, path string, query url.Values, result any) error {
	if s.token == "" {
		return shared.ErrNotAuthenticated
	}

	apiURL := s.baseURL + path
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrSourceFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: annict API status %d", shared.ErrSourceFetch, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Me retrieves the authenticated user's profile.
func (s *AnnictService) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := s.get(ctx, "/v1/me", nil, &user); err != nil {
		return nil, err
	}
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSourceFetch, err)
	}
	return &user, nil
}

// worksPage retrieves a single page of the user's works under one status filter.
func (s *AnnictService) worksPage(ctx context.Context, status string, page int) (*annictWorksPage, error) {
	query := url.Values{}
	query.Set("filter_status", status)
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(annictPageSize))

	var result annictWorksPage
	if err := s.get(ctx, "/v1/me/works", query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Library retrieves the full work list under the given status filters.
//
// Pages are fetched until the source reports no next page; works appearing
// under multiple statuses are included once, in first-seen order. A failed
// page request aborts the whole fetch.
func (s *AnnictService) Library(ctx context.Context, statuses []string) ([]models.Work, error) {
	var works []models.Work
	seen := make(map[int64]bool)

	for _, status := range statuses {
		page := 1
		for {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}

			result, err := s.worksPage(ctx, status, page)
			if err != nil {
				return nil, err
			}

			for _, work := range result.Works {
				if work.ID == 0 || seen[work.ID] {
					continue
				}
				seen[work.ID] = true
				works = append(works, work)
			}

			if result.NextPage == nil {
				break
			}
			page = *result.NextPage
		}
	}

	return works, nil
}

var _ Source = (*AnnictService)(nil)
