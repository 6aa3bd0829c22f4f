// Spotify API implementation of [TrackResolver]
//
// Uses the client-credentials flow; search response types based on
// https://developer.spotify.com/documentation/web-api/reference/search
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/charmbracelet/log"
	"github.com/ymgch/anisync/internal/models"
	"github.com/ymgch/anisync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com"

	searchLimit = 5

	// Credit lines longer than this are cast dumps, not artist names.
	longArtistCutoff = 150

	// Similarity thresholds and the title/artist blend weights.
	matchThreshold     = 0.6
	longArtistThresold = 0.5
	titleWeight        = 0.7
	artistWeight       = 0.3

	rateLimitWait        = 10 * time.Second
	maxRateLimitAttempts = 5
)

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SpotifyService implements [TrackResolver] using Spotify's search API.
//
// The bearer token comes from a client-credentials exchange and is held in a
// single-slot cache that refreshes one minute before expiry.
type SpotifyService struct {
	config      *clientcredentials.Config
	tokenSource oauth2.TokenSource
	baseURL     string
	httpClient  *http.Client
	logger      *log.Logger

	rateLimitWait time.Duration
	dice          *metrics.SorensenDice
}

// NewSpotifyService creates a new Spotify service with the given credentials map.
//
// Required keys: client_id, client_secret. Optional: base_url, token_url.
func NewSpotifyService(credentials map[string]string, logger *log.Logger) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	tokenURL := credentials["token_url"]
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	baseURL := credentials["base_url"]
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SpotifyService{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		},
		baseURL:       baseURL,
		httpClient:    http.DefaultClient,
		logger:        logger,
		rateLimitWait: rateLimitWait,
		dice:          metrics.NewSorensenDice(),
	}, nil
}

// SetHTTPClient replaces the HTTP client used for API and token requests.
func (s *SpotifyService) SetHTTPClient(client *http.Client) {
	s.httpClient = client
}

// SetRateLimitWait overrides the wait after a 429 response, used in tests.
func (s *SpotifyService) SetRateLimitWait(d time.Duration) {
	s.rateLimitWait = d
}

// Authenticate exchanges client credentials for an access token and primes
// the token cache. A token acquisition failure is fatal to an import run.
func (s *SpotifyService) Authenticate(ctx context.Context) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	ts := oauth2.ReuseTokenSourceWithExpiry(nil, s.config.TokenSource(ctx), time.Minute)

	if _, err := ts.Token(); err != nil {
		return fmt.Errorf("%w: spotify token exchange: %v", shared.ErrAuthFailed, err)
	}

	s.tokenSource = ts
	return nil
}

// token returns the cached bearer token, refreshing it when expired.
func (s *SpotifyService) token() (string, error) {
	if s.tokenSource == nil {
		return "", shared.ErrNotAuthenticated
	}
	tok, err := s.tokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return tok.AccessToken, nil
}

// SearchTracks performs a track search, retrying on rate-limit responses.
//
// The retry loop is bounded; sustained 429s surface as an error after
// maxRateLimitAttempts rounds.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]SpotifyTrack, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = searchLimit
	}

	searchURL := s.baseURL + "/v1/search?q=" + url.QueryEscape(query) +
		"&type=track&limit=" + strconv.Itoa(limit)

	for attempt := 1; attempt <= maxRateLimitAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept-Language", "ja")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			s.logger.Warn("spotify rate limit hit", "attempt", attempt, "wait", s.rateLimitWait)
			if err := sleep(ctx, s.rateLimitWait); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: spotify search status %d", shared.ErrAPIRequest, resp.StatusCode)
		}

		var result searchResponse
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}

		return result.Tracks.Items, nil
	}

	return nil, fmt.Errorf("%w: spotify search rate limited after %d attempts", shared.ErrAPIRequest, maxRateLimitAttempts)
}

// Resolve finds the catalog URL of the best-matching track for the song.
//
// Candidates are scored by Dice similarity of the cleaned song title against
// the candidate title, blended with artist similarity unless the raw credit
// line is a long cast dump, in which case title similarity alone decides with
// a lower threshold. Ties keep the first candidate in API order. Search
// failures and empty results are misses, never errors.
func (s *SpotifyService) Resolve(ctx context.Context, animeTitle string, song models.ThemeSong) (string, error) {
	if strings.TrimSpace(song.Title) == "" {
		return "", nil
	}

	query := BuildSearchQuery(song.Title, song.Artist, animeTitle)
	if strings.TrimSpace(query) == "" {
		return "", nil
	}

	items, err := s.SearchTracks(ctx, query, searchLimit)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Warn("spotify search failed", "song", song.Title, "error", err)
		return "", nil
	}
	if len(items) == 0 {
		return "", nil
	}

	longArtist := utf8.RuneCountInString(song.Artist) > longArtistCutoff
	cleanedTitle := strings.ToLower(strings.TrimSpace(StripParentheticals(song.Title)))
	cleanedArtist := strings.ToLower(CleanArtistName(song.Artist))

	var bestMatch *SpotifyTrack
	bestScore := 0.0

	for i := range items {
		item := &items[i]

		names := make([]string, 0, len(item.Artists))
		for _, artist := range item.Artists {
			names = append(names, artist.Name)
		}

		titleScore := strutil.Similarity(cleanedTitle, strings.ToLower(item.Name), s.dice)
		artistScore := strutil.Similarity(cleanedArtist, strings.ToLower(strings.Join(names, ", ")), s.dice)

		score := titleScore*titleWeight + artistScore*artistWeight
		required := matchThreshold
		if longArtist {
			score = titleScore
			required = longArtistThresold
		}

		if score > bestScore && score >= required {
			bestScore = score
			bestMatch = item
		}
	}

	if bestMatch == nil {
		s.logger.Debug("no close match", "song", song.Title, "query", query)
		return "", nil
	}

	s.logger.Debug("matched track", "song", song.Title, "match", bestMatch.Name, "score", bestScore)
	return bestMatch.ExternalURLs.Spotify, nil
}

var (
	reParenthetical = regexp.MustCompile(`\s*\([^()]*\)\s*`)
	reCVHalfWidth   = regexp.MustCompile(`\([^()]*?CV:[^()]*?\)`)
	reCVFullWidth   = regexp.MustCompile(`（[^（）]*?CV:[^（）]*?）`)
	reParenHalf     = regexp.MustCompile(`\(([^()]*)\)`)
	reParenFull     = regexp.MustCompile(`（([^（）]*)）`)
	reSeparators    = regexp.MustCompile(`[:：]`)
	reSpaces        = regexp.MustCompile(`\s+`)
	reDoubleComma   = regexp.MustCompile(`,\s*,`)
	reTrailingComma = regexp.MustCompile(`,\s*$`)
)

// StripParentheticals removes parenthesized asides from a song title.
func StripParentheticals(title string) string {
	cleaned := reParenthetical.ReplaceAllString(title, " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(cleaned, " "))
}

// CleanArtistName reduces a raw credit line to a searchable artist string:
// voice-actor annotations and overlong parentheticals are dropped, full-width
// separators normalized, and whitespace collapsed.
func CleanArtistName(artist string) string {
	if artist == "" {
		return ""
	}

	cleaned := reCVFullWidth.ReplaceAllString(artist, "")
	cleaned = reCVHalfWidth.ReplaceAllString(cleaned, "")

	dropLong := func(re *regexp.Regexp) {
		cleaned = re.ReplaceAllStringFunc(cleaned, func(match string) string {
			inner := re.FindStringSubmatch(match)[1]
			if utf8.RuneCountInString(inner) > 50 {
				return ""
			}
			return match
		})
	}
	dropLong(reParenHalf)
	dropLong(reParenFull)

	cleaned = reSeparators.ReplaceAllString(cleaned, " ")
	cleaned = strings.ReplaceAll(cleaned, "、", ",")
	cleaned = reSpaces.ReplaceAllString(cleaned, " ")
	cleaned = reDoubleComma.ReplaceAllString(cleaned, ",")

	return reTrailingComma.ReplaceAllString(strings.TrimSpace(cleaned), "")
}

// BuildSearchQuery constructs the catalog search query for a theme song.
//
// When the raw artist line exceeds the cast-dump cutoff, it is dropped
// entirely and the first two tokens of the anime title keep the query
// specific; otherwise the cleaned artist scopes the search. An unusable
// title yields an empty query, which callers treat as "do not search".
func BuildSearchQuery(songTitle, rawArtist, animeTitle string) string {
	cleanedTitle := StripParentheticals(songTitle)
	if cleanedTitle == "" {
		return ""
	}

	if utf8.RuneCountInString(rawArtist) > longArtistCutoff {
		tokens := strings.Fields(animeTitle)
		if len(tokens) > 2 {
			tokens = tokens[:2]
		}
		return strings.TrimSpace(`"` + cleanedTitle + `" ` + strings.Join(tokens, " "))
	}

	if cleanedArtist := CleanArtistName(rawArtist); cleanedArtist != "" {
		return `"` + cleanedTitle + `" artist:"` + cleanedArtist + `"`
	}

	return `"` + cleanedTitle + `"`
}

var _ TrackResolver = (*SpotifyService)(nil)
