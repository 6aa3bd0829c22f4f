// Syoboi Calendar implementation of [ThemeProvider]
//
// The TitleLookup endpoint returns XML whose Comment field carries wiki-style
// markup listing a title's theme songs. The endpoint sits behind Cloudflare
// and occasionally answers with an HTML challenge page or malformed XML.
package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ymgch/anisync/internal/models"
	"github.com/ymgch/anisync/internal/shared"
)

const (
	syoboiBaseURL   = "https://cal.syoboi.jp"
	syoboiUserAgent = "Mozilla/5.0 (compatible; AnimeSyncBot/1.0)"

	syoboiMaxAttempts = 3
	// Backoff after a Cloudflare block vs. any other failure.
	syoboiBlockBackoff = 10 * time.Second
	syoboiRetryBackoff = 2 * time.Second
)

// titleLookupResponse mirrors the TitleLookup XML envelope.
type titleLookupResponse struct {
	XMLName    xml.Name `xml:"TitleLookupResponse"`
	TitleItems struct {
		Items []struct {
			TID     string `xml:"TID"`
			Title   string `xml:"Title"`
			Comment string `xml:"Comment"`
		} `xml:"TitleItem"`
	} `xml:"TitleItems"`
}

// SyoboiService implements [ThemeProvider] by scraping Syoboi Calendar.
//
// Successful lookups are cached for the process lifetime; the comment text
// for a given TID is effectively immutable, so the cache is never evicted.
type SyoboiService struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger

	mu    sync.Mutex
	cache map[string]string

	attempts     int
	blockBackoff time.Duration
	retryBackoff time.Duration
}

// NewSyoboiService creates a Syoboi client.
//
// baseURL defaults to the public host; client defaults to [http.DefaultClient].
func NewSyoboiService(baseURL string, client *http.Client, logger *log.Logger) *SyoboiService {
	if baseURL == "" {
		baseURL = syoboiBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SyoboiService{
		baseURL:      baseURL,
		httpClient:   client,
		logger:       logger,
		cache:        make(map[string]string),
		attempts:     syoboiMaxAttempts,
		blockBackoff: syoboiBlockBackoff,
		retryBackoff: syoboiRetryBackoff,
	}
}

// SetBackoffs overrides the retry waits, used to keep tests fast.
func (s *SyoboiService) SetBackoffs(block, retry time.Duration) {
	s.blockBackoff = block
	s.retryBackoff = retry
}

// CachedComment returns the cached comment for tid, if present.
func (s *SyoboiService) CachedComment(tid string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.cache[tid]
	return comment, ok
}

func (s *SyoboiService) storeComment(tid, comment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[tid] = comment
}

// errBlocked marks a Cloudflare challenge or other HTML answer in place of XML.
var errBlocked = fmt.Errorf("rate limited or access denied by upstream")

// isBlockedBody reports whether the response body looks like an HTML
// challenge page rather than the expected XML document.
func isBlockedBody(body string) bool {
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(strings.ToLower(trimmed), "<!doctype html") {
		return true
	}
	return strings.Contains(body, "Cloudflare")
}

var (
	reControlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
	reEscapedRef   = regexp.MustCompile(`&amp;(#?[0-9A-Za-z]+;)`)
)

// sanitizeXML repairs the malformed markup Syoboi is known to emit: a
// leading byte-order mark, raw control characters, and bare ampersands.
func sanitizeXML(body string) string {
	body = strings.TrimPrefix(body, "\uFEFF")
	body = reControlChars.ReplaceAllString(body, "")
	// Escape every ampersand, then restore the ones that were already
	// part of a character reference. RE2 has no lookahead, so fixing
	// bare ampersands directly is not expressible as one pattern.
	body = strings.ReplaceAll(body, "&", "&amp;")
	body = reEscapedRef.ReplaceAllString(body, "&$1;")
	return body
}

// fetchComment performs one TitleLookup request and extracts the comment field.
func (s *SyoboiService) fetchComment(ctx context.Context, tid string) (string, error) {
	lookupURL := fmt.Sprintf("%s/db.php?Command=TitleLookup&TID=%s", s.baseURL, tid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", syoboiUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	body := string(raw)
	if isBlockedBody(body) {
		return "", errBlocked
	}

	var lookup titleLookupResponse
	if err := xml.Unmarshal([]byte(sanitizeXML(body)), &lookup); err != nil {
		return "", fmt.Errorf("failed to parse title lookup: %w", err)
	}

	if len(lookup.TitleItems.Items) == 0 {
		return "", nil
	}
	return strings.TrimSpace(lookup.TitleItems.Items[0].Comment), nil
}

// Comment returns the raw theme-song comment for tid, fetching and caching
// it on first use. Exhausting all attempts returns an error; callers that
// must not fail treat it as absence.
func (s *SyoboiService) Comment(ctx context.Context, tid string) (string, error) {
	if comment, ok := s.CachedComment(tid); ok {
		return comment, nil
	}

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		comment, err := s.fetchComment(ctx, tid)
		if err == nil {
			s.storeComment(tid, comment)
			return comment, nil
		}

		lastErr = err
		wait := s.retryBackoff
		if err == errBlocked {
			wait = s.blockBackoff
		}
		s.logger.Warn("syoboi lookup failed", "tid", tid, "attempt", attempt, "error", err, "wait", wait)

		if attempt < s.attempts {
			if err := sleep(ctx, wait); err != nil {
				return "", err
			}
		}
	}

	return "", fmt.Errorf("syoboi lookup exhausted retries for TID %s: %w", tid, lastErr)
}

// Themes looks up and parses the theme songs for tid.
//
// A lookup that fails after retries yields an empty set: missing enrichment
// data must never abort an import run.
func (s *SyoboiService) Themes(ctx context.Context, tid string) (*models.ThemeSet, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	comment, err := s.Comment(ctx, tid)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("no theme data", "tid", tid, "error", err)
		return &models.ThemeSet{}, nil
	}

	return ExtractThemes(comment), nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ ThemeProvider = (*SyoboiService)(nil)
