// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/ymgch/anisync/internal/models"
)

// MockSource is a test double for [services.Source]
type MockSource struct {
	User  *models.User
	Works []models.Work
	Err   error
}

func (m *MockSource) Me(ctx context.Context) (*models.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.User != nil {
		return m.User, nil
	}
	return &models.User{ID: 1, Username: "tester", Name: "Tester"}, nil
}

func (m *MockSource) Library(ctx context.Context, statuses []string) ([]models.Work, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Works, nil
}

// MockThemeProvider is a test double for [services.ThemeProvider]
type MockThemeProvider struct {
	Sets map[string]*models.ThemeSet
	Err  error
}

func (m *MockThemeProvider) Themes(ctx context.Context, tid string) (*models.ThemeSet, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if set, ok := m.Sets[tid]; ok {
		return set, nil
	}
	return &models.ThemeSet{}, nil
}

// MockResolver is a test double for [services.TrackResolver]
type MockResolver struct {
	URLs    map[string]string
	AuthErr error
	Err     error
	Calls   int
}

func (m *MockResolver) Authenticate(ctx context.Context) error {
	return m.AuthErr
}

func (m *MockResolver) Resolve(ctx context.Context, animeTitle string, song models.ThemeSong) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.URLs[song.Title], nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// SequenceRoundTripper returns queued responses in order, repeating the
// last one once the queue is exhausted.
type SequenceRoundTripper struct {
	responses []*http.Response
	calls     int
}

func NewSequenceRoundTripper(responses ...*http.Response) *SequenceRoundTripper {
	return &SequenceRoundTripper{responses: responses}
}

func (s *SequenceRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return s.responses[i], nil
}

func (s *SequenceRoundTripper) Calls() int { return s.calls }

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}
