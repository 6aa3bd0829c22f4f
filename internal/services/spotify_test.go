package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ymgch/anisync/internal/models"
	"github.com/ymgch/anisync/internal/shared"
)

func spotifyAuthHandler(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"access_token": "test_access_token",
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func spotifySearchBody(tracks ...SpotifyTrack) []byte {
	body, _ := json.Marshal(searchResponse{Tracks: struct {
		Items []SpotifyTrack `json:"items"`
	}{Items: tracks}})
	return body
}

func newSpotifyTestService(t *testing.T, search http.HandlerFunc) *SpotifyService {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		spotifyAuthHandler(w)
	})
	mux.HandleFunc("/v1/search", search)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	svc, err := NewSpotifyService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
		"token_url":     server.URL + "/api/token",
		"base_url":      server.URL,
	}, nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	svc.SetHTTPClient(server.Client())
	svc.SetRateLimitWait(time.Millisecond)

	if err := svc.Authenticate(context.Background()); err != nil {
		t.Fatalf("authentication failed: %v", err)
	}
	return svc
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "x"}, nil)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "x"}, nil)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("SearchTracks", func(t *testing.T) {
		t.Run("Sends Locale And Token", func(t *testing.T) {
			svc := newSpotifyTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Accept-Language"); got != "ja" {
					t.Errorf("expected ja locale header, got %q", got)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer test_access_token" {
					t.Errorf("unexpected auth header %q", got)
				}
				if got := r.URL.Query().Get("limit"); got != "5" {
					t.Errorf("expected limit 5, got %q", got)
				}
				w.Write(spotifySearchBody(SpotifyTrack{ID: "t1", Name: "song"}))
			})

			tracks, err := svc.SearchTracks(context.Background(), `"song"`, 5)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 1 || tracks[0].ID != "t1" {
				t.Errorf("unexpected tracks %+v", tracks)
			}
		})

		t.Run("Retries Rate Limit", func(t *testing.T) {
			var calls int
			svc := newSpotifyTestService(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				if calls == 1 {
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				w.Write(spotifySearchBody(SpotifyTrack{ID: "t1", Name: "song"}))
			})

			tracks, err := svc.SearchTracks(context.Background(), "song", 5)
			if err != nil {
				t.Fatalf("expected recovery after 429, got %v", err)
			}
			if calls != 2 {
				t.Errorf("expected 2 attempts, got %d", calls)
			}
			if len(tracks) != 1 {
				t.Errorf("expected 1 track, got %d", len(tracks))
			}
		})

		t.Run("Sustained Rate Limit Fails", func(t *testing.T) {
			var calls int
			svc := newSpotifyTestService(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(http.StatusTooManyRequests)
			})

			_, err := svc.SearchTracks(context.Background(), "song", 5)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
			if calls != maxRateLimitAttempts {
				t.Errorf("expected %d attempts, got %d", maxRateLimitAttempts, calls)
			}
		})

		t.Run("Without Authentication", func(t *testing.T) {
			svc, err := NewSpotifyService(map[string]string{
				"client_id": "x", "client_secret": "y",
			}, nil)
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			_, err = svc.SearchTracks(context.Background(), "song", 5)
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("Resolve", func(t *testing.T) {
		song := models.ThemeSong{Type: models.ThemeOpening, Title: "unravel", Artist: "TK from 凛として時雨"}

		t.Run("Close Match Returns URL", func(t *testing.T) {
			svc := newSpotifyTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write(spotifySearchBody(
					SpotifyTrack{
						ID:           "good",
						Name:         "unravel",
						Artists:      []SpotifyArtist{{Name: "TK from 凛として時雨"}},
						ExternalURLs: externalURLs{Spotify: "https://open.spotify.com/track/good"},
					},
					SpotifyTrack{
						ID:      "bad",
						Name:    "completely different track",
						Artists: []SpotifyArtist{{Name: "somebody else"}},
					},
				))
			})

			url, err := svc.Resolve(context.Background(), "東京喰種", song)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if url != "https://open.spotify.com/track/good" {
				t.Errorf("unexpected match URL %q", url)
			}
		})

		t.Run("No Candidate Clears Threshold", func(t *testing.T) {
			svc := newSpotifyTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write(spotifySearchBody(SpotifyTrack{
					ID:      "bad",
					Name:    "totally unrelated melody",
					Artists: []SpotifyArtist{{Name: "nobody"}},
				}))
			})

			url, err := svc.Resolve(context.Background(), "東京喰種", song)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if url != "" {
				t.Errorf("expected miss, got %q", url)
			}
		})

		t.Run("Empty Title Skips Search", func(t *testing.T) {
			svc := newSpotifyTestService(t, func(w http.ResponseWriter, r *http.Request) {
				t.Error("search must not be called for an empty title")
			})

			url, err := svc.Resolve(context.Background(), "anime", models.ThemeSong{Title: "   "})
			if err != nil || url != "" {
				t.Errorf("expected silent skip, got %q, %v", url, err)
			}
		})

		t.Run("Search Failure Is A Miss", func(t *testing.T) {
			svc := newSpotifyTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			})

			url, err := svc.Resolve(context.Background(), "anime", song)
			if err != nil {
				t.Fatalf("search failure must not surface, got %v", err)
			}
			if url != "" {
				t.Errorf("expected miss, got %q", url)
			}
		})

		t.Run("Long Credit Uses Title Only", func(t *testing.T) {
			castDump := strings.Repeat("あ", 151)
			svc := newSpotifyTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if q := r.URL.Query().Get("q"); strings.Contains(q, "artist:") {
					t.Errorf("cast-dump credit must not reach the query: %q", q)
				}
				w.Write(spotifySearchBody(SpotifyTrack{
					ID:           "t1",
					Name:         "unravel",
					Artists:      []SpotifyArtist{{Name: "various cast members"}},
					ExternalURLs: externalURLs{Spotify: "https://open.spotify.com/track/t1"},
				}))
			})

			url, err := svc.Resolve(context.Background(), "東京喰種 トーキョーグール", models.ThemeSong{
				Title: "unravel", Artist: castDump,
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if url == "" {
				t.Error("title-only scoring should accept the exact title match")
			}
		})
	})
}

func TestStripParentheticals(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"unravel (TV edit)", "unravel"},
		{"シグナル", "シグナル"},
		{"title (a) middle (b)", "title middle"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := StripParentheticals(tc.in); got != tc.want {
			t.Errorf("StripParentheticals(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleanArtistName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"Plain Name", "LiSA", "LiSA"},
		{"Empty", "", ""},
		{"Voice Actor Annotation", "キャラ名(CV:声優名)", "キャラ名"},
		{"Fullwidth Voice Actor Annotation", "キャラ名（CV:声優名）", "キャラ名"},
		{"Short Parenthetical Kept", "TK (from 凛として時雨)", "TK (from 凛として時雨)"},
		{"Long Parenthetical Dropped", "ユニット名(" + strings.Repeat("x", 51) + ")", "ユニット名"},
		{"Separators Become Spaces", "歌：誰か", "歌 誰か"},
		{"Ideographic Comma", "A、B、C", "A,B,C"},
		{"Collapses Whitespace", "A   B\tC", "A B C"},
		{"Trailing Comma Trimmed", "A, B, ", "A, B"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanArtistName(tc.in); got != tc.want {
				t.Errorf("CleanArtistName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	t.Run("Title And Artist", func(t *testing.T) {
		got := BuildSearchQuery("unravel", "TK", "東京喰種")
		want := `"unravel" artist:"TK"`
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("Title Only", func(t *testing.T) {
		got := BuildSearchQuery("unravel", "", "東京喰種")
		if got != `"unravel"` {
			t.Errorf("got %q", got)
		}
	})

	t.Run("Cast Dump Falls Back To Anime Title Tokens", func(t *testing.T) {
		long := strings.Repeat("あ", 151)
		got := BuildSearchQuery("unravel", long, "Tokyo Ghoul Root A")
		want := `"unravel" Tokyo Ghoul`
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("Boundary At150 Runes", func(t *testing.T) {
		exactly := strings.Repeat("あ", 150)
		got := BuildSearchQuery("song", exactly, "Anime")
		if !strings.Contains(got, "artist:") {
			t.Errorf("150-rune credit must still be used as artist, got %q", got)
		}
	})

	t.Run("Unusable Title", func(t *testing.T) {
		if got := BuildSearchQuery("(instrumental)", "X", "Anime"); got != "" {
			t.Errorf("expected empty query, got %q", got)
		}
	})

	t.Run("Embedded Quotes Pass Through", func(t *testing.T) {
		got := BuildSearchQuery(`Q"uote`, "TK", "Anime")
		want := `"Q"uote" artist:"TK"`
		if got != want {
			t.Errorf("embedded quotes must not be escaped: got %q, want %q", got, want)
		}
	})
}
