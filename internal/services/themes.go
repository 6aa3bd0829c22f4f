package services

import (
	"regexp"
	"strings"

	"github.com/ymgch/anisync/internal/models"
)

// Theme header lines look like `*オープニングテーマ2「タイトル」`; the numeral
// is optional. Artist credits follow as `:歌:名前`, episode ranges as
// `:使用話数:1-12`.
var (
	reOpeningHeader = regexp.MustCompile(`^\*オープニングテーマ\d*「([^」]+)」`)
	reEndingHeader  = regexp.MustCompile(`^\*エンディングテーマ\d*「([^」]+)」`)
	reInsertHeader  = regexp.MustCompile(`^\*挿入歌「([^」]+)」`)
	reArtistMarker  = regexp.MustCompile(`^:歌[:：]?\s*`)
)

const episodeMarker = ":使用話数:"

// ExtractThemes parses a Syoboi comment body into structured theme songs.
//
// The scanner walks the comment line by line keeping one pending song: a
// header line flushes the previous song and starts a new one, an artist or
// episode marker fills in the pending song, and the song is also flushed
// when the next line is a new header or input ends. Pure function of its
// input; identical comments always yield identical sets.
func ExtractThemes(comment string) *models.ThemeSet {
	set := &models.ThemeSet{}

	lines := strings.Split(strings.ReplaceAll(comment, "\r\n", "\n"), "\n")

	var current models.ThemeSong
	pending := false

	flush := func() {
		if !pending || current.Title == "" {
			return
		}
		switch current.Type {
		case models.ThemeOpening:
			set.Openings = append(set.Openings, current)
		case models.ThemeEnding:
			set.Endings = append(set.Endings, current)
		case models.ThemeInsert:
			set.Inserts = append(set.Inserts, current)
		}
		current = models.ThemeSong{}
		pending = false
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		var themeType models.ThemeType
		var title string
		if m := reOpeningHeader.FindStringSubmatch(line); m != nil {
			themeType, title = models.ThemeOpening, m[1]
		} else if m := reEndingHeader.FindStringSubmatch(line); m != nil {
			themeType, title = models.ThemeEnding, m[1]
		} else if m := reInsertHeader.FindStringSubmatch(line); m != nil {
			themeType, title = models.ThemeInsert, m[1]
		}

		if title != "" {
			flush()
			current = models.ThemeSong{Type: themeType, Title: title}
			pending = true
			continue
		}

		if loc := reArtistMarker.FindString(line); loc != "" {
			current.Artist = strings.TrimSpace(strings.TrimPrefix(line, loc))
			continue
		}

		if strings.HasPrefix(line, episodeMarker) {
			current.Episode = strings.TrimSpace(strings.TrimPrefix(line, episodeMarker))
		}
	}
	flush()

	return set
}
