// package formatter provides functions to export imported works and theme songs to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/ymgch/anisync/internal/repositories"
	"github.com/ymgch/anisync/internal/shared"
)

func themeTypeLabel(t string) string {
	switch t {
	case "op":
		return "OP"
	case "ed":
		return "ED"
	default:
		return t
	}
}

// ExportToCSV converts works and their theme songs to CSV format with one
// row per theme song: Work, Type, Title, Artist, Episodes, SpotifyURL
func ExportToCSV(works []repositories.WorkRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Work", "Type", "Title", "Artist", "Episodes", "SpotifyURL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, work := range works {
		for _, song := range work.Themes {
			record := []string{
				work.Title,
				themeTypeLabel(string(song.Type)),
				song.Title,
				song.Artist,
				song.Episode,
				song.SpotifyURL,
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts works and their theme songs to Markdown format
func ExportToMarkdown(works []repositories.WorkRow) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Imported Works\n\n")
	buf.WriteString(fmt.Sprintf("**Works**: %d\n\n", len(works)))

	for _, work := range works {
		buf.WriteString(fmt.Sprintf("## %s\n\n", work.Title))

		if work.Media != "" {
			buf.WriteString(fmt.Sprintf("**Media**: %s\n", work.Media))
		}
		if work.SeasonNameText != "" {
			buf.WriteString(fmt.Sprintf("**Season**: %s\n", work.SeasonNameText))
		}
		if work.EpisodesCount > 0 {
			buf.WriteString(fmt.Sprintf("**Episodes**: %d\n", work.EpisodesCount))
		}
		buf.WriteString("\n")

		if len(work.Themes) == 0 {
			buf.WriteString("_No theme songs found._\n\n")
			continue
		}

		for i, song := range work.Themes {
			line := fmt.Sprintf("%d. [%s] %s", i+1, themeTypeLabel(string(song.Type)), song.Title)
			if song.Artist != "" {
				line += " - " + song.Artist
			}
			if song.SpotifyURL != "" {
				line += fmt.Sprintf(" ([Spotify](%s))", song.SpotifyURL)
			}
			buf.WriteString(line + "\n")
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts works and their theme songs to plain text format
func ExportToText(works []repositories.WorkRow) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Works: %d\n\n", len(works)))

	for _, work := range works {
		buf.WriteString(work.Title + "\n")
		for _, song := range work.Themes {
			buf.WriteString(fmt.Sprintf("  [%s] %s", themeTypeLabel(string(song.Type)), song.Title))
			if song.Artist != "" {
				buf.WriteString(" - " + song.Artist)
			}
			if song.SpotifyURL != "" {
				buf.WriteString("  " + song.SpotifyURL)
			}
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ToWorksJSON generates a pretty-printed JSON representation of the works
func ToWorksJSON(works []repositories.WorkRow) ([]byte, error) {
	return shared.MarshalJSON(works, true)
}

// ExportResult contains the paths of files created by WriteExport
type ExportResult struct {
	ThemesFile   string
	MetadataFile string
}

// WriteExport writes the theme songs as CSV with an accompanying metadata
// JSON file, creating {base}_themes.csv and {base}_works.json.
func WriteExport(works []repositories.WorkRow, baseFilepath string) (*ExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = "anisync_export"
	}

	csvData, err := ExportToCSV(works)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	themesFile := baseFilepath + "_themes.csv"
	if err := os.WriteFile(themesFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	jsonData, err := ToWorksJSON(works)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_works.json"
	if err := os.WriteFile(metadataFile, jsonData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &ExportResult{
		ThemesFile:   themesFile,
		MetadataFile: metadataFile,
	}, nil
}

// CountResolved returns how many theme songs across the works carry a
// catalog URL, and the total number of songs.
func CountResolved(works []repositories.WorkRow) (resolved, total int) {
	for _, work := range works {
		for _, song := range work.Themes {
			total++
			if song.SpotifyURL != "" {
				resolved++
			}
		}
	}
	return resolved, total
}
