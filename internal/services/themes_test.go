package services

import (
	"reflect"
	"testing"

	"github.com/ymgch/anisync/internal/models"
)

func TestExtractThemes(t *testing.T) {
	t.Run("Single Opening With Artist", func(t *testing.T) {
		comment := "*オープニングテーマ「unravel」\n:歌:TK from 凛として時雨"

		set := ExtractThemes(comment)
		if len(set.Openings) != 1 {
			t.Fatalf("expected 1 opening, got %d", len(set.Openings))
		}

		want := models.ThemeSong{Type: models.ThemeOpening, Title: "unravel", Artist: "TK from 凛として時雨"}
		if !reflect.DeepEqual(set.Openings[0], want) {
			t.Errorf("got %+v, want %+v", set.Openings[0], want)
		}
	})

	t.Run("Numbered Headers", func(t *testing.T) {
		comment := "*オープニングテーマ1「first」\n:歌:A\n*オープニングテーマ2「second」\n:歌:B"

		set := ExtractThemes(comment)
		if len(set.Openings) != 2 {
			t.Fatalf("expected 2 openings, got %d", len(set.Openings))
		}
		if set.Openings[0].Title != "first" || set.Openings[1].Title != "second" {
			t.Errorf("unexpected titles %+v", set.Openings)
		}
		if set.Openings[1].Artist != "B" {
			t.Errorf("artist must attach to the nearest header, got %q", set.Openings[1].Artist)
		}
	})

	t.Run("All Three Theme Types", func(t *testing.T) {
		comment := `*オープニングテーマ「op曲」
:歌:歌手A
:使用話数:1-12
*エンディングテーマ「ed曲」
:歌:歌手B
*挿入歌「insert曲」
:歌:歌手C
:使用話数:7`

		set := ExtractThemes(comment)
		if set.Len() != 3 {
			t.Fatalf("expected 3 themes, got %d", set.Len())
		}
		if set.Openings[0].Episode != "1-12" {
			t.Errorf("expected episode range 1-12, got %q", set.Openings[0].Episode)
		}
		if set.Inserts[0].Episode != "7" {
			t.Errorf("expected insert episode 7, got %q", set.Inserts[0].Episode)
		}
	})

	t.Run("Fullwidth Artist Separator", func(t *testing.T) {
		set := ExtractThemes("*エンディングテーマ「曲名」\n:歌：アーティスト")
		if len(set.Endings) != 1 || set.Endings[0].Artist != "アーティスト" {
			t.Errorf("fullwidth colon credit not parsed: %+v", set.Endings)
		}
	})

	t.Run("Header Without Artist", func(t *testing.T) {
		set := ExtractThemes("*オープニングテーマ「孤独な曲」\n何か別の行")
		if len(set.Openings) != 1 {
			t.Fatalf("expected 1 opening, got %d", len(set.Openings))
		}
		if set.Openings[0].Artist != "" {
			t.Errorf("expected empty artist, got %q", set.Openings[0].Artist)
		}
	})

	t.Run("Windows Line Endings", func(t *testing.T) {
		set := ExtractThemes("*オープニングテーマ「曲」\r\n:歌:人")
		if len(set.Openings) != 1 || set.Openings[0].Artist != "人" {
			t.Errorf("CRLF input not handled: %+v", set.Openings)
		}
	})

	t.Run("Ignores Unrelated Markup", func(t *testing.T) {
		comment := `*スタッフ
:監督:誰か
*オープニングテーマ「本物」
:歌:本物の人
*リンク
-[[公式 http://example.com]]`

		set := ExtractThemes(comment)
		if set.Len() != 1 {
			t.Fatalf("expected exactly 1 theme, got %d", set.Len())
		}
		if set.Openings[0].Title != "本物" {
			t.Errorf("unexpected theme %+v", set.Openings[0])
		}
	})

	t.Run("Empty Comment", func(t *testing.T) {
		if set := ExtractThemes(""); set.Len() != 0 {
			t.Errorf("expected empty set, got %d", set.Len())
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		comment := "*オープニングテーマ「曲」\n:歌:人\n*エンディングテーマ「曲2」\n:歌:人2"
		first := ExtractThemes(comment)
		second := ExtractThemes(comment)
		if !reflect.DeepEqual(first, second) {
			t.Error("identical input must yield identical sets")
		}
	})
}
