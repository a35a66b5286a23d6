// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orphan

import (
	"testing"

	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/media"
)

func TestScoreExactMatch(t *testing.T) {
	conf, strategy, ok := score("Movie.Title.2020", "Movie.Title.2020")
	if !ok || conf != 1.00 || strategy != "exact" {
		t.Errorf("score() = %v,%v,%v want 1.00,exact,true", conf, strategy, ok)
	}
}

func TestScoreCaseInsensitiveMatch(t *testing.T) {
	conf, strategy, ok := score("Movie.Title", "movie.title")
	if !ok || conf != 0.95 || strategy != "case-insensitive" {
		t.Errorf("score() = %v,%v,%v want 0.95,case-insensitive,true", conf, strategy, ok)
	}
}

func TestScoreNormalizedMatch(t *testing.T) {
	conf, strategy, ok := score("Movie_Title-2020", "movie title 2020")
	if !ok || conf != 0.85 || strategy != "normalized" {
		t.Errorf("score() = %v,%v,%v want 0.85,normalized,true", conf, strategy, ok)
	}
}

func TestScoreUnrelatedStemsFail(t *testing.T) {
	_, _, ok := score("CompletelyDifferentFile", "xyz")
	if ok {
		t.Error("score() matched unrelated stems, want no match")
	}
}

func TestNormalizeStemCollapsesSeparatorsAndPunctuation(t *testing.T) {
	got := normalizeStem("The.Movie_Title--2020!!")
	want := "the movie title 2020"
	if got != want {
		t.Errorf("normalizeStem() = %q, want %q", got, want)
	}
}

func TestLongestCommonSubstring(t *testing.T) {
	cases := []struct{ a, b string; want int }{
		{"abcdef", "zzabcdzz", 4},
		{"abc", "xyz", 0},
		{"", "abc", 0},
		{"same", "same", 4},
	}
	for _, c := range cases {
		if got := longestCommonSubstring(c.a, c.b); got != c.want {
			t.Errorf("longestCommonSubstring(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestRankReturnsBestCandidateAboveFloor(t *testing.T) {
	entry := Entry{Stem: "My.Show.S01E01", Kind: artifact.KindThumbnail}
	candidates := []media.File{
		{RelPath: "shows/Completely.Unrelated.mp4"},
		{RelPath: "shows/my.show.s01e01.mp4"},
	}

	sug, ok := Rank(entry, candidates, 0.60)
	if !ok {
		t.Fatal("Rank() found no suggestion above floor")
	}
	if sug.TargetRelPath != "shows/my.show.s01e01.mp4" || sug.Strategy != "case-insensitive" {
		t.Errorf("Rank() = %+v, want case-insensitive match on shows/my.show.s01e01.mp4", sug)
	}
}

func TestRankReturnsFalseWhenNothingClearsFloor(t *testing.T) {
	entry := Entry{Stem: "Orphaned.File", Kind: artifact.KindThumbnail}
	candidates := []media.File{{RelPath: "shows/totally-different.mp4"}}

	if _, ok := Rank(entry, candidates, 0.60); ok {
		t.Error("Rank() found a suggestion, want none above floor")
	}
}
