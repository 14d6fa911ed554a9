package domain

import (
	"cmp"
	"math"
	"net/url"
	"slices"
	"strings"
	"unicode"
)

const (
	// Scoring weights
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0

	// Position bonus (earlier is better)
	ScorePositionBonus = 10.0

	// Whole-title match, ex: "github" for "GitHub"
	ScoreExactTitleBonus = 200.0

	// Visits break ties between similar matches
	ScoreVisitWeight = 0.1
)

// Ranked is a bookmark with its match score.
type Ranked struct {
	Bookmark Bookmark
	Score    float64
}

// ScoreBookmark rates how well query names b. The title is matched as a
// whole and word by word, then the URL host is matched fragment by
// fragment ("gh" finds github.com, "prod" finds app.prod.example.com).
// Zero means no match.
func ScoreBookmark(query string, b Bookmark) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	title := strings.ToLower(strings.TrimSpace(b.Body))

	var best float64
	if title != "" && normalizeFragment(q) == normalizeFragment(title) {
		best = ScoreExactMatch + ScoreExactTitleBonus
	}

	words := strings.Fields(q)
	best = max(best, scoreFragments(words, strings.Fields(title)))
	best = max(best, scoreFragments(words, hostFragments(b.URL)))

	if best == 0 {
		return 0
	}
	return best + ScoreVisitWeight*math.Log1p(float64(max(b.Visits, 0)))
}

// scoreFragments averages the best match of every query word against the
// target fragments. All words must match somewhere.
func scoreFragments(words, targets []string) float64 {
	if len(words) == 0 || len(targets) == 0 {
		return 0
	}
	var total float64
	for _, w := range words {
		var best float64
		for i, t := range targets {
			best = max(best, scoreFragment(w, t, i))
		}
		if best == 0 {
			return 0
		}
		total += best
	}
	return total / float64(len(words))
}

func scoreFragment(queryFrag, frag string, position int) float64 {
	queryFrag = normalizeFragment(queryFrag)
	frag = normalizeFragment(frag)
	if queryFrag == "" || frag == "" {
		return 0
	}

	switch {
	case queryFrag == frag:
		return ScoreExactMatch + positionBonus(position)
	case strings.HasPrefix(frag, queryFrag):
		return ScorePrefixMatch + positionBonus(position)
	case strings.Contains(frag, queryFrag):
		index := strings.Index(frag, queryFrag)
		return ScoreSubstringMatch + ScorePositionBonus*(1.0-float64(index)/float64(len(frag)))
	}

	if similarity := similarity(queryFrag, frag); similarity > 0.5 {
		return ScoreFuzzyMatch * similarity
	}
	return 0
}

func positionBonus(position int) float64 {
	return ScorePositionBonus * math.Exp(-float64(position)*0.3)
}

// similarity is the share of query characters found in s.
func similarity(query, s string) float64 {
	if query == "" || s == "" {
		return 0
	}
	matches := 0
	for _, c := range query {
		if strings.ContainsRune(s, c) {
			matches++
		}
	}
	return float64(matches) / float64(len([]rune(query)))
}

// hostFragments splits the URL host on dots and drops a leading "www".
// Example: "https://www.app.prod.example.com/x" -> ["app", "prod", "example", "com"]
func hostFragments(raw string) []string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return nil
	}
	frags := strings.Split(strings.ToLower(u.Hostname()), ".")
	if len(frags) > 1 && frags[0] == "www" {
		frags = frags[1:]
	}
	return frags
}

func normalizeFragment(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}

// RankBookmarks returns the bookmarks matching query, best first.
func RankBookmarks(bookmarks []Bookmark, query string) []Ranked {
	out := make([]Ranked, 0, len(bookmarks))
	for _, b := range bookmarks {
		if score := ScoreBookmark(query, b); score > 0 {
			out = append(out, Ranked{Bookmark: b, Score: score})
		}
	}
	slices.SortStableFunc(out, func(a, b Ranked) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}

// BestMatch returns the highest ranked bookmark for query.
func BestMatch(bookmarks []Bookmark, query string) (Bookmark, bool) {
	ranked := RankBookmarks(bookmarks, query)
	if len(ranked) == 0 {
		return Bookmark{}, false
	}
	return ranked[0].Bookmark, true
}
