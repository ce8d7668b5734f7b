// Package index builds and serves the four inverted indices over the emoji
// dataset: name tokens, keyword tokens, categories, and literal characters.
// Indices are immutable once built; a dataset reload produces a fresh set.
package index

import (
	"sort"

	"github.com/browniellc/emojitools/internal/emoji"
)

// Indices is one immutable generation of all four inverted indices, tagged
// with the snapshot version it was built from. ID slices are sorted and
// deduplicated; callers must not modify them.
type Indices struct {
	Version uint64

	Name      map[string][]emoji.ID
	Keyword   map[string][]emoji.ID
	Category  map[string][]emoji.ID
	Character map[string][]emoji.ID

	// CategoryNames preserves the original casing of each category,
	// sorted, for display surfaces.
	CategoryNames []string
}

// LookupToken returns the union of name-index and keyword-index postings for
// a single token.
func (ix *Indices) LookupToken(token string) []emoji.ID {
	return Union(ix.Name[token], ix.Keyword[token])
}

// LookupCategory returns the ids filed under a category. The lookup is
// case-insensitive.
func (ix *Indices) LookupCategory(category string) []emoji.ID {
	return ix.Category[normalizeCategory(category)]
}

// LookupCharacter returns the ids for a literal emoji character.
func (ix *Indices) LookupCharacter(character string) []emoji.ID {
	return ix.Character[character]
}

// Union merges two sorted id slices, dropping duplicates.
func Union(a, b []emoji.ID) []emoji.ID {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]emoji.ID, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// Intersect returns the ids present in both sorted slices.
func Intersect(a, b []emoji.ID) []emoji.ID {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	out := make([]emoji.ID, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// sortDedup sorts ids in place and removes duplicates.
func sortDedup(ids []emoji.ID) []emoji.ID {
	if len(ids) < 2 {
		return ids
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	w := 1
	for r := 1; r < len(ids); r++ {
		if ids[r] != ids[r-1] {
			ids[w] = ids[r]
			w++
		}
	}
	return ids[:w]
}
