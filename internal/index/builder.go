package index

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/browniellc/emojitools/internal/emoji"
	"github.com/browniellc/emojitools/internal/stats"
)

// Builder constructs Indices from dataset snapshots. Build is deterministic:
// the same snapshot always yields the same indices, with no dependency on
// any previous build.
type Builder struct {
	stats  *stats.Collector
	logger *slog.Logger
}

func NewBuilder(collector *stats.Collector) *Builder {
	return &Builder{
		stats:  collector,
		logger: slog.Default().With("component", "index-builder"),
	}
}

// Build indexes every well-formed record in the snapshot. A record with an
// empty character or name is skipped with a data-quality warning; the rest
// of the build proceeds.
func (b *Builder) Build(snap *emoji.Snapshot) *Indices {
	ix := &Indices{
		Version:   snap.Version,
		Name:      make(map[string][]emoji.ID),
		Keyword:   make(map[string][]emoji.ID),
		Category:  make(map[string][]emoji.ID),
		Character: make(map[string][]emoji.ID),
	}

	seenCategories := make(map[string]string)

	for i := range snap.Records {
		rec := &snap.Records[i]
		if rec.Character == "" || rec.Name == "" {
			b.stats.RecordSkipped()
			b.logger.Warn("skipping malformed record",
				"id", rec.ID,
				"character", rec.Character,
				"name", rec.Name,
			)
			continue
		}

		for _, tok := range Tokenize(rec.Name) {
			ix.Name[tok] = append(ix.Name[tok], rec.ID)
		}
		for _, kw := range rec.Keywords {
			for _, tok := range Tokenize(kw) {
				ix.Keyword[tok] = append(ix.Keyword[tok], rec.ID)
			}
		}
		if rec.Category != "" {
			key := normalizeCategory(rec.Category)
			ix.Category[key] = append(ix.Category[key], rec.ID)
			if _, ok := seenCategories[key]; !ok {
				seenCategories[key] = rec.Category
			}
		}
		ix.Character[rec.Character] = append(ix.Character[rec.Character], rec.ID)
	}

	for tok, ids := range ix.Name {
		ix.Name[tok] = sortDedup(ids)
	}
	for tok, ids := range ix.Keyword {
		ix.Keyword[tok] = sortDedup(ids)
	}
	for key, ids := range ix.Category {
		ix.Category[key] = sortDedup(ids)
	}
	for ch, ids := range ix.Character {
		ix.Character[ch] = sortDedup(ids)
	}

	ix.CategoryNames = make([]string, 0, len(seenCategories))
	for _, name := range seenCategories {
		ix.CategoryNames = append(ix.CategoryNames, name)
	}
	sort.Strings(ix.CategoryNames)

	b.stats.IndexBuild()
	b.logger.Debug("indices built",
		"version", ix.Version,
		"name_tokens", len(ix.Name),
		"keyword_tokens", len(ix.Keyword),
		"categories", len(ix.Category),
		"characters", len(ix.Character),
	)
	return ix
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
