// Package benchmark contains Go benchmarks for the index builder, posting
// operations, and the search engine, measuring throughput and allocation
// behaviour.
package benchmark

import (
	"fmt"
	"testing"

	"github.com/browniellc/emojitools/internal/emoji"
	"github.com/browniellc/emojitools/internal/index"
	"github.com/browniellc/emojitools/internal/stats"
)

var nameWords = []string{
	"red", "heart", "fire", "rocket", "smiling", "face", "broken", "star",
	"waving", "hand", "crystal", "ball", "party", "popper", "sparkles",
	"thumbs", "up", "rolling", "laughing", "cat",
}

var categories = []string{
	"Smileys & Emotion", "People & Body", "Animals & Nature",
	"Food & Drink", "Travel & Places", "Activities", "Objects",
	"Symbols", "Flags",
}

// genRecords produces a synthetic dataset of n records with realistic name
// and keyword shapes.
func genRecords(n int) []emoji.Record {
	records := make([]emoji.Record, n)
	for i := range records {
		records[i] = emoji.Record{
			Character: fmt.Sprintf("e%d", i),
			Name:      fmt.Sprintf("%s %s", nameWords[i%len(nameWords)], nameWords[(i+3)%len(nameWords)]),
			Category:  categories[i%len(categories)],
			Keywords: []string{
				nameWords[(i+5)%len(nameWords)],
				nameWords[(i+7)%len(nameWords)],
			},
		}
	}
	return records
}

// BenchmarkIndexBuild measures full index construction at various dataset
// sizes.
func BenchmarkIndexBuild(b *testing.B) {
	sizes := []int{100, 1000, 5000}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("records_%d", size), func(b *testing.B) {
			snap := emoji.NewSnapshot(1, genRecords(size))
			builder := index.NewBuilder(stats.NewCollector(nil))

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				idx := builder.Build(snap)
				_ = idx
			}
		})
	}
}

// BenchmarkLookupToken measures single-token lookup latency over 10 000
// records.
func BenchmarkLookupToken(b *testing.B) {
	snap := emoji.NewSnapshot(1, genRecords(10000))
	idx := index.NewBuilder(stats.NewCollector(nil)).Build(snap)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ids := idx.LookupToken("heart")
		_ = ids
	}
}

// BenchmarkLookupTokenParallel measures concurrent read throughput against
// a built index.
func BenchmarkLookupTokenParallel(b *testing.B) {
	snap := emoji.NewSnapshot(1, genRecords(10000))
	idx := index.NewBuilder(stats.NewCollector(nil)).Build(snap)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			ids := idx.LookupToken("fire")
			_ = ids
		}
	})
}

// BenchmarkIntersect measures posting-list intersection at various list
// sizes.
func BenchmarkIntersect(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("ids_%d", size), func(b *testing.B) {
			a := make([]emoji.ID, size)
			c := make([]emoji.ID, size)
			for i := 0; i < size; i++ {
				a[i] = emoji.ID(i)
				c[i] = emoji.ID(i * 2)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ids := index.Intersect(a, c)
				_ = ids
			}
		})
	}
}

// BenchmarkUnion measures posting-list union at various list sizes.
func BenchmarkUnion(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("ids_%d", size), func(b *testing.B) {
			a := make([]emoji.ID, size)
			c := make([]emoji.ID, size)
			for i := 0; i < size; i++ {
				a[i] = emoji.ID(i)
				c[i] = emoji.ID(i + size/2)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ids := index.Union(a, c)
				_ = ids
			}
		})
	}
}

// BenchmarkLookupCategory measures category lookup over a large dataset.
func BenchmarkLookupCategory(b *testing.B) {
	snap := emoji.NewSnapshot(1, genRecords(10000))
	idx := index.NewBuilder(stats.NewCollector(nil)).Build(snap)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ids := idx.LookupCategory("Smileys & Emotion")
		_ = ids
	}
}
