package aggregate

import (
	"sort"
	"strconv"
)

// Ranked pairs an item with its score and competition rank. Rank is nil for unranked items.
type Ranked[T any] struct {
	Item  T
	Score float64
	Rank  *int
}

// CompetitionRank sorts items by score descending (stable) and assigns
// standard competition ranks: ties share a rank, the next distinct score takes its
// 1-based position. Items scoring exactly 0 are left unranked.
func CompetitionRank[T any](items []T, score func(T) float64) []Ranked[T] {
	out := make([]Ranked[T], len(items))
	for i, item := range items {
		out[i] = Ranked[T]{Item: item, Score: score(item)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	rank := 0
	for i := range out {
		if out[i].Score == 0 {
			continue
		}
		if i == 0 || out[i].Score != out[i-1].Score {
			rank = i + 1
		}
		r := rank
		out[i].Rank = &r
	}
	return out
}

// RankLabel renders a rank for reports, "-" when unranked.
func RankLabel(rank *int) string {
	if rank == nil {
		return "-"
	}
	return strconv.Itoa(*rank)
}
