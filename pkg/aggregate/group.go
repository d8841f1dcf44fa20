package aggregate

// GroupBy buckets items by key, keeping first-seen key order.
func GroupBy[T any, K comparable](items []T, key func(T) K) ([]K, map[K][]T) {
	order := make([]K, 0)
	groups := make(map[K][]T)
	for _, item := range items {
		k := key(item)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], item)
	}
	return order, groups
}

// SumBy totals value per key.
func SumBy[T any, K comparable](items []T, key func(T) K, value func(T) float64) map[K]float64 {
	sums := make(map[K]float64)
	for _, item := range items {
		sums[key(item)] += value(item)
	}
	return sums
}

// CountBy tallies items per key.
func CountBy[T any, K comparable](items []T, key func(T) K) map[K]int {
	counts := make(map[K]int)
	for _, item := range items {
		counts[key(item)]++
	}
	return counts
}

// Sum totals value over items.
func Sum[T any](items []T, value func(T) float64) float64 {
	var total float64
	for _, item := range items {
		total += value(item)
	}
	return total
}
