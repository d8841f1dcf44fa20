package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type student struct {
	name string
	avg  float64
}

func ranksOf(ranked []Ranked[student]) map[string]string {
	out := make(map[string]string, len(ranked))
	for _, r := range ranked {
		out[r.Item.name] = RankLabel(r.Rank)
	}
	return out
}

func TestCompetitionRankTiesShareRankAndLeaveGaps(t *testing.T) {
	students := []student{
		{"a", 80}, {"b", 92.5}, {"c", 85}, {"d", 85}, {"e", 85}, {"f", 70},
	}

	ranked := CompetitionRank(students, func(s student) float64 { return s.avg })
	ranks := ranksOf(ranked)

	assert.Equal(t, "1", ranks["b"])
	assert.Equal(t, "2", ranks["c"])
	assert.Equal(t, "2", ranks["d"])
	assert.Equal(t, "2", ranks["e"])
	// a tie group of size 3 starting at position 2 puts the next student at 2 + 3
	assert.Equal(t, "5", ranks["a"])
	assert.Equal(t, "6", ranks["f"])
}

func TestCompetitionRankKeepsInputOrderWithinTies(t *testing.T) {
	students := []student{{"x", 90}, {"y", 90}, {"z", 90}}
	ranked := CompetitionRank(students, func(s student) float64 { return s.avg })

	require.Len(t, ranked, 3)
	assert.Equal(t, "x", ranked[0].Item.name)
	assert.Equal(t, "y", ranked[1].Item.name)
	assert.Equal(t, "z", ranked[2].Item.name)
	for _, r := range ranked {
		assert.Equal(t, 1, *r.Rank)
	}
}

func TestCompetitionRankZeroAverageIsUnranked(t *testing.T) {
	students := []student{{"none", 0}, {"some", 60}, {"other", 0}}
	ranks := ranksOf(CompetitionRank(students, func(s student) float64 { return s.avg }))

	assert.Equal(t, "1", ranks["some"])
	assert.Equal(t, "-", ranks["none"])
	assert.Equal(t, "-", ranks["other"])
}

func TestOverallAverageUsesOnlyPresentCategories(t *testing.T) {
	assert.Equal(t, 85.0, OverallAverage(Ptr(90), Ptr(80)))
	assert.Equal(t, 76.0, OverallAverage(Ptr(76), nil))
	assert.Equal(t, 0.0, OverallAverage(nil, nil))
	assert.Equal(t, 0.0, OverallAverage())
}

func TestMonthlyExamAverageAndPredicate(t *testing.T) {
	avg, ok := MeanOf(Ptr(80), Ptr(90), Ptr(70))
	require.True(t, ok)
	assert.Equal(t, 80.0, Round1(avg))
	assert.Equal(t, "B (Jayyid Jiddan)", Predicate(avg))
}

func TestPredicateBands(t *testing.T) {
	cases := map[float64]string{
		100:   PredicateMumtaz,
		90:    PredicateMumtaz,
		89.99: PredicateJayyidJiddan,
		80:    PredicateJayyidJiddan,
		79.9:  PredicateJayyid,
		70:    PredicateJayyid,
		65:    PredicateMaqbul,
		60:    PredicateMaqbul,
		59.9:  PredicateDhaif,
		0:     PredicateDhaif,
	}
	for avg, want := range cases {
		assert.Equal(t, want, Predicate(avg), "avg %v", avg)
	}
}

func TestRoundingKeepsDisplayPrecision(t *testing.T) {
	assert.Equal(t, 83.3, Round1(250.0/3))
	assert.Equal(t, 83.33, Round2(250.0/3))
}

func TestGroupSumCount(t *testing.T) {
	type log struct {
		student  string
		category string
		pages    float64
	}
	logs := []log{
		{"s2", "ZIYADAH", 1}, {"s1", "ZIYADAH", 2}, {"s1", "MURAJAAH", 5}, {"s2", "ZIYADAH", 0.5},
	}

	order, groups := GroupBy(logs, func(l log) string { return l.student })
	assert.Equal(t, []string{"s2", "s1"}, order)
	assert.Len(t, groups["s1"], 2)

	sums := SumBy(logs, func(l log) string { return l.category }, func(l log) float64 { return l.pages })
	assert.Equal(t, 3.5, sums["ZIYADAH"])
	assert.Equal(t, 5.0, sums["MURAJAAH"])

	counts := CountBy(logs, func(l log) string { return l.student })
	assert.Equal(t, 2, counts["s2"])
	assert.Equal(t, 8.5, Sum(logs, func(l log) float64 { return l.pages }))
}

func TestPeriodBucket(t *testing.T) {
	day := time.Date(2024, time.January, 3, 10, 0, 0, 0, time.UTC)

	key, label := PeriodBucket(day, GranularityMonth)
	assert.Equal(t, "2024-01", key)
	assert.Equal(t, "Januari 2024", label)

	key, label = PeriodBucket(day, GranularityWeek)
	assert.Equal(t, "2024-W01", key)
	assert.Equal(t, "Pekan 1/2024", label)

	start, end := MonthRange(time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, start.Day())
	assert.Equal(t, 29, end.Day())
}
