package aggregate

// Grade predicates printed beside averages.
const (
	PredicateMumtaz       = "A (Mumtaz)"
	PredicateJayyidJiddan = "B (Jayyid Jiddan)"
	PredicateJayyid       = "C (Jayyid)"
	PredicateMaqbul       = "D (Maqbul)"
	PredicateDhaif        = "E (Dhaif)"
)

// Predicate maps an average on the 0-100 scale to its band.
func Predicate(avg float64) string {
	switch {
	case avg >= 90:
		return PredicateMumtaz
	case avg >= 80:
		return PredicateJayyidJiddan
	case avg >= 70:
		return PredicateJayyid
	case avg >= 60:
		return PredicateMaqbul
	default:
		return PredicateDhaif
	}
}
