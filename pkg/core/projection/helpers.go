package projection

// compound returns Π(1+rates[k]) for k in [from, to].
func compound(rates []float64, from, to int) float64 {
	factor := 1.0
	for k := from; k <= to && k < len(rates); k++ {
		factor *= 1 + rates[k]
	}
	return factor
}

// zeroResidue clears floating-point noise below tolerance.
func zeroResidue(v, tolerance float64) float64 {
	if v > -tolerance && v < tolerance {
		return 0
	}
	return v
}
