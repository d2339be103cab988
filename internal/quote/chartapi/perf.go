package chartapi

// percentChange computes the percent change across a close series, skipping
// null data points: the first valid close is found scanning from the start,
// the last valid close scanning from the end. It returns nil when fewer than
// two valid closes exist or the first valid close is zero; it never returns
// Inf or NaN.
func percentChange(closes []*float64) *float64 {
	firstIdx := -1
	for i := 0; i < len(closes); i++ {
		if closes[i] != nil {
			firstIdx = i
			break
		}
	}
	lastIdx := -1
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] != nil {
			lastIdx = i
			break
		}
	}
	if firstIdx < 0 || lastIdx <= firstIdx {
		return nil
	}
	first, last := *closes[firstIdx], *closes[lastIdx]
	if first == 0 {
		return nil
	}
	v := (last - first) / first * 100
	return &v
}

// dayChange computes the same-day percent change of price over previousClose.
func dayChange(price, previousClose *float64) *float64 {
	if price == nil || previousClose == nil || *previousClose == 0 {
		return nil
	}
	v := (*price - *previousClose) / *previousClose * 100
	return &v
}
