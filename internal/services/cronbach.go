package services

// CronbachAlpha measures how consistently the columns of rows move together.
// Each row is one survey and each column one numeric answer. Population
// variance is used and the result is clamped to [0,1]. Fewer than two rows
// or columns, or a zero total variance, give 0.
func CronbachAlpha(rows [][]float64) float64 {
	n := len(rows)
	if n < 2 {
		return 0
	}
	k := len(rows[0])
	if k < 2 {
		return 0
	}
	for _, r := range rows {
		if len(r) != k {
			return 0
		}
	}

	itemVar := 0.0
	col := make([]float64, n)
	for j := 0; j < k; j++ {
		for i := range rows {
			col[i] = rows[i][j]
		}
		itemVar += variance(col)
	}

	totals := make([]float64, n)
	for i, r := range rows {
		for _, v := range r {
			totals[i] += v
		}
	}
	totalVar := variance(totals)
	if totalVar == 0 {
		return 0
	}

	alpha := (float64(k) / float64(k-1)) * (1 - itemVar/totalVar)
	switch {
	case alpha < 0:
		return 0
	case alpha > 1:
		return 1
	}
	return alpha
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	sum := 0.0
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return sum / float64(len(xs))
}
