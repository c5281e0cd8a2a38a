package matching

import "strings"

// Distance computes the Damerau-Levenshtein distance (unrestricted
// adjacent-transposition variant) between two ticker symbols. Inputs are
// case-normalized before comparison. The result is symmetric, zero iff the
// symbols are equal, and satisfies the triangle inequality.
func Distance(a, b string) int {
	a = strings.ToUpper(a)
	b = strings.ToUpper(b)
	if a == b {
		return 0
	}
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	inf := la + lb
	d := make([][]int, la+2)
	for i := range d {
		d[i] = make([]int, lb+2)
	}
	d[0][0] = inf
	for i := 0; i <= la; i++ {
		d[i+1][0] = inf
		d[i+1][1] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j+1] = inf
		d[1][j+1] = j
	}

	// last row each character of a was seen in
	da := make(map[byte]int, la)

	for i := 1; i <= la; i++ {
		db := 0
		for j := 1; j <= lb; j++ {
			k := da[b[j-1]]
			l := db
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
				db = j
			}
			d[i+1][j+1] = min(
				d[i][j]+cost,               // substitution
				d[i+1][j]+1,                // insertion
				d[i][j+1]+1,                // deletion
				d[k][l]+(i-k-1)+1+(j-l-1),  // transposition
			)
		}
		da[a[i-1]] = i
	}
	return d[la+1][lb+1]
}
