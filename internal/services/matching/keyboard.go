package matching

import "strings"

// qwertyNeighbors maps each key to the keys physically bordering it on a
// standard row-staggered QWERTY layout (same-row plus the staggered keys
// above and below). Letters and digits only; tickers never carry anything
// else.
var qwertyNeighbors = buildNeighbors([]string{
	"1234567890",
	"QWERTYUIOP",
	"ASDFGHJKL",
	"ZXCVBNM",
})

func buildNeighbors(rows []string) map[byte]map[byte]bool {
	m := make(map[byte]map[byte]bool)
	add := func(a, b byte) {
		if m[a] == nil {
			m[a] = make(map[byte]bool)
		}
		if m[b] == nil {
			m[b] = make(map[byte]bool)
		}
		m[a][b] = true
		m[b][a] = true
	}
	for r, row := range rows {
		for i := 0; i < len(row); i++ {
			if i+1 < len(row) {
				add(row[i], row[i+1])
			}
			// Each lower row is shifted half a key right, so row[r+1][i]
			// sits between row[r][i] and row[r][i+1].
			if r+1 < len(rows) {
				below := rows[r+1]
				if i < len(below) {
					add(row[i], below[i])
				}
				if i > 0 && i-1 < len(below) {
					add(row[i], below[i-1])
				}
			}
		}
	}
	return m
}

// IsAdjacentKeys reports whether two characters are neighboring keys.
func IsAdjacentKeys(a, b byte) bool {
	if a >= 'a' && a <= 'z' {
		a -= 'a' - 'A'
	}
	if b >= 'a' && b <= 'z' {
		b -= 'a' - 'A'
	}
	return qwertyNeighbors[a][b]
}

// ClassifyProximate reports whether b is a keyboard-proximate typo of a:
// the two symbols are at distance exactly 1, the single edit is a
// substitution, and the substituted characters are adjacent keys.
// Insertions, deletions, and transpositions never qualify.
func ClassifyProximate(a, b string) bool {
	a = strings.ToUpper(a)
	b = strings.ToUpper(b)
	if len(a) != len(b) || a == b {
		return false
	}
	diff := -1
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			if diff >= 0 {
				return false
			}
			diff = i
		}
	}
	return diff >= 0 && IsAdjacentKeys(a[diff], b[diff])
}
