package textutil

// Ratio computes the Ratcliff/Obershelp similarity of two strings:
// twice the number of matching characters divided by the total length.
// Identical strings score 1.0, fully disjoint strings 0.0.
func Ratio(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)
	if len(ar) == 0 && len(br) == 0 {
		return 1.0
	}
	if len(ar) == 0 || len(br) == 0 {
		return 0.0
	}
	m := matchingChars(ar, br)
	return 2.0 * float64(m) / float64(len(ar)+len(br))
}

// matchingChars counts characters in common by recursively splitting
// around the longest common substring.
func matchingChars(a, b []rune) int {
	ai, bi, size := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingChars(a[:ai], b[:bi])
	total += matchingChars(a[ai+size:], b[bi+size:])
	return total
}

func longestCommonBlock(a, b []rune) (bestA, bestB, bestSize int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	// prev[j] holds the match run length ending at a[i-1], b[j-1]
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > bestSize {
					bestSize = curr[j]
					bestA = i - bestSize
					bestB = j - bestSize
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return bestA, bestB, bestSize
}

// TokenOverlap computes the Jaccard overlap of two token slices.
func TokenOverlap(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}
	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}
