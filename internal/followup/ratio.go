package followup

// Ratio 计算 Ratcliff/Obershelp 相似度 2*M/T，M 为递归找到的公共子串总长度，T 为两串长度之和。
// 两串均为空时返回 1。
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matching(ra, rb)) / float64(total)
}

func matching(a, b []rune) int {
	i, j, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	return size + matching(a[:i], b[:j]) + matching(a[i+size:], b[j+size:])
}

// longestMatch 返回最长公共子串，长度相同时取在 a 中最靠前、其次在 b 中最靠前的一个。
func longestMatch(a, b []rune) (int, int, int) {
	bestI, bestJ, bestSize := 0, 0, 0
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				k := cur[j]
				si, sj := i-k, j-k
				if k > bestSize || (k == bestSize && (si < bestI || (si == bestI && sj < bestJ))) {
					bestI, bestJ, bestSize = si, sj, k
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bestI, bestJ, bestSize
}
