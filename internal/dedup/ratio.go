package dedup

// Ratcliff/Obershelp "gestalt" matching over runes, the algorithm behind
// difflib's ratio. Elements occurring in more than 1% of a sequence of 200 or
// more elements are not used to seed matches.

const autojunkMin = 200

type sequenceMatcher struct {
	a, b []rune
	b2j  map[rune][]int
}

func newSequenceMatcher(a, b []rune) *sequenceMatcher {
	m := &sequenceMatcher{a: a, b: b, b2j: make(map[rune][]int)}
	for j, r := range b {
		m.b2j[r] = append(m.b2j[r], j)
	}

	if n := len(b); n >= autojunkMin {
		limit := n/100 + 1
		for r, idx := range m.b2j {
			if len(idx) > limit {
				delete(m.b2j, r)
			}
		}
	}
	return m
}

type block struct {
	i, j, size int
}

func (m *sequenceMatcher) longestMatch(alo, ahi, blo, bhi int) block {
	best := block{i: alo, j: blo}
	j2len := map[int]int{}

	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > best.size {
				best = block{i: i - k + 1, j: j - k + 1, size: k}
			}
		}
		j2len = next
	}

	for best.i > alo && best.j > blo && m.a[best.i-1] == m.b[best.j-1] {
		best.i--
		best.j--
		best.size++
	}
	for best.i+best.size < ahi && best.j+best.size < bhi && m.a[best.i+best.size] == m.b[best.j+best.size] {
		best.size++
	}
	return best
}

func (m *sequenceMatcher) matches() int {
	type span struct{ alo, ahi, blo, bhi int }

	total := 0
	queue := []span{{0, len(m.a), 0, len(m.b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		x := m.longestMatch(s.alo, s.ahi, s.blo, s.bhi)
		if x.size == 0 {
			continue
		}
		total += x.size
		if s.alo < x.i && s.blo < x.j {
			queue = append(queue, span{s.alo, x.i, s.blo, x.j})
		}
		if x.i+x.size < s.ahi && x.j+x.size < s.bhi {
			queue = append(queue, span{x.i + x.size, s.ahi, x.j + x.size, s.bhi})
		}
	}
	return total
}

// Ratio returns the similarity of a and b in [0,1]. The arguments are put in
// a canonical order first, so Ratio(a, b) == Ratio(b, a).
func Ratio(a, b string) float64 {
	if a > b {
		a, b = b, a
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 1
	}
	m := newSequenceMatcher(ra, rb)
	return 2 * float64(m.matches()) / float64(len(ra)+len(rb))
}
