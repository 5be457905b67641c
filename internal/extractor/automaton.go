package extractor

// automaton is an Aho-Corasick matcher over lowercase bytes. Search time is
// linear in the input plus the number of reported matches.
type automaton struct {
	nodes []node
}

type node struct {
	next map[byte]int32
	fail int32
	// out holds pattern ids ending here; dict links to the nearest suffix
	// node that also ends a pattern.
	out  []int32
	dict int32
}

type match struct {
	pattern int32
	start   int
	end     int
}

func newAutomaton(patterns []string) *automaton {
	a := &automaton{nodes: []node{{next: map[byte]int32{}, dict: -1}}}

	for id, p := range patterns {
		cur := int32(0)
		for i := 0; i < len(p); i++ {
			nxt, ok := a.nodes[cur].next[p[i]]
			if !ok {
				a.nodes = append(a.nodes, node{next: map[byte]int32{}, dict: -1})
				nxt = int32(len(a.nodes) - 1)
				a.nodes[cur].next[p[i]] = nxt
			}
			cur = nxt
		}
		a.nodes[cur].out = append(a.nodes[cur].out, int32(id))
	}

	queue := make([]int32, 0, len(a.nodes))
	for _, child := range a.nodes[0].next {
		a.nodes[child].fail = 0
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for b, child := range a.nodes[cur].next {
			f := a.nodes[cur].fail
			for f != 0 {
				if _, ok := a.nodes[f].next[b]; ok {
					break
				}
				f = a.nodes[f].fail
			}
			if nxt, ok := a.nodes[f].next[b]; ok && nxt != child {
				a.nodes[child].fail = nxt
			} else {
				a.nodes[child].fail = 0
			}

			fail := a.nodes[child].fail
			if len(a.nodes[fail].out) > 0 {
				a.nodes[child].dict = fail
			} else {
				a.nodes[child].dict = a.nodes[fail].dict
			}
			queue = append(queue, child)
		}
	}

	return a
}

// find calls fn for every occurrence of every pattern in text.
func (a *automaton) find(text string, lengths []int, fn func(match)) {
	cur := int32(0)
	for i := 0; i < len(text); i++ {
		b := text[i]
		for {
			if nxt, ok := a.nodes[cur].next[b]; ok {
				cur = nxt
				break
			}
			if cur == 0 {
				break
			}
			cur = a.nodes[cur].fail
		}

		for n := cur; n != -1; n = a.nodes[n].dict {
			for _, id := range a.nodes[n].out {
				fn(match{pattern: id, start: i + 1 - lengths[id], end: i + 1})
			}
			if n == 0 {
				break
			}
		}
	}
}
