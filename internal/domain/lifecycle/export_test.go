package lifecycle

import "github.com/okian/skillswap/internal/domain/model"

// Allowed lists the events applicable to from.
func Allowed(from model.State) []model.Event {
	var out []model.Event
	for e := range table {
		if e.from == from {
			out = append(out, e.event)
		}
	}
	return out
}

// Reachable reports whether to can be reached from from along table edges.
func Reachable(from, to model.State) bool {
	seen := map[model.State]bool{from: true}
	frontier := []model.State{from}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		if cur == to {
			return true
		}
		for e, next := range table {
			if e.from == cur && !seen[next] {
				seen[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	return false
}

// Predecessors lists the states with an edge into to.
func Predecessors(to model.State) []model.State {
	var out []model.State
	seen := map[model.State]bool{}
	for e, next := range table {
		if next == to && e.from != to && !seen[e.from] {
			seen[e.from] = true
			out = append(out, e.from)
		}
	}
	return out
}
