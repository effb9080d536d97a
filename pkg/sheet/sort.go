package sheet

import "reform/pkg/expr"

// Sort orders defs so that every definition comes after the definitions it
// references. The first definition of an id takes part in the order; the ids
// of later definitions are returned as duplicates.
//
// References to ids outside defs are ignored here and fail at evaluation.
// Definitions on a reference cycle, and everything depending on one, are
// left out of the order without an error.
func Sort(defs []*Definition) (duplicates []expr.ReferenceID, order []*Definition) {
	nodes := make([]*Definition, 0, len(defs))
	index := make(map[expr.ReferenceID]int, len(defs))
	reported := make(map[expr.ReferenceID]bool)
	for _, d := range defs {
		if _, seen := index[d.ID]; seen {
			if !reported[d.ID] {
				duplicates = append(duplicates, d.ID)
				reported[d.ID] = true
			}
			continue
		}
		index[d.ID] = len(nodes)
		nodes = append(nodes, d)
	}

	inDegree := make([]int, len(nodes))
	dependents := make([][]int, len(nodes))
	for i, d := range nodes {
		for _, ref := range References(d.Value) {
			j, ok := index[ref]
			if !ok {
				continue
			}
			inDegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	queue := make([]int, 0, len(nodes))
	for i := range nodes {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}
	order = make([]*Definition, 0, len(nodes))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, nodes[i])
		for _, j := range dependents[i] {
			inDegree[j]--
			if inDegree[j] == 0 {
				queue = append(queue, j)
			}
		}
	}
	return duplicates, order
}

// Cyclic returns the ids Sort leaves out of the order, in definition order.
func Cyclic(defs []*Definition) []expr.ReferenceID {
	dups, order := Sort(defs)
	placed := make(map[expr.ReferenceID]bool, len(order))
	for _, d := range order {
		placed[d.ID] = true
	}
	for _, id := range dups {
		placed[id] = true
	}
	var out []expr.ReferenceID
	for _, d := range defs {
		if !placed[d.ID] {
			placed[d.ID] = true
			out = append(out, d.ID)
		}
	}
	return out
}
