package subblockdag

// recomputeScore stratifies d's nodes into levels by shortest-path
// distance from any base (a node with no ancestors), then accumulates
// scores from the deepest level upward: score(node) = 1 + weight *
// sum(score(descendant)) over descendants in the immediately next level,
// where weight counts up from 1 at the deepest level toward the bases
// (weight = maxLevel - depth + 1), so nodes closer to a base weigh their
// descendants' scores more heavily. The component's score is the sum of
// every node's score.
func (d *Dag) recomputeScore(byHandle func(NodeHandle) *dagNode) {
	level := bfsLevels(d.nodes, byHandle)

	maxLevel := 0
	for _, l := range level {
		if l > maxLevel {
			maxLevel = l
		}
	}

	nodesByLevel := make([][]NodeHandle, maxLevel+1)
	for _, h := range d.nodes {
		l := level[h]
		nodesByLevel[l] = append(nodesByLevel[l], h)
	}

	score := make(map[NodeHandle]uint64, len(d.nodes))
	for l := maxLevel; l >= 0; l-- {
		weight := uint64(maxLevel-l) + 1
		for _, h := range nodesByLevel[l] {
			node := byHandle(h)
			var sum uint64
			for _, desc := range node.descendants {
				if level[desc] == l+1 {
					sum += score[desc]
				}
			}
			score[h] = 1 + weight*sum
		}
	}

	var total uint64
	for _, s := range score {
		total += s
	}
	d.score = total
}

// bfsLevels computes, for every handle in nodes, its shortest-path
// distance from the nearest base (a node with no ancestors) via
// multi-source breadth-first search over the descendant edges.
func bfsLevels(nodes []NodeHandle, byHandle func(NodeHandle) *dagNode) map[NodeHandle]int {
	level := make(map[NodeHandle]int, len(nodes))
	var queue []NodeHandle

	for _, h := range nodes {
		if byHandle(h).isBase() {
			level[h] = 0
			queue = append(queue, h)
		}
	}

	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		node := byHandle(h)
		for _, desc := range node.descendants {
			if _, visited := level[desc]; !visited {
				level[desc] = level[h] + 1
				queue = append(queue, desc)
			}
		}
	}

	return level
}
