package routing

import (
	"sort"

	"github.com/shabnasiraj/d7024e-dhtnode/id"
)

// sortStableByDistance sorts nodes in place by non-decreasing XOR distance
// to target, breaking ties by original order (stable sort).
func sortStableByDistance(nodes []Contact, target id.ID) {
	sort.SliceStable(nodes, func(i, j int) bool {
		di := nodes[i].ID.Xor(target)
		dj := nodes[j].ID.Xor(target)
		return di.Cmp(dj) < 0
	})
}
