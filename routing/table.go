package routing

import (
	"sync"
	"time"

	"github.com/shabnasiraj/d7024e-dhtnode/id"
	"github.com/sirupsen/logrus"
)

// DefaultK is the replication/closeness parameter: the maximum number of
// contacts a single bucket holds.
const DefaultK = 20

// entry pairs a contact with the time it was learned. Nothing reads
// lastSeen yet; it exists for future refresh/eviction extensions since
// stale-contact eviction is out of scope here.
type entry struct {
	contact  Contact
	lastSeen time.Time
}

// bucket is an ordered, capacity-limited list of entries. Insertion order
// is preserved; entries are never reordered or evicted by this
// implementation (see Table.Add).
type bucket struct {
	entries []entry
}

func (b *bucket) contains(target id.ID) bool {
	for _, e := range b.entries {
		if e.contact.ID.Equal(target) {
			return true
		}
	}
	return false
}

func (b *bucket) full(k int) bool {
	return len(b.entries) >= k
}

// Table is the full k-bucket routing table for one local node identifier.
// It is safe for concurrent use: the receive loop inserts the sender of
// every request it handles, while lookup-driven goroutines insert every
// contact they learn of, all while other goroutines may be reading
// NClosest/KClosest/Get.
type Table struct {
	self    id.ID
	width   int
	k       int
	mu      sync.RWMutex
	buckets []bucket
	log     *logrus.Entry
}

// New constructs a routing table for the given local identifier. The table
// allocates one bucket per bit position of self.Width. A k of zero or less
// selects DefaultK.
func New(self id.ID, k int) *Table {
	if k <= 0 {
		k = DefaultK
	}
	return &Table{
		self:    self,
		width:   self.Width,
		k:       k,
		buckets: make([]bucket, self.Width),
		log: logrus.WithFields(logrus.Fields{
			"component": "routing.Table",
			"self":      self.String(),
		}),
	}
}

// bucketIndex returns the index of the bucket that would hold other,
// relative to the table's local identifier: floor(log2(self XOR other)),
// clamped to 0 when other equals self.
func (t *Table) bucketIndex(other id.ID) int {
	return t.self.Xor(other).BucketIndex()
}

// Add inserts a contact learned from the network. A contact whose id
// equals the local id is silently ignored. A contact already present (by
// id) is left unchanged. A contact arriving when its target bucket is at
// capacity is dropped — there is no eviction policy.
func (t *Table) Add(c Contact) {
	if c.ID.Equal(t.self) {
		return
	}

	idx := t.bucketIndex(c.ID)

	t.mu.Lock()
	defer t.mu.Unlock()

	b := &t.buckets[idx]
	if b.contains(c.ID) {
		return
	}
	if b.full(t.k) {
		t.log.WithFields(logrus.Fields{
			"bucket": idx,
			"id":     c.ID.String(),
		}).Debug("bucket full, dropping newly learned contact")
		return
	}
	b.entries = append(b.entries, entry{contact: c, lastSeen: time.Now()})
	t.log.WithFields(logrus.Fields{
		"bucket": idx,
		"id":     c.ID.String(),
		"addr":   c.Addr(),
	}).Debug("added contact to routing table")
}

// Get returns the contact for id, if the table currently holds it.
func (t *Table) Get(target id.ID) (Contact, bool) {
	idx := t.bucketIndex(target)

	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, e := range t.buckets[idx].entries {
		if e.contact.ID.Equal(target) {
			return e.contact, true
		}
	}
	return Contact{}, false
}

// Len returns the total number of contacts held across all buckets.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := 0
	for i := range t.buckets {
		total += len(t.buckets[i].entries)
	}
	return total
}

// zigZagOffsets generates the normative traversal order for visiting
// buckets around a starting index: 0, -1, +1, -2, +2, -3, +3, ... The
// count-th term is (-1)^count * count, a running sum.
func zigZagOffsets(max int) []int {
	offsets := make([]int, 0, max)
	offset := 0
	for count := 0; count < max; count++ {
		sign := 1
		if count%2 != 0 {
			sign = -1
		}
		offset += sign * count
		offsets = append(offsets, offset)
	}
	return offsets
}

// closeNodes enumerates contacts near target in approximate increasing
// XOR-distance-class order, by zig-zag walking buckets outward from
// bucketIndex(target) and yielding contacts in stored order within each
// bucket. This does not guarantee exact XOR order across the whole
// stream: callers that need exact order (see SortByDistance) must re-sort.
func (t *Table) closeNodes(target id.ID) []Contact {
	start := t.bucketIndex(target)

	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Contact
	for _, offset := range zigZagOffsets(t.width * 2) {
		idx := start + offset
		if idx < 0 || idx >= t.width {
			continue
		}
		for _, e := range t.buckets[idx].entries {
			out = append(out, e.contact)
		}
	}
	return out
}

// NClosest returns up to n contacts in approximate increasing XOR distance
// from target.
func (t *Table) NClosest(target id.ID, n int) []Contact {
	all := t.closeNodes(target)
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}

// KClosest returns NClosest(target, k) using the table's configured k.
func (t *Table) KClosest(target id.ID) []Contact {
	return t.NClosest(target, t.k)
}

// K returns the table's configured bucket capacity.
func (t *Table) K() int {
	return t.k
}

// Self returns the table's local identifier.
func (t *Table) Self() id.ID {
	return t.self
}

// ContainsID reports whether nodes is a slice of contacts that includes
// one with the given id. Exported as a package-level helper (rather than a
// Table method) since lookup's shortlist/found-set bookkeeping operates on
// plain []Contact slices outside of any particular table.
func ContainsID(nodes []Contact, target id.ID) bool {
	for _, n := range nodes {
		if n.ID.Equal(target) {
			return true
		}
	}
	return false
}

// SortByDistance returns a new slice containing nodes sorted by
// non-decreasing XOR distance to target. The sort is stable.
func SortByDistance(nodes []Contact, target id.ID) []Contact {
	out := make([]Contact, len(nodes))
	copy(out, nodes)
	sortStableByDistance(out, target)
	return out
}

// DedupByID returns a new slice with duplicate ids removed, keeping the
// first occurrence of each id.
func DedupByID(nodes []Contact) []Contact {
	out := make([]Contact, 0, len(nodes))
	for _, n := range nodes {
		if !ContainsID(out, n.ID) {
			out = append(out, n)
		}
	}
	return out
}
