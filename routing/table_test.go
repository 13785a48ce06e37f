package routing

import (
	"net"
	"testing"

	"github.com/shabnasiraj/d7024e-dhtnode/id"
)

func mkContact(ip string, port int, nodeID uint64, width int) Contact {
	return Contact{IP: net.ParseIP(ip), Port: port, ID: id.New(nodeID, width)}
}

// S1: Insert (1.1.1.1:42, id=1); expect bucket 0 holds it; len()==1.
func TestAddPlacesContactInBucketZero(t *testing.T) {
	self := id.New(0, 8)
	tbl := New(self, 3)

	tbl.Add(mkContact("1.1.1.1", 42, 1, 8))

	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tbl.Len())
	}
	got, ok := tbl.Get(id.New(1, 8))
	if !ok {
		t.Fatalf("expected contact with id=1 to be present")
	}
	if got.Port != 42 {
		t.Fatalf("got port %d, want 42", got.Port)
	}
	if idx := tbl.bucketIndex(id.New(1, 8)); idx != 0 {
		t.Fatalf("bucket index for distance 1 = %d, want 0", idx)
	}
}

// S2: Insert (2.2.2.2:999, id=255); expect bucket 7 holds it.
func TestAddPlacesContactInHighBucket(t *testing.T) {
	self := id.New(0, 8)
	tbl := New(self, 3)

	tbl.Add(mkContact("2.2.2.2", 999, 255, 8))

	if idx := tbl.bucketIndex(id.New(255, 8)); idx != 7 {
		t.Fatalf("bucket index for distance 255 = %d, want 7", idx)
	}
	if _, ok := tbl.Get(id.New(255, 8)); !ok {
		t.Fatalf("expected contact with id=255 to be present")
	}
}

// S3: Insert (_, id=1) twice with different ips; len()==1; first entry retained.
func TestAddIsIdempotentByID(t *testing.T) {
	self := id.New(0, 8)
	tbl := New(self, 3)

	tbl.Add(mkContact("1.1.1.1", 1, 1, 8))
	tbl.Add(mkContact("9.9.9.9", 2, 1, 8))

	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tbl.Len())
	}
	got, _ := tbl.Get(id.New(1, 8))
	if got.IP.String() != "1.1.1.1" {
		t.Fatalf("expected first-added contact retained, got ip %s", got.IP)
	}
}

func TestAddSelfIsNoOp(t *testing.T) {
	self := id.New(5, 8)
	tbl := New(self, 3)

	tbl.Add(mkContact("1.1.1.1", 1, 5, 8))

	if tbl.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after adding self", tbl.Len())
	}
}

func TestAddDropsOverflowWhenBucketFull(t *testing.T) {
	self := id.New(0, 8)
	tbl := New(self, 1) // k=1

	tbl.Add(mkContact("1.1.1.1", 1, 2, 8))
	tbl.Add(mkContact("1.1.1.1", 1, 3, 8)) // also distance-class bucket 1

	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (overflow dropped)", tbl.Len())
	}
}

func TestKClosestEmptyTable(t *testing.T) {
	self := id.New(0, 8)
	tbl := New(self, 3)

	if got := tbl.KClosest(id.New(42, 8)); len(got) != 0 {
		t.Fatalf("KClosest on empty table = %v, want empty", got)
	}
}

func TestKClosestSingleContact(t *testing.T) {
	self := id.New(0, 8)
	tbl := New(self, 3)
	c := mkContact("1.1.1.1", 1, 7, 8)
	tbl.Add(c)

	for _, target := range []uint64{0, 1, 200, 255} {
		got := tbl.KClosest(id.New(target, 8))
		if len(got) != 1 || !got[0].ID.Equal(c.ID) {
			t.Fatalf("KClosest(%d) = %v, want [%v]", target, got, c)
		}
	}
}

func TestZigZagOffsetsMaxFive(t *testing.T) {
	got := zigZagOffsets(5)
	want := []int{0, -1, 1, -2, 2}
	if len(got) != len(want) {
		t.Fatalf("zigZagOffsets(5) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("zigZagOffsets(5)[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

// S4: nodelist ids [0x00, 0xff, 0x55, 0x01] sorted against target 0x80
// -> [0xff, 0x00, 0x01, 0x55] (distances 0x7f, 0x80, 0x81, 0xd5).
func TestSortByDistanceOrdersAscending(t *testing.T) {
	width := 8
	nodes := []Contact{
		mkContact("1.1.1.1", 1, 0x00, width),
		mkContact("1.1.1.1", 1, 0xff, width),
		mkContact("1.1.1.1", 1, 0x55, width),
		mkContact("1.1.1.1", 1, 0x01, width),
	}
	target := id.New(0x80, width)

	sorted := SortByDistance(nodes, target)

	wantOrder := []uint64{0xff, 0x00, 0x01, 0x55}
	for i, want := range wantOrder {
		if sorted[i].ID.Uint64() != want {
			t.Fatalf("sorted[%d] = %#x, want %#x", i, sorted[i].ID.Uint64(), want)
		}
	}
}

func TestNoDuplicateIDsAcrossTable(t *testing.T) {
	self := id.New(0, 8)
	tbl := New(self, 20)

	for _, n := range []uint64{1, 2, 3, 4, 1, 2} {
		tbl.Add(mkContact("1.1.1.1", 1, n, 8))
	}

	if tbl.Len() != 4 {
		t.Fatalf("Len() = %d, want 4 unique contacts", tbl.Len())
	}
}

func TestBucketNeverExceedsK(t *testing.T) {
	self := id.New(0, 8)
	k := 2
	tbl := New(self, k)

	// ids 128..135 all land in the same high bucket (distance has bit 7 set).
	for n := uint64(128); n < 136; n++ {
		tbl.Add(mkContact("1.1.1.1", 1, n, 8))
	}

	idx := tbl.bucketIndex(id.New(128, 8))
	if got := len(tbl.buckets[idx].entries); got > k {
		t.Fatalf("bucket %d holds %d entries, want <= %d", idx, got, k)
	}
}
