package metric

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/rtcell-go/pkg/rtmap"
)

func TestMapCollector(t *testing.T) {
	m := rtmap.NewWithShards[string, int](4)
	m.Insert("a", 1)
	m.Insert("b", 2)
	m.Insert("c", 3)

	r1, err := m.TryBorrow("a")
	if err != nil {
		t.Fatalf("TryBorrow(a) error = %v", err)
	}
	defer r1.Release()
	r2, err := m.TryBorrow("a")
	if err != nil {
		t.Fatalf("second TryBorrow(a) error = %v", err)
	}
	defer r2.Release()
	w, err := m.TryBorrowMut("b")
	if err != nil {
		t.Fatalf("TryBorrowMut(b) error = %v", err)
	}
	defer w.Release()

	c := NewCollector("test", m)

	if n := testutil.CollectAndCount(c); n != 4 {
		t.Errorf("CollectAndCount() = %d, want 4", n)
	}

	expected := `
# HELP rtcell_map_entries Map entries by borrow state
# TYPE rtcell_map_entries gauge
rtcell_map_entries{map="test",state="exclusive"} 1
rtcell_map_entries{map="test",state="free"} 1
rtcell_map_entries{map="test",state="shared"} 1
# HELP rtcell_map_shards Number of shards in the map
# TYPE rtcell_map_shards gauge
rtcell_map_shards{map="test"} 4
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected)); err != nil {
		t.Errorf("CollectAndCompare() error = %v", err)
	}
}

func TestMapCollector_Register(t *testing.T) {
	r := NewRegistry()
	m := rtmap.New[string, int]()
	c := NewCollector("cells", m)

	if err := r.Register(c); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(c); err == nil {
		t.Error("second Register() should fail")
	}

	body := scrape(t, r)
	if !strings.Contains(body, `rtcell_map_shards{map="cells"} 16`) {
		t.Error(`expected rtcell_map_shards{map="cells"} 16`)
	}

	if !r.Unregister(c) {
		t.Error("Unregister() = false, want true")
	}
}
