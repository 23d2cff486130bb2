package grid

import (
	"testing"
	"time"

	"github.com/sessionlab/rollcall/internal/archive"
)

func entry(id string, station int, ts time.Time) Entry {
	return Entry{
		Conv: &archive.Conversation{ID: id, Station: station, CreateTime: ts},
	}
}

func TestBuild_WindowBucketing(t *testing.T) {
	day := time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		ts     time.Time
		window int
	}{
		{"start of window", day.Add(10 * time.Hour), 40},
		{"mid window", day.Add(10*time.Hour + 14*time.Minute), 40},
		{"next window boundary", day.Add(10*time.Hour + 15*time.Minute), 41},
		{"midnight", day, 0},
		{"end of day", day.Add(23*time.Hour + 59*time.Minute), 95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := Build([]Entry{entry("c", 3, tt.ts)}, 15)
			key := CellKey{Year: 2024, Month: 12, Day: 2, Window: tt.window, Station: 3}
			if len(g.Cells[key]) != 1 {
				t.Errorf("conversation not in window %d; cells: %v", tt.window, g.SortedKeys())
			}
		})
	}
}

func TestBuild_PartitionCompleteness(t *testing.T) {
	base := time.Date(2024, 12, 2, 10, 0, 0, 0, time.UTC)
	entries := []Entry{
		entry("a", 1, base),
		entry("b", 1, base.Add(5*time.Minute)),  // same cell as a
		entry("c", 2, base.Add(5*time.Minute)),  // different station
		entry("d", 1, base.Add(20*time.Minute)), // different window
		entry("e", 1, base.Add(24*time.Hour)),   // different date
		entry("f", 1, time.Time{}),              // no timestamp
	}

	g, unplaced := Build(entries, 15)

	if g.Size() != 5 {
		t.Errorf("grid size = %d, want 5", g.Size())
	}
	if len(unplaced) != 1 || unplaced[0].Conv.ID != "f" {
		t.Errorf("unplaced = %v, want [f]", unplaced)
	}

	// Every timestamped conversation lands in exactly one cell.
	seen := map[string]int{}
	for _, key := range g.SortedKeys() {
		for _, e := range g.Cells[key] {
			seen[e.Conv.ID]++
		}
	}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if seen[id] != 1 {
			t.Errorf("conversation %s appears %d times, want exactly 1", id, seen[id])
		}
	}
	if len(g.Cells) != 4 {
		t.Errorf("expected 4 distinct cells, got %d", len(g.Cells))
	}
}

func TestBuild_CellOrderStable(t *testing.T) {
	base := time.Date(2024, 12, 2, 10, 0, 0, 0, time.UTC)
	entries := []Entry{
		entry("z", 1, base.Add(2*time.Minute)),
		entry("b", 1, base),
		entry("a", 1, base), // same timestamp as b, id breaks the tie
	}

	g, _ := Build(entries, 15)
	key := CellKey{Year: 2024, Month: 12, Day: 2, Window: 40, Station: 1}
	cell := g.Cells[key]
	if len(cell) != 3 {
		t.Fatalf("cell size = %d", len(cell))
	}
	for i, want := range []string{"a", "b", "z"} {
		if cell[i].Conv.ID != want {
			t.Errorf("cell[%d] = %s, want %s", i, cell[i].Conv.ID, want)
		}
	}
}

func TestBuild_ConfigurableWindow(t *testing.T) {
	ts := time.Date(2024, 12, 2, 10, 45, 0, 0, time.UTC)
	g, _ := Build([]Entry{entry("a", 1, ts)}, 30)
	key := CellKey{Year: 2024, Month: 12, Day: 2, Window: 21, Station: 1}
	if len(g.Cells[key]) != 1 {
		t.Errorf("expected 30-minute bucketing (window 21), cells: %v", g.SortedKeys())
	}

	// Zero falls back to the default width.
	g2, _ := Build([]Entry{entry("a", 1, ts)}, 0)
	if g2.WindowMinutes != DefaultWindowMinutes {
		t.Errorf("WindowMinutes = %d, want default %d", g2.WindowMinutes, DefaultWindowMinutes)
	}
}

func TestSortedKeys_Deterministic(t *testing.T) {
	base := time.Date(2024, 12, 2, 10, 0, 0, 0, time.UTC)
	entries := []Entry{
		entry("a", 2, base),
		entry("b", 1, base),
		entry("c", 1, base.Add(time.Hour)),
		entry("d", 1, base.Add(-24*time.Hour)),
	}

	g, _ := Build(entries, 15)
	first := g.SortedKeys()
	second := g.SortedKeys()
	if len(first) != 4 {
		t.Fatalf("expected 4 keys, got %d", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("key order not stable: %v vs %v", first, second)
		}
	}
	if first[0].Day != 1 {
		t.Errorf("expected previous day first, got %+v", first[0])
	}
	if first[1].Station != 1 || first[2].Station != 2 {
		t.Errorf("expected station tie-break within a window, got %v", first)
	}
}
