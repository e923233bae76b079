package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"dronegrid/internal/protocol"
)

func TestTickWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "ticks.jsonl.zst")
	tw, err := NewTickWriter(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	want := []protocol.TickReport{
		{Tick: 0, ZoneCounts: [3]int{6, 0, 0}, Digest: "aaaa"},
		{Tick: 1, ZoneCounts: [3]int{5, 1, 0}, Digest: "bbbb",
			Agents: []protocol.AgentState{{ID: 1, Pos: [2]int{2, 3}, Status: "hauling", Action: "MOVE (2,3)"}}},
		{Tick: 2, ZoneCounts: [3]int{5, 1, 0}, Digest: "cccc",
			WasteEvents: []protocol.WasteEvent{{Kind: protocol.EventPicked, WasteID: 4, AgentID: 1, Pos: [2]int{2, 3}}}},
	}
	for _, rep := range want {
		if err := tw.WriteTick(rep); err != nil {
			t.Fatalf("write tick %d: %v", rep.Tick, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var got []protocol.TickReport
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var rep protocol.TickReport
		if err := json.Unmarshal(sc.Bytes(), &rep); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		got = append(got, rep)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("lines=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if got[i].Tick != want[i].Tick || got[i].Digest != want[i].Digest {
			t.Fatalf("line %d: got tick=%d digest=%s", i, got[i].Tick, got[i].Digest)
		}
		if got[i].ZoneCounts != want[i].ZoneCounts {
			t.Fatalf("line %d: zone counts=%v want=%v", i, got[i].ZoneCounts, want[i].ZoneCounts)
		}
	}
	if len(got[2].WasteEvents) != 1 || got[2].WasteEvents[0].WasteID != 4 {
		t.Fatalf("events lost in round trip: %+v", got[2].WasteEvents)
	}
}

func TestTickWriter_TruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticks.jsonl.zst")

	for i := 0; i < 2; i++ {
		tw, err := NewTickWriter(path)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if err := tw.WriteTick(protocol.TickReport{Tick: uint64(i)}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := tw.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	f, _ := os.Open(path)
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	lines := 0
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		lines++
	}
	if lines != 1 {
		t.Fatalf("lines=%d want=1 (second writer should truncate)", lines)
	}
}
