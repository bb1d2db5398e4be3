package exchange

import "testing"

func TestChunkSymbols(t *testing.T) {
	symbols := []string{"a", "b", "c", "d", "e"}
	chunks := ChunkSymbols(symbols, 2)
	want := [][]string{{"a", "b"}, {"c", "d"}, {"e"}}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i := range want {
		if len(chunks[i]) != len(want[i]) {
			t.Fatalf("chunk %d: got %v, want %v", i, chunks[i], want[i])
		}
		for j := range want[i] {
			if chunks[i][j] != want[i][j] {
				t.Fatalf("chunk %d: got %v, want %v", i, chunks[i], want[i])
			}
		}
	}
}

func TestChunkSymbolsExactMultiple(t *testing.T) {
	chunks := ChunkSymbols([]string{"a", "b", "c", "d"}, 2)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
}
