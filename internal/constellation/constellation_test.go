package constellation

import (
	"math/rand"
	"testing"

	"github.com/astralis-game/server/internal/grid"
)

func TestKeyCanonicalForm(t *testing.T) {
	// Input is unsorted and offset; key must normalise and sort row-major.
	c := New([]grid.Coord{{Row: 3, Col: 2}, {Row: 1, Col: 2}, {Row: 2, Col: 2}}, 2)
	if got := c.Key(); got != "r0c0_r1c0_r2c0_v2" {
		t.Errorf("key = %q, want %q", got, "r0c0_r1c0_r2c0_v2")
	}
}

// TestRoundTrip verifies decode(encode(x)) == x for a variety of shapes.
func TestRoundTrip(t *testing.T) {
	cases := []Constellation{
		New([]grid.Coord{{Row: 0, Col: 0}}, 0),
		New([]grid.Coord{{Row: 0, Col: 0}, {Row: 1, Col: 1}}, 1),
		New([]grid.Coord{{Row: 0, Col: 1}, {Row: 1, Col: 0}, {Row: 1, Col: 1}, {Row: 1, Col: 2}, {Row: 2, Col: 1}}, 3),
		New([]grid.Coord{{Row: 5, Col: 7}, {Row: 6, Col: 7}, {Row: 7, Col: 7}, {Row: 7, Col: 8}}, 12),
	}
	for _, want := range cases {
		key := want.Key()
		got, err := Decode(key)
		if err != nil {
			t.Fatalf("decode(%q): %v", key, err)
		}
		if got.Value != want.Value {
			t.Errorf("decode(%q).Value = %d, want %d", key, got.Value, want.Value)
		}
		if len(got.Coordinates) != len(want.Coordinates) {
			t.Fatalf("decode(%q): %d coordinates, want %d", key, len(got.Coordinates), len(want.Coordinates))
		}
		for i := range want.Coordinates {
			if got.Coordinates[i] != want.Coordinates[i] {
				t.Errorf("decode(%q)[%d] = %v, want %v", key, i, got.Coordinates[i], want.Coordinates[i])
			}
		}
		// Re-encoding must reproduce the key byte for byte.
		if again := got.Key(); again != key {
			t.Errorf("re-encode = %q, want %q", again, key)
		}
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, key := range []string{"", "v3", "r0c0", "x0c0_v1", "r0_v1", "r0c0_vx"} {
		if _, err := Decode(key); err == nil {
			t.Errorf("decode(%q): expected error", key)
		}
	}
}

func TestDefaultCatalogKeysRoundTrip(t *testing.T) {
	cat := DefaultCatalog()
	if cat.Size() < 10 {
		t.Fatalf("default catalog too small: %d", cat.Size())
	}
	for _, key := range cat.Keys() {
		c, err := Decode(key)
		if err != nil {
			t.Fatalf("decode(%q): %v", key, err)
		}
		if c.Key() != key {
			t.Errorf("catalog key %q does not round-trip", key)
		}
	}
}

// TestDrawDistinct verifies a draw never repeats a key.
func TestDrawDistinct(t *testing.T) {
	cat := DefaultCatalog()
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		drawn := cat.Draw(rng, 3)
		if len(drawn) != 3 {
			t.Fatalf("draw returned %d keys, want 3", len(drawn))
		}
		seen := map[string]bool{}
		for _, k := range drawn {
			if seen[k] {
				t.Fatalf("duplicate key %q in draw %v", k, drawn)
			}
			seen[k] = true
			if !cat.Contains(k) {
				t.Fatalf("drawn key %q not in catalog", k)
			}
		}
	}
}
