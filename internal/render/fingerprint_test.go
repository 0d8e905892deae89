package render

import "testing"

func TestFingerprint_CanonicalKeyOrder(t *testing.T) {
	t.Parallel()

	a := Fingerprint(map[string]any{
		"name": "Ann",
		"nested": map[string]any{
			"x": 1,
			"y": 2,
		},
	})
	b := Fingerprint(map[string]any{
		"nested": map[string]any{
			"y": 2,
			"x": 1,
		},
		"name": "Ann",
	})
	if a != b {
		t.Fatalf("logically identical inputs fingerprint differently: %s vs %s", a, b)
	}
}

func TestFingerprint_DifferentDataDiffers(t *testing.T) {
	t.Parallel()

	a := Fingerprint(map[string]any{"name": "Ann"})
	b := Fingerprint(map[string]any{"name": "Bob"})
	if a == b {
		t.Fatalf("different inputs collided")
	}
}

func TestFingerprint_SliceOrderMatters(t *testing.T) {
	t.Parallel()

	a := Fingerprint(map[string]any{"items": []any{"x", "y"}})
	b := Fingerprint(map[string]any{"items": []any{"y", "x"}})
	if a == b {
		t.Fatalf("slice order should be significant")
	}
}

func TestFingerprint_Empty(t *testing.T) {
	t.Parallel()

	if Fingerprint(nil) != Fingerprint(map[string]any{}) {
		t.Fatalf("nil and empty map should fingerprint equal")
	}
}
