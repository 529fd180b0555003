package vector

import "testing"

func TestCosineUnitVectors(t *testing.T) {
	v := []float32{0.6, 0.8, 0}
	if got := Cosine(v, v); got < 1-1e-6 || got > 1+1e-6 {
		t.Fatalf("cosine(v,v) = %v, want ~1", got)
	}

	neg := []float32{-0.6, -0.8, 0}
	if got := Cosine(v, neg); got < -1-1e-6 || got > -1+1e-6 {
		t.Fatalf("cosine(v,-v) = %v, want ~-1", got)
	}
}

func TestCosineEdgeCases(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
	}{
		{"empty both", nil, nil},
		{"empty a", nil, []float32{1}},
		{"mismatched length", []float32{1, 2}, []float32{1, 2, 3}},
		{"zero norm a", []float32{0, 0}, []float32{1, 1}},
		{"zero norm b", []float32{1, 1}, []float32{0, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Cosine(tc.a, tc.b); got != -1 {
				t.Fatalf("Cosine(%v, %v) = %v, want -1", tc.a, tc.b, got)
			}
		})
	}
}

func TestCosineOrthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := Cosine(a, b); got < -1e-9 || got > 1e-9 {
		t.Fatalf("cosine of orthogonal vectors = %v, want ~0", got)
	}
}
