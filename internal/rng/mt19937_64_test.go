package rng

import "testing"

func TestDeterminism(t *testing.T) {
	r1 := New(42)
	r2 := New(42)
	for i := 0; i < 1000; i++ {
		if r1.Uint64() != r2.Uint64() {
			t.Fatalf("determinism broken at iteration %d", i)
		}
	}
}

func TestDifferentSeeds(t *testing.T) {
	r1 := New(42)
	r2 := New(43)
	same := 0
	for i := 0; i < 100; i++ {
		if r1.Uint64() == r2.Uint64() {
			same++
		}
	}
	if same > 2 {
		t.Fatalf("different seeds produced %d/100 identical values", same)
	}
}

func TestFloat64Bounds(t *testing.T) {
	r := New(42)
	for i := 0; i < 10000; i++ {
		v := r.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("Float64() = %f, out of [0, 1)", v)
		}
	}
}

func TestUniform01StrictBounds(t *testing.T) {
	r := New(1)
	for i := 0; i < 10000; i++ {
		v := r.Uniform01()
		if v <= 0 || v >= 1 {
			t.Fatalf("Uniform01() = %f, out of (0, 1)", v)
		}
	}
}

func TestIntnBounds(t *testing.T) {
	r := New(42)
	for i := 0; i < 10000; i++ {
		v := r.Intn(10)
		if v < 0 || v >= 10 {
			t.Fatalf("Intn(10) = %d, out of [0, 10)", v)
		}
	}
}

func TestIntnZero(t *testing.T) {
	r := New(42)
	if r.Intn(0) != 0 {
		t.Fatal("Intn(0) should return 0")
	}
}

func TestStateRoundTrip(t *testing.T) {
	r1 := New(99)
	for i := 0; i < 500; i++ {
		r1.Uint64()
	}
	saved := r1.StateBytes()

	r2 := New(1) // different seed
	r2.RestoreStateBytes(saved)

	for i := 0; i < 100; i++ {
		a := r1.Uint64()
		b := r2.Uint64()
		if a != b {
			t.Fatalf("restored RNG diverged at draw %d: %d != %d", i, a, b)
		}
	}
}

func TestGaussianFinite(t *testing.T) {
	r := New(123)
	for i := 0; i < 10000; i++ {
		v := r.Gaussian()
		if v != v { // NaN check
			t.Fatal("Gaussian produced NaN")
		}
	}
}
