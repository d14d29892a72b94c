package index

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func Test_Flat_AddAndSearch_RanksByDistance(t *testing.T) {
	t.Parallel()

	f, err := NewFlat(2)
	if err != nil {
		t.Fatalf("NewFlat: %v", err)
	}
	vectors := [][]float32{
		{10, 10},
		{0, 1},
		{1, 0},
		{0, 0},
	}
	if err := f.Add(vectors); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got := f.Search([]float32{0, 0}, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(got))
	}
	if got[0].Position != 3 {
		t.Errorf("nearest match position = %d, want 3", got[0].Position)
	}
	if got[0].Distance != 0 {
		t.Errorf("nearest match distance = %v, want 0", got[0].Distance)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Distance < got[i-1].Distance {
			t.Errorf("matches not sorted: %v before %v", got[i-1].Distance, got[i].Distance)
		}
	}
}

func Test_Flat_Search_TieBreaksByInsertionOrder(t *testing.T) {
	t.Parallel()

	f, _ := NewFlat(1)
	if err := f.Add([][]float32{{1}, {-1}, {1}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got := f.Search([]float32{0}, 3)
	want := []int{0, 1, 2}
	for i, m := range got {
		if m.Position != want[i] {
			t.Errorf("position[%d] = %d, want %d", i, m.Position, want[i])
		}
	}
}

func Test_Flat_Search_ClampsKAndRejectsBadQuery(t *testing.T) {
	t.Parallel()

	f, _ := NewFlat(2)
	if err := f.Add([][]float32{{1, 2}, {3, 4}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if got := f.Search([]float32{0, 0}, 10); len(got) != 2 {
		t.Errorf("k past count: got %d matches, want 2", len(got))
	}
	if got := f.Search([]float32{0, 0}, 0); got != nil {
		t.Errorf("k=0: got %v, want nil", got)
	}
	if got := f.Search([]float32{0, 0, 0}, 1); got != nil {
		t.Errorf("wrong query dimension: got %v, want nil", got)
	}
	empty, _ := NewFlat(2)
	if got := empty.Search([]float32{0, 0}, 1); got != nil {
		t.Errorf("empty index: got %v, want nil", got)
	}
}

func Test_Flat_Add_RejectsDimensionMismatch(t *testing.T) {
	t.Parallel()

	f, _ := NewFlat(2)
	err := f.Add([][]float32{{1, 2}, {1, 2, 3}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if f.Count() != 0 {
		t.Errorf("failed add mutated index: count = %d, want 0", f.Count())
	}
}

func Test_Flat_RoundTrip_PreservesVectors(t *testing.T) {
	t.Parallel()

	f, _ := NewFlat(3)
	vectors := [][]float32{
		{0.1, -0.2, 0.3},
		{float32(math.Pi), 0, -1},
	}
	if err := f.Add(vectors); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := ReadFlat(&buf)
	if err != nil {
		t.Fatalf("ReadFlat: %v", err)
	}
	if got.Dim() != 3 || got.Count() != 2 {
		t.Fatalf("round-trip shape = (%d, %d), want (3, 2)", got.Dim(), got.Count())
	}
	for i := range f.data {
		if got.data[i] != f.data[i] {
			t.Errorf("data[%d] = %v, want %v", i, got.data[i], f.data[i])
		}
	}
}

func Test_ReadFlat_RejectsCorruptInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", []byte("NOPE\x01\x00\x00\x00")},
		{"truncated header", []byte("DQFI\x01\x00")},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ReadFlat(bytes.NewReader(tc.data)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func Test_NewFlat_RejectsNonPositiveDimension(t *testing.T) {
	t.Parallel()

	for _, dim := range []int{0, -1} {
		if _, err := NewFlat(dim); err == nil {
			t.Errorf("NewFlat(%d): expected error, got nil", dim)
		}
	}
}
