package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// flatMagic identifies the on-disk flat index format.
var flatMagic = [4]byte{'D', 'Q', 'F', 'I'}

// flatVersion is the current on-disk format version.
const flatVersion uint32 = 1

// Flat is an exact L2 nearest-neighbor index of fixed dimension. Vectors are
// stored flattened in insertion order; search is a brute-force scan. Flat is
// not safe for concurrent use — the Store serializes access per user.
type Flat struct {
	// dim is the fixed vector dimension, set at construction.
	dim int
	// data holds all vectors back to back, len == count*dim.
	data []float32
}

// Match pairs a vector's slot position with its distance from the query.
type Match struct {
	// Position is the vector's insertion-order slot in the index.
	Position int
	// Distance is the squared L2 distance from the query vector.
	Distance float32
}

// NewFlat constructs an empty flat index of the given dimension.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index: flat dimension must be positive, got %d", dim)
	}
	return &Flat{dim: dim}, nil
}

// Dim returns the fixed vector dimension.
func (f *Flat) Dim() int { return f.dim }

// Count returns the number of vectors currently stored.
func (f *Flat) Count() int { return len(f.data) / f.dim }

// Add appends vectors to the index in order. Every vector must have the
// index's dimension; on mismatch nothing is appended.
func (f *Flat) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("index: vector %d has dimension %d, want %d: %w",
				i, len(v), f.dim, ErrDimensionMismatch)
		}
	}
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Search returns the k nearest vectors to query by squared L2 distance,
// nearest first. k is clamped to the current vector count. Ties are broken
// by insertion order so results are deterministic.
func (f *Flat) Search(query []float32, k int) []Match {
	n := f.Count()
	if n == 0 || k <= 0 || len(query) != f.dim {
		return nil
	}
	if k > n {
		k = n
	}

	matches := make([]Match, n)
	for i := 0; i < n; i++ {
		row := f.data[i*f.dim : (i+1)*f.dim]
		var d float32
		for j, q := range query {
			diff := row[j] - q
			d += diff * diff
		}
		matches[i] = Match{Position: i, Distance: d}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Distance < matches[b].Distance
	})

	return matches[:k]
}

// WriteTo serializes the index in the binary flat format:
// magic, version, dim (uint32), count (uint32), then count*dim little-endian
// float32 values. It implements [io.WriterTo].
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)

	header := []any{flatMagic, flatVersion, uint32(f.dim), uint32(f.Count())}
	for _, h := range header {
		if err := binary.Write(bw, binary.LittleEndian, h); err != nil {
			return 0, fmt.Errorf("index: write flat header: %w", err)
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, f.data); err != nil {
		return 0, fmt.Errorf("index: write flat data: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("index: flush flat index: %w", err)
	}

	// magic + version + dim + count, then the float payload.
	return int64(16 + 4*len(f.data)), nil
}

// ReadFlat deserializes a flat index written by [Flat.WriteTo].
func ReadFlat(r io.Reader) (*Flat, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("index: read flat magic: %w", err)
	}
	if magic != flatMagic {
		return nil, fmt.Errorf("index: bad flat magic %q", magic[:])
	}

	var version, dim, count uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("index: read flat version: %w", err)
	}
	if version != flatVersion {
		return nil, fmt.Errorf("index: unsupported flat version %d", version)
	}
	if err := binary.Read(br, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("index: read flat dimension: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("index: read flat count: %w", err)
	}

	f, err := NewFlat(int(dim))
	if err != nil {
		return nil, err
	}
	f.data = make([]float32, int(dim)*int(count))
	if err := binary.Read(br, binary.LittleEndian, f.data); err != nil {
		return nil, fmt.Errorf("index: read flat data: %w", err)
	}

	return f, nil
}
