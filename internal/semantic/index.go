package semantic

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

// indexMagic identifies the on-disk flat index format.
var indexMagic = [4]byte{'D', 'C', 'I', 'X'}

// FlatIndex is an exact nearest-neighbor index over fixed-dimension
// float32 vectors. Vectors are stored in insertion order; position i in the
// index is the join key to metadata entry i.
type FlatIndex struct {
	dim  int
	data []float32
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

// Dim returns the vector dimension.
func (x *FlatIndex) Dim() int { return x.dim }

// Len returns the number of indexed vectors.
func (x *FlatIndex) Len() int {
	if x.dim == 0 {
		return 0
	}
	return len(x.data) / x.dim
}

// Add appends one vector to the index.
func (x *FlatIndex) Add(vec []float32) error {
	if len(vec) != x.dim {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), x.dim)
	}
	x.data = append(x.data, vec...)
	return nil
}

// Search returns the positions and L2 distances of the k vectors closest to
// query, ordered by ascending distance. Fewer than k results are returned
// only when the index holds fewer than k vectors.
func (x *FlatIndex) Search(query []float32, k int) ([]int, []float32, error) {
	if len(query) != x.dim {
		return nil, nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), x.dim)
	}
	n := x.Len()
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil, nil
	}

	type hit struct {
		id   int
		dist float32
	}
	hits := make([]hit, n)
	for i := 0; i < n; i++ {
		row := x.data[i*x.dim : (i+1)*x.dim]
		var sum float64
		for j, v := range row {
			d := float64(v) - float64(query[j])
			sum += d * d
		}
		hits[i] = hit{id: i, dist: float32(math.Sqrt(sum))}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].dist != hits[b].dist {
			return hits[a].dist < hits[b].dist
		}
		return hits[a].id < hits[b].id
	})

	ids := make([]int, k)
	dists := make([]float32, k)
	for i := 0; i < k; i++ {
		ids[i] = hits[i].id
		dists[i] = hits[i].dist
	}
	return ids, dists, nil
}

// WriteTo serializes the index: magic, dimension, count, then the vectors
// as little-endian float32 values.
func (x *FlatIndex) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if _, err := cw.Write(indexMagic[:]); err != nil {
		return cw.n, err
	}
	header := [2]uint32{uint32(x.dim), uint32(x.Len())}
	if err := binary.Write(cw, binary.LittleEndian, header[:]); err != nil {
		return cw.n, err
	}
	if err := binary.Write(cw, binary.LittleEndian, x.data); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// ReadIndex deserializes an index written by WriteTo.
func ReadIndex(r io.Reader) (*FlatIndex, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read index magic: %w", err)
	}
	if magic != indexMagic {
		return nil, errors.New("not a vector index file")
	}

	var header [2]uint32
	if err := binary.Read(r, binary.LittleEndian, header[:]); err != nil {
		return nil, fmt.Errorf("read index header: %w", err)
	}
	dim, count := int(header[0]), int(header[1])
	if dim <= 0 {
		return nil, fmt.Errorf("invalid index dimension %d", dim)
	}

	data := make([]float32, dim*count)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("read index vectors: %w", err)
	}
	return &FlatIndex{dim: dim, data: data}, nil
}

// Normalize scales vec to unit length in place. Zero vectors are left
// untouched. Unit-norm vectors keep pairwise L2 distances in [0, 2], which
// the similarity score depends on.
func Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
