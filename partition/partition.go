// Package partition splits a sample domain [0, N) into contiguous chunks.
package partition

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned for non-positive domain sizes,
// chunk sizes, or chunk counts. It is detected before any scheduling.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Chunk is a contiguous half-open range [Start, End) of the domain.
type Chunk struct {
	Index int
	Start int
	End   int
}

// Len returns the number of samples covered by the chunk.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Plan is a fixed-size chunk layout over [0, total).
type Plan struct {
	total int
	size  int
	count int
}

// New creates a plan of ceil(total/size) chunks. The final chunk may be
// shorter than size.
func New(total, size int) (*Plan, error) {
	if total <= 0 {
		return nil, fmt.Errorf(
			"%w: domain size must be positive, got %d",
			ErrInvalidConfiguration, total,
		)
	}

	if size <= 0 {
		return nil, fmt.Errorf(
			"%w: chunk size must be positive, got %d",
			ErrInvalidConfiguration, size,
		)
	}

	return &Plan{
		total: total,
		size:  size,
		count: ceilDiv(total, size),
	}, nil
}

// ByCount creates a plan targeting the given number of chunks. The chunk
// size is ceil(total/chunks), so the resulting plan can hold fewer chunks
// than requested when chunks does not divide total.
func ByCount(total, chunks int) (*Plan, error) {
	if chunks <= 0 {
		return nil, fmt.Errorf(
			"%w: chunk count must be positive, got %d",
			ErrInvalidConfiguration, chunks,
		)
	}

	if total <= 0 {
		return nil, fmt.Errorf(
			"%w: domain size must be positive, got %d",
			ErrInvalidConfiguration, total,
		)
	}

	return New(total, ceilDiv(total, chunks))
}

// Total returns the domain size.
func (p *Plan) Total() int { return p.total }

// Size returns the nominal chunk size.
func (p *Plan) Size() int { return p.size }

// Count returns the number of chunks.
func (p *Plan) Count() int { return p.count }

// Chunk returns the i-th chunk. It panics if i is out of range.
func (p *Plan) Chunk(i int) Chunk {
	if i < 0 || i >= p.count {
		panic(fmt.Sprintf("partition: chunk index %d out of range [0, %d)", i, p.count))
	}

	start := min(i*p.size, p.total-1)

	end := p.total
	if p.size < p.total-start {
		end = start + p.size
	}

	return Chunk{
		Index: i,
		Start: start,
		End:   end,
	}
}

// Chunks materializes every chunk of the plan in index order.
func (p *Plan) Chunks() []Chunk {
	chunks := make([]Chunk, p.count)
	for i := range chunks {
		chunks[i] = p.Chunk(i)
	}

	return chunks
}

// ceilDiv requires a > 0 and b > 0. It cannot overflow.
func ceilDiv(a, b int) int {
	return 1 + (a-1)/b
}
