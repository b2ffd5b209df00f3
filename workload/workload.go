// Package workload defines the per-chunk work items reduced by the
// scheduler. An Item is a pure function of its chunk and read-only
// captured parameters; it is safe to call from any number of goroutines.
//
// The reference integrands estimate pi with the midpoint rule over
// [0, 1]. Each chunk's partial result is already scaled by the step
// width, so summing every partial yields the estimate directly.
package workload

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/weiihann/reducebench/partition"
)

// ErrUnknownIntegrand is returned by Lookup for unregistered names.
var ErrUnknownIntegrand = errors.New("unknown integrand")

// Item computes the partial result of one chunk.
type Item func(c partition.Chunk) (float64, error)

// Integrand is a named function on [0, 1] with a known integral.
type Integrand struct {
	Name   string
	Target float64
	f      func(x float64) float64
}

var integrands = map[string]Integrand{
	"arctan": {
		Name:   "arctan",
		Target: math.Pi,
		f: func(x float64) float64 {
			return 4.0 / (1.0 + x*x)
		},
	},
	"circle": {
		Name:   "circle",
		Target: math.Pi,
		f: func(x float64) float64 {
			return 4.0 * math.Sqrt(1.0-x*x)
		},
	},
}

// Lookup returns the integrand registered under name.
func Lookup(name string) (Integrand, error) {
	in, ok := integrands[name]
	if !ok {
		return Integrand{}, fmt.Errorf("%w %q (known: %v)",
			ErrUnknownIntegrand, name, Names())
	}

	return in, nil
}

// Names returns the registered integrand names in sorted order.
func Names() []string {
	names := make([]string, 0, len(integrands))
	for name := range integrands {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Item returns the work item for a domain of total samples.
func (in Integrand) Item(total int) Item {
	step := 1.0 / float64(total)
	f := in.f

	return func(c partition.Chunk) (float64, error) {
		var local float64
		for i := c.Start; i < c.End; i++ {
			x := (float64(i) + 0.5) * step
			local += f(x)
		}

		return local * step, nil
	}
}

// Reference reduces every chunk of plan on the calling goroutine in index
// order. It is the baseline the concurrent strategies are checked against.
func Reference(item Item, plan *partition.Plan) (float64, error) {
	var sum float64
	for i := range plan.Count() {
		v, err := item(plan.Chunk(i))
		if err != nil {
			return 0, fmt.Errorf("chunk %d: %w", i, err)
		}

		sum += v
	}

	return sum, nil
}
