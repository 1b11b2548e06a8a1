package passes

import (
	"fmt"
	"math"

	"github.com/roach88/neuromap/internal/ir"
)

// Quantization pass names.
const (
	NameQuantize4  = "quantize4"
	NameQuantize8  = "quantize8"
	NameQuantize16 = "quantize16"
)

// QuantizePass maps scalar projection weights onto 2^Bits uniformly spaced
// levels covering [-1, 1]. Weights outside the range are clamped first.
// Only finite constant weights are quantized; other descriptors are listed
// as skipped.
type QuantizePass struct {
	Bits int
}

func (p QuantizePass) Name() string { return fmt.Sprintf("quantize%d", p.Bits) }

func (p QuantizePass) Run(net *ir.Network, _ ir.Capabilities, _ *ir.Annotations) (ir.Report, error) {
	if p.Bits < 1 || p.Bits > 32 {
		return nil, fmt.Errorf("%s: bits must be in [1, 32], got %d", p.Name(), p.Bits)
	}

	r := &ir.QuantizationReport{
		Bits:    p.Bits,
		Levels:  math.Exp2(float64(p.Bits)),
		Weights: make([]ir.QuantizedWeight, 0, len(net.Projections)),
	}
	for _, proj := range net.Projections {
		if !scalarWeight(proj.Weight) || math.IsNaN(proj.Weight.Value) {
			r.Skipped = append(r.Skipped, proj.ID)
			continue
		}
		q := Quantize(proj.Weight.Value, p.Bits)
		e := math.Abs(q - proj.Weight.Value)
		r.Weights = append(r.Weights, ir.QuantizedWeight{
			Projection: proj.ID,
			Weight:     proj.Weight.Value,
			Quantized:  q,
			Error:      e,
		})
		r.MaxError = max(r.MaxError, e)
	}
	return r, nil
}

// Quantize rounds w to the nearest of 2^bits levels spanning [-1, 1].
// Halfway values round away from zero on the level index.
func Quantize(w float64, bits int) float64 {
	steps := math.Exp2(float64(bits)) - 1
	if steps <= 0 {
		steps = 1
	}
	step := 2 / steps
	w = min(max(w, -1), 1)
	return math.Round((w+1)/step)*step - 1
}

func scalarWeight(w ir.Weight) bool {
	return w.Kind == "" || w.Kind == "constant"
}
