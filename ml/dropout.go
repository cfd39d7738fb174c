package ml

import "math/rand/v2"

func newDropout(cfg LayerConfig) *Layer {
	return &Layer{Kind: KindDropout, Act: cfg.Activation, Rate: cfg.Rate}
}

// dropoutForward zeroes each unit with probability Rate and rescales
// the survivors, so eval mode needs no correction and simply copies.
func dropoutForward(l *Layer, in *Matrix, training bool) {
	l.Z = ensure(l.Z, in.rows, in.cols)
	if !training || l.Rate == 0 {
		l.Z.CopyFrom(in)
		return
	}

	need := in.rows * in.cols
	if cap(l.mask) < need {
		l.mask = make([]float64, need)
	}
	l.mask = l.mask[:need]

	keep := 1 - l.Rate
	inv := 1 / keep
	for i := range l.mask {
		if rand.Float64() < keep {
			l.mask[i] = inv
		} else {
			l.mask[i] = 0
		}
		l.Z.data[i] = in.data[i] * l.mask[i]
	}
}

func dropoutBackward(l *Layer, in *Matrix, dZ *Matrix) *Matrix {
	l.dIn = ensure(l.dIn, in.rows, in.cols)
	for i, g := range dZ.data {
		l.dIn.data[i] = g * l.mask[i]
	}
	return l.dIn
}
