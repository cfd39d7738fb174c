package ml

import "gonum.org/v1/gonum/floats"

// newResidual wires one basic block: two 3x3 conv-norm stages on the
// main path, ReLU after the sum. The shortcut is the identity when the
// geometry is unchanged, otherwise a strided 1x1 projection with its
// own normalization.
func newResidual(cfg LayerConfig, inCh int) *Layer {
	out := cfg.Neurons
	l := &Layer{
		Kind:     KindResidual,
		Act:      cfg.Activation,
		InCh:     inCh,
		OutCh:    out,
		Channels: out,
		Stride:   cfg.Stride,
		Body: []*Layer{
			newConv(Conv(out, Stride(cfg.Stride), NoBias(), Activation("linear")), inCh),
			newBatchNorm(BatchNorm(Activation("relu")), out),
			newConv(Conv(out, NoBias(), Activation("linear")), out),
			newBatchNorm(BatchNorm(), out),
		},
	}
	if cfg.Stride != 1 || inCh != out {
		l.Shortcut = []*Layer{
			newConv(Conv(out, Kernel(1), Stride(cfg.Stride), Pad(0), NoBias(), Activation("linear")), inCh),
			newBatchNorm(BatchNorm(), out),
		}
	}
	return l
}

// residualForward runs both branches from the same input and sums
// them into Z. Branch outputs must agree in shape; the element-wise
// add panics if they do not.
func residualForward(l *Layer, in *Matrix, training bool) {
	cur := in
	for _, inner := range l.Body {
		layerForward(inner, cur, training)
		cur = inner.A
	}

	short := in
	if l.Shortcut != nil {
		s := in
		for _, inner := range l.Shortcut {
			layerForward(inner, s, training)
			s = inner.A
		}
		short = s
	}

	l.Z = ensure(l.Z, cur.rows, cur.cols)
	l.Z.CopyFrom(cur)
	floats.Add(l.Z.data, short.data)
}

// residualBackward sends the summed gradient down both branches and
// adds the two input gradients back together.
func residualBackward(l *Layer, in *Matrix, dZ *Matrix) *Matrix {
	grad := dZ
	for i := len(l.Body) - 1; i >= 0; i-- {
		innerIn := in
		if i > 0 {
			innerIn = l.Body[i-1].A
		}
		grad = layerBackward(l.Body[i], innerIn, grad)
	}
	dMain := grad

	dShort := dZ
	if l.Shortcut != nil {
		g := dZ
		for i := len(l.Shortcut) - 1; i >= 0; i-- {
			innerIn := in
			if i > 0 {
				innerIn = l.Shortcut[i-1].A
			}
			g = layerBackward(l.Shortcut[i], innerIn, g)
		}
		dShort = g
	}

	l.dIn = ensure(l.dIn, in.rows, in.cols)
	l.dIn.CopyFrom(dMain)
	floats.Add(l.dIn.data, dShort.data)
	return l.dIn
}
