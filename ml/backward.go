package ml

import "gonum.org/v1/gonum/floats"

// ComputeGradients runs backpropagation after a Forward call, filling
// every layer's gradient accumulators. Returns the batch loss and
// accuracy; accuracy is zero for regression outputs.
func (nw *NeuralNetwork) ComputeGradients(input *Matrix, Y []float64) (float64, float64) {
	lastLayerIdx := len(nw.Layers) - 1
	lastLayer := nw.Layers[lastLayerIdx]

	var loss, acc float64
	lastLayer.dZ = ensure(lastLayer.dZ, lastLayer.A.rows, lastLayer.A.cols)

	// 1. Output Error
	switch lastLayer.Act {
	case ActSoftmax:
		// Softmax + CrossEntropy collapse to A - onehot
		loss, acc = nw.ComputeLossAndAccuracy(Y)
		copy(lastLayer.dZ.data, lastLayer.A.data)
		for i, classLabel := range Y {
			idx := i*lastLayer.dZ.cols + int(classLabel)
			lastLayer.dZ.data[idx] -= 1.0
		}

	case ActLinear:
		// Mean squared error on the first output column
		out := lastLayer.A
		lastLayer.dZ.Reset()
		total := 0.0
		for i := range Y {
			d := out.data[i*out.cols] - Y[i]
			total += d * d
			lastLayer.dZ.data[i*out.cols] = 2 * d
		}
		loss = total / float64(out.rows)

	default:
		panic("Only softmax and linear output layers are supported")
	}

	// 2. Backprop Loop
	aPrev := func(i int) *Matrix {
		if i == 0 {
			return input
		}
		return nw.Layers[i-1].A
	}

	grad := kindBackward(lastLayer, aPrev(lastLayerIdx), lastLayer.dZ)
	for i := lastLayerIdx - 1; i >= 0; i-- {
		grad = layerBackward(nw.Layers[i], aPrev(i), grad)
	}

	return loss, acc
}

// layerBackward applies the layer's activation derivative to the
// incoming gradient, then hands the pre-activation gradient to the
// kind-specific pass. The incoming matrix is never modified.
func layerBackward(l *Layer, in *Matrix, grad *Matrix) *Matrix {
	l.dZ = ensure(l.dZ, grad.rows, grad.cols)
	l.dZ.CopyFrom(grad)

	switch l.Act {
	case ActRelu:
		for k, z := range l.Z.data {
			if z <= 0 {
				l.dZ.data[k] = 0
			}
		}
	case ActSigmoid:
		for k := range l.dZ.data {
			a := l.A.data[k]
			l.dZ.data[k] *= a * (1.0 - a)
		}
	}

	return kindBackward(l, in, l.dZ)
}

func kindBackward(l *Layer, in *Matrix, dZ *Matrix) *Matrix {
	switch l.Kind {
	case KindDense:
		return denseBackward(l, in, dZ)
	case KindConv:
		return convBackward(l, in, dZ)
	case KindMaxPool:
		return maxPoolBackward(l, in, dZ)
	case KindAvgPool:
		return avgPoolBackward(l, in, dZ)
	case KindBatchNorm:
		return bnBackward(l, in, dZ)
	case KindDropout:
		return dropoutBackward(l, in, dZ)
	case KindResidual:
		return residualBackward(l, in, dZ)
	}
	// Flatten relabels the width, gradients pass through untouched
	return dZ
}

func denseBackward(l *Layer, in *Matrix, dZ *Matrix) *Matrix {
	scale := 1.0 / float64(in.rows)

	MatMul(in.dense.T(), dZ.dense, l.gW)
	floats.Scale(scale, l.gW.data)

	// Calc db
	l.gB.Reset()
	dZData := dZ.data
	dbData := l.gB.data
	cols := dZ.cols
	for r := 0; r < dZ.rows; r++ {
		rowOffset := r * cols
		for c := 0; c < cols; c++ {
			dbData[c] += dZData[rowOffset+c]
		}
	}
	floats.Scale(scale, l.gB.data)

	l.dIn = ensure(l.dIn, in.rows, in.cols)
	MatMul(dZ.dense, l.Weights.dense.T(), l.dIn)
	return l.dIn
}
