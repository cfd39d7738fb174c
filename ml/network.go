package ml

import "math"

type NeuralNetwork struct {
	Layers   []*Layer
	training bool
}

// Neural Network Builder
func NewNetwork(configs ...LayerConfig) *NeuralNetwork {
	if len(configs) < 2 {
		panic("Network must have at least Input and one Output layer")
	}
	if !configs[0].IsInput {
		panic("First layer must be Input()")
	}

	nn := &NeuralNetwork{}
	prevOutputSize := configs[0].Neurons // Channels for conv stacks, features for dense

	for i := 1; i < len(configs); i++ {
		cfg := configs[i]

		var layer *Layer
		switch cfg.Kind {
		case KindDense:
			layer = newDense(cfg, prevOutputSize)
			prevOutputSize = cfg.Neurons

		case KindConv:
			layer = newConv(cfg, prevOutputSize)
			prevOutputSize = cfg.Neurons

		case KindMaxPool:
			// Pooling keeps the channel count
			layer = newMaxPool(cfg, prevOutputSize)

		case KindAvgPool:
			layer = newAvgPool(cfg, prevOutputSize)

		case KindBatchNorm:
			layer = newBatchNorm(cfg, prevOutputSize)

		case KindDropout:
			layer = newDropout(cfg)

		case KindFlatten:
			// The declared size is trusted as-is. If it disagrees with
			// the conv output, the next dense product blows up.
			layer = &Layer{Kind: KindFlatten, Act: cfg.Activation, FlatSize: cfg.Neurons}
			prevOutputSize = cfg.Neurons

		case KindResidual:
			layer = newResidual(cfg, prevOutputSize)
			prevOutputSize = cfg.Neurons
		}

		nn.Layers = append(nn.Layers, layer)
	}

	return nn
}

func newDense(cfg LayerConfig, inSize int) *Layer {
	l := &Layer{
		Kind:    KindDense,
		Act:     cfg.Activation,
		Weights: NewMatrix(inSize, cfg.Neurons),
		Biases:  NewMatrix(1, cfg.Neurons),
		gW:      NewMatrix(inSize, cfg.Neurons),
		gB:      NewMatrix(1, cfg.Neurons),
	}
	if cfg.Activation == ActRelu {
		l.Weights.Randomize()
	} else {
		l.Weights.RandomizeXavier()
	}
	return l
}

// -------- NEURAL NETWORK METHODS -------- //
// SetTraining switches batch norm and dropout between batch-statistics
// mode and inference mode.
func (nw *NeuralNetwork) SetTraining(t bool) {
	nw.training = t
}

func (nw *NeuralNetwork) Forward(input *Matrix) *Matrix {
	activation := input
	for _, layer := range nw.Layers {
		layerForward(layer, activation, nw.training)
		activation = layer.A
	}
	return activation
}

func layerForward(l *Layer, in *Matrix, training bool) {
	switch l.Kind {
	case KindDense:
		l.Z = ensure(l.Z, in.rows, l.Weights.cols)
		MatMul(in.dense, l.Weights.dense, l.Z)
		l.Z.AddVector(l.Biases)

	case KindConv:
		convForward(l, in)

	case KindMaxPool:
		maxPoolForward(l, in)

	case KindAvgPool:
		avgPoolForward(l, in)

	case KindBatchNorm:
		bnForward(l, in, training)

	case KindDropout:
		dropoutForward(l, in, training)

	case KindFlatten:
		l.Z = ensure(l.Z, in.rows, in.cols)
		l.Z.CopyFrom(in)

	case KindResidual:
		residualForward(l, in, training)
	}

	l.A = ensure(l.A, l.Z.rows, l.Z.cols)
	l.A.CopyFrom(l.Z)
	switch l.Act {
	case ActSoftmax:
		SoftmaxRow(l.A)
	case ActRelu:
		l.A.ApplyRelu()
	case ActSigmoid:
		l.A.ApplySigmoid()
	case ActLinear:
	default:
		panic("Unknown activation type")
	}
}

func (nw *NeuralNetwork) ComputeLossAndAccuracy(Y []float64) (float64, float64) {
	output := nw.Layers[len(nw.Layers)-1].A
	totalLoss := 0.0
	correctCount := 0
	epsilon := 1e-15

	for i := 0; i < output.rows; i++ {
		maxProb := -1.0
		predictedClass := -1
		targetClass := Y[i]

		for j := 0; j < output.cols; j++ {
			prob := output.data[i*output.cols+j]
			if prob > maxProb {
				maxProb = prob
				predictedClass = j
			}
			if j == int(targetClass) {
				totalLoss += -math.Log(prob + epsilon)
			}
		}
		if predictedClass == int(targetClass) {
			correctCount++
		}
	}
	return totalLoss / float64(output.rows), float64(correctCount) / float64(output.rows)
}

// -------- PARAMETER TRAVERSAL -------- //
// paramRef pairs a trainable tensor with its gradient accumulator.
// Both live for the life of the network, so optimizers can hold on to
// the refs they get at construction.
type paramRef struct {
	w, g *Matrix
}

func (nw *NeuralNetwork) paramRefs() []paramRef {
	var refs []paramRef
	for _, l := range nw.Layers {
		refs = append(refs, layerParams(l)...)
	}
	return refs
}

func layerParams(l *Layer) []paramRef {
	var refs []paramRef
	switch l.Kind {
	case KindDense:
		refs = append(refs, paramRef{l.Weights, l.gW}, paramRef{l.Biases, l.gB})
	case KindConv:
		refs = append(refs, paramRef{l.Kernel, l.gK})
		if l.KBias != nil {
			refs = append(refs, paramRef{l.KBias, l.gKB})
		}
	case KindBatchNorm:
		refs = append(refs, paramRef{l.Gamma, l.gGamma}, paramRef{l.Beta, l.gBeta})
	case KindResidual:
		for _, inner := range l.Body {
			refs = append(refs, layerParams(inner)...)
		}
		for _, inner := range l.Shortcut {
			refs = append(refs, layerParams(inner)...)
		}
	}
	return refs
}

// allLayers flattens residual branches into one list, outermost first.
func (nw *NeuralNetwork) allLayers() []*Layer {
	var out []*Layer
	var walk func(ls []*Layer)
	walk = func(ls []*Layer) {
		for _, l := range ls {
			out = append(out, l)
			walk(l.Body)
			walk(l.Shortcut)
		}
	}
	walk(nw.Layers)
	return out
}

// ParamCount returns the number of trainable scalars.
func (nw *NeuralNetwork) ParamCount() int {
	total := 0
	for _, ref := range nw.paramRefs() {
		total += len(ref.w.data)
	}
	return total
}
