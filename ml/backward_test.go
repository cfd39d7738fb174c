package ml

import (
	"fmt"
	"math"
	"testing"
)

// waveFill writes a deterministic zero-free pattern so the gradient
// checks behave the same on every run.
func waveFill(m *Matrix, scale float64) {
	for i := range m.data {
		m.data[i] = scale * math.Sin(float64(i)*0.7+0.3)
	}
}

func waveMatrix(rows, cols int) *Matrix {
	m := NewMatrix(rows, cols)
	waveFill(m, 1)
	return m
}

// meanLoss runs a forward pass and scores it the way training does.
func meanLoss(nn *NeuralNetwork, input *Matrix, Y []float64) float64 {
	out := nn.Forward(input)
	if nn.Layers[len(nn.Layers)-1].Act == ActSoftmax {
		loss, _ := nn.ComputeLossAndAccuracy(Y)
		return loss
	}
	total := 0.0
	for i, y := range Y {
		d := out.data[i*out.cols] - y
		total += d * d
	}
	return total / float64(len(Y))
}

// numericGrad recomputes the loss with one parameter entry nudged
// both ways.
func numericGrad(nn *NeuralNetwork, input *Matrix, Y []float64, w *Matrix, i int) float64 {
	const eps = 1e-5
	orig := w.data[i]

	w.data[i] = orig + eps
	lossPlus := meanLoss(nn, input, Y)

	w.data[i] = orig - eps
	lossMinus := meanLoss(nn, input, Y)

	w.data[i] = orig
	return (lossPlus - lossMinus) / (2 * eps)
}

// checkGrad compares a few analytic gradient entries against central
// differences. The stored gradients must come from a ComputeGradients
// call made before the first nudge.
func checkGrad(t *testing.T, nn *NeuralNetwork, input *Matrix, Y []float64, name string, w, g *Matrix) {
	t.Helper()
	for _, i := range []int{0, len(w.data) / 2, len(w.data) - 1} {
		got := g.data[i]
		want := numericGrad(nn, input, Y, w, i)
		if math.Abs(got-want) > 1e-5 {
			t.Fatalf("%s[%d] gradient = %g, numeric %g", name, i, got, want)
		}
	}
}

func TestDenseGradientNumeric(t *testing.T) {
	nn := NewNetwork(
		Input(4),
		Dense(5, Activation("sigmoid")),
		Dense(3, Activation("softmax")),
	)
	for _, l := range nn.Layers {
		waveFill(l.Weights, 0.6)
		waveFill(l.Biases, 0.2)
	}
	input := waveMatrix(6, 4)
	Y := []float64{0, 1, 2, 0, 1, 2}

	nn.Forward(input)
	nn.ComputeGradients(input, Y)

	for i, l := range nn.Layers {
		checkGrad(t, nn, input, Y, fmt.Sprintf("layer %d weights", i), l.Weights, l.gW)
		checkGrad(t, nn, input, Y, fmt.Sprintf("layer %d biases", i), l.Biases, l.gB)
	}
}

func TestRegressionGradientNumeric(t *testing.T) {
	nn := NewNetwork(
		Input(3),
		Dense(4, Activation("sigmoid")),
		Dense(1, Activation("linear")),
	)
	for _, l := range nn.Layers {
		waveFill(l.Weights, 0.7)
		waveFill(l.Biases, 0.1)
	}
	input := waveMatrix(4, 3)
	Y := []float64{0.5, -1.2, 0.3, 2.0}

	nn.Forward(input)
	nn.ComputeGradients(input, Y)

	for i, l := range nn.Layers {
		checkGrad(t, nn, input, Y, fmt.Sprintf("layer %d weights", i), l.Weights, l.gW)
		checkGrad(t, nn, input, Y, fmt.Sprintf("layer %d biases", i), l.Biases, l.gB)
	}
}

func TestConvGradientNumeric(t *testing.T) {
	// Smooth activations and average pooling keep the loss surface
	// differentiable everywhere, which central differences need.
	nn := NewNetwork(
		Input(2),
		Conv(3, Activation("sigmoid")),
		AvgPool(2),
		Flatten(3*3*3),
		Dense(2, Activation("softmax")),
	)
	conv := nn.Layers[0]
	dense := nn.Layers[3]
	waveFill(conv.Kernel, 0.5)
	waveFill(conv.KBias, 0.2)
	waveFill(dense.Weights, 0.4)
	waveFill(dense.Biases, 0.1)

	input := waveMatrix(3, 2*6*6)
	Y := []float64{0, 1, 0}

	nn.Forward(input)
	nn.ComputeGradients(input, Y)

	checkGrad(t, nn, input, Y, "kernel", conv.Kernel, conv.gK)
	checkGrad(t, nn, input, Y, "conv bias", conv.KBias, conv.gKB)
	checkGrad(t, nn, input, Y, "dense weights", dense.Weights, dense.gW)
}

func TestBatchNormGradientNumeric(t *testing.T) {
	nn := NewNetwork(
		Input(2),
		Conv(3, NoBias(), Activation("linear")),
		BatchNorm(Activation("sigmoid")),
		Flatten(3*4*4),
		Dense(2, Activation("softmax")),
	)
	conv := nn.Layers[0]
	bn := nn.Layers[1]
	dense := nn.Layers[3]
	waveFill(conv.Kernel, 0.5)
	waveFill(bn.Beta, 0.1)
	waveFill(dense.Weights, 0.4)
	waveFill(dense.Biases, 0.1)

	input := waveMatrix(4, 2*4*4)
	Y := []float64{0, 1, 1, 0}

	// Batch statistics must be live for both the analytic pass and
	// every nudged forward.
	nn.SetTraining(true)
	nn.Forward(input)
	nn.ComputeGradients(input, Y)

	checkGrad(t, nn, input, Y, "gamma", bn.Gamma, bn.gGamma)
	checkGrad(t, nn, input, Y, "beta", bn.Beta, bn.gBeta)
	// Checking the kernel exercises the normalization backward path,
	// including the terms through the batch mean and variance.
	checkGrad(t, nn, input, Y, "kernel", conv.Kernel, conv.gK)
}
