package ml

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// --- Global Variables to prevent compiler optimizations ---
var resultMat *Matrix
var resultLoss float64
var resultAcc float64

// --- 1. Benchmarks: Matrix Multiplication ---

func benchmarkMatMul(b *testing.B, size int, method string) {
	m1 := NewMatrix(size, size)
	m2 := NewMatrix(size, size)
	out := NewMatrix(size, size)

	m1.Randomize()
	m2.Randomize()

	b.ResetTimer()

	if method == "Native" {
		for n := 0; n < b.N; n++ {
			MatMulGo(m1, m2, out)
		}
	} else {
		for n := 0; n < b.N; n++ {
			// Pass the underlying gonum object (.dense)
			MatMul(m1.dense, m2.dense, out)
		}
	}
	resultMat = out
}

func BenchmarkMatMul_Native_64(b *testing.B)  { benchmarkMatMul(b, 64, "Native") }
func BenchmarkMatMul_Gonum_64(b *testing.B)   { benchmarkMatMul(b, 64, "Gonum") }
func BenchmarkMatMul_Native_256(b *testing.B) { benchmarkMatMul(b, 256, "Native") }
func BenchmarkMatMul_Gonum_256(b *testing.B)  { benchmarkMatMul(b, 256, "Gonum") }
func BenchmarkMatMul_Native_512(b *testing.B) { benchmarkMatMul(b, 512, "Native") }
func BenchmarkMatMul_Gonum_512(b *testing.B)  { benchmarkMatMul(b, 512, "Gonum") }

// --- 2. Benchmarks: Activation Function Overhead ---

func BenchmarkActivation_FuncPtr(b *testing.B) {
	// 1 Million elements
	m := NewMatrix(1000, 1000)
	m.Randomize()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		// Simulating the overhead of passing a function pointer
		m.ApplyFunc(Relu)
	}
}

func BenchmarkActivation_HardcodedLoop(b *testing.B) {
	// 1 Million elements
	m := NewMatrix(1000, 1000)
	m.Randomize()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		// Simulating the optimized direct loop
		m.ApplyRelu()
	}
}

// --- 3. Benchmarks: Neural Network Operations ---

// setupNetwork prepares an MLP over flattened CIFAR input and a
// random batch
func setupNetwork(batchSize int) (*NeuralNetwork, *Matrix, []float64) {
	nn := NewNetwork(
		Input(3072),
		Dense(64),
		Dense(32),
		Dense(16),
		Dense(10, Activation("softmax")),
	)

	// Random Input
	inputData := make([]float64, batchSize*3072)
	for i := range inputData {
		inputData[i] = rand.Float64()
	}
	inputMat := &Matrix{
		rows:  batchSize,
		cols:  3072,
		data:  inputData,
		dense: mat.NewDense(batchSize, 3072, inputData),
	}

	// Random Targets (Labels 0-9)
	targets := make([]float64, batchSize)
	for i := range targets {
		targets[i] = float64(rand.Intn(10))
	}

	return nn, inputMat, targets
}

// Benchmark: Forward Pass Only (Inference Speed)
func benchmarkForward(b *testing.B, batchSize int) {
	nn, input, _ := setupNetwork(batchSize)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		nn.Forward(input)
	}
}

func BenchmarkForward_Batch_1(b *testing.B)   { benchmarkForward(b, 1) }
func BenchmarkForward_Batch_64(b *testing.B)  { benchmarkForward(b, 64) }
func BenchmarkForward_Batch_128(b *testing.B) { benchmarkForward(b, 128) }

// Benchmark: Backward Pass Only (Gradient Calculation Cost)
func benchmarkBackprop(b *testing.B, batchSize int) {
	nn, input, targets := setupNetwork(batchSize)

	// Pre-warm the state with one forward pass so Z/A matrices are populated
	nn.Forward(input)

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		// We measure ONLY the gradient calculation
		loss, acc := nn.ComputeGradients(input, targets)
		resultLoss = loss
		resultAcc = acc
	}
}

func BenchmarkBackprop_Batch_64(b *testing.B)  { benchmarkBackprop(b, 64) }
func BenchmarkBackprop_Batch_128(b *testing.B) { benchmarkBackprop(b, 128) }

// Benchmark: Convolutional Forward (dominated by im2col + MatMul)
func benchmarkConvForward(b *testing.B, batchSize int) {
	nn := NewNetwork(
		Input(3),
		Conv(32),
		MaxPool(2),
		Conv(64),
		MaxPool(2),
		Flatten(64*8*8),
		Dense(10, Activation("softmax")),
	)

	inputData := make([]float64, batchSize*3072)
	for i := range inputData {
		inputData[i] = rand.Float64()
	}
	input := NewMatrixFromSlice(batchSize, 3072, inputData)

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		nn.Forward(input)
	}
}

func BenchmarkConvForward_Batch_8(b *testing.B)  { benchmarkConvForward(b, 8) }
func BenchmarkConvForward_Batch_32(b *testing.B) { benchmarkConvForward(b, 32) }

// --- 4. Benchmarks: Optimizer Types (Micro-Benchmark) ---

func benchmarkOptimizerUpdate(b *testing.B, optType OptimizerType) {
	// 1. Setup Network (size impacts optimizer cost)
	// Using a larger network to make memory bandwidth matter more
	nn := NewNetwork(
		Input(3072),
		Dense(128),
		Dense(128),
		Dense(10, Activation("softmax")),
	)

	// 2. Fill the gradient accumulators with noise
	for _, ref := range nn.paramRefs() {
		ref.g.Randomize()
	}

	// 3. Create the specific Optimizer
	cfg := TrainingConfig{
		LearningRate: 0.01,
		Optimizer:    optType,
		MomentumMu:   0.9,
		AdamBeta1:    0.9,
		AdamBeta2:    0.999,
		AdamEps:      1e-8,
	}
	optimizer := NewOptimizer(nn, cfg)

	b.ResetTimer()

	// 4. Run the hot loop
	for n := 0; n < b.N; n++ {
		optimizer.Update(nn)
	}
}

func BenchmarkOpt_Micro_SGD(b *testing.B)      { benchmarkOptimizerUpdate(b, OptSGD) }
func BenchmarkOpt_Micro_Momentum(b *testing.B) { benchmarkOptimizerUpdate(b, OptMomentum) }
func BenchmarkOpt_Micro_Adam(b *testing.B)     { benchmarkOptimizerUpdate(b, OptAdam) }

// --- 5. Benchmarks: Full Training Step with Optimizers (Integrated) ---

func benchmarkFullStepWithOpt(b *testing.B, batchSize int, optType OptimizerType) {
	// 1. Setup
	nn, input, targets := setupNetwork(batchSize)

	// 2. Config & Optimizer
	cfg := TrainingConfig{
		LearningRate: 0.01,
		Optimizer:    optType,
		MomentumMu:   0.9,
		AdamBeta1:    0.9,
		AdamBeta2:    0.999,
		AdamEps:      1e-8,
	}
	optimizer := NewOptimizer(nn, cfg)

	b.ResetTimer()

	for n := 0; n < b.N; n++ {
		// A. Forward
		nn.Forward(input)

		// B. Backward
		nn.ComputeGradients(input, targets)

		// C. Update
		optimizer.Update(nn)
	}
}

// Comparison at Batch Size 64
func BenchmarkTrainStep_SGD_64(b *testing.B)      { benchmarkFullStepWithOpt(b, 64, OptSGD) }
func BenchmarkTrainStep_Momentum_64(b *testing.B) { benchmarkFullStepWithOpt(b, 64, OptMomentum) }
func BenchmarkTrainStep_Adam_64(b *testing.B)     { benchmarkFullStepWithOpt(b, 64, OptAdam) }

// Comparison at Batch Size 256
func BenchmarkTrainStep_SGD_256(b *testing.B)      { benchmarkFullStepWithOpt(b, 256, OptSGD) }
func BenchmarkTrainStep_Momentum_256(b *testing.B) { benchmarkFullStepWithOpt(b, 256, OptMomentum) }
func BenchmarkTrainStep_Adam_256(b *testing.B)     { benchmarkFullStepWithOpt(b, 256, OptAdam) }
