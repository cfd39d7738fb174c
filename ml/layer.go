package ml

import (
	"math"
)

type LayerKind int

const (
	KindDense LayerKind = iota
	KindConv
	KindMaxPool
	KindAvgPool
	KindBatchNorm
	KindDropout
	KindFlatten
	KindResidual
)

type ActivationType int

const (
	ActLinear ActivationType = iota
	ActRelu
	ActSigmoid
	ActSoftmax
)

var activationMap = map[string]ActivationType{
	"linear":  ActLinear,
	"sigmoid": ActSigmoid,
	"relu":    ActRelu,
	"softmax": ActSoftmax,
}

// M is the pooling marker inside a Stack token list.
const M = -1

// -------- TYPE DEFINITIONS -------- //
type LayerOption func(*LayerConfig)

// LayerConfig holds the blueprint for a layer
type LayerConfig struct {
	Kind       LayerKind
	Neurons    int // dense width, conv output channels, or declared flatten size
	IsInput    bool
	Activation ActivationType

	// Convolution / pooling geometry
	KernelSize int
	Stride     int
	Padding    int
	NoBias     bool

	// Dropout
	Rate float64
}

// Layer is one runtime stage. Which field groups are live depends on
// Kind; the rest stay nil. Residual blocks nest further layers.
type Layer struct {
	Kind LayerKind
	Act  ActivationType

	// Dense parameters
	Weights *Matrix // [in, out]
	Biases  *Matrix // [1, out]

	// Convolution parameters
	Kernel *Matrix // [inC*k*k, outC]
	KBias  *Matrix // [1, outC], nil for bias-free convolutions
	InCh   int
	OutCh  int
	KSize  int
	Stride int
	Pad    int

	// Channel count for pooling and normalization stages
	Channels int

	// Batch normalization parameters and running statistics
	Gamma   *Matrix // [1, channels]
	Beta    *Matrix // [1, channels]
	RunMean *Matrix // [1, channels]
	RunVar  *Matrix // [1, channels]

	// Dropout probability
	Rate float64

	// Declared flatten size. Never checked against the actual
	// convolutional output; a wrong value surfaces as a shape panic
	// in the next dense layer's matrix product.
	FlatSize int

	// Residual branches
	Body     []*Layer
	Shortcut []*Layer

	// Forward State
	Z *Matrix
	A *Matrix

	// Parameter gradients, allocated alongside their parameters
	gW, gB        *Matrix
	gK, gKB       *Matrix
	gGamma, gBeta *Matrix

	// Backward state and reusable scratch
	dZ, dIn        *Matrix
	cols, colsGrad *Matrix // im2col patch buffers
	mm, mmGrad     *Matrix // patch product buffers
	xhat           *Matrix
	invStd         []float64
	argmax         []int
	mask           []float64
	inSide         int
	outSide        int
}

// ------- LAYER CONFIG HELPERS ------- //
// Input defines the entry point width: channels for convolutional
// stacks, feature count for fully-connected networks.
func Input(size int) LayerConfig {
	return LayerConfig{
		Neurons:    size,
		IsInput:    true,
		Activation: ActLinear,
	}
}

// Dense defines a fully connected layer.
func Dense(size int, opts ...LayerOption) LayerConfig {
	d := LayerConfig{
		Kind:       KindDense,
		Neurons:    size,
		Activation: ActRelu, // Default for hidden layers
	}

	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Conv defines a 2-D convolution to the given channel count.
// Defaults: 3x3 kernel, stride 1, padding 1, ReLU.
func Conv(channels int, opts ...LayerOption) LayerConfig {
	c := LayerConfig{
		Kind:       KindConv,
		Neurons:    channels,
		Activation: ActRelu,
		KernelSize: 3,
		Stride:     1,
		Padding:    1,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// MaxPool defines a size x size max pooling stage with stride = size.
func MaxPool(size int) LayerConfig {
	return LayerConfig{Kind: KindMaxPool, KernelSize: size, Activation: ActLinear}
}

// AvgPool defines a size x size average pooling stage with stride = size.
func AvgPool(size int) LayerConfig {
	return LayerConfig{Kind: KindAvgPool, KernelSize: size, Activation: ActLinear}
}

// BatchNorm defines a per-channel normalization stage over the current
// width. Pass Activation("relu") for the usual conv-norm-relu pattern.
func BatchNorm(opts ...LayerOption) LayerConfig {
	b := LayerConfig{Kind: KindBatchNorm, Activation: ActLinear}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Dropout defines an inverted-dropout stage active only in training.
func Dropout(rate float64) LayerConfig {
	return LayerConfig{Kind: KindDropout, Rate: rate, Activation: ActLinear}
}

// Flatten resets the current width to the caller-computed flattened
// feature size. The value is taken on faith.
func Flatten(size int) LayerConfig {
	return LayerConfig{Kind: KindFlatten, Neurons: size, Activation: ActLinear}
}

// Residual defines one basic residual block to the given channel count.
// The shortcut becomes a 1x1 projection when the stride or channel
// count changes, identity otherwise.
func Residual(channels int, opts ...LayerOption) LayerConfig {
	r := LayerConfig{
		Kind:       KindResidual,
		Neurons:    channels,
		Activation: ActRelu,
		Stride:     1,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func Activation(activation string) LayerOption {
	return func(lc *LayerConfig) {
		act, exists := activationMap[activation]
		if !exists {
			panic("Unknown activation: " + activation)
		}
		lc.Activation = act
	}
}

func Kernel(size int) LayerOption {
	return func(lc *LayerConfig) {
		lc.KernelSize = size
	}
}

func Stride(s int) LayerOption {
	return func(lc *LayerConfig) {
		lc.Stride = s
	}
}

func Pad(p int) LayerOption {
	return func(lc *LayerConfig) {
		lc.Padding = p
	}
}

func NoBias() LayerOption {
	return func(lc *LayerConfig) {
		lc.NoBias = true
	}
}

// Stack expands the channel-count / pooling-marker shorthand into
// convolutional stages: every positive token becomes a convolution to
// that many channels (conv-norm-relu when batchNorm is set, conv-relu
// otherwise) and every M becomes a 2x2 max pool. Token values are not
// validated; a bad count fails wherever the shapes first collide.
func Stack(batchNorm bool, tokens ...int) []LayerConfig {
	var cfgs []LayerConfig
	for _, t := range tokens {
		if t == M {
			cfgs = append(cfgs, MaxPool(2))
			continue
		}
		if batchNorm {
			cfgs = append(cfgs, Conv(t, Activation("linear")), BatchNorm(Activation("relu")))
		} else {
			cfgs = append(cfgs, Conv(t))
		}
	}
	return cfgs
}

func Relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// SoftmaxRow applies softmax to each row of the matrix.
func SoftmaxRow(m *Matrix) {
	for i := 0; i < m.rows; i++ {
		maxVal := -math.MaxFloat64
		for j := 0; j < m.cols; j++ {
			if m.data[i*m.cols+j] > maxVal {
				maxVal = m.data[i*m.cols+j]
			}
		}
		sum := 0.0
		for j := 0; j < m.cols; j++ {
			val := math.Exp(m.data[i*m.cols+j] - maxVal)
			m.data[i*m.cols+j] = val
			sum += val
		}
		for j := 0; j < m.cols; j++ {
			m.data[i*m.cols+j] /= sum
		}
	}
}
