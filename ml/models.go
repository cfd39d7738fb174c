package ml

import "fmt"

// vggConfig is the channel / pool-marker schedule shared by both VGG
// variants. Five pools take a 32x32 input down to 1x1, so the final
// 512 channels flatten to 512 features.
var vggConfig = []int{64, M, 128, M, 256, 256, M, 512, 512, M, 512, 512, M}

// NewVGG builds a VGG-style network: the token schedule as a conv
// stack, then one softmax classifier on the flattened features.
func NewVGG(tokens []int, flatSize, classes int, batchNorm bool) *NeuralNetwork {
	cfgs := []LayerConfig{Input(3)}
	cfgs = append(cfgs, Stack(batchNorm, tokens...)...)
	cfgs = append(cfgs, Flatten(flatSize), Dense(classes, Activation("softmax")))
	return NewNetwork(cfgs...)
}

// NewAlexNet builds the small-input AlexNet variant: an aggressive
// strided stem instead of the original 11x11 kernels, three pools,
// and the classic pair of 4096-wide hidden layers.
func NewAlexNet(classes int, dropout float64) *NeuralNetwork {
	cfgs := []LayerConfig{
		Input(3),
		Conv(64, Stride(2)), // 32 -> 16
		MaxPool(2),          // -> 8
		Conv(192),
		MaxPool(2), // -> 4
		Conv(384),
		Conv(256),
		Conv(256),
		MaxPool(2),    // -> 2
		Flatten(1024), // 256 * 2 * 2
	}
	if dropout > 0 {
		cfgs = append(cfgs, Dropout(dropout))
	}
	cfgs = append(cfgs, Dense(4096))
	if dropout > 0 {
		cfgs = append(cfgs, Dropout(dropout))
	}
	cfgs = append(cfgs, Dense(4096), Dense(classes, Activation("softmax")))
	return NewNetwork(cfgs...)
}

// NewResNet builds a BasicBlock ResNet for 32x32 inputs: a 3x3 stem,
// four stages of residual blocks at widths 64/128/256/512 with the
// first block of each later stage striding down, then global average
// pooling into the classifier. blocks gives the block count per stage.
func NewResNet(blocks []int, classes int) *NeuralNetwork {
	cfgs := []LayerConfig{
		Input(3),
		Conv(64, NoBias(), Activation("linear")),
		BatchNorm(Activation("relu")),
	}
	widths := []int{64, 128, 256, 512}
	for stage, n := range blocks {
		for b := 0; b < n; b++ {
			stride := 1
			if b == 0 && stage > 0 {
				stride = 2
			}
			cfgs = append(cfgs, Residual(widths[stage], Stride(stride)))
		}
	}
	cfgs = append(cfgs, AvgPool(4), Flatten(512), Dense(classes, Activation("softmax")))
	return NewNetwork(cfgs...)
}

// NewMLP builds a plain fully connected classifier over flattened
// input. dropout > 0 inserts a dropout stage after every hidden layer.
func NewMLP(inputDim int, hidden []int, classes int, dropout float64) *NeuralNetwork {
	cfgs := []LayerConfig{Input(inputDim)}
	for _, h := range hidden {
		cfgs = append(cfgs, Dense(h))
		if dropout > 0 {
			cfgs = append(cfgs, Dropout(dropout))
		}
	}
	cfgs = append(cfgs, Dense(classes, Activation("softmax")))
	return NewNetwork(cfgs...)
}

// NewRegressor builds a fully connected network with a single linear
// output, trained under squared error.
func NewRegressor(inputDim int, hidden []int) *NeuralNetwork {
	cfgs := []LayerConfig{Input(inputDim)}
	for _, h := range hidden {
		cfgs = append(cfgs, Dense(h))
	}
	cfgs = append(cfgs, Dense(1, Activation("linear")))
	return NewNetwork(cfgs...)
}

// Build maps a model name to a fresh network for the given class
// count. Unknown names are the one user error reported politely;
// everything else fails wherever the shapes first collide.
func Build(name string, classes int) (*NeuralNetwork, error) {
	switch name {
	case "vgg":
		return NewVGG(vggConfig, 512, classes, false), nil
	case "vgg_bn":
		return NewVGG(vggConfig, 512, classes, true), nil
	case "alexnet":
		return NewAlexNet(classes, 0.5), nil
	case "resnet10":
		return NewResNet([]int{1, 1, 1, 1}, classes), nil
	case "resnet18":
		return NewResNet([]int{2, 2, 2, 2}, classes), nil
	case "mlp":
		return NewMLP(3*32*32, []int{512}, classes, 0), nil
	case "mlp_deep":
		return NewMLP(3*32*32, []int{1024, 512, 256}, classes, 0.5), nil
	}
	return nil, fmt.Errorf("unknown model %q (want vgg, vgg_bn, alexnet, resnet10, resnet18, mlp or mlp_deep)", name)
}
