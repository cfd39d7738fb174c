package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	OptSGD      OptimizerType = "sgd"
	OptMomentum OptimizerType = "momentum"
	OptAdam     OptimizerType = "adam"
)

// Default settings generally recommended for Adam
var DefaultAdamConfig = AdamConfig{
	Beta1:        0.9,
	Beta2:        0.999,
	Epsilon:      1e-8,
	LearningRate: 0.001,
}

type OptimizerType string
type AdamConfig struct {
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	LearningRate float64
}

// paramState carries the per-parameter moment vectors. Momentum only
// uses m; Adam uses both.
type paramState struct {
	m, v []float64
}

type AdamOptimizer struct {
	cfg      AdamConfig
	refs     []paramRef
	states   []paramState
	timeStep int // 't' in the Adam paper, tracks number of updates
}

type SGDOptimizer struct {
	LearningRate float64
	refs         []paramRef
}

type MomentumOptimizer struct {
	LearningRate float64
	Mu           float64 // Momentum Factor (usually 0.9)
	refs         []paramRef
	states       []paramState
}

type Optimizer interface {
	Update(nw *NeuralNetwork)
}

func NewOptimizer(nw *NeuralNetwork, cfg TrainingConfig) Optimizer {
	switch cfg.Optimizer {
	case OptAdam:
		// Set defaults if 0
		beta1 := cfg.AdamBeta1
		if beta1 == 0 {
			beta1 = 0.9
		}
		beta2 := cfg.AdamBeta2
		if beta2 == 0 {
			beta2 = 0.999
		}
		eps := cfg.AdamEps
		if eps == 0 {
			eps = 1e-8
		}

		adamCfg := AdamConfig{
			Beta1:        beta1,
			Beta2:        beta2,
			Epsilon:      eps,
			LearningRate: cfg.LearningRate,
		}
		return NewAdamOptimizer(nw, adamCfg)

	case OptMomentum:
		return NewMomentumOptimizer(nw, cfg.LearningRate, cfg.MomentumMu)

	case OptSGD:
		return &SGDOptimizer{LearningRate: cfg.LearningRate}

	default:
		return &SGDOptimizer{LearningRate: cfg.LearningRate}
	}
}

func NewAdamOptimizer(nw *NeuralNetwork, cfg AdamConfig) *AdamOptimizer {
	opt := &AdamOptimizer{
		cfg:      cfg,
		refs:     nw.paramRefs(),
		timeStep: 0,
	}

	// Zeroed moment vectors for every trainable tensor
	for _, ref := range opt.refs {
		opt.states = append(opt.states, paramState{
			m: make([]float64, len(ref.w.data)),
			v: make([]float64, len(ref.w.data)),
		})
	}

	return opt
}

func NewMomentumOptimizer(nw *NeuralNetwork, lr, mu float64) *MomentumOptimizer {
	if mu == 0 {
		mu = 0.9
	} // Default

	opt := &MomentumOptimizer{
		LearningRate: lr,
		Mu:           mu,
		refs:         nw.paramRefs(),
	}
	for _, ref := range opt.refs {
		opt.states = append(opt.states, paramState{m: make([]float64, len(ref.w.data))})
	}
	return opt
}

// ------ ADAM OPTIMIZER METHODS ------ //
// Update applies the Adam update rule to every trainable tensor
func (opt *AdamOptimizer) Update(nw *NeuralNetwork) {
	// 1. Increment Time Step
	opt.timeStep++
	t := float64(opt.timeStep)

	// 2. Pre-calculate Correction Factors
	// correction1 = 1 - beta1^t
	// correction2 = 1 - beta2^t
	correction1 := 1.0 - math.Pow(opt.cfg.Beta1, t)
	correction2 := 1.0 - math.Pow(opt.cfg.Beta2, t)

	// --- Helper Closure for Adam Math ---
	// Applies update to a single parameter vector
	apply := func(params, grads, m, v []float64) {
		beta1 := opt.cfg.Beta1
		beta2 := opt.cfg.Beta2
		eps := opt.cfg.Epsilon
		lr := opt.cfg.LearningRate

		for i := range params {
			g := grads[i]

			// Update Moving Averages
			// m_t = beta1 * m_{t-1} + (1 - beta1) * g
			m[i] = beta1*m[i] + (1.0-beta1)*g

			// v_t = beta2 * v_{t-1} + (1 - beta2) * g^2
			v[i] = beta2*v[i] + (1.0-beta2)*(g*g)

			// Bias Correction
			mHat := m[i] / correction1
			vHat := v[i] / correction2

			// Update Parameters
			// theta = theta - lr * mHat / (sqrt(vHat) + eps)
			params[i] -= lr * mHat / (math.Sqrt(vHat) + eps)
		}
	}

	// 3. Loop Parameters
	for i, ref := range opt.refs {
		apply(ref.w.data, ref.g.data, opt.states[i].m, opt.states[i].v)
	}
}

// ------ MOMENTUM OPTIMIZER METHODS ------ //
func (opt *MomentumOptimizer) Update(nw *NeuralNetwork) {
	// Helper closure to apply Momentum:
	// v = mu * v - lr * grad
	// w = w + v
	applyMomentum := func(params, grads, velocity []float64) {
		for i := range params {
			// Update Velocity
			velocity[i] = (opt.Mu * velocity[i]) - (opt.LearningRate * grads[i])
			// Update Parameter
			params[i] += velocity[i]
		}
	}

	for i, ref := range opt.refs {
		applyMomentum(ref.w.data, ref.g.data, opt.states[i].m)
	}
}

// ------ SGD OPTIMIZER METHODS ------ //
func (opt *SGDOptimizer) Update(nw *NeuralNetwork) {
	// Refs are resolved on first use so the zero-value literal works
	if opt.refs == nil {
		opt.refs = nw.paramRefs()
	}
	for _, ref := range opt.refs {
		// Simple update: W = W - (lr * gradient)
		floats.AddScaled(ref.w.data, -opt.LearningRate, ref.g.data)
	}
}
