package ml

import "math"

const (
	bnMomentum = 0.1
	bnEps      = 1e-5
)

func newBatchNorm(cfg LayerConfig, channels int) *Layer {
	l := &Layer{
		Kind:     KindBatchNorm,
		Act:      cfg.Activation,
		Channels: channels,
		Gamma:    NewMatrix(1, channels),
		Beta:     NewMatrix(1, channels),
		RunMean:  NewMatrix(1, channels),
		RunVar:   NewMatrix(1, channels),
		gGamma:   NewMatrix(1, channels),
		gBeta:    NewMatrix(1, channels),
	}
	l.Gamma.Fill(1)
	l.RunVar.Fill(1)
	return l
}

// bnForward normalizes each channel over the batch and every spatial
// position, then applies the learned scale and shift. Training mode
// uses batch statistics and folds them into the running averages;
// eval mode uses the running averages alone.
func bnForward(l *Layer, in *Matrix, training bool) {
	batch := in.rows
	area := in.cols / l.Channels
	l.Z = ensure(l.Z, batch, in.cols)

	if !training {
		for c := 0; c < l.Channels; c++ {
			scale := l.Gamma.data[c] / math.Sqrt(l.RunVar.data[c]+bnEps)
			shift := l.Beta.data[c] - scale*l.RunMean.data[c]
			for b := 0; b < batch; b++ {
				off := b*in.cols + c*area
				for p := 0; p < area; p++ {
					l.Z.data[off+p] = scale*in.data[off+p] + shift
				}
			}
		}
		return
	}

	l.xhat = ensure(l.xhat, batch, in.cols)
	if cap(l.invStd) < l.Channels {
		l.invStd = make([]float64, l.Channels)
	}
	l.invStd = l.invStd[:l.Channels]

	n := float64(batch * area)
	for c := 0; c < l.Channels; c++ {
		sum := 0.0
		for b := 0; b < batch; b++ {
			off := b*in.cols + c*area
			for p := 0; p < area; p++ {
				sum += in.data[off+p]
			}
		}
		mean := sum / n

		variance := 0.0
		for b := 0; b < batch; b++ {
			off := b*in.cols + c*area
			for p := 0; p < area; p++ {
				d := in.data[off+p] - mean
				variance += d * d
			}
		}
		variance /= n

		l.RunMean.data[c] = (1-bnMomentum)*l.RunMean.data[c] + bnMomentum*mean
		l.RunVar.data[c] = (1-bnMomentum)*l.RunVar.data[c] + bnMomentum*variance

		inv := 1 / math.Sqrt(variance+bnEps)
		l.invStd[c] = inv
		gamma, beta := l.Gamma.data[c], l.Beta.data[c]
		for b := 0; b < batch; b++ {
			off := b*in.cols + c*area
			for p := 0; p < area; p++ {
				xh := (in.data[off+p] - mean) * inv
				l.xhat.data[off+p] = xh
				l.Z.data[off+p] = gamma*xh + beta
			}
		}
	}
}

// bnBackward uses the normalized activations saved by the training
// forward pass, so it is only valid straight after one.
func bnBackward(l *Layer, in *Matrix, dZ *Matrix) *Matrix {
	batch := in.rows
	area := in.cols / l.Channels
	n := float64(batch * area)

	l.dIn = ensure(l.dIn, batch, in.cols)
	for c := 0; c < l.Channels; c++ {
		sumDz, sumDzXhat := 0.0, 0.0
		for b := 0; b < batch; b++ {
			off := b*in.cols + c*area
			for p := 0; p < area; p++ {
				sumDz += dZ.data[off+p]
				sumDzXhat += dZ.data[off+p] * l.xhat.data[off+p]
			}
		}
		l.gGamma.data[c] = sumDzXhat / float64(batch)
		l.gBeta.data[c] = sumDz / float64(batch)

		k := l.Gamma.data[c] * l.invStd[c] / n
		for b := 0; b < batch; b++ {
			off := b*in.cols + c*area
			for p := 0; p < area; p++ {
				l.dIn.data[off+p] = k * (n*dZ.data[off+p] - sumDz - l.xhat.data[off+p]*sumDzXhat)
			}
		}
	}
	return l.dIn
}
