package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// newConv builds a convolution layer from its blueprint. Kernels are
// stored [inC*k*k, outC] so the patch product is a single MatMul.
func newConv(cfg LayerConfig, inCh int) *Layer {
	l := &Layer{
		Kind:   KindConv,
		Act:    cfg.Activation,
		InCh:   inCh,
		OutCh:  cfg.Neurons,
		KSize:  cfg.KernelSize,
		Stride: cfg.Stride,
		Pad:    cfg.Padding,
		Kernel: NewMatrix(inCh*cfg.KernelSize*cfg.KernelSize, cfg.Neurons),
		gK:     NewMatrix(inCh*cfg.KernelSize*cfg.KernelSize, cfg.Neurons),
	}
	l.Kernel.Randomize()
	if !cfg.NoBias {
		l.KBias = NewMatrix(1, cfg.Neurons)
		l.gKB = NewMatrix(1, cfg.Neurons)
	}
	return l
}

// convForward computes l.Z = im2col(in) * Kernel + bias. Rows of in
// are channel-major feature maps; the side length is inferred from the
// row width, so the same layer handles any square input.
func convForward(l *Layer, in *Matrix) {
	batch := in.rows
	l.inSide = int(math.Sqrt(float64(in.cols / l.InCh)))
	l.outSide = (l.inSide+2*l.Pad-l.KSize)/l.Stride + 1

	inS, outS, k := l.inSide, l.outSide, l.KSize
	patch := l.InCh * k * k
	positions := batch * outS * outS

	l.cols = ensure(l.cols, positions, patch)
	for b := 0; b < batch; b++ {
		src := in.data[b*in.cols : (b+1)*in.cols]
		for oy := 0; oy < outS; oy++ {
			for ox := 0; ox < outS; ox++ {
				row := l.cols.data[((b*outS+oy)*outS+ox)*patch:]
				for c := 0; c < l.InCh; c++ {
					plane := src[c*inS*inS:]
					for ky := 0; ky < k; ky++ {
						iy := oy*l.Stride - l.Pad + ky
						for kx := 0; kx < k; kx++ {
							ix := ox*l.Stride - l.Pad + kx
							idx := (c*k+ky)*k + kx
							if iy < 0 || iy >= inS || ix < 0 || ix >= inS {
								row[idx] = 0
							} else {
								row[idx] = plane[iy*inS+ix]
							}
						}
					}
				}
			}
		}
	}

	l.mm = ensure(l.mm, positions, l.OutCh)
	MatMul(l.cols.dense, l.Kernel.dense, l.mm)

	l.Z = ensure(l.Z, batch, l.OutCh*outS*outS)
	area := outS * outS
	for b := 0; b < batch; b++ {
		dst := l.Z.data[b*l.Z.cols : (b+1)*l.Z.cols]
		for p := 0; p < area; p++ {
			mmRow := l.mm.data[(b*area+p)*l.OutCh:]
			for oc := 0; oc < l.OutCh; oc++ {
				dst[oc*area+p] = mmRow[oc]
			}
		}
	}
	if l.KBias != nil {
		for b := 0; b < batch; b++ {
			dst := l.Z.data[b*l.Z.cols : (b+1)*l.Z.cols]
			for oc := 0; oc < l.OutCh; oc++ {
				bias := l.KBias.data[oc]
				for p := 0; p < area; p++ {
					dst[oc*area+p] += bias
				}
			}
		}
	}
}

// convBackward turns the gradient at Z into kernel gradients and the
// gradient at the layer input. The patch buffers from the forward pass
// are reused, so a forward call must precede it.
func convBackward(l *Layer, in *Matrix, dZ *Matrix) *Matrix {
	batch := in.rows
	inS, outS, k := l.inSide, l.outSide, l.KSize
	patch := l.InCh * k * k
	area := outS * outS
	positions := batch * area

	// Gradient back to patch-product form.
	l.mmGrad = ensure(l.mmGrad, positions, l.OutCh)
	for b := 0; b < batch; b++ {
		src := dZ.data[b*dZ.cols : (b+1)*dZ.cols]
		for p := 0; p < area; p++ {
			dst := l.mmGrad.data[(b*area+p)*l.OutCh:]
			for oc := 0; oc < l.OutCh; oc++ {
				dst[oc] = src[oc*area+p]
			}
		}
	}

	MatMul(l.cols.dense.T(), l.mmGrad.dense, l.gK)
	floats.Scale(1/float64(batch), l.gK.data)

	if l.KBias != nil {
		l.gKB.Reset()
		for r := 0; r < positions; r++ {
			row := l.mmGrad.data[r*l.OutCh:]
			for oc := 0; oc < l.OutCh; oc++ {
				l.gKB.data[oc] += row[oc]
			}
		}
		floats.Scale(1/float64(batch), l.gKB.data)
	}

	l.colsGrad = ensure(l.colsGrad, positions, patch)
	MatMul(l.mmGrad.dense, l.Kernel.dense.T(), l.colsGrad)

	// Scatter patch gradients back onto the input plane.
	l.dIn = ensure(l.dIn, batch, in.cols)
	l.dIn.Reset()
	for b := 0; b < batch; b++ {
		dst := l.dIn.data[b*in.cols : (b+1)*in.cols]
		for oy := 0; oy < outS; oy++ {
			for ox := 0; ox < outS; ox++ {
				row := l.colsGrad.data[((b*outS+oy)*outS+ox)*patch:]
				for c := 0; c < l.InCh; c++ {
					plane := dst[c*inS*inS:]
					for ky := 0; ky < k; ky++ {
						iy := oy*l.Stride - l.Pad + ky
						if iy < 0 || iy >= inS {
							continue
						}
						for kx := 0; kx < k; kx++ {
							ix := ox*l.Stride - l.Pad + kx
							if ix < 0 || ix >= inS {
								continue
							}
							plane[iy*inS+ix] += row[(c*k+ky)*k+kx]
						}
					}
				}
			}
		}
	}
	return l.dIn
}
