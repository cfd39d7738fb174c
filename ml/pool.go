package ml

import "math"

func newMaxPool(cfg LayerConfig, inCh int) *Layer {
	return &Layer{Kind: KindMaxPool, Act: cfg.Activation, Channels: inCh, KSize: cfg.KernelSize}
}

func newAvgPool(cfg LayerConfig, inCh int) *Layer {
	return &Layer{Kind: KindAvgPool, Act: cfg.Activation, Channels: inCh, KSize: cfg.KernelSize}
}

// maxPoolForward takes the window maximum, keeping the winning index
// of every window so the backward pass can route gradients to it.
func maxPoolForward(l *Layer, in *Matrix) {
	batch := in.rows
	l.inSide = int(math.Sqrt(float64(in.cols / l.Channels)))
	l.outSide = l.inSide / l.KSize

	inS, outS, k := l.inSide, l.outSide, l.KSize
	l.Z = ensure(l.Z, batch, l.Channels*outS*outS)

	need := batch * l.Z.cols
	if cap(l.argmax) < need {
		l.argmax = make([]int, need)
	}
	l.argmax = l.argmax[:need]

	for b := 0; b < batch; b++ {
		src := in.data[b*in.cols : (b+1)*in.cols]
		dst := l.Z.data[b*l.Z.cols : (b+1)*l.Z.cols]
		for c := 0; c < l.Channels; c++ {
			plane := c * inS * inS
			for oy := 0; oy < outS; oy++ {
				for ox := 0; ox < outS; ox++ {
					best := math.Inf(-1)
					bestIdx := 0
					for ky := 0; ky < k; ky++ {
						for kx := 0; kx < k; kx++ {
							idx := plane + (oy*k+ky)*inS + ox*k + kx
							if src[idx] > best {
								best = src[idx]
								bestIdx = idx
							}
						}
					}
					zi := c*outS*outS + oy*outS + ox
					dst[zi] = best
					l.argmax[b*l.Z.cols+zi] = bestIdx
				}
			}
		}
	}
}

func maxPoolBackward(l *Layer, in *Matrix, dZ *Matrix) *Matrix {
	l.dIn = ensure(l.dIn, in.rows, in.cols)
	l.dIn.Reset()
	for b := 0; b < in.rows; b++ {
		src := dZ.data[b*dZ.cols : (b+1)*dZ.cols]
		dst := l.dIn.data[b*in.cols : (b+1)*in.cols]
		for zi := 0; zi < dZ.cols; zi++ {
			dst[l.argmax[b*dZ.cols+zi]] += src[zi]
		}
	}
	return l.dIn
}

// avgPoolForward takes the window mean.
func avgPoolForward(l *Layer, in *Matrix) {
	batch := in.rows
	l.inSide = int(math.Sqrt(float64(in.cols / l.Channels)))
	l.outSide = l.inSide / l.KSize

	inS, outS, k := l.inSide, l.outSide, l.KSize
	l.Z = ensure(l.Z, batch, l.Channels*outS*outS)
	norm := 1 / float64(k*k)

	for b := 0; b < batch; b++ {
		src := in.data[b*in.cols : (b+1)*in.cols]
		dst := l.Z.data[b*l.Z.cols : (b+1)*l.Z.cols]
		for c := 0; c < l.Channels; c++ {
			plane := c * inS * inS
			for oy := 0; oy < outS; oy++ {
				for ox := 0; ox < outS; ox++ {
					sum := 0.0
					for ky := 0; ky < k; ky++ {
						for kx := 0; kx < k; kx++ {
							sum += src[plane+(oy*k+ky)*inS+ox*k+kx]
						}
					}
					dst[c*outS*outS+oy*outS+ox] = sum * norm
				}
			}
		}
	}
}

func avgPoolBackward(l *Layer, in *Matrix, dZ *Matrix) *Matrix {
	l.dIn = ensure(l.dIn, in.rows, in.cols)
	l.dIn.Reset()
	inS, outS, k := l.inSide, l.outSide, l.KSize
	norm := 1 / float64(k*k)
	for b := 0; b < in.rows; b++ {
		src := dZ.data[b*dZ.cols : (b+1)*dZ.cols]
		dst := l.dIn.data[b*in.cols : (b+1)*in.cols]
		for c := 0; c < l.Channels; c++ {
			plane := c * inS * inS
			for oy := 0; oy < outS; oy++ {
				for ox := 0; ox < outS; ox++ {
					g := src[c*outS*outS+oy*outS+ox] * norm
					for ky := 0; ky < k; ky++ {
						for kx := 0; kx < k; kx++ {
							dst[plane+(oy*k+ky)*inS+ox*k+kx] += g
						}
					}
				}
			}
		}
	}
	return l.dIn
}
