package ml

import (
	"math"
	"testing"
)

func TestConvIdentityKernel(t *testing.T) {
	nn := NewNetwork(
		Input(1),
		Conv(1, Kernel(1), Pad(0), NoBias(), Activation("linear")),
	)
	nn.Layers[0].Kernel.Fill(1) // 1x1 kernel of 1 is the identity map

	in := NewMatrixFromSlice(1, 16, []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	})
	out := nn.Forward(in)

	if rows, cols := out.Dims(); rows != 1 || cols != 16 {
		t.Fatalf("output = [%d, %d], want [1, 16]", rows, cols)
	}
	for i, v := range out.data {
		if v != in.data[i] {
			t.Fatalf("out[%d] = %f, want %f", i, v, in.data[i])
		}
	}
}

func TestConvOnesKernel(t *testing.T) {
	// All-ones 3x3 kernel over an all-ones 3x3 plane counts the live
	// neighbours: 4 in corners, 6 on edges, 9 in the middle.
	nn := NewNetwork(
		Input(1),
		Conv(1, NoBias(), Activation("linear")),
	)
	nn.Layers[0].Kernel.Fill(1)

	in := NewMatrix(1, 9)
	in.Fill(1)
	out := nn.Forward(in)

	want := []float64{
		4, 6, 4,
		6, 9, 6,
		4, 6, 4,
	}
	for i, w := range want {
		if math.Abs(out.data[i]-w) > 1e-12 {
			t.Fatalf("out[%d] = %f, want %f", i, out.data[i], w)
		}
	}
}

func TestConvStrideShape(t *testing.T) {
	nn := NewNetwork(
		Input(3),
		Conv(5, Stride(2)),
	)

	out := nn.Forward(randomBatch(2, 3*8*8))

	// (8 + 2*1 - 3)/2 + 1 = 4
	if rows, cols := out.Dims(); rows != 2 || cols != 5*4*4 {
		t.Fatalf("output = [%d, %d], want [2, %d]", rows, cols, 5*4*4)
	}
}

func TestConvBias(t *testing.T) {
	nn := NewNetwork(
		Input(1),
		Conv(2, Kernel(1), Pad(0), Activation("linear")),
	)
	conv := nn.Layers[0]
	conv.Kernel.Reset() // zero kernel leaves the bias alone
	conv.KBias.data[0] = 0.5
	conv.KBias.data[1] = -1.5

	out := nn.Forward(randomBatch(1, 4)) // one 2x2 plane

	for p := 0; p < 4; p++ {
		if out.data[p] != 0.5 {
			t.Fatalf("channel 0 value = %f, want 0.5", out.data[p])
		}
		if out.data[4+p] != -1.5 {
			t.Fatalf("channel 1 value = %f, want -1.5", out.data[4+p])
		}
	}
}

func TestMaxPoolForwardBackward(t *testing.T) {
	nn := NewNetwork(Input(1), MaxPool(2))
	pool := nn.Layers[0]

	in := NewMatrixFromSlice(1, 16, []float64{
		1, 3, 2, 4,
		5, 6, 8, 7,
		9, 11, 10, 12,
		16, 14, 15, 13,
	})
	out := nn.Forward(in)

	want := []float64{6, 8, 16, 15}
	for i, w := range want {
		if out.data[i] != w {
			t.Fatalf("pooled[%d] = %f, want %f", i, out.data[i], w)
		}
	}

	// Gradients must land on the winning positions only.
	grad := NewMatrixFromSlice(1, 4, []float64{1, 2, 3, 4})
	dIn := layerBackward(pool, in, grad)

	wantGrad := make([]float64, 16)
	wantGrad[5] = 1
	wantGrad[6] = 2
	wantGrad[12] = 3
	wantGrad[14] = 4
	for i, w := range wantGrad {
		if dIn.data[i] != w {
			t.Fatalf("dIn[%d] = %f, want %f", i, dIn.data[i], w)
		}
	}
}

func TestAvgPoolForwardBackward(t *testing.T) {
	nn := NewNetwork(Input(1), AvgPool(2))
	pool := nn.Layers[0]

	in := NewMatrixFromSlice(1, 16, []float64{
		1, 3, 2, 4,
		5, 6, 8, 7,
		9, 11, 10, 12,
		16, 14, 15, 13,
	})
	out := nn.Forward(in)

	want := []float64{3.75, 5.25, 12.5, 12.5}
	for i, w := range want {
		if out.data[i] != w {
			t.Fatalf("pooled[%d] = %f, want %f", i, out.data[i], w)
		}
	}

	grad := NewMatrixFromSlice(1, 4, []float64{4, 8, 12, 16})
	dIn := layerBackward(pool, in, grad)

	wantGrad := []float64{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}
	for i, w := range wantGrad {
		if dIn.data[i] != w {
			t.Fatalf("dIn[%d] = %f, want %f", i, dIn.data[i], w)
		}
	}
}
