package ml

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"
)

type TrainingConfig struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	ModelPath    string
	VerboseEvery int // How often to log progress (in epochs)

	// Keep the weights from the epoch with the lowest validation loss
	// instead of the last one
	KeepBest bool

	// Optimizer Selection
	Optimizer OptimizerType

	// Optimizer Hyperparameters (Zero values will use defaults)
	MomentumMu float64 // For Momentum (usually 0.9)
	AdamBeta1  float64 // For Adam (usually 0.9)
	AdamBeta2  float64 // For Adam (usually 0.999)
	AdamEps    float64 // For Adam (usually 1e-8)
}

// Source is one split of a dataset: row-major inputs plus one label
// (or regression target) per row.
type Source struct {
	X *Matrix
	Y []float64
}

func NewSource(x []float64, y []float64, cols int) Source {
	return Source{X: NewMatrixFromSlice(len(y), cols, x), Y: y}
}

func (s Source) Len() int { return len(s.Y) }

// History holds the per-epoch curves a run produces, one entry per
// epoch in order.
type History struct {
	TrainLoss []float64
	TrainAcc  []float64
	ValLoss   []float64
	ValAcc    []float64

	// Epoch (1-based) and value of the lowest validation loss seen
	BestEpoch int
	BestLoss  float64
}

// bestTracker remembers the lowest validation loss and, when asked,
// the weights that produced it. Strictly-lower comparison, so ties
// keep the earlier epoch.
type bestTracker struct {
	loss  float64
	epoch int
	snap  *Snapshot
}

func (bt *bestTracker) observe(nw *NeuralNetwork, epoch int, valLoss float64, keep bool) {
	if valLoss >= bt.loss {
		return
	}
	bt.loss = valLoss
	bt.epoch = epoch
	if keep {
		bt.snap = nw.CaptureSnapshot()
	}
}

// Train runs the fixed-epoch loop shared by every model here:
// shuffle, mini-batch passes with the final partial batch dropped,
// one optimizer step per batch, then a full validation pass. Batch
// norm and dropout are switched to inference mode for validation and
// left there on return.
func Train(nw *NeuralNetwork, train, val Source, cfg TrainingConfig) History {
	fmt.Printf("TrainingConfig: %+v\n", cfg)
	validateConfig(cfg)

	// 1. Setup & Allocation
	optimizer := NewOptimizer(nw, cfg)
	inputDim := train.X.cols
	numSamples := train.Len()

	batchX := NewMatrix(cfg.BatchSize, inputDim)
	batchY := make([]float64, cfg.BatchSize)
	globalIndices := NewIndexList(numSamples)

	history := History{}
	best := bestTracker{loss: math.Inf(1)}

	if cfg.ModelPath != "" {
		setupSignalHandler(nw, cfg.ModelPath)
	}

	// 2. Training Loop
	start := time.Now()
	fmt.Println("Starting Training...")

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		nw.SetTraining(true)
		ShuffleIndices(globalIndices)

		var totalLoss, totalAcc float64
		batchesProcessed := 0

		for batchStart := 0; batchStart+cfg.BatchSize <= numSamples; batchStart += cfg.BatchSize {
			myIndices := globalIndices[batchStart : batchStart+cfg.BatchSize]
			Gather(myIndices, train.X.data, train.Y, inputDim, batchX, batchY)

			nw.Forward(batchX)
			loss, acc := nw.ComputeGradients(batchX, batchY)
			optimizer.Update(nw)

			totalLoss += loss
			totalAcc += acc
			batchesProcessed++
		}

		avgLoss := totalLoss / float64(batchesProcessed)
		avgAcc := totalAcc / float64(batchesProcessed)

		// Validation Pass
		nw.SetTraining(false)
		valLoss, valAcc := Evaluate(nw, val, cfg.BatchSize)

		history.TrainLoss = append(history.TrainLoss, avgLoss)
		history.TrainAcc = append(history.TrainAcc, avgAcc)
		history.ValLoss = append(history.ValLoss, valLoss)
		history.ValAcc = append(history.ValAcc, valAcc)

		best.observe(nw, epoch, valLoss, cfg.KeepBest)

		// Logging
		if cfg.VerboseEvery > 0 && (epoch%cfg.VerboseEvery == 0 || epoch == 1) {
			fmt.Printf("Epoch %d | Train Loss: %.4f | Val Loss: %.4f | Val Acc: %.2f%% | Time: %v\n",
				epoch, avgLoss, valLoss, valAcc*100, time.Since(start))
		}
	}

	history.BestEpoch = best.epoch
	history.BestLoss = best.loss

	// 3. Wrap-up
	if cfg.KeepBest && best.snap != nil {
		nw.RestoreSnapshot(best.snap)
		fmt.Printf("Restored epoch %d weights | Val Loss: %.4f\n", best.epoch, best.loss)
	}
	if cfg.ModelPath != "" {
		nw.SaveToFile(cfg.ModelPath)
	}
	fmt.Printf("Training Complete. Total Time: %v\n\n", time.Since(start))

	return history
}

// Evaluate runs one inference pass over the whole source in batches,
// including the final partial one, and returns mean loss and accuracy
// weighted by batch size. Accuracy is zero for regression outputs.
// The caller is responsible for putting the network in eval mode.
func Evaluate(nw *NeuralNetwork, src Source, batchSize int) (float64, float64) {
	numSamples := src.Len()
	inputDim := src.X.cols
	last := nw.Layers[len(nw.Layers)-1]

	var totalLoss, totalAcc float64
	for start := 0; start < numSamples; start += batchSize {
		end := start + batchSize
		if end > numSamples {
			end = numSamples
		}
		n := end - start

		view := NewMatrixFromSlice(n, inputDim, src.X.data[start*inputDim:end*inputDim])
		nw.Forward(view)

		var loss, acc float64
		if last.Act == ActSoftmax {
			loss, acc = nw.ComputeLossAndAccuracy(src.Y[start:end])
		} else {
			out := last.A
			total := 0.0
			for i, y := range src.Y[start:end] {
				d := out.data[i*out.cols] - y
				total += d * d
			}
			loss = total / float64(n)
		}

		totalLoss += loss * float64(n)
		totalAcc += acc * float64(n)
	}

	return totalLoss / float64(numSamples), totalAcc / float64(numSamples)
}

func validateConfig(cfg TrainingConfig) {
	if cfg.BatchSize <= 0 {
		panic("BatchSize must be positive")
	}
}

// setupSignalHandler captures SIGINT/SIGTERM to save the model safely
func setupSignalHandler(nw *NeuralNetwork, modelPath string) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt! Saving model...")
		nw.SaveToFile(modelPath)
		os.Exit(0)
	}()
}

// ------ DATA HANDLING HELPERS ------
func NewIndexList(size int) []int {
	indices := make([]int, size)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

func ShuffleIndices(indices []int) {
	rand.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
}

// Gather copies specific rows from the global storage into the local
// batch buffer. This keeps the batch contiguous for efficient MatMul,
// without needing to reshuffle the global array.
func Gather(
	batchIndices []int, // The random indices for this batch
	globalX []float64, // The massive immutable data
	globalY []float64, // The massive immutable labels
	inputDim int, // e.g., 3072
	destX *Matrix, // The local input matrix
	destY []float64, // The local label slice
) {
	rowSize := inputDim

	for localRowIdx, realDataIdx := range batchIndices {
		// 1. Copy Label
		destY[localRowIdx] = globalY[realDataIdx]

		// 2. Copy Input Vector
		// We calculate where this specific input lives in the massive global array
		srcStart := realDataIdx * rowSize
		srcEnd := srcStart + rowSize

		// We calculate where it should go in the local buffer
		dstStart := localRowIdx * rowSize
		dstEnd := dstStart + rowSize

		copy(destX.data[dstStart:dstEnd], globalX[srcStart:srcEnd])
	}
}
