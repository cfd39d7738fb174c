package ml

import (
	"fmt"
	"sort"
)

// Predict runs one sample through the network in eval mode and
// returns the argmax class and its probability.
func (nw *NeuralNetwork) Predict(inputData []float64) (int, float64) {
	nw.SetTraining(false)
	inputMat := NewMatrixFromSlice(1, len(inputData), inputData)
	out := nw.Forward(inputMat)

	// Argmax (Find highest probability)
	bestClass := -1
	maxProb := -1.0
	for i, prob := range out.data {
		if prob > maxProb {
			maxProb = prob
			bestClass = i
		}
	}
	return bestClass, maxProb
}

// Probabilities runs one sample in eval mode and returns a copy of
// the full output distribution.
func (nw *NeuralNetwork) Probabilities(inputData []float64) []float64 {
	nw.SetTraining(false)
	inputMat := NewMatrixFromSlice(1, len(inputData), inputData)
	out := nw.Forward(inputMat)
	return append([]float64(nil), out.data...)
}

// Regress runs one sample in eval mode and returns the single
// regression output.
func (nw *NeuralNetwork) Regress(inputData []float64) float64 {
	nw.SetTraining(false)
	inputMat := NewMatrixFromSlice(1, len(inputData), inputData)
	out := nw.Forward(inputMat)
	return out.data[0]
}

// TopK returns the indices of the K highest probabilities, best
// first. K outside [1, len(probs)] means all of them.
func TopK(probs []float64, K int) []int {
	numClasses := len(probs)
	if K <= 0 || K > numClasses {
		K = numClasses
	}

	type probIndex struct {
		prob float64
		idx  int
	}

	indexedProbs := make([]probIndex, numClasses)
	for i, p := range probs {
		indexedProbs[i] = probIndex{prob: p, idx: i}
	}

	// Sort in descending order by probability
	sort.Slice(indexedProbs, func(i, j int) bool {
		return indexedProbs[i].prob > indexedProbs[j].prob
	})

	out := make([]int, K)
	for i := range K {
		out[i] = indexedProbs[i].idx
	}
	return out
}

// InferenceImg classifies a single image file and prints the top
// classes. The loader is passed in so this package stays free of
// image decoding.
func InferenceImg(nw *NeuralNetwork, imagePath string, labels []string, convert func(string, int) ([]float64, error)) {
	fmt.Printf("Running Inference on: %s\n", imagePath)

	pixelData, err := convert(imagePath, 32)
	if err != nil {
		fmt.Printf("Error loading image: %v\n", err)
		return
	}

	probs := nw.Probabilities(pixelData)
	for rank, idx := range TopK(probs, 3) {
		name := fmt.Sprintf("class %d", idx)
		if idx < len(labels) {
			name = labels[idx]
		}
		fmt.Printf("%d. %-12s %.2f%%\n", rank+1, name, probs[idx]*100)
	}
}
