package ml

import (
	"encoding/gob"
	"fmt"
	"os"
)

// layerData mirrors Layer for serialization: parameters, running
// statistics and the branch structure, nothing transient. Unused
// fields stay nil and are skipped on the wire.
type layerData struct {
	Kind LayerKind
	Act  ActivationType

	Weights *Matrix
	Biases  *Matrix
	Kernel  *Matrix
	KBias   *Matrix
	Gamma   *Matrix
	Beta    *Matrix
	RunMean *Matrix
	RunVar  *Matrix

	Body     []layerData
	Shortcut []layerData
}

type networkData struct {
	Layers []layerData
}

func collectLayerData(layers []*Layer) []layerData {
	out := make([]layerData, len(layers))
	for i, l := range layers {
		out[i] = layerData{
			Kind:     l.Kind,
			Act:      l.Act,
			Weights:  l.Weights,
			Biases:   l.Biases,
			Kernel:   l.Kernel,
			KBias:    l.KBias,
			Gamma:    l.Gamma,
			Beta:     l.Beta,
			RunMean:  l.RunMean,
			RunVar:   l.RunVar,
			Body:     collectLayerData(l.Body),
			Shortcut: collectLayerData(l.Shortcut),
		}
	}
	return out
}

// SaveToFile saves the network parameters and running statistics to a file.
func (nw *NeuralNetwork) SaveToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	encoder := gob.NewEncoder(file)

	fmt.Println("Saving model to", filename)
	return encoder.Encode(networkData{Layers: collectLayerData(nw.Layers)})
}

// LoadFromFile restores parameters saved by SaveToFile into a network
// of the same architecture. Every tensor is validated against the
// current network before anything is overwritten.
func (nw *NeuralNetwork) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	decoder := gob.NewDecoder(file)

	var loadedData networkData
	if err := decoder.Decode(&loadedData); err != nil {
		return fmt.Errorf("failed to decode gob file: %v", err)
	}

	// --- VALIDATION STEP ---
	if err := checkLayers(nw.Layers, loadedData.Layers, ""); err != nil {
		return err
	}

	// --- APPLICATION STEP ---
	// Safe to overwrite now
	applyLayers(nw.Layers, loadedData.Layers)

	fmt.Println("Weights loaded successfully.")
	return nil
}

func checkLayers(current []*Layer, loaded []layerData, prefix string) error {
	if len(current) != len(loaded) {
		return fmt.Errorf("architecture mismatch: current network has %d %slayers, model file has %d",
			len(current), prefix, len(loaded))
	}

	for i, curr := range current {
		ld := loaded[i]
		at := fmt.Sprintf("%slayer %d", prefix, i)

		if curr.Kind != ld.Kind {
			return fmt.Errorf("%s mismatch: expected kind %v, got %v", at, curr.Kind, ld.Kind)
		}
		if curr.Act != ld.Act {
			return fmt.Errorf("%s mismatch: expected activation %v, got %v", at, curr.Act, ld.Act)
		}

		pairs := []struct {
			name       string
			curr, load *Matrix
		}{
			{"Weights", curr.Weights, ld.Weights},
			{"Biases", curr.Biases, ld.Biases},
			{"Kernel", curr.Kernel, ld.Kernel},
			{"KBias", curr.KBias, ld.KBias},
			{"Gamma", curr.Gamma, ld.Gamma},
			{"Beta", curr.Beta, ld.Beta},
			{"RunMean", curr.RunMean, ld.RunMean},
			{"RunVar", curr.RunVar, ld.RunVar},
		}
		for _, p := range pairs {
			if err := checkDims(p.name, at, p.curr, p.load); err != nil {
				return err
			}
		}

		if err := checkLayers(curr.Body, ld.Body, at+" body "); err != nil {
			return err
		}
		if err := checkLayers(curr.Shortcut, ld.Shortcut, at+" shortcut "); err != nil {
			return err
		}
	}
	return nil
}

// checkDims compares one matrix pair, treating a nil pair as a match.
func checkDims(name, at string, current, loaded *Matrix) error {
	if current == nil && loaded == nil {
		return nil
	}
	if current == nil || loaded == nil {
		return fmt.Errorf("%s %s mismatch: one is nil", at, name)
	}
	if current.rows != loaded.rows || current.cols != loaded.cols {
		return fmt.Errorf("%s %s shape mismatch: expected [%d, %d], got [%d, %d]",
			at, name,
			current.rows, current.cols,
			loaded.rows, loaded.cols,
		)
	}
	return nil
}

func applyLayers(current []*Layer, loaded []layerData) {
	for i, curr := range current {
		ld := loaded[i]
		copyInto(curr.Weights, ld.Weights)
		copyInto(curr.Biases, ld.Biases)
		copyInto(curr.Kernel, ld.Kernel)
		copyInto(curr.KBias, ld.KBias)
		copyInto(curr.Gamma, ld.Gamma)
		copyInto(curr.Beta, ld.Beta)
		copyInto(curr.RunMean, ld.RunMean)
		copyInto(curr.RunVar, ld.RunVar)
		applyLayers(curr.Body, ld.Body)
		applyLayers(curr.Shortcut, ld.Shortcut)
	}
}

func copyInto(dst, src *Matrix) {
	if dst != nil && src != nil {
		copy(dst.data, src.data)
	}
}

// -------- IN-MEMORY SNAPSHOTS -------- //
// Snapshot is an in-memory copy of everything a checkpoint restores:
// trainable tensors plus batch norm running statistics.
type Snapshot struct {
	tensors [][]float64
}

func (nw *NeuralNetwork) stateTensors() []*Matrix {
	var out []*Matrix
	for _, l := range nw.allLayers() {
		for _, m := range []*Matrix{l.Weights, l.Biases, l.Kernel, l.KBias, l.Gamma, l.Beta, l.RunMean, l.RunVar} {
			if m != nil {
				out = append(out, m)
			}
		}
	}
	return out
}

func (nw *NeuralNetwork) CaptureSnapshot() *Snapshot {
	tensors := nw.stateTensors()
	snap := &Snapshot{tensors: make([][]float64, len(tensors))}
	for i, m := range tensors {
		snap.tensors[i] = append([]float64(nil), m.data...)
	}
	return snap
}

// RestoreSnapshot writes a snapshot back into the network it was
// captured from. Tensor order is the deterministic layer walk, so
// capture and restore must use the same network.
func (nw *NeuralNetwork) RestoreSnapshot(snap *Snapshot) {
	for i, m := range nw.stateTensors() {
		copy(m.data, snap.tensors[i])
	}
}
