package data

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CIFAR binary records are a fixed label prefix followed by 3072
// channel-major pixel bytes (1024 R, 1024 G, 1024 B). CIFAR-10 has a
// one-byte label; CIFAR-100 has a coarse byte then a fine byte.
const cifarPixels = 3 * 32 * 32

var Cifar10Labels = []string{
	"airplane", "automobile", "bird", "cat", "deer",
	"dog", "frog", "horse", "ship", "truck",
}

// LoadCIFAR10 reads the standard binary batches from dir and returns
// the train and test splits with pixels scaled to [0, 1].
func LoadCIFAR10(dir string) (Set, Set, error) {
	trainFiles := make([]string, 0, 5)
	for i := 1; i <= 5; i++ {
		trainFiles = append(trainFiles, filepath.Join(dir, fmt.Sprintf("data_batch_%d.bin", i)))
	}

	train, err := readCIFAR(trainFiles, 1, 0)
	if err != nil {
		return Set{}, Set{}, err
	}
	test, err := readCIFAR([]string{filepath.Join(dir, "test_batch.bin")}, 1, 0)
	if err != nil {
		return Set{}, Set{}, err
	}
	return train, test, nil
}

// LoadCIFAR100 reads the two-byte-label variant, keeping the fine
// label of each record.
func LoadCIFAR100(dir string) (Set, Set, error) {
	train, err := readCIFAR([]string{filepath.Join(dir, "train.bin")}, 2, 1)
	if err != nil {
		return Set{}, Set{}, err
	}
	test, err := readCIFAR([]string{filepath.Join(dir, "test.bin")}, 2, 1)
	if err != nil {
		return Set{}, Set{}, err
	}
	return train, test, nil
}

func readCIFAR(paths []string, labelBytes, labelIndex int) (Set, error) {
	recordLen := labelBytes + cifarPixels

	// Size the slices up front, the train split alone is ~150 MB of
	// floats
	total := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return Set{}, err
		}
		total += int(info.Size()) / recordLen
	}

	set := Set{
		X:    make([]float64, 0, total*cifarPixels),
		Y:    make([]float64, 0, total),
		Cols: cifarPixels,
	}

	record := make([]byte, recordLen)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return Set{}, err
		}
		for {
			if _, err := io.ReadFull(f, record); err != nil {
				if err == io.EOF {
					break
				}
				f.Close()
				return Set{}, fmt.Errorf("reading %s: %v", path, err)
			}
			set.Y = append(set.Y, float64(record[labelIndex]))
			for _, px := range record[labelBytes:] {
				set.X = append(set.X, float64(px)/255.0)
			}
		}
		f.Close()
	}
	return set, nil
}
