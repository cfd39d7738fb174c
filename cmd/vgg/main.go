package main

import (
	"fmt"
	"os"

	"github.com/SalmanJubairJim6/ECGR-5105/chart"
	"github.com/SalmanJubairJim6/ECGR-5105/data"
	"github.com/SalmanJubairJim6/ECGR-5105/ml"
)

// All knobs live here; edit and rerun.
const (
	cifarDir     = "datasets/cifar-10-batches-bin"
	modelName    = "vgg_bn" // or "vgg" for the plain variant
	classes      = 10
	epochs       = 30
	batchSize    = 64
	learningRate = 0.001
)

func main() {
	train, test, err := data.LoadCIFAR10(cifarDir)
	if err != nil {
		fmt.Println("Error loading CIFAR-10:", err)
		os.Exit(1)
	}

	nw, err := ml.Build(modelName, classes)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Printf("%s | %d parameters | %d train / %d test samples\n",
		modelName, nw.ParamCount(), train.Len(), test.Len())

	hist := ml.Train(nw,
		ml.NewSource(train.X, train.Y, train.Cols),
		ml.NewSource(test.X, test.Y, test.Cols),
		ml.TrainingConfig{
			Epochs:       epochs,
			BatchSize:    batchSize,
			LearningRate: learningRate,
			Optimizer:    ml.OptAdam,
			ModelPath:    modelName + ".gob",
			VerboseEvery: 1,
		})

	if err := chart.SaveCurves(modelName, hist.TrainLoss, hist.TrainAcc, hist.ValLoss, hist.ValAcc); err != nil {
		fmt.Println("Error writing plots:", err)
	}
}
