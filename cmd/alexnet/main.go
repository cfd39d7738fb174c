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
	classes      = 10
	epochs       = 25
	batchSize    = 64
	learningRate = 0.001
	dropoutRate  = 0.5
)

func main() {
	train, test, err := data.LoadCIFAR10(cifarDir)
	if err != nil {
		fmt.Println("Error loading CIFAR-10:", err)
		os.Exit(1)
	}
	trainSrc := ml.NewSource(train.X, train.Y, train.Cols)
	testSrc := ml.NewSource(test.X, test.Y, test.Cols)

	cfg := ml.TrainingConfig{
		Epochs:       epochs,
		BatchSize:    batchSize,
		LearningRate: learningRate,
		Optimizer:    ml.OptAdam,
		VerboseEvery: 1,
	}

	// Same topology twice, with and without the dropout classifier.
	withDrop := ml.NewAlexNet(classes, dropoutRate)
	fmt.Printf("alexnet dropout=%.1f | %d parameters | %d train / %d test samples\n",
		dropoutRate, withDrop.ParamCount(), train.Len(), test.Len())
	cfg.ModelPath = "alexnet.gob"
	histDrop := ml.Train(withDrop, trainSrc, testSrc, cfg)

	noDrop := ml.NewAlexNet(classes, 0)
	fmt.Printf("alexnet dropout=0 | %d parameters\n", noDrop.ParamCount())
	cfg.ModelPath = ""
	histPlain := ml.Train(noDrop, trainSrc, testSrc, cfg)

	if err := chart.SavePNG("alexnet validation loss", "Loss", "alexnet_loss.png",
		chart.Series{Name: "dropout", Values: histDrop.ValLoss},
		chart.Series{Name: "no dropout", Values: histPlain.ValLoss},
	); err != nil {
		fmt.Println("Error writing plot:", err)
	}
	if err := chart.SavePNG("alexnet validation accuracy", "Accuracy", "alexnet_acc.png",
		chart.Series{Name: "dropout", Values: histDrop.ValAcc},
		chart.Series{Name: "no dropout", Values: histPlain.ValAcc},
	); err != nil {
		fmt.Println("Error writing plot:", err)
	}
}
