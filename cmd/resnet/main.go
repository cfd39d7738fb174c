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
	cifar10Dir   = "datasets/cifar-10-batches-bin"
	cifar100Dir  = "datasets/cifar-100-binary"
	epochs       = 40
	batchSize    = 128
	learningRate = 0.001
)

func run(name string, classes int, train, test data.Set, modelPath string) ml.History {
	nw, err := ml.Build(name, classes)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Printf("%s | %d classes | %d parameters | %d train / %d test samples\n",
		name, classes, nw.ParamCount(), train.Len(), test.Len())

	return ml.Train(nw,
		ml.NewSource(train.X, train.Y, train.Cols),
		ml.NewSource(test.X, test.Y, test.Cols),
		ml.TrainingConfig{
			Epochs:       epochs,
			BatchSize:    batchSize,
			LearningRate: learningRate,
			Optimizer:    ml.OptAdam,
			ModelPath:    modelPath,
			VerboseEvery: 1,
		})
}

func main() {
	train10, test10, err := data.LoadCIFAR10(cifar10Dir)
	if err != nil {
		fmt.Println("Error loading CIFAR-10:", err)
		os.Exit(1)
	}

	// Depth comparison on CIFAR-10
	hist10 := run("resnet10", 10, train10, test10, "")
	hist18 := run("resnet18", 10, train10, test10, "resnet18.gob")

	if err := chart.SavePNG("resnet validation loss", "Loss", "resnet_depth_loss.png",
		chart.Series{Name: "resnet10", Values: hist10.ValLoss},
		chart.Series{Name: "resnet18", Values: hist18.ValLoss},
	); err != nil {
		fmt.Println("Error writing plot:", err)
	}
	if err := chart.SavePNG("resnet validation accuracy", "Accuracy", "resnet_depth_acc.png",
		chart.Series{Name: "resnet10", Values: hist10.ValAcc},
		chart.Series{Name: "resnet18", Values: hist18.ValAcc},
	); err != nil {
		fmt.Println("Error writing plot:", err)
	}

	// Same depth-18 architecture again, 100-way head
	train100, test100, err := data.LoadCIFAR100(cifar100Dir)
	if err != nil {
		fmt.Println("Error loading CIFAR-100:", err)
		os.Exit(1)
	}
	hist100 := run("resnet18", 100, train100, test100, "resnet18_c100.gob")

	if err := chart.SaveCurves("resnet18_c100",
		hist100.TrainLoss, hist100.TrainAcc, hist100.ValLoss, hist100.ValAcc); err != nil {
		fmt.Println("Error writing plots:", err)
	}
}
