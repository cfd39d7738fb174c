package main

import (
	"fmt"
	"os"

	"github.com/SalmanJubairJim6/ECGR-5105/chart"
	"github.com/SalmanJubairJim6/ECGR-5105/data"
	"github.com/SalmanJubairJim6/ECGR-5105/ml"
)

// All knobs live here; edit and rerun. "mlp" is the one-hidden-layer
// baseline, "mlp_deep" the wider dropout-regularized variant.
const (
	cifarDir     = "datasets/cifar-10-batches-bin"
	classes      = 10
	epochs       = 50
	batchSize    = 128
	learningRate = 0.001
)

func main() {
	train, test, err := data.LoadCIFAR10(cifarDir)
	if err != nil {
		fmt.Println("Error loading CIFAR-10:", err)
		os.Exit(1)
	}
	trainSrc := ml.NewSource(train.X, train.Y, train.Cols)
	testSrc := ml.NewSource(test.X, test.Y, test.Cols)

	var lossSeries, accSeries []chart.Series
	for _, name := range []string{"mlp", "mlp_deep"} {
		nw, err := ml.Build(name, classes)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("%s | %d parameters | %d train / %d test samples\n",
			name, nw.ParamCount(), train.Len(), test.Len())

		hist := ml.Train(nw, trainSrc, testSrc, ml.TrainingConfig{
			Epochs:       epochs,
			BatchSize:    batchSize,
			LearningRate: learningRate,
			Optimizer:    ml.OptAdam,
			ModelPath:    name + ".gob",
			VerboseEvery: 5,
		})
		lossSeries = append(lossSeries, chart.Series{Name: name, Values: hist.ValLoss})
		accSeries = append(accSeries, chart.Series{Name: name, Values: hist.ValAcc})
	}

	if err := chart.SavePNG("mlp validation loss", "Loss", "mlp_loss.png", lossSeries...); err != nil {
		fmt.Println("Error writing plot:", err)
	}
	if err := chart.SavePNG("mlp validation accuracy", "Accuracy", "mlp_acc.png", accSeries...); err != nil {
		fmt.Println("Error writing plot:", err)
	}
}
