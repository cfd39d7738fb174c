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
	csvPath      = "datasets/Housing.csv"
	trainFrac    = 0.8
	epochs       = 200
	batchSize    = 32
	learningRate = 0.001
)

var hidden = []int{64, 32}

func main() {
	set, err := data.LoadHousing(csvPath)
	if err != nil {
		fmt.Println("Error loading housing data:", err)
		os.Exit(1)
	}

	set.Shuffle()
	train, val := set.Split(trainFrac)

	// Scaling statistics come from the training split only
	means, stds := data.Standardize(train.X, train.Cols)
	data.ApplyStandardize(val.X, val.Cols, means, stds)
	yMeans, yStds := data.Standardize(train.Y, 1)
	data.ApplyStandardize(val.Y, 1, yMeans, yStds)

	nw := ml.NewRegressor(train.Cols, hidden)
	fmt.Printf("regressor %v | %d parameters | %d train / %d val samples\n",
		hidden, nw.ParamCount(), train.Len(), val.Len())

	hist := ml.Train(nw,
		ml.NewSource(train.X, train.Y, train.Cols),
		ml.NewSource(val.X, val.Y, val.Cols),
		ml.TrainingConfig{
			Epochs:       epochs,
			BatchSize:    batchSize,
			LearningRate: learningRate,
			Optimizer:    ml.OptAdam,
			KeepBest:     true,
			ModelPath:    "housing.gob",
			VerboseEvery: 10,
		})

	fmt.Printf("Best epoch %d | Val Loss: %.4f\n", hist.BestEpoch, hist.BestLoss)

	if err := chart.SavePNG("housing loss", "MSE", "housing_loss.png",
		chart.Series{Name: "train", Values: hist.TrainLoss},
		chart.Series{Name: "validation", Values: hist.ValLoss},
	); err != nil {
		fmt.Println("Error writing plot:", err)
	}
}
