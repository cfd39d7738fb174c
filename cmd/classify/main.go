package main

import (
	"fmt"
	"os"

	"github.com/SalmanJubairJim6/ECGR-5105/data"
	"github.com/SalmanJubairJim6/ECGR-5105/ml"
)

// All knobs live here; edit and rerun. The model name must match the
// architecture the weights file was trained with.
const (
	modelName = "vgg_bn"
	modelPath = "vgg_bn.gob"
	classes   = 10
)

func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: classify <image.png|image.jpg>")
		os.Exit(1)
	}

	nw, err := ml.Build(modelName, classes)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := nw.LoadFromFile(modelPath); err != nil {
		fmt.Println("Error loading model:", err)
		os.Exit(1)
	}

	ml.InferenceImg(nw, os.Args[1], data.Cifar10Labels, data.ConvertImageRGB)
}
