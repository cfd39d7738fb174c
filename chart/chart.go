// Package chart renders training curves to PNG files.
package chart

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Series is one named curve with one value per epoch.
type Series struct {
	Name   string
	Values []float64
}

// SavePNG draws the series as lines over epoch number and writes the
// plot to path.
func SavePNG(title, yLabel, path string, series ...Series) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = yLabel
	p.Legend.Top = true

	args := make([]any, 0, 2*len(series))
	for _, s := range series {
		pts := make(plotter.XYs, len(s.Values))
		for i, v := range s.Values {
			pts[i].X = float64(i + 1)
			pts[i].Y = v
		}
		args = append(args, s.Name, pts)
	}

	if err := plotutil.AddLines(p, args...); err != nil {
		return err
	}
	return p.Save(7*vg.Inch, 5*vg.Inch, path)
}

// SaveCurves writes the standard pair of run plots, <prefix>_loss.png
// and <prefix>_acc.png.
func SaveCurves(prefix string, trainLoss, trainAcc, valLoss, valAcc []float64) error {
	if err := SavePNG(prefix+" loss", "Loss", prefix+"_loss.png",
		Series{Name: "train", Values: trainLoss},
		Series{Name: "validation", Values: valLoss},
	); err != nil {
		return err
	}
	return SavePNG(prefix+" accuracy", "Accuracy", prefix+"_acc.png",
		Series{Name: "train", Values: trainAcc},
		Series{Name: "validation", Values: valAcc},
	)
}
