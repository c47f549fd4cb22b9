package main

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// saveLossPlot plots the mean training and validation loss
// of every epoch so far.
func saveLossPlot(path string, epochs []int, train, val []float64) error {
	p := plot.New()
	p.Title.Text = "Mean loss"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Loss"

	trainPts := make(plotter.XYs, len(train))
	valPts := make(plotter.XYs, len(val))
	for i, epoch := range epochs {
		trainPts[i] = plotter.XY{X: float64(epoch), Y: train[i]}
		valPts[i] = plotter.XY{X: float64(epoch), Y: val[i]}
	}

	trainLine, err := plotter.NewLine(trainPts)
	if err != nil {
		return err
	}
	trainLine.Width = vg.Points(1)
	valLine, err := plotter.NewLine(valPts)
	if err != nil {
		return err
	}
	valLine.Width = vg.Points(1)
	valLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(trainLine, valLine)
	p.Legend.Add("train", trainLine)
	p.Legend.Add("validation", valLine)
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
