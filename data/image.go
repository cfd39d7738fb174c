package data

import (
	"image"
	"os"

	_ "image/jpeg" // Essential: Registers JPEG format
	_ "image/png"

	"golang.org/x/image/draw"
)

// ConvertImageRGB loads an image file, resizes it to side x side and
// returns channel-major RGB planes scaled to [0, 1], the same layout
// the CIFAR loaders produce.
func ConvertImageRGB(path string, side int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.CatmullRom.Scale(dst, dst.Rect, src, src.Bounds(), draw.Over, nil)

	area := side * side
	out := make([]float64, 3*area)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			r, g, b, _ := dst.At(x, y).RGBA()
			i := y*side + x
			out[i] = float64(r>>8) / 255.0
			out[area+i] = float64(g>>8) / 255.0
			out[2*area+i] = float64(b>>8) / 255.0
		}
	}
	return out, nil
}
