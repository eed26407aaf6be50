package onnx

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// imageToTensor converts an image to a [1,1,H,W] grayscale float32 tensor in
// [0,1], the input layout heatmap backbones expect here.
func imageToTensor(img image.Image) ([]float32, []int64, error) {
	if img == nil {
		return nil, nil, fmt.Errorf("nil image")
	}
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, nil, fmt.Errorf("empty image %dx%d", w, h)
	}
	data := make([]float32, w*h)
	for y := range h {
		for x := range w {
			off := gray.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			data[y*w+x] = float32(gray.Pix[off]) / 255
		}
	}
	return data, []int64{1, 1, int64(h), int64(w)}, nil
}

// validateHeatmapShape ensures an output shape is [1, C, H, W] with the
// channel count the model's part and mixture counts demand.
func validateHeatmapShape(shape []int64, wantChannels int) error {
	if len(shape) != 4 {
		return fmt.Errorf("expected 4D heatmap tensor, got %dD", len(shape))
	}
	if shape[0] != 1 {
		return fmt.Errorf("expected batch size 1, got %d", shape[0])
	}
	if int(shape[1]) != wantChannels {
		return fmt.Errorf("heatmap has %d channels, model wants %d", shape[1], wantChannels)
	}
	if shape[2] <= 0 || shape[3] <= 0 {
		return fmt.Errorf("degenerate heatmap dimensions %dx%d", shape[3], shape[2])
	}
	return nil
}
