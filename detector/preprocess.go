package detector

import (
	"image"

	"golang.org/x/image/draw"
)

// prepareInput letterboxes img into a square inputSize canvas (top-left
// anchored, black padding) and converts it to a normalized NCHW float
// blob: (x - 127.5) / 128 per channel, RGB order. Returns the blob and
// the scale factor used, so detections can be mapped back to original
// pixel coordinates.
func prepareInput(img image.Image, inputSize int) ([]float32, float32) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	longest := width
	if height > longest {
		longest = height
	}
	scale := float32(inputSize) / float32(longest)

	newWidth := int(float32(width) * scale)
	newHeight := int(float32(height) * scale)

	canvas := image.NewRGBA(image.Rect(0, 0, inputSize, inputSize))
	draw.CatmullRom.Scale(canvas, image.Rect(0, 0, newWidth, newHeight), img, bounds, draw.Src, nil)

	plane := inputSize * inputSize
	blob := make([]float32, 3*plane)

	for y := 0; y < inputSize; y++ {
		row := y * canvas.Stride
		for x := 0; x < inputSize; x++ {
			i := row + x*4
			idx := y*inputSize + x
			blob[idx] = (float32(canvas.Pix[i]) - 127.5) / 128.0
			blob[plane+idx] = (float32(canvas.Pix[i+1]) - 127.5) / 128.0
			blob[2*plane+idx] = (float32(canvas.Pix[i+2]) - 127.5) / 128.0
		}
	}

	return blob, scale
}
