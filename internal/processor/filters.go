package processor

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/aliskhannn/image-batch/internal/model"
)

const (
	// SharpnessFactor is the enhancement factor of the sharpen filter; 1.0 leaves the image unchanged.
	SharpnessFactor = 7.0

	// ResizeWidth and ResizeHeight are the fixed dimensions of the resize filter.
	ResizeWidth  = 100
	ResizeHeight = 100
)

var (
	smoothKernel  = [9]float64{1, 1, 1, 1, 5, 1, 1, 1, 1}
	contourKernel = [9]float64{-1, -1, -1, -1, 8, -1, -1, -1, -1}
)

// Apply runs the selected filters over img in the fixed order sharpen, sepia, resize.
// Each filter consumes the output of the previous one. img is not modified.
func Apply(img image.Image, filters model.FilterSelection) image.Image {
	out := img

	if filters.Has(model.FilterSharpen) {
		out = Sharpen(out, SharpnessFactor)
	}
	if filters.Has(model.FilterSepia) {
		out = Sepia(out)
	}
	if filters.Has(model.FilterResize) {
		out = Resize(out, ResizeWidth, ResizeHeight)
	}

	return out
}

// Sharpen enhances sharpness by extrapolating from a smoothed copy of the image.
// A factor of 1.0 returns the original pixels, larger factors give sharper edges.
// Single-channel input stays single-channel.
func Sharpen(img image.Image, factor float64) image.Image {
	src := imaging.Clone(img)
	smooth := imaging.Convolve3x3(src, smoothKernel, &imaging.ConvolveOptions{Normalize: true})

	dst := image.NewNRGBA(src.Rect)
	for i := 0; i < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			d := float64(smooth.Pix[i+c])
			dst.Pix[i+c] = clamp(d + factor*(float64(src.Pix[i+c])-d))
		}
		dst.Pix[i+3] = src.Pix[i+3]
	}

	if _, ok := img.(*image.Gray); ok {
		return toGray(dst)
	}

	return dst
}

// Sepia converts the image to luminance and traces its contours.
// Flat regions become white and edges turn dark. No color tint is applied.
func Sepia(img image.Image) *image.Gray {
	gray := imaging.Grayscale(img)
	contour := imaging.Convolve3x3(gray, contourKernel, &imaging.ConvolveOptions{Bias: 255})

	return toGray(contour)
}

// Resize scales the image to exactly width x height, ignoring the aspect ratio.
// Single-channel input stays single-channel.
func Resize(img image.Image, width, height int) image.Image {
	resized := imaging.Resize(img, width, height, imaging.CatmullRom)

	if _, ok := img.(*image.Gray); ok {
		return toGray(resized)
	}

	return resized
}

// toGray copies the red channel of an image whose channels are already equal.
func toGray(src *image.NRGBA) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst.Pix[y*dst.Stride+x] = row[x*4]
		}
	}

	return dst
}

func clamp(v float64) uint8 {
	v += 0.5
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
