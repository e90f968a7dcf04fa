package processor

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/image-batch/internal/model"
)

// squareImage returns a w x h red canvas with a blue square in the middle.
func squareImage(w, h int) *image.NRGBA {
	bg := imaging.New(w, h, color.NRGBA{R: 200, G: 50, B: 50, A: 255})
	fg := imaging.New(w/2, h/2, color.NRGBA{R: 30, G: 60, B: 220, A: 255})
	return imaging.Paste(bg, fg, image.Pt(w/4, h/4))
}

func TestApply_ResizeIgnoresAspectRatio(t *testing.T) {
	out := Apply(squareImage(400, 300), model.NewFilterSelection(model.FilterResize))

	assert.Equal(t, image.Rect(0, 0, 100, 100), out.Bounds())
}

func TestApply_NoFiltersReturnsInput(t *testing.T) {
	src := squareImage(10, 10)

	assert.Same(t, src, Apply(src, model.NewFilterSelection()))
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	src := squareImage(40, 30)
	before := imaging.Clone(src)

	Apply(src, model.NewFilterSelection(model.FilterSharpen, model.FilterSepia, model.FilterResize))

	assert.Equal(t, before.Pix, src.Pix)
}

func TestApply_SepiaIsGrayscaleContour(t *testing.T) {
	src := squareImage(40, 40)

	out := Apply(src, model.NewFilterSelection(model.FilterSepia))

	gray, ok := out.(*image.Gray)
	require.True(t, ok, "sepia output must be single-channel, got %T", out)

	plain := imaging.Grayscale(src)

	// Flat regions become white, unlike plain grayscale.
	assert.Equal(t, uint8(255), gray.GrayAt(2, 2).Y)
	assert.NotEqual(t, plain.NRGBAAt(2, 2).R, gray.GrayAt(2, 2).Y)

	// The square's border is traced with dark pixels.
	var dark int
	for _, v := range gray.Pix {
		if v < 255 {
			dark++
		}
	}
	assert.Positive(t, dark)
}

func TestApply_SepiaHasNoTint(t *testing.T) {
	out := Apply(squareImage(20, 20), model.NewFilterSelection(model.FilterSepia))

	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := out.At(x, y).RGBA()
			require.True(t, r == g && g == bl, "pixel (%d,%d) is tinted", x, y)
		}
	}
}

func TestApply_SepiaThenResizeStaysGray(t *testing.T) {
	out := Apply(squareImage(400, 300), model.NewFilterSelection(model.FilterResize, model.FilterSepia))

	gray, ok := out.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 100, 100), gray.Bounds())
}

func TestApply_FixedOrder(t *testing.T) {
	src := squareImage(60, 45)

	got := Apply(src, model.NewFilterSelection(model.FilterResize, model.FilterSepia, model.FilterSharpen))
	want := Resize(Sepia(Sharpen(src, SharpnessFactor)), ResizeWidth, ResizeHeight)
	reversed := Sharpen(Sepia(Resize(src, ResizeWidth, ResizeHeight)), SharpnessFactor)

	assert.Equal(t, want, got)
	assert.NotEqual(t, reversed.(*image.Gray).Pix, got.(*image.Gray).Pix)
}

func TestSharpen_NeutralFactorIsIdentity(t *testing.T) {
	src := squareImage(16, 16)

	assert.Equal(t, src.Pix, Sharpen(src, 1.0).(*image.NRGBA).Pix)
}

func TestSharpen_IncreasesEdgeContrast(t *testing.T) {
	// Vertical edge: dark left half, light right half.
	bg := imaging.New(20, 10, color.NRGBA{R: 80, G: 80, B: 80, A: 255})
	src := imaging.Paste(bg, imaging.New(10, 10, color.NRGBA{R: 160, G: 160, B: 160, A: 255}), image.Pt(10, 0))

	out := Sharpen(src, SharpnessFactor).(*image.NRGBA)

	assert.Less(t, out.NRGBAAt(9, 5).R, src.NRGBAAt(9, 5).R)
	assert.Greater(t, out.NRGBAAt(10, 5).R, src.NRGBAAt(10, 5).R)
	// Pixels far from the edge are untouched.
	assert.Equal(t, src.NRGBAAt(2, 5), out.NRGBAAt(2, 5))
}

func TestSharpen_KeepsAlpha(t *testing.T) {
	src := imaging.New(8, 8, color.NRGBA{R: 10, G: 20, B: 30, A: 128})

	out := Sharpen(src, SharpnessFactor).(*image.NRGBA)

	assert.Equal(t, uint8(128), out.NRGBAAt(4, 4).A)
}

func TestSharpen_GrayStaysGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 12, 12))
	for y := 0; y < 12; y++ {
		for x := 6; x < 12; x++ {
			src.SetGray(x, y, color.Gray{Y: 160})
		}
	}
	for x := 0; x < 6; x++ {
		for y := 0; y < 12; y++ {
			src.SetGray(x, y, color.Gray{Y: 80})
		}
	}

	out, ok := Sharpen(src, SharpnessFactor).(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, src.Bounds(), out.Bounds())
	assert.Less(t, out.GrayAt(5, 6).Y, uint8(80))
	assert.Greater(t, out.GrayAt(6, 6).Y, uint8(160))
	assert.Equal(t, uint8(80), out.GrayAt(1, 6).Y)

	_, ok = Apply(src, model.NewFilterSelection(model.FilterSharpen)).(*image.Gray)
	assert.True(t, ok)
	_, ok = Apply(src, model.NewFilterSelection(model.FilterSharpen, model.FilterResize)).(*image.Gray)
	assert.True(t, ok)
}
