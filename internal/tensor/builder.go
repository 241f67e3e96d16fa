// Package tensor turns a decoded 224x224 leaf photo into the normalised,
// channel-planar float32 input expected by the classifier graph.
package tensor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
)

const (
	Width     = 224
	Height    = 224
	Channels  = 3
	PlaneSize = Width * Height
	Size      = Channels * PlaneSize
)

// Per-channel ImageNet normalisation constants, in R, G, B order
var (
	Mean = [Channels]float64{0.485, 0.456, 0.406}
	Std  = [Channels]float64{0.229, 0.224, 0.225}
)

// lut holds the normalised value of every 8-bit channel value
var lut = func() (t [Channels][256]float32) {
	for c := 0; c < Channels; c++ {
		for v := 0; v < 256; v++ {
			t[c][v] = float32((float64(v)/255 - Mean[c]) / Std[c])
		}
	}
	return t
}()

// Shape is the logical NCHW input shape
var Shape = []int64{1, Channels, Height, Width}

// Tensor is a flat NCHW buffer: the R plane, then G, then B
type Tensor struct {
	Data  []float32
	Shape []int64
}

// DecodeError reports bytes that are not a decodable JPEG
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) IsTransient() bool { return false }

// DimensionError reports an image that was not resized to 224x224 upstream
type DimensionError struct {
	Width  int
	Height int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("image must be %dx%d pixels, got %dx%d", Width, Height, e.Width, e.Height)
}

func (e *DimensionError) IsTransient() bool { return false }

// FromJPEG decodes JPEG bytes and builds the input tensor.
// Resizing is the caller's job; see package capture.
func FromJPEG(data []byte) (*Tensor, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return FromImage(img)
}

// FromImage normalises an already decoded 224x224 image. Alpha is ignored.
func FromImage(img image.Image) (*Tensor, error) {
	b := img.Bounds()
	if b.Dx() != Width || b.Dy() != Height {
		return nil, &DimensionError{Width: b.Dx(), Height: b.Dy()}
	}

	out := make([]float32, Size)

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < Height; y++ {
			off := nrgba.PixOffset(b.Min.X, b.Min.Y+y)
			row := nrgba.Pix[off : off+Width*4]
			for x := 0; x < Width; x++ {
				writePixel(out, y*Width+x, row[x*4], row[x*4+1], row[x*4+2])
			}
		}
		return &Tensor{Data: out, Shape: append([]int64(nil), Shape...)}, nil
	}

	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			writePixel(out, y*Width+x, c.R, c.G, c.B)
		}
	}
	return &Tensor{Data: out, Shape: append([]int64(nil), Shape...)}, nil
}

// writePixel stores pixel i (row-major) into each channel plane
func writePixel(out []float32, i int, r, g, b uint8) {
	out[i] = Normalize(0, r)
	out[PlaneSize+i] = Normalize(1, g)
	out[2*PlaneSize+i] = Normalize(2, b)
}

// Normalize maps an 8-bit channel value to (v/255 - mean_c) / std_c,
// evaluated in float64 and rounded once to float32
func Normalize(channel int, v uint8) float32 {
	return lut[channel][v]
}
