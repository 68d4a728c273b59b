package sensor

import (
	"fmt"
	"image"
	"image/color"
)

// Encode converts img into raw frame bytes of the given format.
func Encode(img image.Image, format PixelFormat) ([]byte, error) {
	size := img.Bounds().Size()
	desc := Description{Width: size.X, Height: size.Y, Format: format}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	origin := img.Bounds().Min
	buf := make([]byte, desc.Size())

	if rgba, ok := img.(*image.RGBA); ok && format != YUY2 && rgba.Stride == size.X*4 && origin == (image.Point{}) {
		copy(buf, rgba.Pix)
		if format == BGRA {
			for i := 0; i < len(buf); i += 4 {
				buf[i], buf[i+2] = buf[i+2], buf[i]
			}
		}
		return buf, nil
	}

	switch format {
	case BGRA, RGBA:
		i := 0
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				c := color.RGBAModel.Convert(img.At(origin.X+x, origin.Y+y)).(color.RGBA)
				if format == BGRA {
					buf[i], buf[i+1], buf[i+2], buf[i+3] = c.B, c.G, c.R, c.A
				} else {
					buf[i], buf[i+1], buf[i+2], buf[i+3] = c.R, c.G, c.B, c.A
				}
				i += 4
			}
		}
	case YUY2:
		i := 0
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x += 2 {
				y0, cb0, cr0 := ycbcr(img.At(origin.X+x, origin.Y+y))
				y1, cb1, cr1 := ycbcr(img.At(origin.X+x+1, origin.Y+y))
				buf[i] = y0
				buf[i+1] = uint8((uint16(cb0) + uint16(cb1)) / 2)
				buf[i+2] = y1
				buf[i+3] = uint8((uint16(cr0) + uint16(cr1)) / 2)
				i += 4
			}
		}
	}

	return buf, nil
}

func ycbcr(c color.Color) (uint8, uint8, uint8) {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return color.RGBToYCbCr(rgba.R, rgba.G, rgba.B)
}

// Image wraps raw frame bytes as an image without copying them.
func Image(desc Description, data []byte) (image.Image, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if len(data) != desc.Size() {
		return nil, fmt.Errorf("wrong frame length (exp: %d, got %d)", desc.Size(), len(data))
	}

	switch desc.Format {
	case RGBA:
		return &image.RGBA{
			Pix:    data,
			Stride: desc.Width * 4,
			Rect:   image.Rect(0, 0, desc.Width, desc.Height),
		}, nil
	case BGRA:
		return &bgraImage{b: image.Rect(0, 0, desc.Width, desc.Height), frame: data}, nil
	case YUY2:
		return &yuy2Image{b: image.Rect(0, 0, desc.Width, desc.Height), frame: data}, nil
	}

	return nil, fmt.Errorf("unknown pixel format: %q", desc.Format)
}

type bgraImage struct {
	b     image.Rectangle
	frame []byte
}

func (f *bgraImage) ColorModel() color.Model {
	return color.RGBAModel
}

func (f *bgraImage) Bounds() image.Rectangle {
	return f.b
}

func (f *bgraImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(f.b)) {
		return color.RGBA{}
	}
	i := f.b.Max.X*y*4 + x*4
	return color.RGBA{R: f.frame[i+2], G: f.frame[i+1], B: f.frame[i], A: f.frame[i+3]}
}

type yuy2Image struct {
	b     image.Rectangle
	frame []byte
}

func (f *yuy2Image) ColorModel() color.Model {
	return color.YCbCrModel
}

func (f *yuy2Image) Bounds() image.Rectangle {
	return f.b
}

func (f *yuy2Image) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(f.b)) {
		return color.YCbCr{}
	}
	index := f.b.Max.X*y*2 + (x&^1)*2
	if x&1 == 0 {
		return color.YCbCr{Y: f.frame[index], Cb: f.frame[index+1], Cr: f.frame[index+3]}
	}
	return color.YCbCr{Y: f.frame[index+2], Cb: f.frame[index+1], Cr: f.frame[index+3]}
}
