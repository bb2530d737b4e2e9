package raypool

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// Pixmap is a displayable view of an RGBA8 pixel buffer
// (non-premultiplied, 4 bytes per pixel, rows packed without padding).
type Pixmap struct {
	width  int
	height int
	data   []uint8
}

// Format selects an image encoding.
type Format int

const (
	// FormatPNG encodes with image/png.
	FormatPNG Format = iota
	// FormatBMP encodes with golang.org/x/image/bmp.
	FormatBMP
	// FormatTIFF encodes with golang.org/x/image/tiff (deflate compressed).
	FormatTIFF
)

// String returns the conventional file extension for f, without the dot.
func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatBMP:
		return "bmp"
	case FormatTIFF:
		return "tiff"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat maps a format name or file extension to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "png":
		return FormatPNG, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	default:
		return 0, fmt.Errorf("raypool: unsupported image format %q", name)
	}
}

// NewPixmap creates a transparent pixmap with the given dimensions.
func NewPixmap(width, height int) *Pixmap {
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// FromBuffer wraps an existing RGBA8 buffer without copying it.
// The caller must not modify buf while the pixmap is in use.
func FromBuffer(buf []byte, width, height int) (*Pixmap, error) {
	if width <= 0 || height <= 0 || len(buf) != width*height*4 {
		return nil, fmt.Errorf("%w: %dx%d with %d bytes", ErrInvalidSize, width, height, len(buf))
	}
	return &Pixmap{width: width, height: height, data: buf}, nil
}

// Width returns the width of the pixmap.
func (p *Pixmap) Width() int {
	return p.width
}

// Height returns the height of the pixmap.
func (p *Pixmap) Height() int {
	return p.height
}

// Data returns the raw pixel data.
func (p *Pixmap) Data() []uint8 {
	return p.data
}

// SetPixel sets the color of a single pixel. Out-of-bounds writes are ignored.
func (p *Pixmap) SetPixel(x, y int, c color.NRGBA) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	i := (y*p.width + x) * 4
	p.data[i+0] = c.R
	p.data[i+1] = c.G
	p.data[i+2] = c.B
	p.data[i+3] = c.A
}

// GetPixel returns the color of a single pixel, or transparent black for
// out-of-bounds coordinates.
func (p *Pixmap) GetPixel(x, y int) color.NRGBA {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return color.NRGBA{}
	}
	i := (y*p.width + x) * 4
	return color.NRGBA{R: p.data[i+0], G: p.data[i+1], B: p.data[i+2], A: p.data[i+3]}
}

// ToImage copies the pixmap into an image.NRGBA.
func (p *Pixmap) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, p.data)
	return img
}

// Scaled returns a copy of the pixmap resampled to width x height with
// bilinear filtering. Useful for small progressive previews.
func (p *Pixmap) Scaled(width, height int) *Pixmap {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), p, p.Bounds(), xdraw.Src, nil)
	return &Pixmap{width: width, height: height, data: dst.Pix}
}

// Encode writes the pixmap to w in the given format.
func (p *Pixmap) Encode(w io.Writer, f Format) error {
	img := p.ToImage()
	var err error
	switch f {
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("raypool: unsupported image format %v", f)
	}
	if err != nil {
		return fmt.Errorf("raypool: encode %v: %w", f, err)
	}
	return nil
}

// Save writes the pixmap to path, choosing the format from its extension.
func (p *Pixmap) Save(path string) error {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return err
	}
	out, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("raypool: create file: %w", err)
	}
	if err := p.Encode(out, f); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// SavePNG saves the pixmap to a PNG file.
func (p *Pixmap) SavePNG(path string) error {
	out, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("raypool: create file: %w", err)
	}
	if err := p.Encode(out, FormatPNG); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// At implements the image.Image interface.
func (p *Pixmap) At(x, y int) color.Color {
	return p.GetPixel(x, y)
}

// Bounds implements the image.Image interface.
func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// ColorModel implements the image.Image interface.
func (p *Pixmap) ColorModel() color.Model {
	return color.NRGBAModel
}
