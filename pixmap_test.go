package raypool

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func checkerPixmap(w, h int) *Pixmap {
	pm := NewPixmap(w, h)
	for y := range h {
		for x := range w {
			c := color.NRGBA{R: byte(x * 40), G: byte(y * 40), B: 200, A: 255}
			if (x+y)%2 == 0 {
				c = color.NRGBA{R: 10, G: 20, B: 30, A: 255}
			}
			pm.SetPixel(x, y, c)
		}
	}
	return pm
}

func TestFromBuffer(t *testing.T) {
	buf := make([]byte, 3*2*4)
	buf[4] = 99

	pm, err := FromBuffer(buf, 3, 2)
	if err != nil {
		t.Fatalf("FromBuffer: %v", err)
	}
	if pm.Width() != 3 || pm.Height() != 2 {
		t.Errorf("dims = %dx%d, want 3x2", pm.Width(), pm.Height())
	}
	if got := pm.GetPixel(1, 0).R; got != 99 {
		t.Errorf("GetPixel(1,0).R = %d, want 99", got)
	}

	// FromBuffer wraps without copying.
	buf[0] = 7
	if pm.Data()[0] != 7 {
		t.Error("FromBuffer copied its input")
	}
}

func TestFromBuffer_Invalid(t *testing.T) {
	tests := []struct {
		name string
		len  int
		w, h int
	}{
		{"short buffer", 10, 2, 2},
		{"long buffer", 20, 2, 2},
		{"zero width", 0, 0, 2},
		{"negative height", 8, 2, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBuffer(make([]byte, tt.len), tt.w, tt.h)
			if !errors.Is(err, ErrInvalidSize) {
				t.Errorf("err = %v, want ErrInvalidSize", err)
			}
		})
	}
}

func TestPixmap_SetGetPixel(t *testing.T) {
	pm := NewPixmap(4, 4)
	c := color.NRGBA{R: 1, G: 2, B: 3, A: 4}
	pm.SetPixel(2, 3, c)

	if got := pm.GetPixel(2, 3); got != c {
		t.Errorf("GetPixel(2,3) = %v, want %v", got, c)
	}
	if got := pm.At(2, 3); got != c {
		t.Errorf("At(2,3) = %v, want %v", got, c)
	}

	// Out of bounds is ignored on write and transparent on read.
	pm.SetPixel(-1, 0, c)
	pm.SetPixel(4, 0, c)
	if got := pm.GetPixel(9, 9); got != (color.NRGBA{}) {
		t.Errorf("GetPixel out of bounds = %v, want zero", got)
	}
	if pm.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Errorf("Bounds() = %v", pm.Bounds())
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"png", FormatPNG, false},
		{".PNG", FormatPNG, false},
		{"bmp", FormatBMP, false},
		{".tif", FormatTIFF, false},
		{"tiff", FormatTIFF, false},
		{"jpeg", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPixmap_Encode(t *testing.T) {
	pm := checkerPixmap(5, 3)

	decoders := map[Format]func(*bytes.Buffer) (image.Image, error){
		FormatPNG:  func(b *bytes.Buffer) (image.Image, error) { return png.Decode(b) },
		FormatBMP:  func(b *bytes.Buffer) (image.Image, error) { return bmp.Decode(b) },
		FormatTIFF: func(b *bytes.Buffer) (image.Image, error) { return tiff.Decode(b) },
	}
	for f, decode := range decoders {
		t.Run(f.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := pm.Encode(&buf, f); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			img, err := decode(&buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if img.Bounds() != pm.Bounds() {
				t.Fatalf("bounds = %v, want %v", img.Bounds(), pm.Bounds())
			}
			for y := range 3 {
				for x := range 5 {
					got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
					if want := pm.GetPixel(x, y); got != want {
						t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want)
					}
				}
			}
		})
	}
}

func TestPixmap_EncodeUnknownFormat(t *testing.T) {
	if err := NewPixmap(1, 1).Encode(&bytes.Buffer{}, Format(42)); err == nil {
		t.Error("Encode(Format(42)) should fail")
	}
}

func TestPixmap_Save(t *testing.T) {
	dir := t.TempDir()
	pm := checkerPixmap(4, 4)

	for _, name := range []string{"out.png", "out.bmp", "out.tiff"} {
		path := filepath.Join(dir, name)
		if err := pm.Save(path); err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
		if st, err := os.Stat(path); err != nil || st.Size() == 0 {
			t.Errorf("Save(%s) wrote nothing: %v", name, err)
		}
	}

	if err := pm.Save(filepath.Join(dir, "out.gif")); err == nil {
		t.Error("Save with unsupported extension should fail")
	}
	if err := pm.SavePNG(filepath.Join(dir, "plain")); err != nil {
		t.Errorf("SavePNG: %v", err)
	}
}

func TestPixmap_Scaled(t *testing.T) {
	pm := NewPixmap(8, 8)
	for y := range 8 {
		for x := range 8 {
			pm.SetPixel(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	small := pm.Scaled(2, 2)
	if small.Width() != 2 || small.Height() != 2 || len(small.Data()) != 16 {
		t.Fatalf("Scaled size = %dx%d (%d bytes)", small.Width(), small.Height(), len(small.Data()))
	}
	// A flat image stays flat.
	if got := small.GetPixel(1, 1); got != (color.NRGBA{R: 200, G: 100, B: 50, A: 255}) {
		t.Errorf("scaled pixel = %v", got)
	}
}
