// Package imageconv re-encodes images that cannot be embedded into a PDF
// directly (GIF, BMP, TIFF, WebP) as PNG.
package imageconv

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Size returns the pixel dimensions of an image without decoding it fully.
func Size(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("read image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// ToPNG decodes src and writes it to dst as PNG. Only the first frame of an
// animated image is kept. It returns the decoded format name.
func ToPNG(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	img, format, err := image.Decode(in)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return format, err
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(out, img); err != nil {
		out.Close()
		return format, fmt.Errorf("encode png: %w", err)
	}
	return format, out.Close()
}
