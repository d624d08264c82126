// Package pdftest builds PDF and image fixtures at test time so tests do not
// depend on checked-in binaries.
package pdftest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultHeight is the page height used by PDF when none is given.
const DefaultHeight = 100

// Image returns a w×h RGBA image with a colour that depends on w so pages
// built from different widths are visibly distinct.
func Image(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := color.RGBA{R: uint8(w % 256), G: uint8(h % 256), B: 128, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// PNG encodes a w×h image as PNG bytes.
func PNG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Image(w, h)); err != nil {
		tb.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG encodes a w×h image as JPEG bytes.
func JPEG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Image(w, h), &jpeg.Options{Quality: 90}); err != nil {
		tb.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes data to dir/name and returns the path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		tb.Fatalf("write %s: %v", name, err)
	}
	return p
}

// PDF writes a document with one page per width in widths, each
// DefaultHeight points tall, and returns its path. Page widths are how
// tests tell pages apart after merge and split.
func PDF(tb testing.TB, dir, name string, widths ...int) string {
	tb.Helper()
	if len(widths) == 0 {
		tb.Fatalf("pdftest.PDF: need at least one page")
	}
	imgDir := tb.TempDir()
	imgs := make([]string, len(widths))
	for i, w := range widths {
		imgs[i] = WriteFile(tb, imgDir, fmt.Sprintf("p%03d.png", i), PNG(tb, w, DefaultHeight))
	}
	out := filepath.Join(dir, name)
	if err := api.ImportImagesFile(imgs, out, pdfcpu.DefaultImportConfig(), model.NewDefaultConfiguration()); err != nil {
		tb.Fatalf("build fixture pdf: %v", err)
	}
	return out
}

// Widths returns the rounded page widths of the PDF at path, in page order.
func Widths(tb testing.TB, path string) []int {
	tb.Helper()
	dims, err := api.PageDimsFile(path)
	if err != nil {
		tb.Fatalf("page dims of %s: %v", filepath.Base(path), err)
	}
	out := make([]int, len(dims))
	for i, d := range dims {
		out[i] = int(d.Width + 0.5)
	}
	return out
}

// Heights returns the rounded page heights of the PDF at path.
func Heights(tb testing.TB, path string) []int {
	tb.Helper()
	dims, err := api.PageDimsFile(path)
	if err != nil {
		tb.Fatalf("page dims of %s: %v", filepath.Base(path), err)
	}
	out := make([]int, len(dims))
	for i, d := range dims {
		out[i] = int(d.Height + 0.5)
	}
	return out
}

// PageCount returns the page count of the PDF at path.
func PageCount(tb testing.TB, path string) int {
	tb.Helper()
	n, err := api.PageCountFile(path)
	if err != nil {
		tb.Fatalf("page count of %s: %v", filepath.Base(path), err)
	}
	return n
}

// AssertEmptyDir fails the test if dir contains anything.
func AssertEmptyDir(tb testing.TB, dir string) {
	tb.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		tb.Fatalf("read %s: %v", dir, err)
	}
	if len(entries) > 0 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		tb.Errorf("expected %s to be empty, found %v", dir, names)
	}
}
