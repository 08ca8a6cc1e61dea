// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"ocr-demarcator/internal/demarcation"
	"ocr-demarcator/internal/pdftest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func writePDF(t *testing.T, pages []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, pdftest.Write(path, pages))
	return path
}

func TestTextLayerExtractor_ExtractPages(t *testing.T) {
	path := writePDF(t, []string{
		"Start of Invoices\nInvoice #123",
		"",
		"End of Invoices",
	})

	pages, err := NewTextLayerExtractor(nil).ExtractPages(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Contains(t, demarcation.Normalize(pages[0]), "Start of Invoices")
	assert.Contains(t, demarcation.Normalize(pages[0]), "Invoice #123")
	assert.Empty(t, strings.TrimSpace(pages[1]))
	assert.Equal(t, "End of Invoices", demarcation.Normalize(pages[2]))
}

func TestTextLayerExtractor_NotAPDF(t *testing.T) {
	_, err := NewTextLayerExtractor(nil).ExtractPages(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(writePDF(t, []string{"a", "b", "c", "d"}))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

type fakeText struct {
	pages []string
	err   error
}

func (f fakeText) ExtractPages(ctx context.Context, pdfPath string) ([]string, error) {
	return append([]string(nil), f.pages...), f.err
}

type fakeScan struct {
	texts     map[int]string
	err       error
	requested []int
}

func (f *fakeScan) ExtractSelected(ctx context.Context, pdfPath string, pages []int) (map[int]string, error) {
	f.requested = pages
	return f.texts, f.err
}

func TestAutoExtractor_RecognizesOnlySparsePages(t *testing.T) {
	text := fakeText{pages: []string{"Deed of trust, recorded copy", "  ", "x", "Promissory note for the loan"}}
	scan := &fakeScan{texts: map[int]string{2: "scanned page two", 3: ""}}

	pages, err := NewAutoExtractor(text, scan, 10, nil).ExtractPages(context.Background(), "doc.pdf")

	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, scan.requested)
	assert.Equal(t, []string{"Deed of trust, recorded copy", "scanned page two", "x", "Promissory note for the loan"}, pages)
}

func TestAutoExtractor_KeepsTextLayerWhenScanFails(t *testing.T) {
	text := fakeText{pages: []string{"", "body text long enough"}}
	scan := &fakeScan{err: errors.New("no images")}

	pages, err := NewAutoExtractor(text, scan, 5, nil).ExtractPages(context.Background(), "doc.pdf")

	require.NoError(t, err)
	assert.Equal(t, []string{"", "body text long enough"}, pages)
}

func TestAutoExtractor_TextLayerError(t *testing.T) {
	_, err := NewAutoExtractor(fakeText{err: ErrNoPages}, &fakeScan{}, 5, nil).ExtractPages(context.Background(), "doc.pdf")
	assert.ErrorIs(t, err, ErrNoPages)
}

func TestPrepareImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4, 2))
	src.SetGray(0, 0, color.Gray{Y: 200})

	t.Run("tiff becomes png", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, tiff.Encode(&buf, src, nil))

		out, err := prepareImage(pageImage{FileType: "tif", Data: buf.Bytes()})
		require.NoError(t, err)

		decoded, err := png.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, src.Bounds(), decoded.Bounds())
	})

	t.Run("jpeg without exif passes through", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, src, nil))

		out, err := prepareImage(pageImage{FileType: "jpg", Data: buf.Bytes()})
		require.NoError(t, err)
		assert.Equal(t, buf.Bytes(), out)
	})

	t.Run("png passes through", func(t *testing.T) {
		out, err := prepareImage(pageImage{FileType: "png", Data: []byte("png-bytes")})
		require.NoError(t, err)
		assert.Equal(t, []byte("png-bytes"), out)
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := prepareImage(pageImage{FileType: "jpx", Data: []byte{1}})
		assert.Error(t, err)
	})
}

func TestExifOrientation_NoExif(t *testing.T) {
	assert.Equal(t, 1, exifOrientation([]byte("not a jpeg")))
}

func TestApplyOrientation(t *testing.T) {
	// 2x1: left pixel dark, right pixel light
	src := image.NewGray(image.Rect(0, 0, 2, 1))
	src.SetGray(0, 0, color.Gray{Y: 10})
	src.SetGray(1, 0, color.Gray{Y: 250})

	gray := func(img image.Image, x, y int) uint8 {
		return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
	}

	rotated := applyOrientation(src, 6)
	assert.Equal(t, image.Rect(0, 0, 1, 2), rotated.Bounds())
	assert.Equal(t, uint8(10), gray(rotated, 0, 0))
	assert.Equal(t, uint8(250), gray(rotated, 0, 1))

	flipped := applyOrientation(src, 3)
	assert.Equal(t, uint8(250), gray(flipped, 0, 0))
	assert.Equal(t, uint8(10), gray(flipped, 1, 0))

	mirrored := applyOrientation(src, 2)
	assert.Equal(t, uint8(250), gray(mirrored, 0, 0))
}

func TestScanExtractor_UsesRecognizer(t *testing.T) {
	calls := 0
	rec := RecognizerFunc(func(ctx context.Context, img []byte) (string, error) {
		calls++
		return "recognized", nil
	})

	// text-only PDF: no page images, so every page comes back blank
	pages, err := NewScanExtractor(rec, Options{Workers: 2}, nil).ExtractPages(context.Background(), writePDF(t, []string{"a", "b"}))

	require.NoError(t, err)
	assert.Equal(t, []string{"", ""}, pages)
	assert.Zero(t, calls)
}
