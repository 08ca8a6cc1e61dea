// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/tiff"
)

// pageImage is the raw image chosen to represent one scanned page.
type pageImage struct {
	PageNr   int
	FileType string
	Width    int
	Height   int
	Data     []byte
}

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}

// extractPageImages returns, per page number, the largest embedded image on
// that page. Scanners emit one full-page image per page; logos and stamps
// are smaller. pages limits extraction to the given page numbers when
// non-empty.
func extractPageImages(path string, pages []int) (map[int]pageImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var selected []string
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p))
	}

	conf := model.NewDefaultConfiguration()
	perPage, err := api.ExtractImagesRaw(f, selected, conf)
	if err != nil {
		return nil, fmt.Errorf("extract page images: %w", err)
	}

	best := make(map[int]pageImage)
	for _, images := range perPage {
		for _, img := range images {
			if img.Reader == nil {
				continue
			}
			if cur, ok := best[img.PageNr]; ok && cur.Width*cur.Height >= img.Width*img.Height {
				continue
			}
			data, err := io.ReadAll(img.Reader)
			if err != nil || len(data) == 0 {
				continue
			}
			best[img.PageNr] = pageImage{
				PageNr:   img.PageNr,
				FileType: strings.ToLower(img.FileType),
				Width:    img.Width,
				Height:   img.Height,
				Data:     data,
			}
		}
	}
	return best, nil
}

// prepareImage converts a raw page image into bytes the recognizer accepts:
// TIFF (CCITT fax scans) is re-encoded as PNG, JPEG is turned upright using
// its EXIF orientation, PNG passes through.
func prepareImage(img pageImage) ([]byte, error) {
	switch img.FileType {
	case "tif", "tiff":
		decoded, err := tiff.Decode(bytes.NewReader(img.Data))
		if err != nil {
			return nil, fmt.Errorf("decode tiff: %w", err)
		}
		return encodePNG(decoded)

	case "jpg", "jpeg":
		orientation := exifOrientation(img.Data)
		if orientation <= 1 {
			return img.Data, nil
		}
		decoded, err := jpeg.Decode(bytes.NewReader(img.Data))
		if err != nil {
			return nil, fmt.Errorf("decode jpeg: %w", err)
		}
		return encodePNG(applyOrientation(decoded, orientation))

	case "png", "":
		return img.Data, nil

	default:
		return nil, fmt.Errorf("unsupported page image type %q", img.FileType)
	}
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
