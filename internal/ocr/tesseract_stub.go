// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build !ocr

package ocr

// NewRecognizer reports ErrOCRNotEnabled. Rebuild with -tags ocr (Tesseract
// and its headers installed) to recognize scanned pages.
func NewRecognizer(language string, dpi int) (Recognizer, error) {
	return nil, ErrOCRNotEnabled
}
