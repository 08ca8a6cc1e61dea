// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ocr-demarcator/internal/artifacts"
	"ocr-demarcator/internal/ledger"
	"ocr-demarcator/internal/observability"
	"ocr-demarcator/internal/payload"
	"ocr-demarcator/internal/pdftest"
	"ocr-demarcator/internal/queue"
	"ocr-demarcator/internal/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	pages []string
	err   error
	calls int
}

func (f *fakeExtractor) ExtractPages(ctx context.Context, pdfPath string) ([]string, error) {
	f.calls++
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, err
	}
	return f.pages, f.err
}

type fakeAPI struct {
	mu   sync.Mutex
	xml  []string
	fail error
}

func (f *fakeAPI) InsertOCRDocument(ctx context.Context, xml string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.xml = append(f.xml, xml)
	return f.fail
}

type harness struct {
	input     *queue.SpoolQueue
	output    *queue.SpoolQueue
	api       *fakeAPI
	extractor *fakeExtractor
	ledger    *ledger.Ledger
	artifacts string
	processor *Processor
	logs      *bytes.Buffer
}

func newHarness(t *testing.T, skipAPI bool) *harness {
	t.Helper()
	root := t.TempDir()
	in, err := queue.NewSpoolQueue(root, "ocrinputqueue", time.Minute, nil)
	require.NoError(t, err)
	out, err := queue.NewSpoolQueue(root, "ocrresponsequeue", time.Minute, nil)
	require.NoError(t, err)
	led, err := ledger.Open(filepath.Join(root, "ledger.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { led.Close() })

	h := &harness{
		input:  in,
		output: out,
		api:    &fakeAPI{},
		extractor: &fakeExtractor{pages: []string{
			"DEED OF TRUST page one", "deed continued", "PROMISSORY NOTE", "note continued", "exhibit",
		}},
		ledger:    led,
		artifacts: filepath.Join(root, "artifacts"),
		logs:      &bytes.Buffer{},
	}
	observer := observability.NewStandardObserver(observability.ObservabilityInfo, h.logs)
	h.processor, err = NewProcessor(Options{
		Extractor: h.extractor,
		API:       h.api,
		Output:    out,
		Store:     artifacts.NewStore(h.artifacts, true, observer),
		Ledger:    led,
		SkipAPI:   skipAPI,
		Observer:  observer,
	})
	require.NoError(t, err)
	h.processor.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC) }
	return h
}

func requestBody(t *testing.T, identifiers []map[string]any) []byte {
	t.Helper()
	msg := map[string]any{
		"ClientFileName":    "loan.pdf",
		"UploadDatasheetid": 4411,
		"DocReceivedId":     "D-7",
		"BatchId":           "B1",
		"FirmFile":          "FF-1",
		"SessionId":         "S-1",
		"PdfContent":        base64.StdEncoding.EncodeToString(pdftest.Bytes([]string{"a", "b", "c", "d", "e"})),
		"Identifiers":       identifiers,
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	return []byte(base64.StdEncoding.EncodeToString(raw))
}

func standardRules() []map[string]any {
	return []map[string]any{
		{"Sequence": 1, "StartingIdentifier": "deed of trust", "EndingIdentifierMinus1": "promissory note", "DocumentTypeID": "DEED"},
		{"Sequence": "2", "StartingIdentifier": "promissory note", "NoOfPages": 2, "DocumentTypeID": "NOTE"},
		{"Sequence": 3, "StartingIdentifier": "appraisal", "DocumentTypeID": "APPRAISAL"},
	}
}

func TestProcessor_FullPipeline(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	err := h.processor.Process(ctx, queue.Message{ID: "m1", Body: requestBody(t, standardRules())})
	require.NoError(t, err)

	require.Len(t, h.api.xml, 1)
	assert.Contains(t, h.api.xml[0], "<DocumentTypeId>DEED</DocumentTypeId>")
	assert.Contains(t, h.api.xml[0], "<FileNumber>FF-1</FileNumber>")

	out, err := h.output.Receive(ctx, 5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	var classification payload.ClassificationMessage
	require.NoError(t, json.Unmarshal(out[0].Body, &classification))
	rows := classification.SubDocumentDetails.SubDocumentRow
	require.Len(t, rows, 3)
	assert.Equal(t, [2]int{1, 2}, [2]int{rows[0].FromPageNumber, rows[0].ToPageNumber})
	assert.Equal(t, [2]int{3, 4}, [2]int{rows[1].FromPageNumber, rows[1].ToPageNumber})
	assert.Equal(t, 0, rows[2].FromPageNumber)
	assert.Equal(t, "4411", rows[0].UploadDataSheetId)
	assert.Equal(t, "D-7", rows[1].DocReceivedId)
	assert.Equal(t, 5, rows[2].TotalNumberOfpages)

	stamp := "20240102T030405000006"
	for _, name := range []string{
		"4411_" + stamp + "_message.json",
		"4411_" + stamp + "_from_message.pdf",
		"4411_" + stamp + "_page_1.txt",
		"4411_" + stamp + "_page_5.txt",
		"4411_" + stamp + "_subdocuments.xml",
		"4411_" + stamp + "_classification.json",
	} {
		assert.FileExists(t, filepath.Join(h.artifacts, name))
	}

	entry, err := h.ledger.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSucceeded, entry.Status)
	assert.Equal(t, "4411", entry.UploadID)
	assert.Len(t, entry.Rows, 3)

	assert.Contains(t, h.logs.String(), `"operation":"demarcate"`)
}

func TestProcessor_SkipAPI(t *testing.T) {
	h := newHarness(t, true)

	require.NoError(t, h.processor.Process(context.Background(), queue.Message{ID: "m1", Body: requestBody(t, standardRules())}))
	assert.Empty(t, h.api.xml)
	assert.Equal(t, 1, h.output.Len())
}

func TestProcessor_APIFailureIsRetryable(t *testing.T) {
	h := newHarness(t, false)
	h.api.fail = resilience.NewTransientError("document service", errors.New("503"))

	err := h.processor.Process(context.Background(), queue.Message{ID: "m1", Body: requestBody(t, standardRules())})
	require.Error(t, err)
	assert.False(t, resilience.IsPermanent(err))
	assert.Zero(t, h.output.Len(), "nothing is published before the service accepts the rows")

	entry, err := h.ledger.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusFailed, entry.Status)
	assert.Contains(t, entry.Error, "503")
}

func TestProcessor_PermanentFailures(t *testing.T) {
	cases := map[string][]byte{
		"undecodable":    []byte("%%% not a message %%%"),
		"no identifiers": nil,
		"missing file name": func() []byte {
			raw, _ := json.Marshal(map[string]any{"UploadDatasheetid": "1", "FilePath": "/tmp/x.pdf"})
			return raw
		}(),
		"no pdf source": func() []byte {
			raw, _ := json.Marshal(map[string]any{"ClientFileName": "x.pdf"})
			return raw
		}(),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, false)
			if body == nil {
				body = requestBody(t, nil)
			}
			err := h.processor.Process(context.Background(), queue.Message{ID: "m1", Body: body})
			require.Error(t, err)
			assert.True(t, resilience.IsPermanent(err), err.Error())
			assert.Empty(t, h.api.xml)
		})
	}
}

func TestProcessor_NoIdentifiersIsNoRows(t *testing.T) {
	h := newHarness(t, false)
	err := h.processor.Process(context.Background(), queue.Message{ID: "m1", Body: requestBody(t, []map[string]any{})})
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestProcessor_EmptyExtraction(t *testing.T) {
	h := newHarness(t, false)
	h.extractor.pages = nil

	err := h.processor.Process(context.Background(), queue.Message{ID: "m1", Body: requestBody(t, standardRules())})
	assert.ErrorIs(t, err, ErrNoText)
	assert.True(t, resilience.IsPermanent(err))
}

func TestProcessor_SkipsAlreadySucceeded(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	msg := queue.Message{ID: "m1", Body: requestBody(t, standardRules())}

	require.NoError(t, h.processor.Process(ctx, msg))
	require.NoError(t, h.processor.Process(ctx, msg))

	assert.Len(t, h.api.xml, 1)
	assert.Equal(t, 1, h.extractor.calls)
	entry, err := h.ledger.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, entry.Rows, 3)
}

func TestProcessor_SplitPDF(t *testing.T) {
	h := newHarness(t, true)
	h.processor.splitPDF = true

	require.NoError(t, h.processor.Process(context.Background(), queue.Message{ID: "m1", Body: requestBody(t, standardRules())}))

	entries, err := os.ReadDir(filepath.Join(h.artifacts, "split"))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"4411_1_DEED_p1-2.pdf", "4411_2_NOTE_p3-4.pdf"}, names)
}

func TestProcessor_ArtifactsDisabledUsesTempDir(t *testing.T) {
	h := newHarness(t, true)
	h.processor.store = artifacts.NewStore(h.artifacts, false, nil)

	require.NoError(t, h.processor.Process(context.Background(), queue.Message{ID: "m1", Body: requestBody(t, standardRules())}))
	assert.NoDirExists(t, h.artifacts)
}

func TestNewProcessor_RequiresCollaborators(t *testing.T) {
	_, err := NewProcessor(Options{})
	assert.Error(t, err)

	_, err = NewProcessor(Options{Extractor: &fakeExtractor{}, Output: &queue.SpoolQueue{}})
	assert.Error(t, err, "api is required unless skipped")

	_, err = NewProcessor(Options{Extractor: &fakeExtractor{}, Output: &queue.SpoolQueue{}, SkipAPI: true})
	assert.NoError(t, err)
}
