// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package worker drives demarcation requests from the input queue through
// extraction, demarcation and delivery.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ocr-demarcator/internal/artifacts"
	"ocr-demarcator/internal/demarcation"
	"ocr-demarcator/internal/ingest"
	"ocr-demarcator/internal/ledger"
	"ocr-demarcator/internal/observability"
	"ocr-demarcator/internal/ocr"
	"ocr-demarcator/internal/payload"
	"ocr-demarcator/internal/queue"
	"ocr-demarcator/internal/resilience"
)

var (
	// ErrNoRows means the request carried no identifiers, so there is
	// nothing to deliver.
	ErrNoRows = errors.New("demarcation produced no rows")
	// ErrNoText means extraction returned no pages.
	ErrNoText = errors.New("text extraction returned no pages")
)

// DocumentService accepts sub-document XML.
type DocumentService interface {
	InsertOCRDocument(ctx context.Context, xml string) error
}

// Publisher delivers classification messages.
type Publisher interface {
	Send(ctx context.Context, body []byte) error
}

// Options are the Processor collaborators. Store, Ledger and Observer may be
// nil.
type Options struct {
	Fetcher   *ingest.Fetcher
	Extractor ocr.Extractor
	API       DocumentService
	Output    Publisher
	Store     *artifacts.Store
	Ledger    *ledger.Ledger
	SkipAPI   bool
	SplitPDF  bool
	Observer  *observability.StandardObserver
}

// Processor handles one queue message end to end.
type Processor struct {
	fetcher   *ingest.Fetcher
	extractor ocr.Extractor
	api       DocumentService
	output    Publisher
	store     *artifacts.Store
	ledger    *ledger.Ledger
	skipAPI   bool
	splitPDF  bool
	now       func() time.Time
	observer  *observability.StandardObserver
}

// NewProcessor validates opts and builds a Processor.
func NewProcessor(opts Options) (*Processor, error) {
	if opts.Extractor == nil {
		return nil, fmt.Errorf("processor needs an extractor")
	}
	if opts.Output == nil {
		return nil, fmt.Errorf("processor needs an output queue")
	}
	if opts.API == nil && !opts.SkipAPI {
		return nil, fmt.Errorf("processor needs an api client unless the api call is skipped")
	}
	if opts.Fetcher == nil {
		opts.Fetcher = ingest.NewFetcher(60*time.Second, opts.Observer)
	}
	if opts.Store == nil {
		opts.Store = artifacts.NewStore("", false, opts.Observer)
	}
	return &Processor{
		fetcher:   opts.Fetcher,
		extractor: opts.Extractor,
		api:       opts.API,
		output:    opts.Output,
		store:     opts.Store,
		ledger:    opts.Ledger,
		skipAPI:   opts.SkipAPI,
		splitPDF:  opts.SplitPDF,
		now:       time.Now,
		observer:  opts.Observer,
	}, nil
}

// GetComponentName returns the component identifier
func (p *Processor) GetComponentName() string {
	return "worker"
}

// Process runs the full pipeline for msg. A nil error means the message is
// done and can be deleted; see resilience.IsPermanent for failures.
func (p *Processor) Process(ctx context.Context, msg queue.Message) (err error) {
	var finishTiming func(bool, map[string]interface{})
	if p.observer != nil {
		finishTiming = p.observer.StartTiming(p.GetComponentName(), "process_message", msg.ID)
	}
	meta := map[string]interface{}{"message_id": msg.ID}
	var upload string
	var rows []demarcation.Row
	duplicate := false
	defer func() {
		if finishTiming != nil {
			if err != nil {
				meta["error"] = err.Error()
				meta["permanent"] = resilience.IsPermanent(err)
			}
			finishTiming(err == nil, meta)
		}
		if !duplicate {
			p.record(ctx, msg.ID, upload, rows, err)
		}
	}()

	if done, lerr := p.ledger.Succeeded(ctx, msg.ID); lerr != nil {
		p.observer.LogEvent(p.GetComponentName(), "ledger_lookup", lerr, meta)
	} else if done {
		duplicate = true
		meta["duplicate"] = true
		return nil
	}

	stamp := artifacts.Stamp(p.now())
	dbg := observability.Debug(p.observer)

	m, err := ingest.DecodeMessage(msg.Body)
	if err != nil {
		p.saveArtifact(func() (string, error) { return p.store.SaveMessage("undecodable", stamp, msg.Body) })
		return err
	}
	upload = m.UploadID()
	meta["upload_id"] = upload
	p.saveArtifact(func() (string, error) { return p.store.SaveMessage(upload, stamp, msg.Body) })

	warnings, err := m.Validate()
	if err != nil {
		return err
	}
	if len(warnings) > 0 {
		p.observer.LogEvent(p.GetComponentName(), "validate_message", nil, map[string]interface{}{
			"message_id": msg.ID, "missing_fields": warnings,
		})
	}
	if dbg != nil {
		dbg.LogDetail(p.GetComponentName(), fmt.Sprintf("message %s: %v", msg.ID, m.Summary()))
	}

	pdfDir := p.store.Dir()
	if !p.store.Enabled() || pdfDir == "" {
		tmp, terr := os.MkdirTemp("", "demarcator-")
		if terr != nil {
			return fmt.Errorf("create work directory: %w", terr)
		}
		defer os.RemoveAll(tmp)
		pdfDir = tmp
	}

	pdfPath, err := p.fetcher.Fetch(ctx, m, pdfDir, stamp)
	if err != nil {
		return err
	}

	pages, err := p.extractor.ExtractPages(ctx, pdfPath)
	if err != nil {
		if errors.Is(err, ocr.ErrNoPages) {
			return resilience.NewPermanentError("extract pages", err)
		}
		return fmt.Errorf("extract pages: %w", err)
	}
	if len(pages) == 0 {
		return resilience.NewPermanentError("extract pages", ErrNoText)
	}
	meta["pages"] = len(pages)

	if _, serr := p.store.SavePages(upload, stamp, pages); serr != nil {
		p.observer.LogEvent(p.GetComponentName(), "save_pages", serr, meta)
	}

	report := demarcation.DemarcateReport(pages, m.EnrichRules())
	p.logReport(msg.ID, report)
	if len(report.Rows) == 0 {
		return resilience.NewPermanentError("demarcate", ErrNoRows)
	}
	rows = report.Rows
	meta["rows"] = len(rows)
	meta["unmatched"] = len(report.Unmatched())

	xmlPayload, err := payload.SubDocumentXML(rows)
	if err != nil {
		return fmt.Errorf("build sub-document xml: %w", err)
	}
	p.saveArtifact(func() (string, error) {
		return p.store.SavePayload(upload, stamp, "subdocuments.xml", []byte(xmlPayload))
	})

	if p.skipAPI {
		meta["api_skipped"] = true
	} else if err := p.api.InsertOCRDocument(ctx, xmlPayload); err != nil {
		return err
	}

	classification, err := payload.Classification(rows)
	if err != nil {
		return fmt.Errorf("build classification message: %w", err)
	}
	p.saveArtifact(func() (string, error) {
		return p.store.SavePayload(upload, stamp, "classification.json", classification)
	})
	if err := p.output.Send(ctx, classification); err != nil {
		return resilience.NewTransientError("send classification message", err)
	}

	if p.splitPDF && p.store.Enabled() {
		splitDir := filepath.Join(p.store.Dir(), "split")
		if _, serr := p.store.SplitPDF(pdfPath, splitDir, rows); serr != nil {
			p.observer.LogEvent(p.GetComponentName(), "split_pdf", serr, meta)
		}
	}

	return nil
}

// logReport writes one event summarizing the demarcation and, at debug
// level, one line per rule.
func (p *Processor) logReport(messageID string, report *demarcation.Report) {
	if p.observer == nil {
		return
	}
	unmatched := report.Unmatched()
	p.observer.LogEvent(p.GetComponentName(), "demarcate", nil, map[string]interface{}{
		"message_id":      messageID,
		"total_pages":     report.TotalPages,
		"rules":           len(report.Rows),
		"unmatched":       len(unmatched),
		"unclaimed_pages": report.UnclaimedPages(),
	})

	if dbg := observability.Debug(p.observer); dbg != nil {
		for _, o := range report.Outcomes {
			if o.Err != nil {
				dbg.LogDetail(p.GetComponentName(), fmt.Sprintf("rule %s (%s): %v", o.Row.Sequence, o.Row.DocumentTypeId, o.Err))
				continue
			}
			dbg.LogDetail(p.GetComponentName(), fmt.Sprintf("rule %s (%s): pages %s", o.Row.Sequence, o.Row.DocumentTypeId, o.Row.Span()))
		}
	}
}

// saveArtifact runs an artifact write and logs its failure.
func (p *Processor) saveArtifact(write func() (string, error)) {
	if _, err := write(); err != nil {
		p.observer.LogEvent(p.GetComponentName(), "save_artifact", err, nil)
	}
}

func (p *Processor) record(ctx context.Context, messageID, upload string, rows []demarcation.Row, procErr error) {
	entry := ledger.Entry{
		MessageID: messageID,
		UploadID:  upload,
		Status:    ledger.StatusSucceeded,
		Rows:      rows,
	}
	if procErr != nil {
		entry.Status = ledger.StatusFailed
		entry.Error = procErr.Error()
	}
	// A canceled ctx must not lose the outcome.
	if err := p.ledger.Record(context.WithoutCancel(ctx), entry); err != nil {
		p.observer.LogEvent(p.GetComponentName(), "ledger_record", err, map[string]interface{}{"message_id": messageID})
	}
}
