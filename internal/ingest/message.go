// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ingest decodes demarcation requests taken off the input queue and
// acquires the PDF they refer to.
package ingest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ocr-demarcator/internal/demarcation"
	"ocr-demarcator/internal/resilience"
)

var (
	// ErrUndecodable means the queue payload is neither JSON nor base64 JSON.
	ErrUndecodable = errors.New("message is not JSON or base64-encoded JSON")
	// ErrMissingClientFileName means the request does not name its file.
	ErrMissingClientFileName = errors.New("message is missing ClientFileName")
	// ErrNoPDFSource means the request carries neither PdfContent nor FilePath.
	ErrNoPDFSource = errors.New("message has no PdfContent or FilePath")
)

// Message is one demarcation request.
type Message struct {
	ClientFileName    string             `json:"ClientFileName"`
	UploadDatasheetid string             `json:"UploadDatasheetid"`
	DocReceivedId     string             `json:"DocReceivedId"`
	BatchId           string             `json:"BatchId"`
	FirmFile          string             `json:"FirmFile"`
	SessionId         string             `json:"SessionId"`
	PdfContent        string             `json:"PdfContent,omitempty"`
	FilePath          string             `json:"FilePath,omitempty"`
	Identifiers       []demarcation.Rule `json:"Identifiers"`
}

// UnmarshalJSON accepts numbers and nulls for the string metadata fields;
// upstream systems send ids either way.
func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	str := func(name string) string {
		raw, ok := fields[name]
		if !ok {
			for k, v := range fields {
				if strings.EqualFold(k, name) {
					raw, ok = v, true
					break
				}
			}
		}
		if !ok {
			return ""
		}
		return rawString(raw)
	}

	*m = Message{
		ClientFileName:    str("ClientFileName"),
		UploadDatasheetid: str("UploadDatasheetid"),
		DocReceivedId:     str("DocReceivedId"),
		BatchId:           str("BatchId"),
		FirmFile:          str("FirmFile"),
		SessionId:         str("SessionId"),
		PdfContent:        str("PdfContent"),
		FilePath:          str("FilePath"),
	}

	if raw, ok := fields["Identifiers"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &m.Identifiers); err != nil {
			return fmt.Errorf("Identifiers: %w", err)
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

func rawString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

// DecodeMessage parses a queue payload. Queue producers base64-encode the
// JSON body, but plain JSON is accepted too. Failures are permanent: the
// payload will never decode on redelivery.
func DecodeMessage(raw []byte) (*Message, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, resilience.NewPermanentError("decode message", ErrUndecodable)
	}

	if decoded, err := base64.StdEncoding.DecodeString(string(trimmed)); err == nil {
		var msg Message
		if err := json.Unmarshal(decoded, &msg); err == nil {
			return &msg, nil
		}
	}

	var msg Message
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return nil, resilience.NewPermanentError("decode message", fmt.Errorf("%w: %v", ErrUndecodable, err))
	}
	return &msg, nil
}

// Validate checks the fields processing cannot do without. The returned
// warnings name optional fields that are missing.
func (m *Message) Validate() (warnings []string, err error) {
	if strings.TrimSpace(m.ClientFileName) == "" {
		return nil, resilience.NewPermanentError("validate message", ErrMissingClientFileName)
	}
	for name, v := range map[string]string{
		"UploadDatasheetid": m.UploadDatasheetid,
		"DocReceivedId":     m.DocReceivedId,
		"BatchId":           m.BatchId,
	} {
		if strings.TrimSpace(v) == "" {
			warnings = append(warnings, name)
		}
	}
	sort.Strings(warnings)
	return warnings, nil
}

// EnrichRules stamps the message metadata onto every rule, overwriting
// whatever the rule carried.
func (m *Message) EnrichRules() []demarcation.Rule {
	rules := make([]demarcation.Rule, len(m.Identifiers))
	for i, r := range m.Identifiers {
		r.DocReceivedId = m.DocReceivedId
		r.FirmFile = m.FirmFile
		r.UploadDatasheetid = m.UploadDatasheetid
		r.SessionId = m.SessionId
		rules[i] = r
	}
	return rules
}

// UploadID returns the upload id used to name artifacts.
func (m *Message) UploadID() string {
	if m.UploadDatasheetid == "" {
		return "UNKNOWN"
	}
	return m.UploadDatasheetid
}

// Summary returns the message fields for logging with the bulky payloads
// truncated.
func (m *Message) Summary() map[string]interface{} {
	return map[string]interface{}{
		"client_file_name":  m.ClientFileName,
		"upload_datasheet":  m.UploadDatasheetid,
		"doc_received_id":   m.DocReceivedId,
		"batch_id":          m.BatchId,
		"session_id":        m.SessionId,
		"file_path":         truncate(m.FilePath, 200),
		"pdf_content_bytes": len(m.PdfContent),
		"identifiers":       len(m.Identifiers),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
