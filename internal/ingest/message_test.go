// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"encoding/base64"
	"testing"

	"ocr-demarcator/internal/demarcation"
	"ocr-demarcator/internal/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMessage = `{
	"ClientFileName": "closing-package.pdf",
	"UploadDatasheetid": 4411,
	"DocReceivedId": "DR-9",
	"BatchId": null,
	"FirmFile": "FF-1",
	"SessionId": "S-7",
	"FilePath": "https://files.example.test/closing-package.pdf",
	"Identifiers": [
		{"Sequence": "2", "StartingIdentifier": "Promissory Note", "DocumentTypeID": "NOTE"},
		{"Sequence": 1, "StartingIdentifier": "Deed of Trust", "DocReceivedId": "ignored", "DocumentTypeID": "DEED"}
	]
}`

func TestDecodeMessage(t *testing.T) {
	cases := map[string][]byte{
		"raw json":    []byte(sampleMessage),
		"base64 json": []byte(base64.StdEncoding.EncodeToString([]byte(sampleMessage))),
		"padded":      []byte("\n  " + sampleMessage + "\n"),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			msg, err := DecodeMessage(payload)
			require.NoError(t, err)

			assert.Equal(t, "closing-package.pdf", msg.ClientFileName)
			assert.Equal(t, "4411", msg.UploadDatasheetid)
			assert.Equal(t, "", msg.BatchId)
			require.Len(t, msg.Identifiers, 2)
			assert.Equal(t, 2, msg.Identifiers[0].Sequence)
			assert.Equal(t, "DEED", msg.Identifiers[1].DocumentTypeID)
		})
	}
}

func TestDecodeMessage_Undecodable(t *testing.T) {
	for _, payload := range []string{"", "not json", base64.StdEncoding.EncodeToString([]byte("still not json")), `{"Identifiers": 7}`} {
		_, err := DecodeMessage([]byte(payload))
		require.Error(t, err, payload)
		assert.True(t, resilience.IsPermanent(err), payload)
	}
}

func TestMessage_Validate(t *testing.T) {
	msg, err := DecodeMessage([]byte(sampleMessage))
	require.NoError(t, err)

	warnings, err := msg.Validate()
	require.NoError(t, err)
	assert.Equal(t, []string{"BatchId"}, warnings)

	_, err = (&Message{UploadDatasheetid: "1"}).Validate()
	assert.ErrorIs(t, err, ErrMissingClientFileName)
	assert.True(t, resilience.IsPermanent(err))
}

func TestMessage_EnrichRules(t *testing.T) {
	msg, err := DecodeMessage([]byte(sampleMessage))
	require.NoError(t, err)

	rules := msg.EnrichRules()

	require.Len(t, rules, 2)
	for _, r := range rules {
		assert.Equal(t, "DR-9", r.DocReceivedId)
		assert.Equal(t, "FF-1", r.FirmFile)
		assert.Equal(t, "4411", r.UploadDatasheetid)
		assert.Equal(t, "S-7", r.SessionId)
	}
	assert.Equal(t, "ignored", msg.Identifiers[1].DocReceivedId, "input rules must not be mutated")

	rows := demarcation.Demarcate([]string{"Deed of Trust", "Promissory Note"}, rules)
	assert.Equal(t, "DEED", rows[0].DocumentTypeId)
	assert.Equal(t, "DR-9", rows[0].DocReceivedId)
	assert.Equal(t, "FF-1", rows[1].FileNumber)
}

func TestMessage_UploadIDAndSummary(t *testing.T) {
	assert.Equal(t, "UNKNOWN", (&Message{}).UploadID())

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	summary := (&Message{FilePath: string(long), PdfContent: "abcd"}).Summary()
	assert.Len(t, summary["file_path"], 203)
	assert.Equal(t, 4, summary["pdf_content_bytes"])
}
