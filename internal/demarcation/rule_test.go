// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package demarcation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRule_UnmarshalJSONDefaults(t *testing.T) {
	var rule Rule
	require.NoError(t, json.Unmarshal([]byte(`{"StartingIdentifier":"Invoice"}`), &rule))

	assert.Equal(t, Unsequenced, rule.Sequence)
	assert.Equal(t, 1, rule.Occurence)
	assert.Equal(t, 0, rule.NoOfPages)
	assert.Equal(t, "Invoice", rule.StartingIdentifier)
	assert.True(t, rule.HasStart())
}

func TestRule_UnmarshalJSONLenientNumbers(t *testing.T) {
	cases := []struct {
		name     string
		payload  string
		sequence int
		occ      int
		pages    int
	}{
		{"numbers", `{"Sequence":2,"Occurence":3,"NoOfPages":4}`, 2, 3, 4},
		{"numeric strings", `{"Sequence":"2","Occurence":" 3 ","NoOfPages":"4"}`, 2, 3, 4},
		{"float values truncate", `{"Sequence":2.0,"Occurence":"3.7","NoOfPages":1.9}`, 2, 3, 1},
		{"nulls use defaults", `{"Sequence":null,"Occurence":null,"NoOfPages":null}`, Unsequenced, 1, 0},
		{"blanks use defaults", `{"Sequence":"","Occurence":"","NoOfPages":""}`, Unsequenced, 1, 0},
		{"garbage uses defaults", `{"Sequence":"first","Occurence":true,"NoOfPages":[1]}`, Unsequenced, 1, 0},
		{"zero occurrence clamped", `{"Occurence":0}`, Unsequenced, 1, 0},
		{"negative page count clamped", `{"NoOfPages":-3}`, Unsequenced, 1, 0},
		{"huge sequence clamped", `{"Sequence":99999999999}`, Unsequenced, 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var rule Rule
			require.NoError(t, json.Unmarshal([]byte(tc.payload), &rule))
			assert.Equal(t, tc.sequence, rule.Sequence)
			assert.Equal(t, tc.occ, rule.Occurence)
			assert.Equal(t, tc.pages, rule.NoOfPages)
		})
	}
}

func TestRule_UnmarshalJSONAliasesAndCase(t *testing.T) {
	payload := `{
		"sequence": 1,
		"Occurrence": 2,
		"DocumentTypeId": "DEED",
		"UploadDataSheetId": "U-1",
		"docreceivedid": 77,
		"FirmFile": "F-9",
		"SessionId": "S",
		"endingidentifierminus1": "Note"
	}`

	var rule Rule
	require.NoError(t, json.Unmarshal([]byte(payload), &rule))

	assert.Equal(t, 1, rule.Sequence)
	assert.Equal(t, 2, rule.Occurence)
	assert.Equal(t, "DEED", rule.DocumentTypeID)
	assert.Equal(t, "U-1", rule.UploadDatasheetid)
	assert.Equal(t, "77", rule.DocReceivedId)
	assert.Equal(t, "F-9", rule.FirmFile)
	assert.Equal(t, "S", rule.SessionId)
	assert.Equal(t, "Note", rule.EndingIdentifierMinus1)
	assert.False(t, rule.HasStart())
}

func TestRule_UnmarshalJSONList(t *testing.T) {
	var rules []Rule
	err := json.Unmarshal([]byte(`[{"Sequence":"2"},{"Sequence":1,"NoOfPages":"x"}]`), &rules)

	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, 2, rules[0].Sequence)
	assert.Equal(t, 1, rules[1].Sequence)
	assert.Equal(t, 0, rules[1].NoOfPages)
}

func TestRule_UnmarshalJSONRejectsNonObject(t *testing.T) {
	var rule Rule
	assert.Error(t, json.Unmarshal([]byte(`"not a rule"`), &rule))
}

func TestRule_UnmarshalYAML(t *testing.T) {
	doc := `
- Sequence: 1
  StartingIdentifier: "ExactMatch:Cover Page"
  NoOfPages: "2"
  DocumentTypeID: COVER
- StartingIdentifierPlus1: Index
  Occurence: ""
  StartingMinusN: 2
`
	var rules []Rule
	require.NoError(t, yaml.Unmarshal([]byte(doc), &rules))
	require.Len(t, rules, 2)

	assert.Equal(t, 1, rules[0].Sequence)
	assert.Equal(t, 2, rules[0].NoOfPages)
	assert.Equal(t, "COVER", rules[0].DocumentTypeID)
	assert.Equal(t, "ExactMatch:Cover Page", rules[0].StartingIdentifier)

	assert.Equal(t, Unsequenced, rules[1].Sequence)
	assert.Equal(t, 1, rules[1].Occurence)
	assert.Equal(t, 2, rules[1].StartingMinusN)
	assert.True(t, rules[1].HasStart())
}
