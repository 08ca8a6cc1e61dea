// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package demarcation

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Unsequenced is the Sequence given to rules that carry no usable Sequence, so
// they are processed after every sequenced rule.
const Unsequenced = math.MaxInt32

// Rule describes where one sub-document starts and ends in the page sequence.
type Rule struct {
	Sequence int `json:"Sequence" yaml:"Sequence"`

	StartingIdentifier      string `json:"StartingIdentifier" yaml:"StartingIdentifier"`
	StartingIdentifierPlus1 string `json:"StartingIdentifierPlus1" yaml:"StartingIdentifierPlus1"`
	EndingIdentifier        string `json:"EndingIdentifier" yaml:"EndingIdentifier"`
	EndingIdentifierMinus1  string `json:"EndingIdentifierMinus1" yaml:"EndingIdentifierMinus1"`

	Occurence      int `json:"Occurence" yaml:"Occurence"`
	NoOfPages      int `json:"NoOfPages" yaml:"NoOfPages"`
	StartingMinusN int `json:"StartingMinusN" yaml:"StartingMinusN"`
	EndingMinusN   int `json:"EndingMinusN" yaml:"EndingMinusN"`

	// Passthrough metadata, copied into the output row untouched.
	DocReceivedId     string `json:"DocReceivedId" yaml:"DocReceivedId"`
	FirmFile          string `json:"FirmFile" yaml:"FirmFile"`
	DocumentTypeID    string `json:"DocumentTypeID" yaml:"DocumentTypeID"`
	UploadDatasheetid string `json:"UploadDatasheetid" yaml:"UploadDatasheetid"`
	SessionId         string `json:"SessionId" yaml:"SessionId"`
}

// HasStart reports whether either starting identifier is present.
func (r Rule) HasStart() bool {
	return strings.TrimSpace(r.StartingIdentifier) != "" || strings.TrimSpace(r.StartingIdentifierPlus1) != ""
}

// UnmarshalJSON decodes a rule leniently: numeric fields accept numbers,
// numeric strings, blanks and nulls, and anything unusable falls back to the
// field default instead of failing the whole batch.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return err
	}
	*r = RuleFromMap(fields)
	return nil
}

// UnmarshalYAML applies the same lenient decoding to YAML rule files.
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	var fields map[string]any
	if err := node.Decode(&fields); err != nil {
		return err
	}
	*r = RuleFromMap(fields)
	return nil
}

// RuleFromMap builds a Rule from loosely typed fields, applying the documented
// defaults: Sequence -> Unsequenced, Occurence -> 1, everything else -> 0.
func RuleFromMap(fields map[string]any) Rule {
	get := func(names ...string) (any, bool) {
		for _, name := range names {
			if v, ok := fields[name]; ok {
				return v, true
			}
		}
		for _, name := range names {
			for k, v := range fields {
				if strings.EqualFold(k, name) {
					return v, true
				}
			}
		}
		return nil, false
	}
	intField := func(def int, names ...string) int {
		v, ok := get(names...)
		if !ok {
			return def
		}
		n, ok := coerceInt(v)
		if !ok {
			return def
		}
		return n
	}
	strField := func(names ...string) string {
		v, _ := get(names...)
		return coerceString(v)
	}

	rule := Rule{
		Sequence:                intField(Unsequenced, "Sequence"),
		StartingIdentifier:      strField("StartingIdentifier"),
		StartingIdentifierPlus1: strField("StartingIdentifierPlus1"),
		EndingIdentifier:        strField("EndingIdentifier"),
		EndingIdentifierMinus1:  strField("EndingIdentifierMinus1"),
		Occurence:               intField(1, "Occurence", "Occurrence"),
		NoOfPages:               intField(0, "NoOfPages"),
		StartingMinusN:          intField(0, "StartingMinusN"),
		EndingMinusN:            intField(0, "EndingMinusN"),
		DocReceivedId:           strField("DocReceivedId"),
		FirmFile:                strField("FirmFile"),
		DocumentTypeID:          strField("DocumentTypeID", "DocumentTypeId"),
		UploadDatasheetid:       strField("UploadDatasheetid", "UploadDataSheetId"),
		SessionId:               strField("SessionId"),
	}
	return rule.withDefaults()
}

// withDefaults clamps values the engine cannot use.
func (r Rule) withDefaults() Rule {
	if r.Occurence < 1 {
		r.Occurence = 1
	}
	if r.NoOfPages < 0 {
		r.NoOfPages = 0
	}
	return r
}

func coerceInt(v any) (int, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case int:
		return n, true
	case int64:
		return clampInt(float64(n)), true
	case uint64:
		return clampInt(float64(n)), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return clampInt(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return clampInt(float64(i)), true
		}
		if f, err := n.Float64(); err == nil {
			return coerceInt(f)
		}
		return 0, false
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return coerceInt(f)
		}
		return 0, false
	default:
		return 0, false
	}
}

func clampInt(f float64) int {
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	default:
		return int(f)
	}
}

func coerceString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case uint64:
		return strconv.FormatUint(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}
