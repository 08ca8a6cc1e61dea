// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package payload builds the documents sent downstream for a demarcated
// upload: the sub-document XML, the classification queue message and the
// document service request that wraps the XML.
package payload

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"

	"ocr-demarcator/internal/demarcation"
)

// ErrNoRows is returned when there is nothing to describe.
var ErrNoRows = errors.New("no sub-document rows")

// SubDocumentDetails is the XML root element.
type SubDocumentDetails struct {
	XMLName xml.Name          `xml:"SubDocumentDetails"`
	Rows    []demarcation.Row `xml:"SubDocumentRow"`
}

// SubDocumentXML renders rows as an indented SubDocumentDetails document.
// Child elements follow the Row field order.
func SubDocumentXML(rows []demarcation.Row) (string, error) {
	if len(rows) == 0 {
		return "", ErrNoRows
	}
	out, err := xml.MarshalIndent(SubDocumentDetails{Rows: rows}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal sub-document xml: %w", err)
	}
	return string(out) + "\n", nil
}

// ClassificationMessage is the body queued for the classification stage.
type ClassificationMessage struct {
	SubDocumentDetails struct {
		SubDocumentRow []demarcation.Row `json:"SubDocumentRow"`
	} `json:"SubDocumentDetails"`
}

// Classification returns the JSON classification message for rows.
func Classification(rows []demarcation.Row) ([]byte, error) {
	var msg ClassificationMessage
	msg.SubDocumentDetails.SubDocumentRow = rows
	if msg.SubDocumentDetails.SubDocumentRow == nil {
		msg.SubDocumentDetails.SubDocumentRow = []demarcation.Row{}
	}
	out, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal classification message: %w", err)
	}
	return out, nil
}

// Parameter is one stored procedure argument in a service request.
type Parameter struct {
	ParamName      string `json:"ParamName"`
	ParamVal       string `json:"ParamVal"`
	ParamDirection string `json:"ParamDirection"`
}

// ServiceRequest is the envelope the document service expects.
type ServiceRequest struct {
	OperationName *string     `json:"OperationName"`
	OperationType *string     `json:"OperationType"`
	ParameterList []Parameter `json:"ParameterList"`
}

// NewServiceRequest wraps the sub-document XML as the @SubDocXML input.
func NewServiceRequest(subDocXML string) ServiceRequest {
	return ServiceRequest{
		ParameterList: []Parameter{{
			ParamName:      "@SubDocXML",
			ParamVal:       subDocXML,
			ParamDirection: "input",
		}},
	}
}
