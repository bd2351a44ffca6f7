package handlers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/pathprogress/internal/domain/curriculum"
)

func decodeCreatePath(contentType string, raw []byte) (string, *curriculum.Document, error) {
	if strings.Contains(contentType, "yaml") {
		doc, err := curriculum.ParseDocument(raw)
		if err != nil {
			return "", nil, err
		}
		return doc.Title, doc, nil
	}

	var req createPathRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return "", nil, fmt.Errorf("decode request: %w", err)
	}
	var docRaw []byte
	switch v := req.Curriculum.(type) {
	case nil:
		return req.Title, nil, nil
	case string:
		docRaw = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", nil, err
		}
		docRaw = b
	}
	doc, err := curriculum.ParseDocument(docRaw)
	if err != nil {
		return "", nil, err
	}
	return req.Title, doc, nil
}
