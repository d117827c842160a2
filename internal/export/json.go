// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
)

// JSONExporter writes the whole Document as indented JSON. It ignores
// Options so the file always round-trips.
type JSONExporter struct{}

// NewJSONExporter returns a JSON exporter.
func NewJSONExporter() *JSONExporter { return &JSONExporter{} }

// Export implements Exporter.
func (JSONExporter) Export(doc Document) ([]byte, error) {
	if err := doc.validate(); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode conversation: %w", err)
	}
	return append(data, '\n'), nil
}

func (JSONExporter) FileExtension() string { return ".json" }

func (JSONExporter) MimeType() string { return "application/json" }
