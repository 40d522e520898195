// Package input loads upsert payloads from JSON, YAML, CSV and TSV files.
package input

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/andresharpe/cute-sub002/internal/models"
)

// Format is a payload file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
)

// Reserved record keys. Every other key is an entry field.
const (
	keyID          = "id"
	keyVersion     = "version"
	keyContentType = "contenttype"
	keyFields      = "fields"
	keySys         = "sys"
)

// DetectFormat returns the format implied by path's extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	default:
		return "", fmt.Errorf("unsupported payload file type %q (use .json, .yaml, .yml, .csv or .tsv)", filepath.Ext(path))
	}
}

// LoadPayloads reads every record of path as an upsert payload.
// Records without a content type inherit defaultContentType.
func LoadPayloads(path, defaultContentType string) ([]models.Payload, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open payload file: %w", err)
	}
	defer file.Close()

	payloads, err := Decode(file, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	for i := range payloads {
		if payloads[i].ContentType == "" {
			payloads[i].ContentType = defaultContentType
		}
	}
	return payloads, nil
}

// Decode parses payload records from r.
func Decode(r io.Reader, format Format) ([]models.Payload, error) {
	var records []map[string]any
	var err error
	switch format {
	case FormatJSON:
		records, err = decodeDocument(r, json.Unmarshal)
	case FormatYAML:
		records, err = decodeDocument(r, yaml.Unmarshal)
	case FormatCSV:
		records, err = decodeDelimited(r, ',')
	case FormatTSV:
		records, err = decodeDelimited(r, '\t')
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no records found")
	}

	payloads := make([]models.Payload, 0, len(records))
	for i, rec := range records {
		p, err := toPayload(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

// decodeDocument accepts either a list of records or a single record.
func decodeDocument(r io.Reader, unmarshal func([]byte, any) error) ([]map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read payloads: %w", err)
	}

	var list []map[string]any
	if err := unmarshal(data, &list); err == nil {
		return list, nil
	}

	var single map[string]any
	if err := unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("failed to parse payloads (expected a list or a single record): %w", err)
	}
	if len(single) == 0 {
		return nil, nil
	}
	return []map[string]any{single}, nil
}

// decodeDelimited maps each data row onto the header row. Empty cells are omitted.
func decodeDelimited(r io.Reader, sep rune) ([]map[string]any, error) {
	reader := csv.NewReader(r)
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	if sep == '\t' {
		reader.LazyQuotes = true
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read payload rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("payload file must have a header row and at least one data row")
	}

	header := make([]string, len(rows[0]))
	for i, col := range rows[0] {
		header[i] = sanitizeName(col)
	}

	var records []map[string]any
	for _, row := range rows[1:] {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		rec := make(map[string]any, len(header))
		for i, col := range header {
			if col == "" || i >= len(row) {
				continue
			}
			if v := strings.TrimSpace(row[i]); v != "" {
				rec[col] = v
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func toPayload(rec map[string]any) (models.Payload, error) {
	var p models.Payload
	fields := models.Fields{}

	for key, v := range rec {
		switch normalizeKey(key) {
		case keyID:
			p.ID = sanitizeName(fmt.Sprint(v))
		case keyVersion:
			n, err := toInt(v)
			if err != nil {
				return p, fmt.Errorf("invalid version: %w", err)
			}
			p.Version = &n
		case keyContentType:
			p.ContentType = fmt.Sprint(v)
		case keySys:
			sys, ok := v.(map[string]any)
			if !ok {
				return p, fmt.Errorf("sys must be a mapping")
			}
			if id, ok := sys["id"]; ok {
				p.ID = sanitizeName(fmt.Sprint(id))
			}
			if ver, ok := sys["version"]; ok {
				n, err := toInt(ver)
				if err != nil {
					return p, fmt.Errorf("invalid sys.version: %w", err)
				}
				p.Version = &n
			}
		case keyFields:
			m, ok := v.(map[string]any)
			if !ok {
				return p, fmt.Errorf("fields must be a mapping")
			}
			for name, fv := range m {
				fields[name] = fv
			}
		default:
			fields[key] = v
		}
	}

	if len(fields) == 0 {
		return p, fmt.Errorf("no fields")
	}
	p.Fields = fields
	return p, nil
}

// normalizeKey folds case and drops separators so content_type, contentType
// and Content-Type all match.
func normalizeKey(k string) string {
	k = strings.ToLower(k)
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not a whole number", n)
		}
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
