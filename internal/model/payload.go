package model

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const PayloadVersion = 1

var ErrMalformedPayload = errors.New("malformed backup payload")

// Payload is the content of a backup blob.
type Payload struct {
	Version    int              `json:"version"`
	CreatedAt  time.Time        `json:"created_at"`
	CreatedBy  string           `json:"created_by"`
	BackupType BackupType       `json:"backup_type"`
	ModuleName string           `json:"module_name,omitempty"`
	Tables     []string         `json:"tables"`
	Manifest   Manifest         `json:"manifest"`
	Data       map[string][]Row `json:"data"`
}

// NewPayload builds a payload whose Tables and Manifest are derived from data.
// Tables keeps the order of order for every table present in data; tables of data
// missing from order are appended sorted by name.
func NewPayload(meta *Backup, order []string, data map[string][]Row) *Payload {
	tables := make([]string, 0, len(data))
	seen := make(map[string]struct{}, len(data))
	for _, t := range order {
		if _, ok := data[t]; !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tables = append(tables, t)
	}
	var rest []string
	for t := range data {
		if _, ok := seen[t]; !ok {
			rest = append(rest, t)
		}
	}
	sort.Strings(rest)
	tables = append(tables, rest...)

	manifest := make(Manifest, len(data))
	for t, rows := range data {
		manifest[t] = len(rows)
	}

	return &Payload{
		Version:    PayloadVersion,
		CreatedAt:  meta.CreatedAt,
		CreatedBy:  meta.CreatedBy,
		BackupType: meta.BackupType,
		ModuleName: meta.ModuleName.String,
		Tables:     tables,
		Manifest:   manifest,
		Data:       data,
	}
}

// DecodePayload parses a blob into a Payload. Numbers are kept as json.Number so
// that large integer keys survive the round trip.
func DecodePayload(b []byte) (*Payload, error) {
	if !gjson.ValidBytes(b) {
		return nil, errors.Wrap(ErrMalformedPayload, "not valid JSON")
	}
	if data := gjson.GetBytes(b, "data"); !data.IsObject() {
		return nil, errors.Wrap(ErrMalformedPayload, "missing data object")
	}

	var p Payload
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, errors.Wrap(ErrMalformedPayload, err.Error())
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that Tables lists each key of Data exactly once and that the
// Manifest, when present, covers the same keys with matching row counts.
func (p *Payload) Validate() error {
	if p.Data == nil {
		return errors.Wrap(ErrMalformedPayload, "missing data object")
	}
	if len(p.Tables) != len(p.Data) {
		return errors.Wrap(ErrMalformedPayload, fmt.Sprintf("tables lists %d entries but data has %d", len(p.Tables), len(p.Data)))
	}
	seen := make(map[string]struct{}, len(p.Tables))
	for _, t := range p.Tables {
		if _, dup := seen[t]; dup {
			return errors.Wrap(ErrMalformedPayload, fmt.Sprintf("table %q listed twice", t))
		}
		seen[t] = struct{}{}
		if _, ok := p.Data[t]; !ok {
			return errors.Wrap(ErrMalformedPayload, fmt.Sprintf("table %q listed without data", t))
		}
	}
	if p.Manifest == nil {
		return nil
	}
	if len(p.Manifest) != len(p.Data) {
		return errors.Wrap(ErrMalformedPayload, fmt.Sprintf("manifest lists %d tables but data has %d", len(p.Manifest), len(p.Data)))
	}
	for t, rows := range p.Data {
		c, ok := p.Manifest[t]
		if !ok {
			return errors.Wrap(ErrMalformedPayload, fmt.Sprintf("table %q missing from manifest", t))
		}
		if c != len(rows) {
			return errors.Wrap(ErrMalformedPayload, fmt.Sprintf("manifest says %d rows for %q but data has %d", c, t, len(rows)))
		}
	}
	return nil
}

func (p *Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}
