package savedoc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrEmptyDocument = errors.New("savedoc: empty document")

// Decoder turns raw save bytes into a Document.
type Decoder interface {
	Decode(data []byte) (Document, error)
}

// TextDecoder decodes the melted textual save format. JSON input is accepted
// as well since it is a subset of YAML.
type TextDecoder struct {
	// Strict rejects unknown top-level fields.
	Strict bool
}

func (td TextDecoder) Decode(data []byte) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(td.Strict)

	var doc StaticDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("savedoc: decode: %w", err)
	}
	if doc.SaveDate.IsZero() {
		return nil, errors.New("savedoc: document has no date")
	}
	for i := range doc.Records {
		tag := normalizeTag(doc.Records[i].Tag)
		if tag == "" {
			return nil, fmt.Errorf("savedoc: country #%d has no tag", i)
		}
		doc.Records[i].Tag = tag
	}
	for i := range doc.PlayerSet {
		doc.PlayerSet[i].Tag = normalizeTag(doc.PlayerSet[i].Tag)
	}
	for i := range doc.Nations {
		doc.Nations[i].From = normalizeTag(doc.Nations[i].From)
		doc.Nations[i].To = normalizeTag(doc.Nations[i].To)
		if doc.Nations[i].Kind == "" {
			doc.Nations[i].Kind = NationEventTagSwitch
		}
		doc.Nations[i].Kind = NationEventKind(strings.ToLower(string(doc.Nations[i].Kind)))
	}
	for i := range doc.Ledger {
		doc.Ledger[i].Tag = normalizeTag(doc.Ledger[i].Tag)
	}
	doc.indexOnce.Do(doc.index)
	return &doc, nil
}
