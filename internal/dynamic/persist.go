/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dynamic

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/friendsincode/dynbias/internal/meta"
	"github.com/friendsincode/dynbias/internal/trackset"
)

const (
	elemBias   = "bias"
	elemBiases = "biases"
	attrType   = "type"
)

// ReadBias decodes a single <bias> element from r.
func ReadBias(r io.Reader, factories *Factories, env Env) (Bias, error) {
	dec := xml.NewDecoder(r)
	start, err := nextStart(dec)
	if err != nil {
		return nil, err
	}
	if start.Name.Local != elemBias {
		return nil, fmt.Errorf("expected <%s>, got <%s>", elemBias, start.Name.Local)
	}
	return DecodeBias(dec, start, factories, env)
}

// ReadBiases decodes a <biases> document. Child elements other than <bias>
// are skipped.
func ReadBiases(r io.Reader, factories *Factories, env Env) ([]Bias, error) {
	dec := xml.NewDecoder(r)
	start, err := nextStart(dec)
	if err != nil {
		return nil, err
	}
	if start.Name.Local != elemBiases {
		return nil, fmt.Errorf("expected <%s>, got <%s>", elemBiases, start.Name.Local)
	}
	return decodeChildren(dec, factories, env)
}

// ReadDocument decodes either a single <bias> or a <biases> document.
func ReadDocument(r io.Reader, factories *Factories, env Env) ([]Bias, error) {
	dec := xml.NewDecoder(r)
	start, err := nextStart(dec)
	if err != nil {
		return nil, err
	}
	switch start.Name.Local {
	case elemBias:
		b, err := DecodeBias(dec, start, factories, env)
		if err != nil {
			return nil, err
		}
		return []Bias{b}, nil
	case elemBiases:
		return decodeChildren(dec, factories, env)
	default:
		return nil, fmt.Errorf("expected <%s> or <%s>, got <%s>", elemBias, elemBiases, start.Name.Local)
	}
}

func decodeChildren(dec *xml.Decoder, factories *Factories, env Env) ([]Bias, error) {
	var out []Bias
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read biases: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != elemBias {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			b, err := DecodeBias(dec, t, factories, env)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		case xml.EndElement:
			return out, nil
		}
	}
}

// DecodeBias builds the bias described by the element start. A type without
// a registered factory yields a ReplacementBias so the enclosing document
// still loads.
func DecodeBias(dec *xml.Decoder, start xml.StartElement, factories *Factories, env Env) (Bias, error) {
	typ := attrValue(start, attrType)

	b, err := factories.New(typ, env)
	if errors.Is(err, ErrUnknownBias) {
		env.Logger.Warn().Str("type", typ).Msg("unknown bias type, keeping it as a placeholder")
		b = NewReplacementBias(typ)
	} else if err != nil {
		return nil, err
	}

	if err := b.UnmarshalElement(dec, start); err != nil {
		return nil, fmt.Errorf("decode %s bias: %w", typ, err)
	}
	return b, nil
}

// WriteBias encodes b as a single <bias> element.
func WriteBias(w io.Writer, b Bias) error {
	enc := xml.NewEncoder(w)
	if err := EncodeBias(enc, b); err != nil {
		return err
	}
	return enc.Flush()
}

// WriteBiases encodes a <biases> document.
func WriteBiases(w io.Writer, biases []Bias) error {
	enc := xml.NewEncoder(w)
	root := xml.StartElement{Name: xml.Name{Local: elemBiases}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	for _, b := range biases {
		if err := EncodeBias(enc, b); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	return enc.Flush()
}

// EncodeBias writes b as a <bias type="..."> element.
func EncodeBias(enc *xml.Encoder, b Bias) error {
	start := xml.StartElement{
		Name: xml.Name{Local: elemBias},
		Attr: []xml.Attr{{Name: xml.Name{Local: attrType}, Value: b.Name()}},
	}
	return b.MarshalElement(enc, start)
}

// ReplacementBias stands in for a bias whose type is not registered. It keeps
// the persisted attributes and content and writes them back unchanged. It
// matches every track.
type ReplacementBias struct {
	typeName string
	attrs    []xml.Attr
	content  []xml.Token
}

var _ Bias = (*ReplacementBias)(nil)

// NewReplacementBias creates a placeholder for typeName.
func NewReplacementBias(typeName string) *ReplacementBias {
	return &ReplacementBias{typeName: typeName}
}

// Name implements Bias.
func (b *ReplacementBias) Name() string { return b.typeName }

// String implements Bias.
func (b *ReplacementBias) String() string {
	return fmt.Sprintf("Replacement for %q bias", b.typeName)
}

// MatchingTracks implements Bias.
func (b *ReplacementBias) MatchingTracks(universe *trackset.Universe) trackset.Set {
	return trackset.MakeUniverse(universe)
}

// TrackMatches implements Bias.
func (b *ReplacementBias) TrackMatches(meta.Track) bool { return true }

// Invalidate implements Bias.
func (b *ReplacementBias) Invalidate() {}

// AddObserver implements Bias. A placeholder never changes.
func (b *ReplacementBias) AddObserver(Observer) func() { return func() {} }

// UnmarshalElement implements Bias.
func (b *ReplacementBias) UnmarshalElement(dec *xml.Decoder, start xml.StartElement) error {
	b.attrs = b.attrs[:0]
	for _, a := range start.Attr {
		if a.Name.Local != attrType {
			b.attrs = append(b.attrs, a)
		}
	}

	b.content = b.content[:0]
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			depth--
		case xml.ProcInst:
			continue
		}
		b.content = append(b.content, xml.CopyToken(tok))
	}
}

// MarshalElement implements Bias.
func (b *ReplacementBias) MarshalElement(enc *xml.Encoder, start xml.StartElement) error {
	start.Attr = append(start.Attr, b.attrs...)
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, tok := range b.content {
		if err := enc.EncodeToken(tok); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func nextStart(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.StartElement{}, fmt.Errorf("read start element: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

func attrValue(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
