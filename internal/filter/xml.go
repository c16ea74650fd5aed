/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package filter

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/friendsincode/dynbias/internal/meta"
)

const attrInvert = "invert"

// MarshalElement writes the filter as the element start: invert becomes the
// attribute invert="1", followed by the field, the operands and the condition
// as child elements. Numeric filters write numValue and numValue2 only, textual
// filters write value only.
func (f Filter) MarshalElement(enc *xml.Encoder, start xml.StartElement, reg *meta.Registry) error {
	if f.Invert {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attrInvert}, Value: "1"})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	if err := writeText(enc, "field", reg.PlaylistName(f.Field)); err != nil {
		return err
	}
	if f.IsNumeric() {
		if err := writeText(enc, "numValue", strconv.FormatInt(f.NumValue, 10)); err != nil {
			return err
		}
		if err := writeText(enc, "numValue2", strconv.FormatInt(f.NumValue2, 10)); err != nil {
			return err
		}
	} else {
		if err := writeText(enc, "value", f.Value); err != nil {
			return err
		}
	}
	if err := writeText(enc, "condition", ConditionName(f.Condition)); err != nil {
		return err
	}

	return enc.EncodeToken(start.End())
}

// UnmarshalElement reads a filter from the element start. Child elements may
// come in any order and unknown ones are skipped. An unknown field name keeps
// the current field, and a missing or unknown condition reads as Equals.
func (f *Filter) UnmarshalElement(dec *xml.Decoder, start xml.StartElement, reg *meta.Registry) error {
	f.Invert = false
	for _, attr := range start.Attr {
		if attr.Name.Local == attrInvert {
			n, err := strconv.Atoi(strings.TrimSpace(attr.Value))
			f.Invert = err == nil && n != 0
		}
	}
	f.Condition = Equals

	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read filter: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := f.readChild(dec, t, reg); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (f *Filter) readChild(dec *xml.Decoder, el xml.StartElement, reg *meta.Registry) error {
	switch el.Name.Local {
	case "field", "numValue", "numValue2", "value", "condition":
	default:
		return dec.Skip()
	}

	text, err := readText(dec)
	if err != nil {
		return fmt.Errorf("read %s: %w", el.Name.Local, err)
	}

	switch el.Name.Local {
	case "field":
		if field, ok := reg.FieldForPlaylistName(strings.TrimSpace(text)); ok {
			f.Field = field
		}
	case "numValue":
		f.NumValue = parseUnsigned(text)
	case "numValue2":
		f.NumValue2 = parseUnsigned(text)
	case "value":
		f.Value = text
	case "condition":
		f.Condition = ConditionForName(strings.TrimSpace(text))
	}
	return nil
}

// readText returns the character data of the current element, skipping any
// nested elements, and consumes its end tag.
func readText(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			if err := dec.Skip(); err != nil {
				return "", err
			}
		case xml.EndElement:
			return sb.String(), nil
		}
	}
}

func writeText(enc *xml.Encoder, name, text string) error {
	el := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeToken(el); err != nil {
		return err
	}
	if err := enc.EncodeToken(xml.CharData(text)); err != nil {
		return err
	}
	return enc.EncodeToken(el.End())
}

func parseUnsigned(text string) int64 {
	n, err := strconv.ParseUint(strings.TrimSpace(text), 10, 63)
	if err != nil {
		return 0
	}
	return int64(n)
}
