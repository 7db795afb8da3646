// Package elan reads and writes the ELAN annotation format (.eaf) used for
// conversation markup.
package elan

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"dral/internal/corpus"
	"dral/internal/services"
)

type document struct {
	XMLName   xml.Name   `xml:"ANNOTATION_DOCUMENT"`
	Author    string     `xml:"AUTHOR,attr,omitempty"`
	Format    string     `xml:"FORMAT,attr,omitempty"`
	Version   string     `xml:"VERSION,attr,omitempty"`
	Header    header     `xml:"HEADER"`
	TimeOrder timeOrder  `xml:"TIME_ORDER"`
	Tiers     []tier     `xml:"TIER"`
	Types     []lingType `xml:"LINGUISTIC_TYPE"`
}

type header struct {
	TimeUnits string `xml:"TIME_UNITS,attr,omitempty"`
}

type timeOrder struct {
	Slots []timeSlot `xml:"TIME_SLOT"`
}

type timeSlot struct {
	ID    string `xml:"TIME_SLOT_ID,attr"`
	Value string `xml:"TIME_VALUE,attr,omitempty"`
}

type tier struct {
	ID          string       `xml:"TIER_ID,attr"`
	Type        string       `xml:"LINGUISTIC_TYPE_REF,attr,omitempty"`
	Annotations []annotation `xml:"ANNOTATION"`
}

type annotation struct {
	Alignable *alignable `xml:"ALIGNABLE_ANNOTATION"`
	Ref       *struct{}  `xml:"REF_ANNOTATION"`
}

type alignable struct {
	ID    string `xml:"ANNOTATION_ID,attr"`
	Slot1 string `xml:"TIME_SLOT_REF1,attr"`
	Slot2 string `xml:"TIME_SLOT_REF2,attr"`
	Value string `xml:"ANNOTATION_VALUE"`
}

type lingType struct {
	ID            string `xml:"LINGUISTIC_TYPE_ID,attr"`
	TimeAlignable string `xml:"TIME_ALIGNABLE,attr"`
	GraphicRefs   string `xml:"GRAPHIC_REFERENCES,attr"`
}

// ReadFile parses the markup file at path.
func ReadFile(path string) ([]corpus.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "elan", "open", path, err)
	}
	defer f.Close()
	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Decode returns every time-aligned annotation in tier order. Reference
// annotations carry no times of their own and are skipped.
func Decode(r io.Reader) ([]corpus.Record, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, services.Wrap(services.ErrValidation, "elan", "decode", "", err)
	}

	slots := make(map[string]*time.Duration, len(doc.TimeOrder.Slots))
	for _, slot := range doc.TimeOrder.Slots {
		value := strings.TrimSpace(slot.Value)
		if value == "" {
			slots[slot.ID] = nil
			continue
		}
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "elan", "decode",
				fmt.Sprintf("time slot %s has value %q", slot.ID, slot.Value), err)
		}
		d := time.Duration(ms) * time.Millisecond
		slots[slot.ID] = &d
	}

	var records []corpus.Record
	for _, t := range doc.Tiers {
		for _, a := range t.Annotations {
			if a.Alignable == nil {
				continue
			}
			start, ok1 := slots[a.Alignable.Slot1]
			end, ok2 := slots[a.Alignable.Slot2]
			if !ok1 || !ok2 {
				return nil, services.Wrap(services.ErrValidation, "elan", "decode",
					fmt.Sprintf("annotation %s references an unknown time slot", a.Alignable.ID), nil)
			}
			rec := corpus.Record{
				Tier:    t.ID,
				Value:   a.Alignable.Value,
				Aligned: start != nil && end != nil,
			}
			if start != nil {
				rec.Start = *start
			}
			if end != nil {
				rec.End = *end
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// Encode writes records as a minimal ELAN document. Records on the same tier
// are grouped under one TIER element in first-seen order. Unaligned records
// get time slots without a value.
func Encode(w io.Writer, records []corpus.Record) error {
	doc := document{
		Author:  "dral",
		Format:  "3.0",
		Version: "3.0",
		Header:  header{TimeUnits: "milliseconds"},
		Types:   []lingType{{ID: "default-lt", TimeAlignable: "true", GraphicRefs: "false"}},
	}
	tierIndex := map[string]int{}
	for i, rec := range records {
		slot1 := fmt.Sprintf("ts%d", 2*i+1)
		slot2 := fmt.Sprintf("ts%d", 2*i+2)
		s1 := timeSlot{ID: slot1}
		s2 := timeSlot{ID: slot2}
		if rec.Aligned {
			s1.Value = strconv.FormatInt(rec.Start.Milliseconds(), 10)
			s2.Value = strconv.FormatInt(rec.End.Milliseconds(), 10)
		}
		doc.TimeOrder.Slots = append(doc.TimeOrder.Slots, s1, s2)

		idx, ok := tierIndex[rec.Tier]
		if !ok {
			idx = len(doc.Tiers)
			tierIndex[rec.Tier] = idx
			doc.Tiers = append(doc.Tiers, tier{ID: rec.Tier, Type: "default-lt"})
		}
		doc.Tiers[idx].Annotations = append(doc.Tiers[idx].Annotations, annotation{
			Alignable: &alignable{
				ID:    fmt.Sprintf("a%d", i+1),
				Slot1: slot1,
				Slot2: slot2,
				Value: rec.Value,
			},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode eaf: %w", err)
	}
	return enc.Close()
}

// WriteFile encodes records to path.
func WriteFile(path string, records []corpus.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
