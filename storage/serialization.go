// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/normqa/core"
)

// Hand-written mus-format serializers for the standards entities.
// The schema is small and fixed, so the serializers are maintained by hand
// instead of generated.

func marshalStrings(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStrings(bs []byte) (v []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 || length > len(bs) {
		return nil, n, ErrSerializationFailed
	}
	v = make([]string, 0, length)
	for i := 0; i < length; i++ {
		s, sn, serr := ord.String.Unmarshal(bs[n:])
		n += sn
		if serr != nil {
			return nil, n, serr
		}
		v = append(v, s)
	}
	return v, n, nil
}

func sizeStrings(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 || length*4 > len(bs)-n {
		return nil, n, ErrSerializationFailed
	}
	v = make([]float32, 0, length)
	for i := 0; i < length; i++ {
		f, fn, ferr := raw.Float32.Unmarshal(bs[n:])
		n += fn
		if ferr != nil {
			return nil, n, ferr
		}
		v = append(v, f)
	}
	return v, n, nil
}

func sizeVector(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

type sectionMUS struct{}

// SectionMUS serializes core.Section values.
var SectionMUS = sectionMUS{}

func (sectionMUS) Size(v core.Section) int {
	return ord.String.Size(v.ID) + ord.String.Size(v.Code) +
		ord.String.Size(v.Title) + varint.Int.Size(v.Page) +
		ord.String.Size(v.Content) + ord.String.Size(v.DocPrefix)
}

func (sectionMUS) Marshal(v core.Section, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Code, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += varint.Int.Marshal(v.Page, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(v.DocPrefix, bs[n:])
	return n
}

func (sectionMUS) Unmarshal(bs []byte) (v core.Section, n int, err error) {
	var m int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.Code, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Title, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Page, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Content, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.DocPrefix, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	return
}

type objectMUS struct{}

// ObjectMUS serializes core.Object values.
var ObjectMUS = objectMUS{}

func (objectMUS) Size(v core.Object) int {
	return ord.String.Size(v.ID) + ord.String.Size(v.Type) +
		ord.String.Size(v.Code) + ord.String.Size(v.Title) +
		ord.String.Size(v.Description) + varint.Int.Size(v.Page) +
		ord.String.Size(v.DocID)
}

func (objectMUS) Marshal(v core.Object, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Type, bs[n:])
	n += ord.String.Marshal(v.Code, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += varint.Int.Marshal(v.Page, bs[n:])
	n += ord.String.Marshal(v.DocID, bs[n:])
	return n
}

func (objectMUS) Unmarshal(bs []byte) (v core.Object, n int, err error) {
	var m int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.Type, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Code, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Title, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Description, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Page, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.DocID, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	return
}

type precedenceRuleMUS struct{}

// PrecedenceRuleMUS serializes core.PrecedenceRule values.
var PrecedenceRuleMUS = precedenceRuleMUS{}

func (precedenceRuleMUS) Size(v core.PrecedenceRule) int {
	return ord.String.Size(v.Key) + sizeStrings(v.Supersedes) +
		sizeStrings(v.SupersededBy) + ord.String.Size(v.Note)
}

func (precedenceRuleMUS) Marshal(v core.PrecedenceRule, bs []byte) (n int) {
	n = ord.String.Marshal(v.Key, bs)
	n += marshalStrings(v.Supersedes, bs[n:])
	n += marshalStrings(v.SupersededBy, bs[n:])
	n += ord.String.Marshal(v.Note, bs[n:])
	return n
}

func (precedenceRuleMUS) Unmarshal(bs []byte) (v core.PrecedenceRule, n int, err error) {
	var m int
	if v.Key, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.Supersedes, m, err = unmarshalStrings(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.SupersededBy, m, err = unmarshalStrings(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Note, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	return
}

type symbolEntryMUS struct{}

// SymbolEntryMUS serializes core.SymbolEntry values.
var SymbolEntryMUS = symbolEntryMUS{}

func (symbolEntryMUS) Size(v core.SymbolEntry) int {
	return ord.String.Size(v.Symbol) + ord.String.Size(v.Definition) +
		ord.String.Size(v.DocID)
}

func (symbolEntryMUS) Marshal(v core.SymbolEntry, bs []byte) (n int) {
	n = ord.String.Marshal(v.Symbol, bs)
	n += ord.String.Marshal(v.Definition, bs[n:])
	n += ord.String.Marshal(v.DocID, bs[n:])
	return n
}

func (symbolEntryMUS) Unmarshal(bs []byte) (v core.SymbolEntry, n int, err error) {
	var m int
	if v.Symbol, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.Definition, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.DocID, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	return
}

type documentMUS struct{}

// DocumentMUS serializes core.Document values.
var DocumentMUS = documentMUS{}

func (documentMUS) Size(v core.Document) int {
	return ord.String.Size(v.ID) + ord.String.Size(v.Code) +
		ord.String.Size(v.Name) + varint.Int.Size(v.Pages) +
		ord.String.Size(v.Status) + ord.String.Size(v.KeyPrefix)
}

func (documentMUS) Marshal(v core.Document, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Code, bs[n:])
	n += ord.String.Marshal(v.Name, bs[n:])
	n += varint.Int.Marshal(v.Pages, bs[n:])
	n += ord.String.Marshal(v.Status, bs[n:])
	n += ord.String.Marshal(v.KeyPrefix, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (v core.Document, n int, err error) {
	var m int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.Code, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Name, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Pages, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Status, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.KeyPrefix, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	return
}

// MarshalSection serializes a Section to bytes.
func MarshalSection(section *core.Section) []byte {
	buf := make([]byte, SectionMUS.Size(*section))
	SectionMUS.Marshal(*section, buf)
	return buf
}

// UnmarshalSection deserializes a Section from bytes.
func UnmarshalSection(data []byte) (*core.Section, error) {
	section, _, err := SectionMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &section, nil
}

// MarshalObject serializes an Object to bytes.
func MarshalObject(object *core.Object) []byte {
	buf := make([]byte, ObjectMUS.Size(*object))
	ObjectMUS.Marshal(*object, buf)
	return buf
}

// UnmarshalObject deserializes an Object from bytes.
func UnmarshalObject(data []byte) (*core.Object, error) {
	object, _, err := ObjectMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &object, nil
}

// MarshalPrecedenceRule serializes a PrecedenceRule to bytes.
func MarshalPrecedenceRule(rule *core.PrecedenceRule) []byte {
	buf := make([]byte, PrecedenceRuleMUS.Size(*rule))
	PrecedenceRuleMUS.Marshal(*rule, buf)
	return buf
}

// UnmarshalPrecedenceRule deserializes a PrecedenceRule from bytes.
func UnmarshalPrecedenceRule(data []byte) (*core.PrecedenceRule, error) {
	rule, _, err := PrecedenceRuleMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// MarshalSymbolEntry serializes a SymbolEntry to bytes.
func MarshalSymbolEntry(entry *core.SymbolEntry) []byte {
	buf := make([]byte, SymbolEntryMUS.Size(*entry))
	SymbolEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalSymbolEntry deserializes a SymbolEntry from bytes.
func UnmarshalSymbolEntry(data []byte) (*core.SymbolEntry, error) {
	entry, _, err := SymbolEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(document *core.Document) []byte {
	buf := make([]byte, DocumentMUS.Size(*document))
	DocumentMUS.Marshal(*document, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	document, _, err := DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &document, nil
}

// MarshalStrings serializes a string slice to bytes.
func MarshalStrings(values []string) []byte {
	buf := make([]byte, sizeStrings(values))
	marshalStrings(values, buf)
	return buf
}

// UnmarshalStrings deserializes a string slice from bytes.
func UnmarshalStrings(data []byte) ([]string, error) {
	values, _, err := unmarshalStrings(data)
	return values, err
}

// MarshalVector serializes an embedding vector to bytes.
func MarshalVector(vector []float32) []byte {
	buf := make([]byte, sizeVector(vector))
	marshalVector(vector, buf)
	return buf
}

// UnmarshalVector deserializes an embedding vector from bytes.
func UnmarshalVector(data []byte) ([]float32, error) {
	vector, _, err := unmarshalVector(data)
	return vector, err
}
