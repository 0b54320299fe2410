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


package core

import (
	"fmt"
	"strings"
)

// ValidateSection validates a Section according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - If DocPrefix is set, ID must start with it
//
// NOT validated:
//   - Content (gap-fill sections produced during ingestion may be sparse)
//   - Page (front matter can legitimately be page 0)
func ValidateSection(section *Section) error {
	if section == nil {
		return fmt.Errorf("%w: section is nil", ErrInvalidSection)
	}
	if section.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSection, ErrEmptyID)
	}
	if section.DocPrefix != "" && !strings.HasPrefix(section.ID, section.DocPrefix) {
		return fmt.Errorf("%w: %w", ErrInvalidSection, ErrPrefixMismatch)
	}
	return nil
}

// ValidateObject validates an Object according to domain rules.
func ValidateObject(object *Object) error {
	if object == nil {
		return fmt.Errorf("%w: object is nil", ErrInvalidObject)
	}
	if object.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidObject, ErrEmptyID)
	}
	switch object.Type {
	case ObjectTypeTable, ObjectTypeFigure:
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidObject, ErrInvalidObjectType, object.Type)
	}
	return nil
}

// ValidateDocument validates a Document according to domain rules.
//
// KeyPrefix is required because it is the only join key between the
// section, object, reference, precedence and symbol collections.
func ValidateDocument(document *Document) error {
	if document == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if document.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyID)
	}
	if document.KeyPrefix == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyKeyPrefix)
	}
	return nil
}
