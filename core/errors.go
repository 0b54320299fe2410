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

import "errors"

// Domain validation errors
var (
	// ErrInvalidSection indicates a Section failed validation.
	ErrInvalidSection = errors.New("invalid section")

	// ErrInvalidObject indicates an Object failed validation.
	ErrInvalidObject = errors.New("invalid object")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyID indicates a required id field is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrEmptyKeyPrefix indicates a document has no key prefix.
	ErrEmptyKeyPrefix = errors.New("key prefix cannot be empty")

	// ErrPrefixMismatch indicates an entity id does not start with its
	// document's key prefix.
	ErrPrefixMismatch = errors.New("id does not start with document key prefix")

	// ErrInvalidObjectType indicates an Object has an unknown type.
	ErrInvalidObjectType = errors.New("invalid object type")
)
