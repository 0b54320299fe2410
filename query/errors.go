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


package query

import "errors"

var (
	// ErrStoreRequired indicates a nil store was passed to NewEngine.
	ErrStoreRequired = errors.New("store is required")

	// ErrVectorIndexRequired indicates a nil vector index was passed to NewEngine.
	ErrVectorIndexRequired = errors.New("vector index is required")

	// ErrAIProviderRequired indicates a nil AI provider was passed to NewEngine.
	ErrAIProviderRequired = errors.New("ai provider is required")

	// ErrEmptyQuery indicates Query was called with an empty query string.
	ErrEmptyQuery = errors.New("query text is empty")
)
