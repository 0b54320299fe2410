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


// Package storage defines the persistence interfaces for the standards
// corpus: the five string-keyed collections (sections, objects, references,
// precedence, symbols) plus document metadata, and the vector index used
// for semantic search.
//
// The query engine only reads from these interfaces. Writes happen through
// the ingestion collaborator or the loader package when importing a
// datastore dump.
//
// # Implementations
//
//   - storage/badger: BadgerDB-backed Store and VectorIndex
//
// Use in tests with in-memory storage:
//
//	store, index, backend, err := badger.NewMemoryStore()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Serialization
//
// Values are encoded with hand-written mus-format serializers. The entity
// schema is small and fixed, so the serializers are maintained by hand
// rather than generated.
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
package storage
