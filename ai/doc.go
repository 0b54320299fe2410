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


// Package ai provides abstractions for the AI services used in Normqa.
//
// This package defines interfaces for text embeddings and LLM completions.
// The query engine depends on these abstractions rather than concrete
// implementations, so the whole pipeline can be tested without external
// AI services.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - LLM: Produces text and structured-JSON completions
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
// The ai package includes two implementation sub-packages:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// INTERFACE types to enforce abstraction and prevent accidental coupling to
// concrete implementations.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Test utility constructors (mock.NewMockEmbedder, mock.NewMockLLM) return
// CONCRETE types to enable test assertions and behavior injection via the
// mock's public fields and methods (CallCount, function fields, Reset).
//
//	mockLLM := mock.NewMockLLM()        // returns *mock.MockLLM
//	mockLLM.GenerateJSONFunc = ...      // needs concrete type
//	count := mockLLM.CallCount()        // test assertion
//
// The mock.NewMockProvider() returns an interface since it's the primary
// entry point, but provides GetMockEmbedder()/GetMockLLM() methods to access
// concrete types for assertions when needed.
//
// # Usage Example
//
//	config := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"),
//	    ai.WithChatModel("qwen2.5:3b"),
//	)
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "wind load on roofs")
//	answer, err := provider.LLM().Generate(ctx, prompt, system)
package ai
