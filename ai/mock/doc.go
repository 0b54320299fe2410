// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.LLM, and
// ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockLLM := mock.NewMockLLM()
//	mockLLM.GenerateJSONFunc = mock.JSONResponder(`{"intent":"chat"}`)
//
//	// Check call counts
//	count := mockLLM.CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockEmbedder: Returns deterministic vectors based on text hash
//   - MockLLM: Echoes the prompt; GenerateJSON leaves out at its zero value
//   - MockProvider: Aggregates mock embedder and LLM
package mock
