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


// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// This package implements the ai.AIProvider interface using the langchaingo
// library to communicate with OpenAI or OpenAI-compatible services (such as
// Ollama, OpenRouter, LocalAI, or vLLM). Embeddings and completions can point
// at different hosts, which is the normal setup: OpenAI for embeddings,
// OpenRouter for completions.
//
// Rate-limited calls are retried with exponential backoff, and JSON
// completions go through lenient recovery (ParseJSONLenient) before an
// ai.ErrMalformedResponse is reported.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithToken(os.Getenv("OPENROUTER_API_KEY")),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "snow load shape coefficients")
//	answer, err := provider.LLM().Generate(ctx, prompt, system)
package openai
