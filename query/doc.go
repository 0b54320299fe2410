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


// Package query implements the multi-stage retrieval-and-reasoning pipeline
// that turns a natural-language question about technical standards into a
// cited answer.
//
// The pipeline, coordinated by Engine.Query:
//
//  1. Classify the conversation intent; small talk gets a short
//     conversational reply and skips everything else.
//  2. Gather candidates: vector search over section embeddings merged with
//     keyword search (LLM-derived terms, expanded through the symbol table,
//     title matches weighted over body matches).
//  3. Filter relevance: batched, pool-bounded LLM extraction of the
//     query-relevant text per candidate.
//  4. Expand: widen the vector window while the bottom of the ranked list
//     still yields relevant material.
//  5. Follow references: resolve raw cross-reference strings through the
//     fuzzy Resolver and pull referenced material in, hop by hop, with a
//     monotone visited set bounding the walk over cyclic graphs.
//  6. Attach precedence rules and LLM-detected conflicts.
//  7. Synthesize the final answer with citations, precedence and conflict
//     caveats, and the list of referenced-but-missing documents.
//
// # Failure policy
//
// Stage-local LLM failures never abort a request: keyword extraction falls
// back to tokenization, a failed relevance batch includes its candidates
// truncated, conflict detection reports none, and synthesis falls back to
// the raw extracts. Only embedding, vector-index and retry-exhaustion
// failures surface as errors.
//
// # Concurrency
//
// All LLM-bound work passes through one shared worker pool (ants), the
// global concurrency limiter. Inject a pool with WithPool to share it with
// other workloads, e.g. the loader's embedding batches.
package query
