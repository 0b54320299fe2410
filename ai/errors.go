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


package ai

import "errors"

var (
	// ErrMalformedResponse indicates a completion could not be parsed as
	// the expected structure, even after lenient JSON recovery.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrRateLimited indicates a call failed with a rate-limit response
	// after all retries were exhausted.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmptyCompletion indicates the model returned no choices.
	ErrEmptyCompletion = errors.New("empty completion")
)
