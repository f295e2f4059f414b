// Copyright 2026 The Cockroach Authors
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

package chainmap

import "github.com/cockroachdb/errors"

// The error kinds surfaced by checked container operations. Errors returned
// by Array, List, and Map methods wrap one of these sentinels and should be
// classified with errors.Is; the concrete error usually carries additional
// context (the offending index, key, etc).
var (
	// ErrIndexOutOfRange is returned by checked array access with an index
	// at or beyond the current size, and by bucket queries with an invalid
	// bucket number.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrEmptyContainer is returned by front/back accessors on an empty
	// list, and by Map.Bucket on an empty table.
	ErrEmptyContainer = errors.New("empty container")

	// ErrInvalidCursor is returned when dereferencing or advancing a cursor
	// whose node has been erased, or the end cursor.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrKeyNotFound is returned by checked lookups on an absent key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrAllocFailed is returned when the configured Allocator fails to
	// provide storage. It is propagated, never swallowed.
	ErrAllocFailed = errors.New("allocation failed")
)
