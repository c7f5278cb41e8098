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


package storage

import (
	"fmt"

	"github.com/poiesic/remessa/core"
)

// MarshalFileProgress serializes a FileProgress to bytes.
func MarshalFileProgress(progress *core.FileProgress) []byte {
	buf := make([]byte, core.FileProgressMUS.Size(*progress))
	core.FileProgressMUS.Marshal(*progress, buf)
	return buf
}

// UnmarshalFileProgress deserializes a FileProgress from bytes.
func UnmarshalFileProgress(data []byte) (*core.FileProgress, error) {
	progress, _, err := core.FileProgressMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: file progress: %w", ErrSerializationFailed, err)
	}
	return &progress, nil
}

// MarshalDedupEntry serializes a DedupEntry to bytes.
func MarshalDedupEntry(entry *core.DedupEntry) []byte {
	buf := make([]byte, core.DedupEntryMUS.Size(*entry))
	core.DedupEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalDedupEntry deserializes a DedupEntry from bytes.
func UnmarshalDedupEntry(data []byte) (*core.DedupEntry, error) {
	entry, _, err := core.DedupEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: dedup entry: %w", ErrSerializationFailed, err)
	}
	return &entry, nil
}
