/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cache

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns the content fingerprint of a source unit. The identity takes part
// in the digest, so two files with the same text get distinct artifacts.
func Fingerprint(identity string, source []byte) string {
	return Digest([]byte(identity), source)
}

// Digest returns the hex blake2b-256 digest of the parts, each part terminated by a NUL byte.
func Digest(parts ...[]byte) string {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
