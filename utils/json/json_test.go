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

package json

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type header struct {
	Identity string `json:"identity"`
	Size     int    `json:"size"`
}

func TestMarshal(t *testing.T) {
	h := header{Identity: "a<b>&c.php"}
	v, err := Marshal(h)
	require.NoError(t, err)
	assert.Equal(t, `{"identity":"a<b>&c.php","size":0}`, string(v))

	escaped, _ := json.Marshal(h)
	v2, err := Marshal2(h, true)
	require.NoError(t, err)
	assert.Equal(t, string(escaped), string(v2))
}

func TestHeader(t *testing.T) {
	body := []byte("<?php\necho 1;\n")
	data, err := WithHeader(header{Identity: "/app/a.php", Size: len(body)}, body)
	require.NoError(t, err)

	var h header
	got, err := SplitHeader(data, &h)
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.Equal(t, "/app/a.php", h.Identity)
	assert.Equal(t, len(body), h.Size)

	_, err = SplitHeader([]byte("no header"), &h)
	assert.ErrorIs(t, err, ErrNoHeader)
	_, err = SplitHeader([]byte("{broken\nbody"), &h)
	assert.Error(t, err)
}
