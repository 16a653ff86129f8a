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

package maps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type User struct {
	Username string
	Age      int
	Address  Address
	Hobbies  []string
}

type Address struct {
	Detail string
}

func TestMap2Struct(t *testing.T) {
	m := map[string]interface{}{
		"userName": "lala",
		"Age":      float64(5),
		"Address":  Address{"test"},
		"Hobbies":  []string{"c"},
	}
	var user User
	user.Hobbies = []string{"a", "b"}
	require.NoError(t, Map2Struct(m, &user))
	assert.Equal(t, "lala", user.Username)
	assert.Equal(t, 5, user.Age)
	assert.Equal(t, "test", user.Address.Detail)
	assert.Equal(t, []string{"c"}, user.Hobbies)

	type Config struct {
		Timeout time.Duration
		Paths   []string
		Debug   bool
	}
	var cfg Config
	require.NoError(t, Map2Struct(map[string]interface{}{"Timeout": "5s", "Paths": "src,lib", "Debug": "true"}, &cfg))
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"src", "lib"}, cfg.Paths)
	assert.True(t, cfg.Debug)

	assert.Error(t, Map2Struct(map[string]interface{}{"Timeout": "5invalid"}, &cfg))
	assert.Error(t, Map2Struct(m, User{}))

	var empty User
	assert.NoError(t, Map2Struct(nil, &empty))
	assert.Equal(t, "", empty.Username)
}

func TestDecodeStrict(t *testing.T) {
	var user User
	assert.NoError(t, DecodeStrict(map[string]interface{}{"username": "lala"}, &user))
	err := DecodeStrict(map[string]interface{}{"username": "lala", "nickname": "x"}, &user)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nickname")
	// lenient decoding ignores unknown keys
	assert.NoError(t, Map2Struct(map[string]interface{}{"nickname": "x"}, &user))
}
