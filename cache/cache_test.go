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
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rulego/weaver/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func artifact(identity, source string) *types.WovenArtifact {
	return &types.WovenArtifact{
		Identity:     identity,
		Fingerprint:  Fingerprint(identity, []byte("original "+source)),
		Version:      "v1",
		Transformers: []string{"constructor"},
		Changed:      true,
		Lines:        []types.LineMapping{{Line: 3, Original: 2}},
		Source:       []byte(source),
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("a.php", []byte("<?php"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint("a.php", []byte("<?php")))
	assert.NotEqual(t, a, Fingerprint("b.php", []byte("<?php")))
	assert.NotEqual(t, a, Fingerprint("a.php", []byte("<?php ")))
	// part boundaries take part in the digest
	assert.NotEqual(t, Digest([]byte("ab"), []byte("c")), Digest([]byte("a"), []byte("bc")))
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(nil)
	a := artifact("/app/a.php", "<?php echo 1;")
	_, ok := c.Get(a.Key())
	assert.False(t, ok)

	stored, err := c.Put(a)
	require.NoError(t, err)
	assert.Same(t, a, stored)

	// first writer wins
	b := artifact("/app/a.php", "<?php echo 1;")
	stored, err = c.Put(b)
	require.NoError(t, err)
	assert.Same(t, a, stored)

	got, ok := c.Get(a.Key())
	require.True(t, ok)
	assert.Same(t, a, got)

	_, _ = c.Put(artifact("/app/a.php", "<?php echo 2;"))
	_, _ = c.Put(artifact("/app/b.php", "<?php echo 3;"))
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 2, c.DeleteByIdentity("/app/a.php"))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.DeleteByIdentity("/app/a.php"))
}

func TestFileCacheRoundTrip(t *testing.T) {
	c := NewFileCache(t.TempDir(), nil)
	a := artifact("/app/a.php", "<?php\n\\Weaver\\Dispatcher::construct('Foo', []);\n")
	stored, err := c.Put(a)
	require.NoError(t, err)
	assert.Same(t, a, stored)

	got, ok := c.Get(a.Key())
	require.True(t, ok)
	assert.Equal(t, a, got)

	keys, err := c.Keys()
	require.NoError(t, err)
	assert.Equal(t, []types.ArtifactKey{a.Key()}, keys)

	require.NoError(t, c.Remove(a.Key()))
	require.NoError(t, c.Remove(a.Key()))
	_, ok = c.Get(a.Key())
	assert.False(t, ok)
}

func TestFileCacheConcurrentWriters(t *testing.T) {
	c := NewFileCache(t.TempDir(), nil)
	var wg sync.WaitGroup
	results := make([]*types.WovenArtifact, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stored, err := c.Put(artifact("/app/a.php", "<?php echo 1;"))
			assert.NoError(t, err)
			results[i] = stored
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "<?php echo 1;", string(r.Source))
		assert.Equal(t, results[0].Key(), r.Key())
	}
	entries, err := os.ReadDir(filepath.Dir(c.Path(results[0].Key())))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestFileCacheCorruption(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := NewFileCache(t.TempDir(), zap.New(core))
	a := artifact("/app/a.php", "<?php echo 1;")
	_, err := c.Put(a)
	require.NoError(t, err)

	path := c.Path(a.Key())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(data, " tampered"...), 0644))

	_, ok := c.Get(a.Key())
	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("dropping corrupted artifact").Len())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// a corrupted winner is replaced by the next writer
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	stored, err := c.Put(a)
	require.NoError(t, err)
	assert.Same(t, a, stored)
	got, ok := c.Get(a.Key())
	require.True(t, ok)
	assert.Equal(t, a.Source, got.Source)
}

func TestTwoLevelCache(t *testing.T) {
	file := NewFileCache(t.TempDir(), nil)
	a := artifact("/app/a.php", "<?php echo 1;")
	_, err := NewMemoryCache(file).Put(a)
	require.NoError(t, err)

	// a fresh memory level is filled from disk
	mem := NewMemoryCache(file)
	got, ok := mem.Get(a.Key())
	require.True(t, ok)
	assert.Equal(t, a.Source, got.Source)
	assert.Equal(t, 1, mem.Len())
}
