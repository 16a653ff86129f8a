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
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rulego/weaver/api/types"
	"github.com/rulego/weaver/utils/fs"
	"github.com/rulego/weaver/utils/json"
	"go.uber.org/zap"
)

// Ext is the file extension of persisted artifacts.
const Ext = ".woven"

var _ types.ArtifactCache = (*FileCache)(nil)

// fileHeader is the first line of a persisted artifact, followed by the woven source.
type fileHeader struct {
	*types.WovenArtifact
	Checksum string `json:"checksum"`
	Size     int    `json:"size"`
}

// FileCache persists artifacts under a directory, one file per key.
// Files appear atomically and are never overwritten: when two writers race, the loser
// adopts the artifact of the winner. Entries failing the integrity check are removed
// and reported as misses.
type FileCache struct {
	dir    string
	logger *zap.Logger
}

// NewFileCache creates a cache rooted at dir. The directory is created on first write.
func NewFileCache(dir string, logger *zap.Logger) *FileCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileCache{dir: dir, logger: logger}
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string {
	return c.dir
}

// Path returns the file holding the artifact of key.
func (c *FileCache) Path(key types.ArtifactKey) string {
	shard := "00"
	if len(key.Fingerprint) >= 2 {
		shard = key.Fingerprint[:2]
	}
	return filepath.Join(c.dir, shard, key.String()+Ext)
}

// Get implements types.ArtifactCache.
func (c *FileCache) Get(key types.ArtifactKey) (*types.WovenArtifact, bool) {
	path := c.Path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Debug("artifact read failed", zap.String("path", path), zap.Error(err))
		}
		return nil, false
	}
	artifact, err := decode(path, key, data)
	if err != nil {
		c.logger.Warn("dropping corrupted artifact", zap.String("path", path), zap.Error(err))
		_ = os.Remove(path)
		return nil, false
	}
	return artifact, true
}

// Put implements types.ArtifactCache.
func (c *FileCache) Put(artifact *types.WovenArtifact) (*types.WovenArtifact, error) {
	data, err := json.WithHeader(fileHeader{
		WovenArtifact: artifact,
		Checksum:      Digest(artifact.Source),
		Size:          len(artifact.Source),
	}, artifact.Source)
	if err != nil {
		return nil, err
	}
	path := c.Path(artifact.Key())
	// a corrupted winner is removed by Get, so the second attempt can succeed
	for attempt := 0; attempt < 2; attempt++ {
		err = fs.WriteNew(path, data)
		if err == nil {
			return artifact, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
		if winner, ok := c.Get(artifact.Key()); ok {
			return winner, nil
		}
	}
	return artifact, nil
}

// Remove deletes the artifact of key.
func (c *FileCache) Remove(key types.ArtifactKey) error {
	err := os.Remove(c.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Keys lists the keys of every persisted artifact.
func (c *FileCache) Keys() ([]types.ArtifactKey, error) {
	var keys []types.ArtifactKey
	matches, err := filepath.Glob(filepath.Join(c.dir, "*", "*"+Ext))
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), Ext)
		if i := strings.LastIndex(name, "-"); i > 0 {
			keys = append(keys, types.ArtifactKey{Fingerprint: name[:i], Version: name[i+1:]})
		}
	}
	return keys, nil
}

func decode(path string, key types.ArtifactKey, data []byte) (*types.WovenArtifact, error) {
	h := fileHeader{WovenArtifact: &types.WovenArtifact{}}
	body, err := json.SplitHeader(data, &h)
	if err != nil {
		return nil, &types.CacheCorruptionError{Path: path, Reason: "unreadable header", Err: err}
	}
	switch {
	case h.Fingerprint != key.Fingerprint || h.Version != key.Version:
		return nil, &types.CacheCorruptionError{Path: path, Reason: "key mismatch " + h.Key().String()}
	case h.Size != len(body):
		return nil, &types.CacheCorruptionError{Path: path, Reason: "truncated source"}
	case h.Checksum != Digest(body):
		return nil, &types.CacheCorruptionError{Path: path, Reason: "checksum mismatch"}
	}
	h.Source = body
	return h.WovenArtifact, nil
}
