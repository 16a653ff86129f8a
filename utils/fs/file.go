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

package fs

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gofrs/uuid/v5"
)

// ErrExist is returned by WriteNew when another writer created the file first.
var ErrExist = os.ErrExist

// tempFile writes data to a uniquely named temporary file next to path and syncs it.
func tempFile(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.Must(uuid.NewV4()).String()+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", err
	}
	if _, err = f.Write(data); err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// AtomicWrite replaces path with data. Readers see the old or the new content, never a
// partial file.
func AtomicWrite(path string, data []byte) error {
	tmp, err := tempFile(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// WriteNew creates path with data unless it already exists, in which case ErrExist is
// returned and the existing file is kept. The file appears atomically.
func WriteNew(path string, data []byte) error {
	tmp, err := tempFile(path, data)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrExist
		}
		// file systems without hard links
		if IsExist(path) {
			return ErrExist
		}
		return os.Rename(tmp, path)
	}
	return nil
}

// CheckWritable creates dir when missing and verifies that files can be created in it.
func CheckWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if !IsDir(dir) {
		return &os.PathError{Op: "mkdir", Path: dir, Err: errors.New("not a directory")}
	}
	tmp, err := tempFile(filepath.Join(dir, "probe"), nil)
	if err != nil {
		return err
	}
	return os.Remove(tmp)
}
