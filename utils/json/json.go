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
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNoHeader is returned by SplitHeader when data holds no header line.
var ErrNoHeader = errors.New("missing header line")

// Marshal marshals v without escaping &, < and >, so source paths and code stay readable.
func Marshal(v interface{}) ([]byte, error) {
	return Marshal2(v, false)
}

func Marshal2(v interface{}, escapeHTML bool) ([]byte, error) {
	var byteBuf bytes.Buffer
	encoder := json.NewEncoder(&byteBuf)
	encoder.SetEscapeHTML(escapeHTML)
	err := encoder.Encode(v)
	if err == nil && byteBuf.Len() > 0 {
		return byteBuf.Bytes()[:byteBuf.Len()-1], err
	}
	return byteBuf.Bytes(), err
}

// Unmarshal json data to struct
func Unmarshal(b []byte, m interface{}) error {
	return json.Unmarshal(b, m)
}

// WithHeader prefixes body with the single-line JSON encoding of header.
// 头部一行 JSON，其后为正文
func WithHeader(header interface{}, body []byte) ([]byte, error) {
	h, err := Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(h)+1+len(body))
	out = append(out, h...)
	out = append(out, '\n')
	return append(out, body...), nil
}

// SplitHeader decodes the header line written by WithHeader into header and returns the body.
func SplitHeader(data []byte, header interface{}) ([]byte, error) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return nil, ErrNoHeader
	}
	if err := json.Unmarshal(data[:i], header); err != nil {
		return nil, err
	}
	return data[i+1:], nil
}
