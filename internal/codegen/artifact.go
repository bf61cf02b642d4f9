// Copyright 2023 Greenmask
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

package codegen

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/greenmaskio/etlmodel/internal/storages"
	"github.com/greenmaskio/etlmodel/internal/utils/ioutils"
)

const compressedExt = ".gz"

// WriteArtifact - stores code at filePath in st. When compress is set the content is gzipped and
// .gz is appended to the path. Returns the path written
func WriteArtifact(ctx context.Context, st storages.Storager, filePath, code string, compress bool) (string, error) {
	if !compress {
		if err := st.PutObject(ctx, filePath, strings.NewReader(code)); err != nil {
			return "", fmt.Errorf("cannot store generated code: %w", err)
		}
		return filePath, nil
	}
	filePath += compressedExt
	pr, pw := io.Pipe()
	go func() {
		gz := ioutils.NewGzipWriter(pw)
		if _, err := io.WriteString(gz, code); err != nil {
			_ = gz.Close()
			pw.CloseWithError(err)
			return
		}
		if err := gz.Close(); err != nil {
			pw.CloseWithError(err)
		}
	}()
	if err := st.PutObject(ctx, filePath, pr); err != nil {
		_ = pr.CloseWithError(err)
		return "", fmt.Errorf("cannot store generated code: %w", err)
	}
	return filePath, nil
}

// ReadArtifact - reads code stored by WriteArtifact. Paths ending with .gz are decompressed
func ReadArtifact(ctx context.Context, st storages.Storager, filePath string) (string, error) {
	obj, err := st.GetObject(ctx, filePath)
	if err != nil {
		return "", err
	}
	var r io.ReadCloser = obj
	if strings.HasSuffix(filePath, compressedExt) {
		if r, err = ioutils.NewGzipReader(obj); err != nil {
			return "", err
		}
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("cannot read generated code: %w", err)
	}
	return string(data), nil
}
