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

package ioutils

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type writeCloserMock struct {
	data           []byte
	writeCallCount int
	writeCallFunc  func(callCount int) error
	closeCallCount int
	closeCallFunc  func(callCount int) error
}

func (w *writeCloserMock) Write(p []byte) (n int, err error) {
	w.writeCallCount++
	if w.writeCallFunc != nil {
		return 0, w.writeCallFunc(w.writeCallCount)
	}
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *writeCloserMock) Close() error {
	w.closeCallCount++
	if w.closeCallFunc != nil {
		return w.closeCallFunc(w.closeCallCount)
	}
	return nil
}

type readCloserMock struct {
	io.Reader
	closeCallCount int
}

func (r *readCloserMock) Close() error {
	r.closeCallCount++
	return nil
}

const code = `proc sql;
   create table dw.CUSTOMERS as
      select
         ID,
         NAME
      from src.CUSTOMERS;
quit;
`

func TestGzipWriter_RoundTrip(t *testing.T) {
	objSrc := &writeCloserMock{}
	w := NewGzipWriter(objSrc)
	_, err := w.Write([]byte(code))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Equal(t, 1, objSrc.closeCallCount)
	require.NotEqual(t, []byte(code), objSrc.data)

	src := &readCloserMock{Reader: bytes.NewReader(objSrc.data)}
	r, err := NewGzipReader(src)
	require.NoError(t, err)
	res, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.Equal(t, code, string(res))
	require.Equal(t, 1, src.closeCallCount)
}

func TestGzipWriter_Close(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		objSrc := &writeCloserMock{}
		w := NewGzipWriter(objSrc)
		require.NoError(t, w.Close())
		require.Equal(t, 1, objSrc.closeCallCount)
	})

	t.Run("Write Error", func(t *testing.T) {
		objSrc := &writeCloserMock{
			writeCallFunc: func(c int) error {
				return errors.New("storage object error")
			},
		}
		w := NewGzipWriter(objSrc)
		_, _ = w.Write([]byte(code))
		require.Error(t, w.Close())
		require.Equal(t, 1, objSrc.closeCallCount)
	})

	t.Run("Storage object close Error", func(t *testing.T) {
		objSrc := &writeCloserMock{
			closeCallFunc: func(c int) error {
				return errors.New("storage object error")
			},
		}
		w := NewGzipWriter(objSrc)
		err := w.Close()
		require.Error(t, err)
		require.Equal(t, 1, objSrc.closeCallCount)
		require.ErrorContains(t, err, "error closing object")
	})
}

func TestNewGzipReader_InvalidData(t *testing.T) {
	src := &readCloserMock{Reader: bytes.NewReader([]byte(code))}
	_, err := NewGzipReader(src)
	require.Error(t, err)
	require.Equal(t, 1, src.closeCallCount)
}
