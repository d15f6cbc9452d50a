// Copyright (c) 2009-2020 Rob Braun <bbraun@synack.net> and others
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of Rob Braun nor the names of his contributors
//    may be used to endorse or promote products derived from this software
//    without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT OWNER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package dump

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterAppendsBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	w, err := Open(path, 1024)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Write([]byte{0x01, 0x02}))
	require.NoError(t, w.Write([]byte{0x03}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, data)
	assert.Equal(t, int64(3), w.Size())
}

func TestWriterRotatesPastMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	w, err := Open(path, 1024)
	require.NoError(t, err)
	defer w.Close()
	w.maxSize = 1 // force rotation after the first byte, without a 1MB fixture

	require.NoError(t, w.Write([]byte{0xAA}))
	require.NoError(t, w.Write([]byte{0xBB}))

	_, err = os.Stat(path + ".old")
	require.NoError(t, err)
	old, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA}, old)

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xBB}, current)
}

func TestWriterChecksumReflectsContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	w, err := Open(path, 1024)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Write([]byte{0x01, 0x02, 0x03}))
	sum, err := w.Checksum()
	require.NoError(t, err)

	w2, err := Open(filepath.Join(t.TempDir(), "other.bin"), 1024)
	require.NoError(t, err)
	defer w2.Close()
	require.NoError(t, w2.Write([]byte{0x01, 0x02, 0x03}))
	sum2, err := w2.Checksum()
	require.NoError(t, err)

	assert.Equal(t, sum, sum2)
}

func TestOpenResumesExistingFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x01, 0x02}, 0o644))

	w, err := Open(path, 1024)
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, int64(2), w.Size())
}
