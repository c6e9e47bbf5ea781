package digest

import (
	"crypto/sha1"
	"encoding/base64"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dumpAt = `{"version":"1","db_type":"sqlite3","start_time":"%s","db_info":{"db_name":"notes","doc_count":1,"update_seq":1}}
{"docs":[{"_id":"0","position":0,"content":""}]}
{"seq":1}
`

func dumpWithTime(ts string) []byte {
	return []byte(strings.Replace(dumpAt, "%s", ts, 1))
}

func TestMask_BlanksStartTime(t *testing.T) {
	masked := Mask(dumpWithTime("2026-10-16T10:00:00.123Z"))
	assert.Contains(t, string(masked), `"start_time":"","db_info"`)
	assert.NotContains(t, string(masked), "2026-10-16")
}

func TestMask_OnlyFirstOccurrence(t *testing.T) {
	data := []byte("{\"start_time\":\"a\",\"db_info\":{}}\n{\"start_time\":\"b\",\"db_info\":{}}\n")

	masked := string(Mask(data))

	assert.Equal(t, "{\"start_time\":\"\",\"db_info\":{}}\n{\"start_time\":\"b\",\"db_info\":{}}\n", masked)
}

func TestMask_NoMatchUnchanged(t *testing.T) {
	data := []byte(`[{"content":"a"}]`)
	assert.Equal(t, data, Mask(data))
}

func TestBytes_StableAcrossDumpTimes(t *testing.T) {
	first := Bytes(dumpWithTime("2026-10-16T10:00:00.000Z"))
	second := Bytes(dumpWithTime("2031-01-01T23:59:59.999Z"))

	assert.Equal(t, first, second)
}

func TestBytes_DetectsContentChange(t *testing.T) {
	a := dumpWithTime("2026-10-16T10:00:00.000Z")
	b := []byte(strings.Replace(string(a), `"content":""`, `"content":"x"`, 1))

	assert.NotEqual(t, Bytes(a), Bytes(b))
}

func TestBytes_Encoding(t *testing.T) {
	data := []byte("plain text")
	sum := sha1.Sum(data)

	d := Bytes(data)

	assert.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), d.String())
	assert.NotContains(t, d.String(), "\n")
	assert.Len(t, d.String(), 28)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.gko")
	require.NoError(t, os.WriteFile(path, dumpWithTime("2026-10-16T10:00:00.000Z"), 0644))

	d, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, Bytes(dumpWithTime("1999-01-01T00:00:00.000Z")), d)
}

func TestFile_Missing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "missing.gko"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFile_Concurrent(t *testing.T) {
	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "a"), filepath.Join(dir, "b")}
	for i, p := range paths {
		ts := []string{"2026-01-01T00:00:00.000Z", "2026-06-01T00:00:00.000Z"}[i]
		require.NoError(t, os.WriteFile(p, dumpWithTime(ts), 0644))
	}

	results := make([]Digest, len(paths))
	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			d, err := File(p)
			assert.NoError(t, err)
			results[i] = d
		}(i, p)
	}
	wg.Wait()

	assert.Equal(t, results[0], results[1])
}
