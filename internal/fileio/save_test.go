package fileio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gko/internal/digest"
	"github.com/roach88/gko/internal/metrics"
	"github.com/roach88/gko/internal/testutil"
)

func tempFiles(t *testing.T, path string) []string {
	t.Helper()
	matches, err := filepath.Glob(path + ".*.swp*")
	require.NoError(t, err)
	return matches
}

func TestSave_Success(t *testing.T) {
	s := openSampleStore(t)
	path := filepath.Join(t.TempDir(), "notes.dump")

	result, err := NewSaver().Save(context.Background(), s, path)
	require.NoError(t, err)

	assert.Equal(t, path, result.Path)
	onDisk, err := digest.File(path)
	require.NoError(t, err)
	assert.Equal(t, onDisk, result.Hash)
	assert.Empty(t, tempFiles(t, path), "temp files must be removed on success")
}

func TestSave_RepeatedSavesSameHash(t *testing.T) {
	s := openSampleStore(t)
	path := filepath.Join(t.TempDir(), "notes.dump")
	saver := NewSaver()

	first, err := saver.Save(context.Background(), s, path)
	require.NoError(t, err)
	second, err := saver.Save(context.Background(), s, path)
	require.NoError(t, err)

	assert.Equal(t, first.Hash, second.Hash)
}

func TestSave_OverwritesExistingTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.dump")
	require.NoError(t, os.WriteFile(path, []byte("stale contents that are longer than the dump body\n"), 0o644))

	d := &testutil.StableDumper{Name: "doc", Body: "{\"seq\":1}\n"}
	result, err := NewSaver().Save(context.Background(), d, path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
	assert.Equal(t, digest.Bytes(data), result.Hash)
}

func TestSave_DumpMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.dump")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	d := &testutil.FlakyDumper{}
	_, err := NewSaver().Save(context.Background(), d, path)
	require.Error(t, err)

	assert.True(t, IsIntegrity(err))
	assert.ErrorIs(t, err, ErrDumpMismatch)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.NotEqual(t, fe.Expected, fe.Actual)
	assert.Contains(t, err.Error(), fe.Expected.String())
	assert.Contains(t, err.Error(), fe.Actual.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data), "target must be untouched")
	assert.Len(t, tempFiles(t, path), 2, "both dumps stay for inspection")
	assert.Equal(t, 2, d.Calls())
}

func TestSave_DumpFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.dump")

	_, err := NewSaver().Save(context.Background(), testutil.FailingDumper{}, path)
	require.Error(t, err)

	assert.True(t, IsIO(err))
	assert.False(t, IsIntegrity(err))
	assert.ErrorIs(t, err, testutil.ErrDumpFailed)
	assert.Empty(t, tempFiles(t, path))
	assert.NoFileExists(t, path)
}

func TestSave_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "doc.dump")
	d := &testutil.StableDumper{Name: "doc"}

	_, err := NewSaver().Save(context.Background(), d, path)
	require.Error(t, err)
	assert.True(t, IsIO(err))
}

func TestSave_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	saver := NewSaver(WithMetrics(m))
	dir := t.TempDir()

	_, err := saver.Save(context.Background(), &testutil.StableDumper{Name: "doc"}, filepath.Join(dir, "ok.dump"))
	require.NoError(t, err)
	_, err = saver.Save(context.Background(), &testutil.FlakyDumper{}, filepath.Join(dir, "flaky.dump"))
	require.Error(t, err)
	_, err = saver.Save(context.Background(), testutil.FailingDumper{}, filepath.Join(dir, "fail.dump"))
	require.Error(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.Saves.WithLabelValues(metrics.SaveOK)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Saves.WithLabelValues(metrics.SaveDumpMismatch)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Saves.WithLabelValues(metrics.SaveError)))
}

func TestSaver_TempPathsUnique(t *testing.T) {
	saver := NewSaver(
		WithClock(testutil.FixedClock(testEpoch)),
		WithTokenGenerator(testutil.NewSequentialTokens("tok")),
	)

	first := saver.tempPaths("/data/doc.dump")
	second := saver.tempPaths("/data/doc.dump")

	assert.Equal(t, "/data/doc.dump.2026-10-16T10-00-00.000Z.tok-1.swp1", first[0])
	assert.Equal(t, "/data/doc.dump.2026-10-16T10-00-00.000Z.tok-1.swp2", first[1])
	assert.NotEqual(t, first, second)
}

func TestSaver_ConcurrentSavesDifferentPaths(t *testing.T) {
	saver := NewSaver()
	dir := t.TempDir()
	d := &testutil.StableDumper{Name: "doc", Clock: testutil.NewSteppingClock(testEpoch, time.Millisecond).Now}

	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		i := i
		go func() {
			_, err := saver.Save(context.Background(), d, filepath.Join(dir, "doc"+string(rune('a'+i))+".dump"))
			errs <- err
		}()
	}
	for i := 0; i < 4; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestDumpToFile(t *testing.T) {
	s := openSampleStore(t)
	path := filepath.Join(t.TempDir(), "notes.dump")

	require.NoError(t, DumpToFile(context.Background(), s, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"db_name":"notes"`)
	assert.Contains(t, string(data), `"content":"c"`)
}

func TestSave_WritesFirstDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.dump")
	d := &testutil.StableDumper{
		Name:  "doc",
		Body:  "{\"docs\":[{\"_id\":\"0\",\"position\":0,\"content\":\"\"}]}\n{\"seq\":1}\n",
		Clock: testutil.FixedClock(testEpoch),
	}

	_, err := NewSaver().Save(context.Background(), d, path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	testutil.AssertGolden(t, "save_stable_dump", data)
}

func TestSave_PostSaveMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.dump")
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	corrupt := func(src, dst string) error {
		if err := copyFile(src, dst); err != nil {
			return err
		}
		f, err := os.OpenFile(dst, os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		_, err = f.WriteString("{\"seq\":99}\n")
		return errors.Join(err, f.Close())
	}

	d := &testutil.StableDumper{Name: "doc", Body: "{\"seq\":1}\n"}
	_, err := NewSaver(WithMetrics(m), withCommit(corrupt)).Save(context.Background(), d, path)
	require.Error(t, err)

	assert.True(t, IsIntegrity(err))
	assert.ErrorIs(t, err, ErrPostSaveMismatch)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.NotEqual(t, fe.Expected, fe.Actual)
	assert.Contains(t, err.Error(), fe.Expected.String())
	assert.Contains(t, err.Error(), fe.Actual.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `{"seq":99}`, "target is already overwritten")
	assert.Equal(t, fe.Actual, digest.Bytes(data))
	assert.Empty(t, tempFiles(t, path))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Saves.WithLabelValues(metrics.SavePostMismatch)))
}

func TestSave_CommitFailureKeepsDumps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.dump")
	errDiskFull := errors.New("disk full")
	failing := func(src, dst string) error { return errDiskFull }

	d := &testutil.StableDumper{Name: "doc", Body: "{\"seq\":1}\n"}
	_, err := NewSaver(withCommit(failing)).Save(context.Background(), d, path)
	require.Error(t, err)

	assert.True(t, IsIO(err))
	assert.ErrorIs(t, err, errDiskFull)
	assert.Len(t, tempFiles(t, path), 2)
	assert.NoFileExists(t, path)
}
