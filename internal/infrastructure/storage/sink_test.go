package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OperaLab/pkg/errors"
)

func TestCleanName(t *testing.T) {
	for in, want := range map[string]string{
		"r1/qc.csv":     "r1/qc.csv",
		" r1\\qc.csv ":  "r1/qc.csv",
		"r1/./qc.csv":   "r1/qc.csv",
		"./samples.csv": "samples.csv",
	} {
		got, err := CleanName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"", "/etc/passwd", "../x.csv", "r1/../../x.csv"} {
		_, err := CleanName(in)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidParam), in)
	}
}

func TestDirSink_Put(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDirSink(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "dir", sink.Name())

	loc, err := sink.Put(context.Background(), "report-1/qc_recovery.csv", ContentTypeCSV, []byte("a;b\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report-1", "qc_recovery.csv"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "a;b\n", string(data))

	_, err = sink.Put(context.Background(), "report-1/qc_recovery.csv", ContentTypeCSV, []byte("c\n"))
	require.NoError(t, err)
	data, _ = os.ReadFile(loc)
	assert.Equal(t, "c\n", string(data))
}

func TestDirSink_Errors(t *testing.T) {
	_, err := NewDirSink(" ", nil)
	assert.Error(t, err)

	sink, err := NewDirSink(t.TempDir(), nil)
	require.NoError(t, err)
	_, err = sink.Put(context.Background(), "../escape.csv", ContentTypeCSV, nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sink.Put(ctx, "x.csv", ContentTypeCSV, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCanceled))
}
