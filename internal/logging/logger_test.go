package logging

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/japanese"
)

var fixedNow = time.Date(2025, 4, 1, 9, 5, 7, 0, time.Local)

func TestFileName(t *testing.T) {
	assert.Equal(t, "処理ログ_20250401_090507.txt", FileName(fixedNow))
}

func TestOpen_UTF8(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	rl, err := Open(Options{Dir: dir, Encoding: "utf-8", Console: &console, Now: fixedNow})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "処理ログ_20250401_090507.txt"), rl.Path)
	assert.NotEmpty(t, rl.RunID)

	rl.Info("HRTool起動", zap.Int("files", 2))
	rl.Debug("hidden")
	require.NoError(t, rl.Close())

	data, err := os.ReadFile(rl.Path)
	require.NoError(t, err)
	line := string(data)
	assert.Contains(t, line, " | INFO | HRTool起動")
	assert.Contains(t, line, `"files": 2`)
	assert.Contains(t, line, rl.RunID)
	assert.NotContains(t, line, "hidden")
	assert.Equal(t, line, console.String())
}

func TestOpen_CP932(t *testing.T) {
	dir := t.TempDir()

	rl, err := Open(Options{Dir: dir, Encoding: "cp932", Console: io.Discard, Now: fixedNow})
	require.NoError(t, err)
	rl.Info("処理完了")
	rl.Warn("絵文字😀は置換")
	require.NoError(t, rl.Close())

	data, err := os.ReadFile(rl.Path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "処理完了", "file must not be UTF-8")

	decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(data)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "処理完了")
	assert.Contains(t, string(decoded), "絵文字")
}

func TestOpen_Verbose(t *testing.T) {
	rl, err := Open(Options{Dir: t.TempDir(), Encoding: "utf-8", Console: io.Discard, Verbose: true, Now: fixedNow})
	require.NoError(t, err)
	rl.Debug("詳細")
	require.NoError(t, rl.Close())

	data, err := os.ReadFile(rl.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DEBUG | 詳細")
}

func TestOpen_AppendsToExistingFile(t *testing.T) {
	dir := t.TempDir()
	for _, msg := range []string{"first", "second"} {
		rl, err := Open(Options{Dir: dir, Encoding: "utf-8", Console: io.Discard, Now: fixedNow})
		require.NoError(t, err)
		rl.Info(msg)
		require.NoError(t, rl.Close())
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName(fixedNow)))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsole(&buf, false)
	log.Info("ユーザーがキャンセルしました")
	log.Debug("skip")
	assert.Contains(t, buf.String(), "INFO | ユーザーがキャンセルしました")
	assert.NotContains(t, buf.String(), "skip")
}
