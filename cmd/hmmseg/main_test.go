package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
)

const testCorpus = `迈向/v 充满/v 希望/n 的/u 新/a 世纪/n
[希望/n 工程/n]nz 救助/v 了/u 一/m 批/q 失学/v 儿童/n
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands_TrainCutAndManage(t *testing.T) {
	for _, tc := range []struct {
		driver string
		codec  string
	}{
		{"file", "gob"},
		{"sqlite", "msgpack"},
	} {
		t.Run(tc.driver+"/"+tc.codec, func(t *testing.T) {
			dir := t.TempDir()
			corpus := filepath.Join(dir, "corpus.txt")
			require.NoError(t, os.WriteFile(corpus, []byte(testCorpus), 0o600))

			global := []string{"--mode", "dev", "--data", dir, "--driver", tc.driver, "--dsn", "", "--codec", tc.codec, "--log-level", "error"}
			with := func(args ...string) []string {
				return append(append([]string{}, global...), args...)
			}

			out, err := execute(t, with("train", "--corpus", corpus, "--model", "toy", "--workers", "2")...)
			require.NoError(t, err)
			assert.Contains(t, out, `saved model "toy" (`+tc.codec)
			assert.Contains(t, out, "2 lines, 0 skipped")

			out, err = execute(t, with("cut", "--model", "toy", "救助失学儿童", "救助")...)
			require.NoError(t, err)
			assert.Equal(t, "救助/v 失学/v 儿童/n\n救助/v\n", out)

			out, err = execute(t, with("models", "list")...)
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSpace(out), "\n")
			require.Len(t, lines, 2)
			assert.True(t, strings.HasPrefix(lines[1], "toy "), lines[1])
			assert.Contains(t, lines[1], tc.codec)

			out, err = execute(t, with("models", "delete", "toy")...)
			require.NoError(t, err)
			assert.Equal(t, "deleted model \"toy\"\n", out)

			_, err = execute(t, with("cut", "--model", "toy", "救助")...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, taggererrors.ErrModelNotFound), err.Error())
			assert.Contains(t, errorHint(err), "hmmseg train")
		})
	}
}

func TestCommands_TrainRequiresCorpus(t *testing.T) {
	_, err := execute(t, "--data", t.TempDir(), "--driver", "file", "train", "--corpus", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open corpus")
}

func TestCommands_UnknownDriver(t *testing.T) {
	_, err := execute(t, "--data", t.TempDir(), "--driver", "mysql", "models", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model store driver")

	// Reset for the other tests sharing the root command.
	_, err = execute(t, "--driver", "file", "version")
	require.NoError(t, err)
}

func TestCommands_Version(t *testing.T) {
	out, err := execute(t, "--mode", "dev", "version")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestErrorHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"model not found", taggererrors.ModelNotFound("toy"), "hmmseg train"},
		{"store failure", taggererrors.Wrap(errors.New("database is locked"), taggererrors.ErrCodeInternal, "failed to get hmm_model"), "--dsn"},
		{"bad input", taggererrors.EmptyInput("cut called with empty text"), ""},
		{"plain", errors.New("boom"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := errorHint(tt.err)
			if tt.want == "" {
				assert.Empty(t, hint)
			} else {
				assert.Contains(t, hint, tt.want)
			}
		})
	}
}
