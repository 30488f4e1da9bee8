package codec

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/hmmseg/plugin/hmm"
)

func trainedModel(t *testing.T) *hmm.Model {
	t.Helper()
	lines := []string{
		"迈向/v 充满/v 希望/n 的/u 新/a 世纪/n",
		"[希望/n 工程/n]nz 救助/v 了/u 一九九八/m 批/q 失学/v 儿童/n",
	}
	m, _, err := hmm.NewEstimator(2, slog.New(slog.NewTextHandler(io.Discard, nil))).Estimate(context.Background(), lines)
	require.NoError(t, err)
	return m
}

func TestCodec_RoundTrip(t *testing.T) {
	m := trainedModel(t)
	wantInit, wantTrans, wantEmit := m.Tables()

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			c, err := Get(name)
			require.NoError(t, err)
			assert.Equal(t, name, c.Name())

			var buf bytes.Buffer
			require.NoError(t, c.Encode(&buf, m))

			got, err := c.Decode(&buf)
			require.NoError(t, err)

			gotInit, gotTrans, gotEmit := got.Tables()
			assert.Equal(t, wantInit, gotInit)
			assert.Equal(t, wantTrans, gotTrans)
			assert.Equal(t, wantEmit, gotEmit)
			assert.True(t, got.Knows("一九九八"))
		})
	}
}

func TestCodec_DecodeGarbage(t *testing.T) {
	for _, name := range Names() {
		c, err := Get(name)
		require.NoError(t, err)

		_, err = c.Decode(bytes.NewReader([]byte("not a model")))
		assert.Error(t, err, name)

		_, err = c.Decode(bytes.NewReader(nil))
		assert.Error(t, err, name)
	}
}

func TestCodec_EmptyModel(t *testing.T) {
	m := hmm.NewModel()
	var buf bytes.Buffer
	c, err := Get(Gob)
	require.NoError(t, err)
	require.NoError(t, c.Encode(&buf, m))

	_, err = c.Decode(&buf)
	require.NoError(t, err, "an empty model is still a valid blob")
}

func TestGet_Unknown(t *testing.T) {
	_, err := Get("json")
	assert.Error(t, err)
	assert.Equal(t, []string{"gob", "msgpack"}, Names())
}
