package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, "", nil)
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = Open(ctx, "LOCAL", json.RawMessage(`{"root_path":`+quote(t.TempDir())+`}`))
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "local", b.Type())

	b, err = Open(ctx, "local", nil)
	assert.Error(t, err)
	assert.Nil(t, b)

	_, err = Open(ctx, "smb", nil)
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Open(ctx, "s3", json.RawMessage(`{"endpoint":"http://127.0.0.1:1"}`))
	assert.Error(t, err, "bucket is required")
}

func TestKnown(t *testing.T) {
	assert.True(t, Known("local"))
	assert.True(t, Known(" S3 "))
	assert.False(t, Known(""))
	assert.False(t, Known("smb"))
}

func quote(s string) string {
	out, _ := json.Marshal(s)
	return string(out)
}
