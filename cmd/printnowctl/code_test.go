package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestCodeEncode(t *testing.T) {
	out, err := execute(t, "code", "encode", "42", "--year", "2025")
	require.NoError(t, err)
	assert.Equal(t, "#ORD-2025-042", out)

	out, err = execute(t, "code", "encode", "42", "--prefix", "photo")
	require.NoError(t, err)
	assert.Equal(t, "PHOTO-000042", out)

	_, err = execute(t, "code", "encode", "0")
	assert.Error(t, err)

	_, err = execute(t, "code", "encode", "1", "--prefix", "BANNER")
	assert.Error(t, err)
}

func TestCodeDecode(t *testing.T) {
	for _, code := range []string{"#ORD-2025-042", "doc000042", "PHOTO-42"} {
		out, err := execute(t, "code", "decode", code)
		require.NoError(t, err, code)
		assert.Equal(t, "42", out, code)
	}

	_, err := execute(t, "code", "decode", "garbage")
	assert.Error(t, err)
}

func TestMarkPaidNeedsDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := execute(t, "mark-paid", "DOC-000042", "--amount", "1000", "--database-url", "")
	assert.ErrorContains(t, err, "DATABASE_URL")
}
