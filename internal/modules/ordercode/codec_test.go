package ordercode

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created2025 = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

func TestEncode(t *testing.T) {
	assert.Equal(t, "#ORD-2025-007", Encode(7, created2025))
	assert.Equal(t, "#ORD-2025-123456", Encode(123456, created2025))
	assert.Equal(t, "DOC-000042", EncodeTyped(PrefixDoc, 42))
	assert.Equal(t, "PHOTO-123456", EncodeTyped(PrefixPhoto, 123456))
	assert.Equal(t, "DOC-1234567", EncodeTyped(PrefixDoc, 1234567))
}

func TestEncodeZeroTimeUsesCurrentYear(t *testing.T) {
	want := fmt.Sprintf("#ORD-%04d-001", time.Now().Year())
	assert.Equal(t, want, Encode(1, time.Time{}))
}

func TestRoundTrip(t *testing.T) {
	ids := []int64{1, 7, 9, 10, 99, 100, 999, 1000, 42424, 123456, 999999, 1000000, 987654321, MaxID}
	for _, id := range ids {
		got, ok := Decode(Encode(id, created2025))
		require.True(t, ok, "generic %d", id)
		assert.Equal(t, id, got, "generic")

		for _, p := range []Prefix{PrefixDoc, PrefixPhoto} {
			got, ok := Decode(EncodeTyped(p, id))
			require.True(t, ok, "%s %d", p, id)
			assert.Equal(t, id, got, "typed")
		}
	}
}

func TestDecodeAcceptsLooseInput(t *testing.T) {
	cases := map[string]int64{
		"#ORD-2025-007":     7,
		"ord-2025-007":      7,
		"ORD 2025 007":      7,
		"#ord.2025.7":       7,
		"ORD2025007":        7,
		"  #ORD-2024-73":    73,
		"DOC-000042":        42,
		"doc000042":         42,
		"Photo 123":         123,
		"#PHOTO.000009":     9,
		"DOC  42":           42,
		"DOC--42":           42,
		"#ORD - 2025 - 007": 7,
	}
	for in, want := range cases {
		got, ok := Decode(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
}

func TestDecodeRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"ORD-25-007",
		"#ORD-2025-000",
		"DOC-000000",
		"INV-000042",
		"DOC-",
		"ORD-2025-007-extra",
		"DOC-12345678901",
		"payment DOC-000042",
	} {
		_, ok := Decode(in)
		assert.False(t, ok, in)
	}
}

func TestCanonical(t *testing.T) {
	got, ok := Canonical("doc 42")
	require.True(t, ok)
	assert.Equal(t, "DOC-000042", got)

	got, ok = Canonical("ord2024.73")
	require.True(t, ok)
	assert.Equal(t, "#ORD-2024-073", got)

	_, ok = Canonical("nope")
	assert.False(t, ok)
}

func TestPrefixFor(t *testing.T) {
	assert.Equal(t, PrefixPhoto, PrefixFor("photo"))
	assert.Equal(t, PrefixDoc, PrefixFor("DOCUMENT"))
	assert.Equal(t, PrefixDoc, PrefixFor("BANNER"))
}
