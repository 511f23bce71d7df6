// Package ordercode maps internal order ids to the codes customers see and type.
//
// Two schemes are supported and both decode back to the numeric id:
//
//	#ORD-2025-007   generic orders, year of creation + id padded to 3
//	DOC-000042      type-coded transfers, DOC or PHOTO + id padded to 6
//
// Input is case-insensitive, the leading '#' is optional and the separators
// between groups may be any run of '-', '.' and whitespace, or nothing.
package ordercode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Prefix is the literal that starts a type-coded order code.
type Prefix string

const (
	PrefixDoc   Prefix = "DOC"
	PrefixPhoto Prefix = "PHOTO"
)

// Scheme tells which format a parsed code used.
type Scheme int

const (
	SchemeGeneric Scheme = iota + 1
	SchemeTyped
)

// MaxID is the largest id the codecs round-trip (ten digits).
const MaxID int64 = 9_999_999_999

var (
	genericRe = regexp.MustCompile(`^#?ORD[-.\s]*(\d{4})[-.\s]*(\d{1,10})$`)
	typedRe   = regexp.MustCompile(`^#?(DOC|PHOTO)[-.\s]*(\d{1,10})$`)
)

// Code is a decoded order code.
type Code struct {
	Scheme Scheme
	ID     int64
	Year   int    // generic scheme only
	Prefix Prefix // typed scheme only
}

// String renders the canonical, upper-case form of the code.
func (c Code) String() string {
	if c.Scheme == SchemeTyped {
		return EncodeTyped(c.Prefix, c.ID)
	}
	return fmt.Sprintf("#ORD-%04d-%03d", c.Year, c.ID)
}

// Encode renders the generic code of an order. A zero createdAt uses the current year.
func Encode(id int64, createdAt time.Time) string {
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return Code{Scheme: SchemeGeneric, ID: id, Year: createdAt.Year()}.String()
}

func EncodeTyped(prefix Prefix, id int64) string {
	return fmt.Sprintf("%s-%06d", prefix, id)
}

// PrefixFor picks the typed prefix used for an order whose first item has printType.
func PrefixFor(printType string) Prefix {
	if strings.EqualFold(printType, "PHOTO") {
		return PrefixPhoto
	}
	return PrefixDoc
}

// Parse decodes either scheme. The whole input must be a code.
func Parse(code string) (Code, bool) {
	s := strings.ToUpper(strings.TrimSpace(code))
	if m := genericRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		id, ok := parseID(m[2])
		if !ok {
			return Code{}, false
		}
		return Code{Scheme: SchemeGeneric, ID: id, Year: year}, true
	}
	if m := typedRe.FindStringSubmatch(s); m != nil {
		id, ok := parseID(m[2])
		if !ok {
			return Code{}, false
		}
		return Code{Scheme: SchemeTyped, ID: id, Prefix: Prefix(m[1])}, true
	}
	return Code{}, false
}

// Decode returns the order id a code refers to. Callers treat false as "not found".
func Decode(code string) (int64, bool) {
	c, ok := Parse(code)
	if !ok {
		return 0, false
	}
	return c.ID, true
}

// Canonical normalizes a code to the canonical form of its own scheme.
func Canonical(code string) (string, bool) {
	c, ok := Parse(code)
	if !ok {
		return "", false
	}
	return c.String(), true
}

func parseID(digits string) (int64, bool) {
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id <= 0 || id > MaxID {
		return 0, false
	}
	return id, true
}
