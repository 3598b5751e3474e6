package mapreduce

import (
	"errors"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/golangplus/errors"
)

var (
	// ErrBadFormat is the cause of every parse failure: a record line without
	// a key/value separator, or a token a Deserializer rejects.
	ErrBadFormat = errors.New("bad record format")
	// ErrBadKey is returned when a serialized key is empty or contains
	// whitespace, or a serialized value contains a line break.
	ErrBadKey = errors.New("bad record key")
)

// Serializer converts a typed value into a single-line text token.
type Serializer[T any] func(T) string

// Deserializer parses a text token produced by the paired Serializer.
type Deserializer[T any] func(string) (T, error)

// KeyHasher maps a key to an integer used only to select a partition. The
// result may be negative. Keys equal under the job's Comparator must hash
// identically.
type KeyHasher[T any] func(T) int

// Comparator returns a negative number, zero or a positive number when a is
// less than, equal to or greater than b.
type Comparator[T any] func(a, b T) int

// Codec pairs a Serializer with its inverse.
type Codec[T any] struct {
	Serialize   Serializer[T]
	Deserialize Deserializer[T]
}

// StringCodec is the identity codec.
var StringCodec = Codec[string]{
	Serialize: func(s string) string { return s },
	Deserialize: func(s string) (string, error) {
		return s, nil
	},
}

// IntCodec encodes ints in decimal.
var IntCodec = Codec[int]{
	Serialize: strconv.Itoa,
	Deserialize: func(s string) (int, error) {
		i, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, errorsp.WithStacksAndMessage(ErrBadFormat, "int %q: %v", s, err)
		}
		return i, nil
	},
}

// Int64Codec encodes int64s in decimal.
var Int64Codec = Codec[int64]{
	Serialize: func(i int64) string { return strconv.FormatInt(i, 10) },
	Deserialize: func(s string) (int64, error) {
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, errorsp.WithStacksAndMessage(ErrBadFormat, "int64 %q: %v", s, err)
		}
		return i, nil
	},
}

// HashString is the FNV-1a hash of s reinterpreted as a signed 32-bit value,
// so about half of all keys hash negative.
func HashString(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(int32(h.Sum32()))
}

// HashInt is the identity KeyHasher of int keys.
func HashInt(i int) int {
	return i
}

// ValidKey checks that a serialized key can be stored as the first field of
// a record line.
func ValidKey(key string) error {
	if key == "" {
		return errorsp.WithStacksAndMessage(ErrBadKey, "empty key")
	}
	if strings.IndexFunc(key, isSpace) >= 0 {
		return errorsp.WithStacksAndMessage(ErrBadKey, "key %q contains whitespace", key)
	}
	return nil
}

// ValidValue checks that a serialized value fits on one record line and is
// read back unchanged, i.e. it has no line break and no leading whitespace.
func ValidValue(val string) error {
	if strings.ContainsAny(val, "\r\n") {
		return errorsp.WithStacksAndMessage(ErrBadKey, "value %q contains a line break", val)
	}
	if val != "" && isSpace(rune(val[0])) {
		return errorsp.WithStacksAndMessage(ErrBadKey, "value %q starts with whitespace", val)
	}
	return nil
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// SplitRecord splits a record line (without its trailing newline) on the
// first whitespace run.
func SplitRecord(line string) (key, val string, err error) {
	i := strings.IndexFunc(line, isSpace)
	if i <= 0 {
		return "", "", errorsp.WithStacksAndMessage(ErrBadFormat, "no key/value separator in %q", line)
	}
	j := i
	for j < len(line) && isSpace(rune(line[j])) {
		j++
	}
	return line[:i], line[j:], nil
}
