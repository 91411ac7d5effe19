package wal

import (
	"fmt"
	"strconv"
	"strings"
)

// encodeRecord renders a record as a single line, newline included.
// Both fields are Go-quoted so commas and newlines inside keys or values
// never split a record.
func encodeRecord(key, value string) []byte {
	buf := make([]byte, 0, len(key)+len(value)+6)
	buf = strconv.AppendQuote(buf, key)
	buf = append(buf, ',')
	buf = strconv.AppendQuote(buf, value)
	return append(buf, '\n')
}

// decodeRecord parses one line without its trailing newline.
//
// Lines that do not start with a quote are read as the legacy unquoted
// "key,value" form, which is accepted only when it splits into exactly two
// fields.
func decodeRecord(line string) (Record, error) {
	if line == "" {
		return Record{}, fmt.Errorf("%w: empty line", ErrMalformedRecord)
	}
	if line[0] != '"' {
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			return Record{}, fmt.Errorf("%w: expected 2 fields, got %d", ErrMalformedRecord, len(parts))
		}
		return Record{Key: parts[0], Value: parts[1]}, nil
	}

	key, rest, err := unquoteField(line)
	if err != nil {
		return Record{}, fmt.Errorf("%w: key: %v", ErrMalformedRecord, err)
	}
	if !strings.HasPrefix(rest, ",") {
		return Record{}, fmt.Errorf("%w: missing separator", ErrMalformedRecord)
	}
	value, rest, err := unquoteField(rest[1:])
	if err != nil {
		return Record{}, fmt.Errorf("%w: value: %v", ErrMalformedRecord, err)
	}
	if rest != "" {
		return Record{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformedRecord, len(rest))
	}
	return Record{Key: key, Value: value}, nil
}

func unquoteField(s string) (string, string, error) {
	quoted, err := strconv.QuotedPrefix(s)
	if err != nil {
		return "", "", err
	}
	field, err := strconv.Unquote(quoted)
	if err != nil {
		return "", "", err
	}
	return field, s[len(quoted):], nil
}
