package signing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"
)

// CanonicalJSON serializes a flat payload with keys in lexicographic
// order. The byte format is frozen: keys are separated from values by
// ": " and entries by ", ", and non-ASCII runes are \u-escaped. Every
// signature ever issued was computed over this exact form, so any change
// here silently invalidates all of them.
func CanonicalJSON(payload map[string]interface{}) ([]byte, error) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		writeCanonicalString(&buf, k)
		buf.WriteString(": ")
		if err := writeCanonicalValue(&buf, payload[k]); err != nil {
			return nil, fmt.Errorf("canonicalize %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeCanonicalValue(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeCanonicalString(buf, val)
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		// JSON numbers decode to float64; keep integral values integral.
		if val == float64(int64(val)) {
			buf.WriteString(strconv.FormatInt(int64(val), 10))
			return nil
		}
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
	default:
		return fmt.Errorf("unsupported canonical value type %T", v)
	}
	return nil
}

// writeCanonicalString escapes the way the reference serializer does:
// short escapes for the usual control characters, \uXXXX for the rest
// and for everything outside ASCII.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			if r < 0x20 || r > 0x7e {
				if r > 0xffff {
					hi, lo := utf16.EncodeRune(r)
					fmt.Fprintf(buf, `\u%04x\u%04x`, hi, lo)
				} else {
					fmt.Fprintf(buf, `\u%04x`, r)
				}
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}
