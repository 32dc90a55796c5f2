// Package jsondoc edits JSON documents owned by other programs. Values are
// addressed by path and spliced into the original bytes, so members the
// caller does not touch keep their exact encoding.
package jsondoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/DanSnow/skill-manager/internal/errors"
)

const indentUnit = "  "

// Empty reports whether doc has no content besides whitespace.
func Empty(doc []byte) bool {
	return len(bytes.TrimSpace(doc)) == 0
}

// Check returns a FormatError unless doc is a JSON object.
func Check(path string, doc []byte) error {
	if !gjson.ValidBytes(doc) {
		return errors.WrapFormat(path, fmt.Errorf("invalid JSON"))
	}
	if !gjson.ParseBytes(doc).IsObject() {
		return errors.WrapFormat(path, fmt.Errorf("top level value is not an object"))
	}
	return nil
}

// Pretty reports whether doc is laid out over several lines.
func Pretty(doc []byte) bool {
	return bytes.IndexByte(bytes.TrimSpace(doc), '\n') >= 0
}

// Indent returns the indentation for a member nested depth levels deep.
func Indent(depth int) string {
	return strings.Repeat(indentUnit, depth)
}

// Encode marshals v for placement at depth, matching the layout of doc.
func Encode(doc []byte, v any, depth int) ([]byte, error) {
	if !Pretty(doc) {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, Indent(depth), indentUnit)
}

// Path escapes keys into a gjson/sjson path.
func Path(keys ...string) string {
	escaped := make([]string, len(keys))
	for i, k := range keys {
		escaped[i] = gjson.Escape(k)
	}
	return strings.Join(escaped, ".")
}

// Get looks up a member of the object named obj ("" for the root).
func Get(doc []byte, obj, key string) gjson.Result {
	if obj == "" {
		return gjson.GetBytes(doc, Path(key))
	}
	return gjson.GetBytes(doc, Path(obj, key))
}

// SetMember sets key inside the top level object member obj ("" for the
// root object) to the raw JSON value. An existing value is replaced in place.
// A new member is appended after the last one using the indentation of
// depth, the nesting level of key. A missing obj is created.
func SetMember(doc []byte, obj, key string, value []byte, depth int) ([]byte, error) {
	if existing := Get(doc, obj, key); existing.Exists() {
		p := Path(key)
		if obj != "" {
			p = Path(obj, key)
		}
		return sjson.SetRawBytes(doc, p, value)
	}

	if obj == "" {
		start := bytes.IndexByte(doc, '{')
		end := bytes.LastIndexByte(doc, '}')
		if start < 0 || end < start {
			return nil, fmt.Errorf("document is not an object")
		}
		return insertMember(doc, start, end+1, key, value, depth), nil
	}

	parent := gjson.GetBytes(doc, Path(obj))
	if !parent.Exists() {
		var objRaw []byte
		if Pretty(doc) {
			objRaw = []byte("{\n" + Indent(depth) + quoteKey(key) + ": " + string(value) + "\n" + Indent(depth-1) + "}")
		} else {
			objRaw = []byte("{" + quoteKey(key) + ":" + string(value) + "}")
		}
		return SetMember(doc, "", obj, objRaw, depth-1)
	}
	if !parent.IsObject() {
		return nil, fmt.Errorf("%s is not an object", obj)
	}
	if parent.Index == 0 {
		return sjson.SetRawBytes(doc, Path(obj, key), value)
	}
	return insertMember(doc, parent.Index, parent.Index+len(parent.Raw), key, value, depth), nil
}

// insertMember appends "key": value to the object spanning doc[start:end].
func insertMember(doc []byte, start, end int, key string, value []byte, depth int) []byte {
	objRaw := doc[start:end]
	inner := bytes.TrimSpace(objRaw[1 : len(objRaw)-1])

	var b bytes.Buffer
	b.Grow(len(doc) + len(key) + len(value) + 16)
	b.Write(doc[:start])
	if Pretty(doc) {
		b.Write(bytes.TrimRight(objRaw[:len(objRaw)-1], " \t\r\n"))
		if len(inner) > 0 {
			b.WriteByte(',')
		}
		b.WriteString("\n" + Indent(depth))
		b.WriteString(quoteKey(key))
		b.WriteString(": ")
		b.Write(value)
		b.WriteString("\n" + Indent(depth-1) + "}")
	} else {
		b.WriteByte('{')
		b.Write(inner)
		if len(inner) > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quoteKey(key))
		b.WriteByte(':')
		b.Write(value)
		b.WriteByte('}')
	}
	b.Write(doc[end:])
	return b.Bytes()
}

func quoteKey(k string) string {
	data, _ := json.Marshal(k)
	return string(data)
}

// Array renders raw elements as a JSON array at depth.
func Array(doc []byte, elements [][]byte, depth int) []byte {
	if len(elements) == 0 {
		return []byte("[]")
	}
	if !Pretty(doc) {
		return append(append([]byte("["), bytes.Join(elements, []byte(","))...), ']')
	}
	sep := []byte(",\n" + Indent(depth+1))
	var b bytes.Buffer
	b.WriteString("[\n" + Indent(depth+1))
	b.Write(bytes.Join(elements, sep))
	b.WriteString("\n" + Indent(depth) + "]")
	return b.Bytes()
}
