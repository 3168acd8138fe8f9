package pdfdoc

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Object is a PDF object. A nil Object is the null object.
type Object interface {
	isObject()
}

type (
	Name    string
	Integer int64
	Real    float64
	Bool    bool
	String  []byte
	Array   []Object
	Dict    map[Name]Object
)

// Reference points at an indirect object.
type Reference struct {
	Number     int
	Generation int
}

// Stream is a dictionary followed by raw, still encoded, data.
type Stream struct {
	Dict Dict
	Data []byte
}

func (Name) isObject()      {}
func (Integer) isObject()   {}
func (Real) isObject()      {}
func (Bool) isObject()      {}
func (String) isObject()    {}
func (Array) isObject()     {}
func (Dict) isObject()      {}
func (Reference) isObject() {}
func (*Stream) isObject()   {}

func (r Reference) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

// Clone returns a shallow copy of d.
func (d Dict) Clone() Dict {
	c := make(Dict, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

// Name returns the value of key if it is a name.
func (d Dict) Name(key Name) Name {
	n, _ := d[key].(Name)
	return n
}

func (d Dict) sortedKeys() []Name {
	keys := make([]Name, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// formatNumber writes v with at most four decimals and no exponent.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

// writeObject serializes obj. Dictionary keys are written in sorted
// order so equal objects always produce equal bytes.
func writeObject(b *bytes.Buffer, obj Object) {
	switch v := obj.(type) {
	case nil:
		b.WriteString("null")
	case Name:
		writeName(b, v)
	case Integer:
		b.WriteString(strconv.FormatInt(int64(v), 10))
	case Real:
		b.WriteString(formatNumber(float64(v)))
	case Bool:
		b.WriteString(strconv.FormatBool(bool(v)))
	case String:
		writeString(b, v)
	case Reference:
		b.WriteString(v.String())
	case Array:
		b.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeObject(b, e)
		}
		b.WriteByte(']')
	case Dict:
		b.WriteString("<<")
		for _, k := range v.sortedKeys() {
			writeName(b, k)
			b.WriteByte(' ')
			writeObject(b, v[k])
		}
		b.WriteString(">>")
	case *Stream:
		d := v.Dict.Clone()
		d["Length"] = Integer(len(v.Data))
		writeObject(b, d)
		b.WriteString("\nstream\n")
		b.Write(v.Data)
		b.WriteString("\nendstream")
	default:
		panic(fmt.Sprintf("pdfdoc: cannot serialize %T", obj))
	}
}

func writeName(b *bytes.Buffer, n Name) {
	b.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c < '!' || c > '~' || c == '#' || isDelimiter(c) {
			fmt.Fprintf(b, "#%02X", c)
			continue
		}
		b.WriteByte(c)
	}
}

// writeString writes printable strings as literals and anything else in
// hex form.
func writeString(b *bytes.Buffer, s String) {
	for _, c := range s {
		if c < ' ' || c > '~' {
			fmt.Fprintf(b, "<%X>", []byte(s))
			return
		}
	}
	b.WriteByte('(')
	for _, c := range s {
		if c == '(' || c == ')' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte(')')
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
