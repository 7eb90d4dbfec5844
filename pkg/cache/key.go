package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// KeyPrefix namespaces every digest produced by Key.Digest.
const KeyPrefix = "cbbd:"

// Key identifies one logical read operation: the qualified operation name,
// its positional arguments in call order and its keyword arguments.
type Key struct {
	// Operation is the qualified operation name (e.g., "Teams.GetRoster")
	Operation string

	// Args are the positional arguments in call order
	Args []any

	// Kwargs are the keyword arguments; their order never affects the key
	Kwargs map[string]any
}

// NewKey builds a Key from an operation name and positional arguments.
func NewKey(operation string, args ...any) Key {
	return Key{Operation: operation, Args: args}
}

// With returns a copy of k carrying the given keyword arguments.
// Nil values are skipped so that an omitted optional argument and an
// explicit nil produce the same key.
func (k Key) With(kwargs map[string]any) Key {
	if len(kwargs) == 0 {
		return k
	}
	merged := make(map[string]any, len(k.Kwargs)+len(kwargs))
	for name, v := range k.Kwargs {
		merged[name] = v
	}
	for name, v := range kwargs {
		if v == nil {
			continue
		}
		merged[name] = v
	}
	k.Kwargs = merged
	return k
}

// String renders the key deterministically.
// Format: operation|args=[a0,a1]|kwargs=[k1=v1,k2=v2]
//
// Strings are quoted so that 1 and "1" render differently. Pointers render
// the value they point to.
// Keyword arguments are sorted by name.
//
// Example:
//
//	Games.GetGames|args=[]|kwargs=[season=2024,team="Duke"]
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Operation)

	b.WriteString("|args=[")
	for i, arg := range k.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(renderValue(arg))
	}
	b.WriteString("]")

	b.WriteString("|kwargs=[")
	if len(k.Kwargs) > 0 {
		names := make([]string, 0, len(k.Kwargs))
		for name := range k.Kwargs {
			names = append(names, name)
		}
		sort.Strings(names)

		for i, name := range names {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(name)
			b.WriteByte('=')
			b.WriteString(renderValue(k.Kwargs[name]))
		}
	}
	b.WriteString("]")

	return b.String()
}

// Digest returns the bounded-length store key: KeyPrefix + hex(sha256(String())).
func (k Key) Digest() string {
	sum := sha256.Sum256([]byte(k.String()))
	return KeyPrefix + hex.EncodeToString(sum[:])
}

// renderValue formats a single argument by value. Pointers and interfaces
// are followed, so two pointers to equal values render the same; map keys
// are sorted.
func renderValue(v any) string {
	var b strings.Builder
	writeValue(&b, reflect.ValueOf(v), 0)
	return b.String()
}

// maxRenderDepth stops cyclic pointer graphs.
const maxRenderDepth = 32

func writeValue(b *strings.Builder, v reflect.Value, depth int) {
	if !v.IsValid() {
		b.WriteString("nil")
		return
	}
	if depth > maxRenderDepth {
		b.WriteString("...")
		return
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			b.WriteString("nil")
			return
		}
		if v.Kind() == reflect.Pointer {
			b.WriteByte('&')
		}
		writeValue(b, v.Elem(), depth+1)

	case reflect.Struct:
		if v.CanInterface() {
			if t, ok := v.Interface().(time.Time); ok {
				b.WriteString(t.UTC().Format(time.RFC3339Nano))
				return
			}
		}
		b.WriteString(v.Type().String())
		b.WriteByte('{')
		for i := 0; i < v.NumField(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(v.Type().Field(i).Name)
			b.WriteByte(':')
			writeValue(b, v.Field(i), depth+1)
		}
		b.WriteByte('}')

	case reflect.Map:
		if v.IsNil() {
			b.WriteString("nil")
			return
		}
		entries := make([]string, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			var e strings.Builder
			writeValue(&e, iter.Key(), depth+1)
			e.WriteByte(':')
			writeValue(&e, iter.Value(), depth+1)
			entries = append(entries, e.String())
		}
		sort.Strings(entries)
		b.WriteString("map{")
		b.WriteString(strings.Join(entries, ","))
		b.WriteByte('}')

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			b.WriteString("nil")
			return
		}
		b.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			writeValue(b, v.Index(i), depth+1)
		}
		b.WriteByte(']')

	case reflect.String:
		b.WriteString(strconv.Quote(v.String()))

	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		// No value semantics; identity is all there is.
		fmt.Fprintf(b, "%s(%#x)", v.Type(), v.Pointer())

	default:
		// Unexported fields cannot be interfaced; format through reflect.
		fmt.Fprintf(b, "%#v", formatScalar(v))
	}
}

// formatScalar returns the underlying bool or number of a scalar kind.
func formatScalar(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Complex64, reflect.Complex128:
		return v.Complex()
	}
	return v.String()
}
