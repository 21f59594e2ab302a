package httpclient

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	errNilTransport = errors.New("http transport is nil")

	pathParamPattern = regexp.MustCompile(`\{([^{}]+)\}`)
)

func errInvalidMethod(m Method) error {
	return fmt.Errorf("invalid http method %d", uint8(m))
}

// ExpandPath substitutes {name} placeholders in path from values. Label
// ({.name}), matrix ({;name}) and explode ({name*}) styles are honoured.
// Placeholders without a value are left untouched.
func ExpandPath(path string, values map[string]any) string {
	if len(values) == 0 || !strings.Contains(path, "{") {
		return path
	}
	return pathParamPattern.ReplaceAllStringFunc(path, func(token string) string {
		name := token[1 : len(token)-1]
		explode := strings.HasSuffix(name, "*")
		name = strings.TrimSuffix(name, "*")

		prefix := byte(0)
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, ";") {
			prefix = name[0]
			name = name[1:]
		}

		value, ok := values[name]
		if !ok || isNil(value) {
			return token
		}
		return serializePathValue(name, value, prefix, explode)
	})
}

func serializePathValue(name string, value any, prefix byte, explode bool) string {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items = append(items, url.PathEscape(stringify(rv.Index(i).Interface())))
		}
		switch prefix {
		case '.':
			if explode {
				return "." + strings.Join(items, ".")
			}
			return "." + strings.Join(items, ",")
		case ';':
			if explode {
				parts := make([]string, len(items))
				for i, item := range items {
					parts[i] = ";" + name + "=" + item
				}
				return strings.Join(parts, "")
			}
			return ";" + name + "=" + strings.Join(items, ",")
		default:
			return strings.Join(items, ",")
		}
	case reflect.Map:
		keys, vals := sortedMap(rv)
		pairs := make([]string, 0, len(keys))
		flat := make([]string, 0, 2*len(keys))
		for i, k := range keys {
			k = url.PathEscape(k)
			v := url.PathEscape(vals[i])
			pairs = append(pairs, k+"="+v)
			flat = append(flat, k, v)
		}
		switch prefix {
		case '.':
			if explode {
				return "." + strings.Join(pairs, ".")
			}
			return "." + strings.Join(flat, ",")
		case ';':
			if explode {
				return ";" + strings.Join(pairs, ";")
			}
			return ";" + name + "=" + strings.Join(flat, ",")
		default:
			if explode {
				return strings.Join(pairs, ",")
			}
			return strings.Join(flat, ",")
		}
	default:
		s := url.PathEscape(stringify(value))
		switch prefix {
		case '.':
			return "." + s
		case ';':
			return ";" + name + "=" + s
		default:
			return s
		}
	}
}

// EncodeQuery serializes query parameters: arrays repeat the key, maps use
// the deepObject form key[field]=value, nil values are dropped.
func EncodeQuery(query map[string]any) url.Values {
	values := url.Values{}
	for key, value := range query {
		if isNil(value) {
			continue
		}
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				values.Add(key, stringify(rv.Index(i).Interface()))
			}
		case reflect.Map:
			keys, vals := sortedMap(rv)
			for i, k := range keys {
				values.Add(key+"["+k+"]", vals[i])
			}
		default:
			values.Add(key, stringify(value))
		}
	}
	return values
}

func sortedMap(rv reflect.Value) ([]string, []string) {
	entries := make(map[string]string, rv.Len())
	keys := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := stringify(iter.Key().Interface())
		entries[k] = stringify(iter.Value().Interface())
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]string, len(keys))
	for i, k := range keys {
		vals[i] = entries[k]
	}
	return keys, vals
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
