package sfo

import (
	"encoding/hex"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ssargent/sfoedit/pkg/layout"
)

// Edit validates v against the type of key and stores it. Accepted inputs:
//   - uint32 entries: any Go integer or integral float in [0, 4294967295]
//   - uint64 entries: any Go integer, integral float, *big.Int or decimal
//     string in [0, 18446744073709551615]
//   - utf8 entries: a string of at most max length - 1 bytes
//   - raw entries: []byte, or a slice of integers in [0, 255], of exactly
//     max length elements
//
// Nothing is changed when Edit returns an error.
func (d *Document) Edit(key string, v interface{}) error {
	e, err := d.lookup(key)
	if err != nil {
		return err
	}

	t := ValueTypeOf(key, e.ParamFormat)
	value, err := validate(key, t, e, v)
	if err != nil {
		return err
	}

	n := d.st.indexOf[key]
	d.st.values[key] = value
	if t == TypeUTF8 {
		d.st.index[n].ParamLength = uint32(len(value.(layout.String))) + 1
	}

	d.log.WithFields(logrus.Fields{
		"key":  key,
		"type": t.String(),
	}).Debug("edited entry")
	return nil
}

func validate(key string, t ValueType, e IndexEntry, v interface{}) (layout.Value, error) {
	switch t {
	case TypeUint32:
		return validateUint32(key, v)
	case TypeUint64:
		return validateUint64(key, v)
	case TypeUTF8:
		return validateUTF8(key, e, v)
	case TypeRaw:
		return validateRaw(key, e, v)
	default:
		return nil, invalid(key, "param format %s is not editable", e.ParamFormat)
	}
}

func validateUint32(key string, v interface{}) (layout.Value, error) {
	if _, ok := v.(*big.Int); ok {
		return nil, invalid(key, "value can not be an arbitrary-precision integer")
	}
	n, ok := toBigInt(v, false)
	if !ok {
		return nil, invalid(key, "value must be a number")
	}
	if n.Sign() < 0 || n.Cmp(big.NewInt(math.MaxUint32)) > 0 {
		return nil, invalid(key, "value must be at least 0 and at most %d", uint32(math.MaxUint32))
	}
	return layout.Uint32(n.Uint64()), nil
}

func validateUint64(key string, v interface{}) (layout.Value, error) {
	n, ok := toBigInt(v, true)
	if !ok {
		return nil, invalid(key, "value must be an integer")
	}
	if n.Sign() < 0 || !n.IsUint64() {
		return nil, invalid(key, "value must be at least 0 and at most %d", uint64(math.MaxUint64))
	}
	return layout.Uint64(n.Uint64()), nil
}

func validateUTF8(key string, e IndexEntry, v interface{}) (layout.Value, error) {
	s, ok := v.(string)
	if !ok {
		return nil, invalid(key, "value must be a string")
	}
	if !utf8.ValidString(s) {
		return nil, invalid(key, "value must be valid UTF-8")
	}
	if strings.IndexByte(s, 0) >= 0 {
		return nil, invalid(key, "value must not contain a zero byte")
	}
	maxLen := int(e.ParamMaxLength) - 1
	if len(s) > maxLen {
		return nil, invalid(key, "string length must be at most %d", maxLen)
	}
	return layout.String(s), nil
}

func validateRaw(key string, e IndexEntry, v interface{}) (layout.Value, error) {
	if b, ok := v.([]byte); ok {
		if len(b) != int(e.ParamMaxLength) {
			return nil, invalid(key, "value must have %d elements", e.ParamMaxLength)
		}
		out := make([]byte, len(b))
		copy(out, b)
		return layout.Bytes(out), nil
	}

	rv := reflect.ValueOf(v)
	if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, invalid(key, "value must be an array")
	}
	if rv.Len() != int(e.ParamMaxLength) {
		return nil, invalid(key, "value must have %d elements", e.ParamMaxLength)
	}

	out := make([]byte, rv.Len())
	for i := range out {
		n, ok := toBigInt(rv.Index(i).Interface(), false)
		if !ok || n.Sign() < 0 || n.Cmp(big.NewInt(255)) > 0 {
			return nil, invalid(key, "all elements must be a number that is at least 0 and at most 255")
		}
		out[i] = byte(n.Uint64())
	}
	return layout.Bytes(out), nil
}

// toBigInt converts any Go integer, or a float holding an integral value, to
// a big.Int. Big integers and decimal strings are accepted when wide is set.
func toBigInt(v interface{}, wide bool) (*big.Int, bool) {
	switch n := v.(type) {
	case int:
		return big.NewInt(int64(n)), true
	case int8:
		return big.NewInt(int64(n)), true
	case int16:
		return big.NewInt(int64(n)), true
	case int32:
		return big.NewInt(int64(n)), true
	case int64:
		return big.NewInt(n), true
	case uint:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Int).SetUint64(n), true
	case float32:
		return floatToBigInt(float64(n))
	case float64:
		return floatToBigInt(n)
	case *big.Int:
		if wide && n != nil {
			return new(big.Int).Set(n), true
		}
	case string:
		if wide {
			return new(big.Int).SetString(strings.TrimSpace(n), 10)
		}
	}
	return nil, false
}

func floatToBigInt(f float64) (*big.Int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, false
	}
	n, _ := big.NewFloat(f).Int(nil)
	return n, true
}

// ParseValue converts command line text into an Edit input for type t.
// Integers accept decimal or 0x-prefixed hex, raw values are hex strings.
func ParseValue(t ValueType, s string) (interface{}, error) {
	switch t {
	case TypeUint32, TypeUint64:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidValue, "parse %s %q", t, s)
		}
		return n, nil
	case TypeUTF8:
		return s, nil
	case TypeRaw:
		b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidValue, "parse raw %q", s)
		}
		return b, nil
	default:
		return nil, errors.Wrapf(ErrInvalidValue, "%s values can not be parsed", t)
	}
}

// Native converts a decoded value into plain Go data suitable for JSON or
// YAML output. Byte values become []int so the output can be fed back to Edit.
func Native(v layout.Value) interface{} {
	switch x := v.(type) {
	case layout.Bytes:
		out := make([]int, len(x))
		for i, b := range x {
			out[i] = int(b)
		}
		return out
	case layout.String:
		return string(x)
	case layout.Uint16:
		return uint16(x)
	case layout.Uint32:
		return uint32(x)
	case layout.Uint64:
		return uint64(x)
	case layout.Int16:
		return int16(x)
	case layout.Int32:
		return int32(x)
	case layout.Int64:
		return int64(x)
	case layout.Address:
		return x.Start
	case layout.Record:
		out := make(map[string]interface{}, len(x))
		for k, fv := range x {
			out[k] = Native(fv)
		}
		return out
	default:
		return nil
	}
}
