package codec

import (
	"fmt"
	"math"
)

// PropertyValueKind discriminates the PropertyValue union.
type PropertyValueKind byte

const (
	PVNull PropertyValueKind = iota
	PVBool
	PVInt
	PVFloat
	PVString
	PVList
	PVMap
)

// PropertyValue is the tagged union of values a vertex or edge property can
// hold: Null, Bool, Int, Float, String, List<PropertyValue> or
// Map<string, PropertyValue>.
type PropertyValue struct {
	Kind PropertyValueKind
	B    bool
	I    int64
	F    float64
	S    string
	List []PropertyValue
	Map  map[string]PropertyValue
}

// Null returns the Null property value.
func Null() PropertyValue { return PropertyValue{Kind: PVNull} }

// Bool wraps a boolean property value.
func Bool(b bool) PropertyValue { return PropertyValue{Kind: PVBool, B: b} }

// Int wraps an integer property value.
func Int(i int64) PropertyValue { return PropertyValue{Kind: PVInt, I: i} }

// Float wraps a floating point property value.
func Float(f float64) PropertyValue { return PropertyValue{Kind: PVFloat, F: f} }

// String wraps a string property value.
func String(s string) PropertyValue { return PropertyValue{Kind: PVString, S: s} }

// List wraps a list of property values.
func List(items ...PropertyValue) PropertyValue {
	return PropertyValue{Kind: PVList, List: items}
}

// Map wraps a string-keyed map of property values.
func Map(m map[string]PropertyValue) PropertyValue {
	return PropertyValue{Kind: PVMap, Map: m}
}

// IsNull reports whether the value is the Null variant; SetProperty* deltas
// carrying a Null value encode property removal rather than assignment.
func (v PropertyValue) IsNull() bool { return v.Kind == PVNull }

// Equal reports deep equality, used by the round-trip decode(encode(d)) == d
// law and by tests.
func (v PropertyValue) Equal(o PropertyValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case PVNull:
		return true
	case PVBool:
		return v.B == o.B
	case PVInt:
		return v.I == o.I
	case PVFloat:
		return v.F == o.F
	case PVString:
		return v.S == o.S
	case PVList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case PVMap:
		if len(v.Map) != len(o.Map) {
			return false
		}
		for k, vv := range v.Map {
			ov, ok := o.Map[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// WritePropertyValue writes a PropertyValue using the same tagged-union
// convention as the scalar writers: a one-byte kind discriminator, then a
// kind-specific payload. List and Map recurse.
func (w *Writer) WritePropertyValue(v PropertyValue) error {
	if err := w.w.WriteByte(byte(v.Kind)); err != nil {
		return err
	}
	switch v.Kind {
	case PVNull:
		return nil
	case PVBool:
		b := byte(0)
		if v.B {
			b = 1
		}
		return w.w.WriteByte(b)
	case PVInt:
		return w.w.WriteUint64(uint64(v.I))
	case PVFloat:
		return w.w.WriteUint64(math.Float64bits(v.F))
	case PVString:
		return w.WriteRawString(v.S)
	case PVList:
		return w.WriteList(len(v.List), func(i int) error {
			return w.WritePropertyValue(v.List[i])
		})
	case PVMap:
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		return w.WriteList(len(keys), func(i int) error {
			if err := w.WriteRawString(keys[i]); err != nil {
				return err
			}
			return w.WritePropertyValue(v.Map[keys[i]])
		})
	default:
		return fmt.Errorf("codec: unknown PropertyValue kind %d", v.Kind)
	}
}

// ReadPropertyValue decodes a PropertyValue written by WritePropertyValue.
func (r *Reader) ReadPropertyValue() (PropertyValue, error) {
	kindByte, err := r.ReadRawByte()
	if err != nil {
		return PropertyValue{}, err
	}
	kind := PropertyValueKind(kindByte)
	switch kind {
	case PVNull:
		return Null(), nil
	case PVBool:
		b, err := r.ReadRawByte()
		if err != nil {
			return PropertyValue{}, err
		}
		return Bool(b != 0), nil
	case PVInt:
		v, err := r.ReadRawUint64()
		if err != nil {
			return PropertyValue{}, err
		}
		return Int(int64(v)), nil
	case PVFloat:
		v, err := r.ReadRawUint64()
		if err != nil {
			return PropertyValue{}, err
		}
		return Float(math.Float64frombits(v)), nil
	case PVString:
		s, err := r.ReadRawString()
		if err != nil {
			return PropertyValue{}, err
		}
		return String(s), nil
	case PVList:
		var items []PropertyValue
		_, err := r.ReadList(func(i int) error {
			item, err := r.ReadPropertyValue()
			if err != nil {
				return err
			}
			items = append(items, item)
			return nil
		})
		if err != nil {
			return PropertyValue{}, err
		}
		return PropertyValue{Kind: PVList, List: items}, nil
	case PVMap:
		m := make(map[string]PropertyValue)
		_, err := r.ReadList(func(i int) error {
			key, err := r.readRawString()
			if err != nil {
				return err
			}
			val, err := r.ReadPropertyValue()
			if err != nil {
				return err
			}
			m[key] = val
			return nil
		})
		if err != nil {
			return PropertyValue{}, err
		}
		return PropertyValue{Kind: PVMap, Map: m}, nil
	default:
		return PropertyValue{}, ErrBadTag
	}
}

