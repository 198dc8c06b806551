package ptp

import (
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
)

var byteOrder = binary.LittleEndian

// maxArrayLen bounds array counts read from the device.
const maxArrayLen = 1 << 24

type DecodeHints struct {
	Selector DataTypeSelector
	PropDesc bool // PropDesc is set when decode props
}

func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if err == io.EOF && len(buf) > 0 {
		return io.ErrUnexpectedEOF
	}
	return err
}

func decodeStr(r io.Reader) (string, error) {
	var szSlice [1]byte
	if err := readFull(r, szSlice[:]); err != nil {
		return "", err
	}
	sz := int(szSlice[0])
	if sz == 0 {
		return "", nil
	}
	data := make([]byte, 2*sz)
	if err := readFull(r, data); err != nil {
		return "", err
	}
	units := make([]uint16, 0, sz)
	for i := 0; i < 2*sz; i += 2 {
		units = append(units, byteOrder.Uint16(data[i:]))
	}
	for len(units) > 0 && units[len(units)-1] == 0 {
		units = units[:len(units)-1]
	}
	return string(utf16.Decode(units)), nil
}

func encodeStr(buf []byte, s string) ([]byte, error) {
	if s == "" {
		return append(buf[:0], 0), nil
	}

	units := utf16.Encode([]rune(s))
	if len(units)+1 > 254 {
		return nil, fmt.Errorf("string too long")
	}

	buf = append(buf[:0], byte(len(units)+1))
	var char [2]byte
	for _, u := range units {
		byteOrder.PutUint16(char[:], u)
		buf = append(buf, char[0], char[1])
	}
	buf = append(buf, 0, 0)
	return buf, nil
}

func encodeStrField(w io.Writer, s string) error {
	out := make([]byte, 0, 2*len(s)+3)
	enc, err := encodeStr(out, s)
	if err != nil {
		return err
	}
	_, err = w.Write(enc)
	return err
}

func kindSize(t reflect.Type) (int, error) {
	switch t.Kind() {
	case reflect.Int8, reflect.Uint8:
		return 1, nil
	case reflect.Int16, reflect.Uint16:
		return 2, nil
	case reflect.Int32, reflect.Uint32:
		return 4, nil
	case reflect.Int64, reflect.Uint64:
		return 8, nil
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return t.Len(), nil
		}
	}
	return 0, fmt.Errorf("%w: no fixed size for %v", ErrMalformed, t)
}

var nullValue reflect.Value

func decodeArray(r io.Reader, t reflect.Type, hint DecodeHints) (reflect.Value, error) {
	var sz int
	if hint.PropDesc {
		var s uint16
		if err := binary.Read(r, byteOrder, &s); err != nil {
			return nullValue, err
		}
		sz = int(s)
	} else {
		var s uint32
		if err := binary.Read(r, byteOrder, &s); err != nil {
			return nullValue, err
		}
		if s > maxArrayLen {
			return nullValue, fmt.Errorf("%w: array of %d elements", ErrMalformed, s)
		}
		sz = int(s)
	}

	slice := reflect.MakeSlice(t, sz, sz)
	if t.Elem().Kind() == reflect.Interface {
		for i := 0; i < sz; i++ {
			val, err := InstantiateType(hint)
			if err != nil {
				return nullValue, err
			}
			if err := decodeField(r, val, DecodeHints{Selector: hint.Selector}); err != nil {
				return nullValue, err
			}
			slice.Index(i).Set(val)
		}
		return slice, nil
	}

	ksz, err := kindSize(t.Elem())
	if err != nil {
		return nullValue, err
	}
	data := make([]byte, sz*ksz)
	if err := readFull(r, data); err != nil {
		return nullValue, err
	}

	for i := 0; i < sz; i++ {
		from := data[i*ksz:]
		elt := slice.Index(i)
		switch elt.Kind() {
		case reflect.Uint8:
			elt.SetUint(uint64(from[0]))
		case reflect.Uint16:
			elt.SetUint(uint64(byteOrder.Uint16(from)))
		case reflect.Uint32:
			elt.SetUint(uint64(byteOrder.Uint32(from)))
		case reflect.Uint64:
			elt.SetUint(byteOrder.Uint64(from))
		case reflect.Int8:
			elt.SetInt(int64(int8(from[0])))
		case reflect.Int16:
			elt.SetInt(int64(int16(byteOrder.Uint16(from))))
		case reflect.Int32:
			elt.SetInt(int64(int32(byteOrder.Uint32(from))))
		case reflect.Int64:
			elt.SetInt(int64(byteOrder.Uint64(from)))
		case reflect.Array:
			reflect.Copy(elt, reflect.ValueOf(from[:ksz]))
		}
	}
	return slice, nil
}

func encodeArray(w io.Writer, val reflect.Value, hint DecodeHints) error {
	sz := val.Len()
	if hint.PropDesc {
		if err := binary.Write(w, byteOrder, uint16(sz)); err != nil {
			return err
		}
	} else {
		if err := binary.Write(w, byteOrder, uint32(sz)); err != nil {
			return err
		}
	}

	for i := 0; i < sz; i++ {
		if err := encodeField(w, val.Index(i), DecodeHints{}); err != nil {
			return err
		}
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

const timeFormat = "20060102T150405"
const timeFormatNumTZ = "20060102T150405-0700"

func encodeTime(w io.Writer, t time.Time) error {
	s := ""
	if !t.IsZero() {
		s = t.Format(timeFormat)
	}
	return encodeStrField(w, s)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	// Samsung has trailing dots.
	s = strings.TrimRight(s, ".")

	// Jolla Sailfish has trailing "Z".
	s = strings.TrimRight(s, "Z")

	// Tenths of seconds are optional.
	if i := strings.IndexByte(s, '.'); i >= 0 {
		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		s = s[:i] + s[j:]
	}

	t, err := time.Parse(timeFormat, s)
	if err != nil {
		// Nokia lumia has numTZ
		t, err = time.Parse(timeFormatNumTZ, s)
	}
	return t, err
}

func decodeTime(r io.Reader, f reflect.Value) error {
	s, err := decodeStr(r)
	if err != nil {
		return err
	}
	t, err := parseTime(s)
	if err != nil {
		return err
	}
	f.Set(reflect.ValueOf(t))
	return nil
}

func decodeField(r io.Reader, f reflect.Value, hint DecodeHints) error {
	if !f.CanAddr() {
		return fmt.Errorf("canaddr false")
	}

	if f.Type() == timeType {
		return decodeTime(r, f)
	}

	switch f.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		err := binary.Read(r, byteOrder, f.Addr().Interface())
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	case reflect.Array:
		ksz, err := kindSize(f.Type())
		if err != nil {
			return err
		}
		buf := make([]byte, ksz)
		if err := readFull(r, buf); err != nil {
			return err
		}
		reflect.Copy(f, reflect.ValueOf(buf))
	case reflect.String:
		s, err := decodeStr(r)
		if err != nil {
			return err
		}
		f.SetString(s)
	case reflect.Slice:
		sl, err := decodeArray(r, f.Type(), hint)
		if err != nil {
			return err
		}
		f.Set(sl)
	case reflect.Interface:
		val, err := InstantiateType(hint)
		if err != nil {
			return err
		}
		if err := decodeField(r, val, DecodeHints{Selector: hint.Selector}); err != nil {
			return err
		}
		f.Set(val)
	default:
		return fmt.Errorf("unimplemented kind %v", f.Kind())
	}
	return nil
}

func encodeField(w io.Writer, f reflect.Value, hint DecodeHints) error {
	if f.Type() == timeType {
		return encodeTime(w, f.Interface().(time.Time))
	}

	switch f.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Array:
		return binary.Write(w, byteOrder, f.Interface())
	case reflect.String:
		return encodeStrField(w, f.String())
	case reflect.Slice:
		return encodeArray(w, f, hint)
	case reflect.Interface:
		if f.IsNil() {
			return fmt.Errorf("cannot encode nil %v", f.Type())
		}
		return encodeField(w, f.Elem(), hint)
	default:
		return fmt.Errorf("unimplemented: encode for kind %v", f.Kind())
	}
}

// Decode PTP data stream into data structure.
func Decode(r io.Reader, iface interface{}) error {
	decoder, ok := iface.(Decoder)
	if ok {
		return decoder.Decode(r)
	}
	return decodeWithSelector(r, iface, DecodeHints{Selector: DataTypeSelector(0xfe)})
}

func decodeWithSelector(r io.Reader, iface interface{}, hint DecodeHints) error {
	val := reflect.ValueOf(iface)
	if val.Kind() != reflect.Ptr {
		return fmt.Errorf("need ptr argument: %T", iface)
	}
	val = val.Elem()
	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		if err := decodeField(r, val.Field(i), hint); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("%s.%s: %w", t.Name(), t.Field(i).Name, err)
		}
		if val.Field(i).Type().Name() == "DataTypeSelector" {
			hint.Selector = val.Field(i).Interface().(DataTypeSelector)
		}
	}
	return nil
}

// Encode data structure into PTP data stream.
func Encode(w io.Writer, iface interface{}) error {
	return encodeWithHint(w, iface, DecodeHints{})
}

func encodeWithHint(w io.Writer, iface interface{}, hint DecodeHints) error {
	encoder, ok := iface.(Encoder)
	if ok {
		return encoder.Encode(w)
	}

	val := reflect.ValueOf(iface)
	if val.Kind() != reflect.Ptr {
		return fmt.Errorf("need ptr argument: %T", iface)
	}
	val = val.Elem()
	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		if err := encodeField(w, val.Field(i), hint); err != nil {
			return err
		}
	}
	return nil
}

// EncodeValue writes a single data-type dependent value, as used by
// SetDevicePropValue.
func EncodeValue(w io.Writer, v DataDependentType) error {
	if v == nil {
		return fmt.Errorf("cannot encode nil value")
	}
	return encodeField(w, reflect.ValueOf(v), DecodeHints{})
}

// DecodeValue reads a single value of the given data type.
func DecodeValue(r io.Reader, dt DataTypeSelector) (DataDependentType, error) {
	val, err := InstantiateType(DecodeHints{Selector: dt})
	if err != nil {
		return nil, err
	}
	if err := decodeField(r, val, DecodeHints{Selector: dt}); err != nil {
		return nil, err
	}
	return val.Interface(), nil
}

// Instantiates an object of wanted type as addressable value.
func InstantiateType(hint DecodeHints) (reflect.Value, error) {
	var val interface{}
	switch hint.Selector {
	case DTC_INT8:
		val = new(int8)
	case DTC_UINT8:
		val = new(uint8)
	case DTC_INT16:
		val = new(int16)
	case DTC_UINT16:
		val = new(uint16)
	case DTC_INT32:
		val = new(int32)
	case DTC_UINT32:
		val = new(uint32)
	case DTC_INT64:
		val = new(int64)
	case DTC_UINT64:
		val = new(uint64)
	case DTC_INT128, DTC_UINT128:
		val = new([16]byte)
	case DTC_AINT8:
		val = new([]int8)
	case DTC_AUINT8:
		val = new([]uint8)
	case DTC_AINT16:
		val = new([]int16)
	case DTC_AUINT16:
		val = new([]uint16)
	case DTC_AINT32:
		val = new([]int32)
	case DTC_AUINT32:
		val = new([]uint32)
	case DTC_AINT64:
		val = new([]int64)
	case DTC_AUINT64:
		val = new([]uint64)
	case DTC_AINT128, DTC_AUINT128:
		val = new([][16]byte)
	case DTC_STR:
		val = new(string)
	default:
		return nullValue, fmt.Errorf("%w: type not known %#x", ErrMalformed, uint16(hint.Selector))
	}

	return reflect.ValueOf(val).Elem(), nil
}

func decodePropDescForm(r io.Reader, hint DecodeHints, formFlag uint8) (DataDependentType, error) {
	if formFlag == DPFF_Range {
		f := PropDescRangeForm{}
		err := decodeWithSelector(r, &f, hint)
		return &f, err
	} else if formFlag == DPFF_Enumeration {
		f := PropDescEnumForm{}
		err := decodeWithSelector(r, &f, hint)
		return &f, err
	}
	return nil, nil
}

func encodePropDescForm(w io.Writer, form interface{}) error {
	if form == nil {
		return nil
	}
	return encodeWithHint(w, form, DecodeHints{PropDesc: true})
}

func (pd *ObjectPropDesc) Decode(r io.Reader) error {
	if err := Decode(r, &pd.ObjectPropDescFixed); err != nil {
		return err
	}
	form, err := decodePropDescForm(r, DecodeHints{Selector: pd.DataType, PropDesc: true}, pd.FormFlag)
	pd.Form = form
	return err
}

func (pd *DevicePropDesc) Decode(r io.Reader) error {
	if err := Decode(r, &pd.DevicePropDescFixed); err != nil {
		return err
	}
	form, err := decodePropDescForm(r, DecodeHints{Selector: pd.DataType, PropDesc: true}, pd.FormFlag)
	pd.Form = form
	return err
}

func (pd *SonyDevicePropDesc) Decode(r io.Reader) error {
	if err := Decode(r, &pd.SonyDevicePropDescFixed); err != nil {
		return err
	}
	form, err := decodePropDescForm(r, DecodeHints{Selector: pd.DataType, PropDesc: true}, pd.FormFlag)
	pd.Form = form
	return err
}

func (pd *DevicePropDesc) Encode(w io.Writer) error {
	if err := Encode(w, &pd.DevicePropDescFixed); err != nil {
		return err
	}
	return encodePropDescForm(w, pd.Form)
}

func (pd *SonyDevicePropDesc) Encode(w io.Writer) error {
	if err := Encode(w, &pd.SonyDevicePropDescFixed); err != nil {
		return err
	}
	return encodePropDescForm(w, pd.Form)
}

func (pd *ObjectPropDesc) Encode(w io.Writer) error {
	if err := Encode(w, &pd.ObjectPropDescFixed); err != nil {
		return err
	}
	return encodePropDescForm(w, pd.Form)
}

func (l *ObjectPropList) Decode(r io.Reader) error {
	var n uint32
	if err := binary.Read(r, byteOrder, &n); err != nil {
		return err
	}
	if n > maxArrayLen {
		return fmt.Errorf("%w: property list of %d elements", ErrMalformed, n)
	}
	l.Props = make([]ObjectProp, 0, n)
	for i := uint32(0); i < n; i++ {
		var hdr struct {
			Handle   uint32
			Code     uint16
			DataType uint16
		}
		if err := binary.Read(r, byteOrder, &hdr); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		v, err := DecodeValue(r, DataTypeSelector(hdr.DataType))
		if err != nil {
			return fmt.Errorf("prop %d of handle 0x%x: %w", i, hdr.Handle, err)
		}
		l.Props = append(l.Props, ObjectProp{
			Handle:   hdr.Handle,
			Code:     hdr.Code,
			DataType: DataTypeSelector(hdr.DataType),
			Value:    v,
		})
	}
	return nil
}

func (l *ObjectPropList) Encode(w io.Writer) error {
	if err := binary.Write(w, byteOrder, uint32(len(l.Props))); err != nil {
		return err
	}
	for _, p := range l.Props {
		hdr := struct {
			Handle   uint32
			Code     uint16
			DataType uint16
		}{p.Handle, p.Code, uint16(p.DataType)}
		if err := binary.Write(w, byteOrder, &hdr); err != nil {
			return err
		}
		if err := EncodeValue(w, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// ParseValue converts text to a scalar or string value of type dt.
// Integers accept the prefixes strconv recognizes, like 0x.
func ParseValue(dt DataTypeSelector, s string) (DataDependentType, error) {
	val, err := InstantiateType(DecodeHints{Selector: dt})
	if err != nil {
		return nil, err
	}
	switch val.Kind() {
	case reflect.String:
		val.SetString(s)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 0, val.Type().Bits())
		if err != nil {
			return nil, err
		}
		val.SetInt(n)
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 0, val.Type().Bits())
		if err != nil {
			return nil, err
		}
		val.SetUint(n)
	default:
		return nil, fmt.Errorf("cannot parse values of type %#x", uint16(dt))
	}
	return val.Interface(), nil
}
