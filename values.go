// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	ASNber "github.com/OlegPowerC/asn1modsnmp"
)

// ValueKind tags the variant held by a SnmpValue.
type ValueKind int

const (
	KindUnspecified ValueKind = iota
	KindInt
	KindString
	KindObjectId
	KindIpAddress
	KindCounter
	KindUnsignedInt
	KindTimeTicks
	KindOpaque
	KindBigCounter
	KindNoSuchObject
	KindNoSuchInstance
	KindEndOfMibView
)

var valueKindNames = [...]string{
	KindUnspecified:    "Unspecified",
	KindInt:            "Int",
	KindString:         "String",
	KindObjectId:       "ObjectId",
	KindIpAddress:      "IpAddress",
	KindCounter:        "Counter",
	KindUnsignedInt:    "UnsignedInt",
	KindTimeTicks:      "TimeTicks",
	KindOpaque:         "Opaque",
	KindBigCounter:     "BigCounter",
	KindNoSuchObject:   "NoSuchObject",
	KindNoSuchInstance: "NoSuchInstance",
	KindEndOfMibView:   "EndOfMibView",
}

// String returns the variant name used in the JSON form.
func (k ValueKind) String() string {
	if k >= 0 && int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "ValueKind(" + strconv.Itoa(int(k)) + ")"
}

// SnmpValue is a decoded var-bind value. Only the field matching Kind is meaningful:
// Int for KindInt, Text for KindString, ObjectId for KindObjectId, IP for KindIpAddress,
// Unsigned for the counter, gauge, ticks and 64-bit counter kinds, Bytes for KindOpaque.
type SnmpValue struct {
	Kind     ValueKind
	Int      int32
	Text     string
	ObjectId ObjectIdentifier
	IP       [4]byte
	Unsigned uint64
	Bytes    []byte
}

// IntValue is an INTEGER (Integer32).
func IntValue(v int32) SnmpValue { return SnmpValue{Kind: KindInt, Int: v} }

// StringValue is an OCTET STRING already decoded as text.
func StringValue(v string) SnmpValue { return SnmpValue{Kind: KindString, Text: v} }

// ObjectIdValue is an OBJECT IDENTIFIER value.
func ObjectIdValue(v ObjectIdentifier) SnmpValue {
	return SnmpValue{Kind: KindObjectId, ObjectId: v}
}

// IpAddressValue is an IpAddress in network order.
func IpAddressValue(v [4]byte) SnmpValue { return SnmpValue{Kind: KindIpAddress, IP: v} }

// CounterValue is a Counter32.
func CounterValue(v uint32) SnmpValue {
	return SnmpValue{Kind: KindCounter, Unsigned: uint64(v)}
}

// UnsignedIntValue is a Gauge32 / Unsigned32.
func UnsignedIntValue(v uint32) SnmpValue {
	return SnmpValue{Kind: KindUnsignedInt, Unsigned: uint64(v)}
}

// TimeTicksValue is a TimeTicks in hundredths of a second.
func TimeTicksValue(v uint32) SnmpValue {
	return SnmpValue{Kind: KindTimeTicks, Unsigned: uint64(v)}
}

// OpaqueValue is an Opaque; the bytes are kept as received.
func OpaqueValue(v []byte) SnmpValue { return SnmpValue{Kind: KindOpaque, Bytes: v} }

// BigCounterValue is a Counter64.
func BigCounterValue(v uint64) SnmpValue { return SnmpValue{Kind: KindBigCounter, Unsigned: v} }

func exceptionValue(kind ValueKind) SnmpValue { return SnmpValue{Kind: kind} }

// IsException reports noSuchObject, noSuchInstance and endOfMibView.
func (v SnmpValue) IsException() bool { return v.Kind >= KindNoSuchObject }

// IsEndOfMibView reports the endOfMibView exception.
func (v SnmpValue) IsEndOfMibView() bool { return v.Kind == KindEndOfMibView }

// TimeTicks returns the raw ticks and whether v holds TimeTicks at all.
func (v SnmpValue) TimeTicks() (uint32, bool) {
	return uint32(v.Unsigned), v.Kind == KindTimeTicks
}

const (
	secondsInMinute = 60
	secondsInHour   = 60 * secondsInMinute
	secondsInDay    = 24 * secondsInHour
)

// FormatTimeTicks renders hundredths of a second as "(raw) D day(s) H:MM:SS.hh".
func FormatTimeTicks(raw uint32) string {
	hundredths := raw % 100
	total := raw / 100
	days := total / secondsInDay
	hours := (total % secondsInDay) / secondsInHour
	minutes := (total % secondsInHour) / secondsInMinute
	seconds := total % secondsInMinute
	return fmt.Sprintf("(%d) %d day(s) %d:%02d:%02d.%02d", raw, days, hours, minutes, seconds, hundredths)
}

// formatOpaque renders bytes as an uppercase hex list, e.g. "[DE, AD, 0]".
func formatOpaque(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, octet := range b {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strings.ToUpper(strconv.FormatUint(uint64(octet), 16)))
	}
	sb.WriteByte(']')
	return sb.String()
}

// String is the display form used by SnmpResult.String and the text output.
func (v SnmpValue) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(int64(v.Int), 10)
	case KindString:
		return v.Text
	case KindObjectId:
		return v.ObjectId.String()
	case KindIpAddress:
		return fmt.Sprintf("%d.%d.%d.%d", v.IP[0], v.IP[1], v.IP[2], v.IP[3])
	case KindCounter, KindUnsignedInt, KindBigCounter:
		return strconv.FormatUint(v.Unsigned, 10)
	case KindTimeTicks:
		return FormatTimeTicks(uint32(v.Unsigned))
	case KindOpaque:
		return formatOpaque(v.Bytes)
	case KindUnspecified:
		return "Unspecified"
	case KindNoSuchObject:
		return "No such object"
	case KindNoSuchInstance:
		return "No such instance"
	case KindEndOfMibView:
		return "End of MIB view"
	}
	return v.Kind.String()
}

// lossyUTF8 decodes b as UTF-8 and writes one U+FFFD for every maximal invalid
// subsequence (Unicode 15, section 3.9). A MAC address keeps one replacement per
// octet that is not part of a valid sequence.
func lossyUTF8(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r != utf8.RuneError || size > 1 {
			sb.WriteRune(r)
			b = b[size:]
			continue
		}
		sb.WriteRune(utf8.RuneError)
		b = b[invalidPrefixLen(b):]
	}
	return sb.String()
}

// invalidPrefixLen is the length of the maximal subpart of a well-formed sequence
// at the start of b, which is known not to hold a complete one.
func invalidPrefixLen(b []byte) int {
	lo, hi, n := byte(0x80), byte(0xbf), 0
	switch c := b[0]; {
	case c >= 0xc2 && c <= 0xdf:
		n = 1
	case c == 0xe0:
		lo, n = 0xa0, 2
	case c == 0xed:
		hi, n = 0x9f, 2
	case c >= 0xe1 && c <= 0xef:
		n = 2
	case c == 0xf0:
		lo, n = 0x90, 3
	case c == 0xf4:
		hi, n = 0x8f, 3
	case c >= 0xf1 && c <= 0xf3:
		n = 3
	default:
		return 1
	}
	i := 1
	for ; i <= n && i < len(b); i++ {
		if b[i] < lo || b[i] > hi {
			break
		}
		lo, hi = 0x80, 0xbf
	}
	return i
}

// decodeValue converts a BER var-bind value into a SnmpValue without losing width.
func decodeValue(rv ASNber.RawValue) (SnmpValue, error) {
	switch rv.Class {
	case ASNber.ClassUniversal:
		switch rv.Tag {
		case ASNber.TagInteger:
			i, err := parseIntContent(rv.Bytes, 32)
			if err != nil {
				return SnmpValue{}, err
			}
			return IntValue(int32(i)), nil
		case ASNber.TagOctetString:
			return StringValue(lossyUTF8(rv.Bytes)), nil
		case ASNber.TagOID:
			oid, err := parseOIDContent(rv.Bytes)
			if err != nil {
				return SnmpValue{}, err
			}
			return ObjectIdValue(oid), nil
		case ASNber.TagNull:
			return exceptionValue(KindUnspecified), nil
		}
	case ASNber.ClassApplication:
		switch rv.Tag {
		case SNMP_type_IPADDR:
			if len(rv.Bytes) != 4 {
				return SnmpValue{}, fmt.Errorf("IpAddress of %d octets", len(rv.Bytes))
			}
			return IpAddressValue([4]byte(rv.Bytes)), nil
		case SNMP_type_COUNTER32, SNMP_type_GAUGE32, SNMP_type_TIMETICKS:
			u, err := parseUintContent(rv.Bytes, 32)
			if err != nil {
				return SnmpValue{}, err
			}
			switch rv.Tag {
			case SNMP_type_COUNTER32:
				return CounterValue(uint32(u)), nil
			case SNMP_type_GAUGE32:
				return UnsignedIntValue(uint32(u)), nil
			}
			return TimeTicksValue(uint32(u)), nil
		case SNMP_type_OPAQUE:
			return OpaqueValue(bytes.Clone(rv.Bytes)), nil
		case SNMP_type_COUNTER64:
			u, err := parseUintContent(rv.Bytes, 64)
			if err != nil {
				return SnmpValue{}, err
			}
			return BigCounterValue(u), nil
		}
	case ASNber.ClassContextSpecific:
		if !rv.IsCompound {
			switch rv.Tag {
			case tagERR_noSuchObject:
				return exceptionValue(KindNoSuchObject), nil
			case tagERR_noSuchInstance:
				return exceptionValue(KindNoSuchInstance), nil
			case tagERR_EndOfMib:
				return exceptionValue(KindEndOfMibView), nil
			}
		}
	}
	return SnmpValue{}, fmt.Errorf("unsupported value class %d tag %d", rv.Class, rv.Tag)
}

// encodeValue is the inverse of decodeValue.
func encodeValue(v SnmpValue) (ASNber.RawValue, error) {
	raw := ASNber.RawValue{Class: ASNber.ClassUniversal}
	switch v.Kind {
	case KindInt:
		raw.Tag, raw.Bytes = ASNber.TagInteger, marshalIntContent(int64(v.Int))
	case KindString:
		raw.Tag, raw.Bytes = ASNber.TagOctetString, []byte(v.Text)
	case KindObjectId:
		content, err := marshalOIDContent(v.ObjectId)
		if err != nil {
			return raw, err
		}
		raw.Tag, raw.Bytes = ASNber.TagOID, content
	case KindUnspecified:
		raw.Tag, raw.Bytes = ASNber.TagNull, []byte{}
	case KindIpAddress:
		raw.Class, raw.Tag, raw.Bytes = ASNber.ClassApplication, SNMP_type_IPADDR, v.IP[:]
	case KindCounter:
		raw.Class, raw.Tag, raw.Bytes = ASNber.ClassApplication, SNMP_type_COUNTER32, marshalUintContent(v.Unsigned)
	case KindUnsignedInt:
		raw.Class, raw.Tag, raw.Bytes = ASNber.ClassApplication, SNMP_type_GAUGE32, marshalUintContent(v.Unsigned)
	case KindTimeTicks:
		raw.Class, raw.Tag, raw.Bytes = ASNber.ClassApplication, SNMP_type_TIMETICKS, marshalUintContent(v.Unsigned)
	case KindOpaque:
		raw.Class, raw.Tag, raw.Bytes = ASNber.ClassApplication, SNMP_type_OPAQUE, v.Bytes
	case KindBigCounter:
		raw.Class, raw.Tag, raw.Bytes = ASNber.ClassApplication, SNMP_type_COUNTER64, marshalUintContent(v.Unsigned)
	case KindNoSuchObject:
		raw.Class, raw.Tag, raw.Bytes = ASNber.ClassContextSpecific, tagERR_noSuchObject, []byte{}
	case KindNoSuchInstance:
		raw.Class, raw.Tag, raw.Bytes = ASNber.ClassContextSpecific, tagERR_noSuchInstance, []byte{}
	case KindEndOfMibView:
		raw.Class, raw.Tag, raw.Bytes = ASNber.ClassContextSpecific, tagERR_EndOfMib, []byte{}
	default:
		return raw, fmt.Errorf("cannot encode %s", v.Kind)
	}
	return raw, nil
}

// nullValue is the placeholder value of a request var-bind.
func nullValue() ASNber.RawValue {
	return ASNber.RawValue{Class: ASNber.ClassUniversal, Tag: ASNber.TagNull, Bytes: []byte{}}
}

// JSON form: unit variants are bare strings, the rest are single-key objects,
// e.g. {"Int":5}, {"ObjectId":{"components":[1,3,6]}}, "EndOfMibView".

type objectIdJSON struct {
	Components []uint64 `json:"components"`
}

// MarshalJSON writes the externally tagged form: {"Int": 7}, {"String": "x"},
// {"ObjectId": {"components": [1, 3, 6]}}, and a bare "NoSuchObject" for the
// exception kinds.
func (v SnmpValue) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.Kind {
	case KindUnspecified, KindNoSuchObject, KindNoSuchInstance, KindEndOfMibView:
		return json.Marshal(v.Kind.String())
	case KindInt:
		payload = v.Int
	case KindString:
		payload = v.Text
	case KindObjectId:
		payload = objectIdJSON{Components: []uint64(v.ObjectId)}
	case KindIpAddress:
		payload = []int{int(v.IP[0]), int(v.IP[1]), int(v.IP[2]), int(v.IP[3])}
	case KindCounter, KindUnsignedInt, KindTimeTicks, KindBigCounter:
		payload = v.Unsigned
	case KindOpaque:
		ints := make([]int, len(v.Bytes))
		for i, b := range v.Bytes {
			ints[i] = int(b)
		}
		payload = ints
	default:
		return nil, fmt.Errorf("cannot marshal %s", v.Kind)
	}
	return json.Marshal(map[string]any{v.Kind.String(): payload})
}

// UnmarshalJSON accepts the form written by MarshalJSON.
func (v *SnmpValue) UnmarshalJSON(data []byte) error {
	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		for _, k := range []ValueKind{KindUnspecified, KindNoSuchObject, KindNoSuchInstance, KindEndOfMibView} {
			if unit == k.String() {
				*v = exceptionValue(k)
				return nil
			}
		}
		return fmt.Errorf("unknown SnmpValue variant %q", unit)
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if len(tagged) != 1 {
		return fmt.Errorf("SnmpValue must have exactly one variant, got %d", len(tagged))
	}
	for name, body := range tagged {
		switch name {
		case "Int":
			var i int32
			if err := json.Unmarshal(body, &i); err != nil {
				return err
			}
			*v = IntValue(i)
		case "String":
			var s string
			if err := json.Unmarshal(body, &s); err != nil {
				return err
			}
			*v = StringValue(s)
		case "ObjectId":
			var o objectIdJSON
			if err := json.Unmarshal(body, &o); err != nil {
				return err
			}
			*v = ObjectIdValue(ObjectIdentifier(o.Components))
		case "IpAddress":
			octets, err := unmarshalOctets(body)
			if err != nil {
				return err
			}
			if len(octets) != 4 {
				return fmt.Errorf("IpAddress needs 4 octets, got %d", len(octets))
			}
			*v = IpAddressValue([4]byte(octets))
		case "Counter", "UnsignedInt", "TimeTicks":
			var u uint32
			if err := json.Unmarshal(body, &u); err != nil {
				return err
			}
			switch name {
			case "Counter":
				*v = CounterValue(u)
			case "UnsignedInt":
				*v = UnsignedIntValue(u)
			default:
				*v = TimeTicksValue(u)
			}
		case "BigCounter":
			var u uint64
			if err := json.Unmarshal(body, &u); err != nil {
				return err
			}
			*v = BigCounterValue(u)
		case "Opaque":
			octets, err := unmarshalOctets(body)
			if err != nil {
				return err
			}
			*v = OpaqueValue(octets)
		default:
			return fmt.Errorf("unknown SnmpValue variant %q", name)
		}
	}
	return nil
}

func unmarshalOctets(body json.RawMessage) ([]byte, error) {
	var ints []int
	if err := json.Unmarshal(body, &ints); err != nil {
		return nil, err
	}
	out := make([]byte, len(ints))
	for i, n := range ints {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("octet %d out of range", n)
		}
		out[i] = byte(n)
	}
	return out, nil
}
