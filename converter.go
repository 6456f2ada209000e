// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ObjectIdentifier is a numeric OID. Sub-identifiers are kept at 64 bits.
type ObjectIdentifier []uint64

// ParseOID converts dotted-decimal text ("1.3.6.1.2.1" or ".1.3.6.1.2.1") into an
// ObjectIdentifier. The result must be encodable in BER: at least two components,
// first in 0..2, second below 40 unless the first is 2.
func ParseOID(s string) (ObjectIdentifier, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), ".")
	if trimmed == "" {
		return nil, errors.New("empty OID")
	}
	parts := strings.Split(trimmed, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("OID %q: at least two components required", s)
	}
	oid := make(ObjectIdentifier, len(parts))
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("OID %q: empty component at position %d", s, i)
		}
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("OID %q: component %q: %w", s, p, err)
		}
		oid[i] = v
	}
	if err := oid.validate(); err != nil {
		return nil, fmt.Errorf("OID %q: %w", s, err)
	}
	return oid, nil
}

func (oid ObjectIdentifier) validate() error {
	if len(oid) < 2 {
		return errors.New("at least two components required")
	}
	if oid[0] > 2 {
		return fmt.Errorf("first component %d out of range 0..2", oid[0])
	}
	if oid[0] < 2 && oid[1] >= 40 {
		return fmt.Errorf("second component %d must be below 40", oid[1])
	}
	if oid[0] == 2 && oid[1] > math.MaxUint64-80 {
		return fmt.Errorf("second component %d too large", oid[1])
	}
	return nil
}

// String joins the components with dots.
func (oid ObjectIdentifier) String() string {
	var sb strings.Builder
	for i, c := range oid {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.FormatUint(c, 10))
	}
	return sb.String()
}

// Compare orders OIDs lexicographically by component; a proper prefix sorts first.
func (oid ObjectIdentifier) Compare(other ObjectIdentifier) int {
	return slices.Compare(oid, other)
}

func (oid ObjectIdentifier) Equal(other ObjectIdentifier) bool {
	return slices.Equal(oid, other)
}

// NextSibling returns a copy with the last component incremented by one.
// The increment wraps to zero on overflow and never carries into the parent.
func (oid ObjectIdentifier) NextSibling() ObjectIdentifier {
	next := slices.Clone(oid)
	if len(next) > 0 {
		next[len(next)-1]++
	}
	return next
}

// marshalOIDContent returns the BER content octets of an OBJECT IDENTIFIER.
func marshalOIDContent(oid ObjectIdentifier) ([]byte, error) {
	if err := oid.validate(); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(oid)+4)
	out = appendBase128(out, oid[0]*40+oid[1])
	for _, c := range oid[2:] {
		out = appendBase128(out, c)
	}
	return out, nil
}

func appendBase128(dst []byte, v uint64) []byte {
	var tmp [10]byte
	i := len(tmp) - 1
	tmp[i] = byte(v & 0x7f)
	v >>= 7
	for v > 0 {
		i--
		tmp[i] = byte(v&0x7f) | 0x80
		v >>= 7
	}
	return append(dst, tmp[i:]...)
}

// parseOIDContent decodes BER OBJECT IDENTIFIER content octets (base-128 sub-identifiers,
// the first one packing the two leading arcs).
func parseOIDContent(b []byte) (ObjectIdentifier, error) {
	if len(b) == 0 {
		return nil, errors.New("zero length OBJECT IDENTIFIER")
	}
	var subids []uint64
	var v uint64
	inProgress := false
	for _, octet := range b {
		if v > math.MaxUint64>>7 {
			return nil, errors.New("OBJECT IDENTIFIER sub-identifier overflows 64 bits")
		}
		v = v<<7 | uint64(octet&0x7f)
		inProgress = true
		if octet&0x80 == 0 {
			subids = append(subids, v)
			v = 0
			inProgress = false
		}
	}
	if inProgress {
		return nil, errors.New("truncated OBJECT IDENTIFIER")
	}

	oid := make(ObjectIdentifier, 0, len(subids)+1)
	switch first := subids[0]; {
	case first < 40:
		oid = append(oid, 0, first)
	case first < 80:
		oid = append(oid, 1, first-40)
	default:
		oid = append(oid, 2, first-80)
	}
	return append(oid, subids[1:]...), nil
}

// parseIntContent decodes a two's complement INTEGER that must fit in bits.
func parseIntContent(b []byte, bits int) (int64, error) {
	if len(b) == 0 {
		return 0, errors.New("zero length INTEGER")
	}
	if len(b) > 8 {
		return 0, errors.New("INTEGER too large")
	}
	var v int64
	for _, octet := range b {
		v = v<<8 | int64(octet)
	}
	// sign extend
	shift := uint(64 - len(b)*8)
	v = v << shift >> shift
	if bits < 64 {
		lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
		if v < lo || v > hi {
			return 0, fmt.Errorf("INTEGER %d does not fit in %d bits", v, bits)
		}
	}
	return v, nil
}

// parseUintContent decodes an unsigned application value (Counter32, Gauge32,
// TimeTicks, Counter64). Leading zero octets are ignored; agents that omit the
// zero before a set high bit are accepted as unsigned.
func parseUintContent(b []byte, bits int) (uint64, error) {
	if len(b) == 0 {
		return 0, errors.New("zero length unsigned value")
	}
	for len(b) > 1 && b[0] == 0x00 {
		b = b[1:]
	}
	if len(b) > 8 {
		return 0, errors.New("unsigned value too large")
	}
	var v uint64
	for _, octet := range b {
		v = v<<8 | uint64(octet)
	}
	if bits < 64 && v>>bits != 0 {
		return 0, fmt.Errorf("unsigned value %d does not fit in %d bits", v, bits)
	}
	return v, nil
}

// marshalIntContent returns the minimal two's complement encoding of v.
func marshalIntContent(v int64) []byte {
	n := 1
	for i := v; i > 127 || i < -128; i >>= 8 {
		n++
	}
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

// marshalUintContent returns the minimal encoding of v, with a leading zero octet
// when the high bit would otherwise read as a sign.
func marshalUintContent(v uint64) []byte {
	var tmp [9]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte(v)
		v >>= 8
		if v == 0 {
			break
		}
	}
	if tmp[i]&0x80 != 0 {
		i--
		tmp[i] = 0x00
	}
	return append([]byte(nil), tmp[i:]...)
}
