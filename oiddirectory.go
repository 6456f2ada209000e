// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"strings"
	"sync"
)

// OidDirectory maps dotted OIDs to names. Resolve does a longest-prefix match and
// keeps the unmatched suffix, so a column name also names its rows:
//
//	dir := NewOidDirectory(OidMap{Oids: []OID{{Oid: "1.3.6.1.2.1.2.2.1.10", Name: "ifInOctets"}}})
//	dir.Resolve("1.3.6.1.2.1.2.2.1.10.5") // "ifInOctets.5", true
//
// The directory is safe for concurrent use; Insert is the only mutation.
type OidDirectory struct {
	mu      sync.RWMutex
	entries []OID
	byOid   map[string]string
}

// NewOidDirectory indexes m. A later entry for the same OID replaces an earlier one.
func NewOidDirectory(m OidMap) *OidDirectory {
	d := &OidDirectory{byOid: make(map[string]string, len(m.Oids))}
	for _, o := range m.Oids {
		d.insertLocked(o)
	}
	return d
}

// Insert adds or replaces one entry.
func (d *OidDirectory) Insert(oid, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.insertLocked(OID{Oid: oid, Name: name})
}

func (d *OidDirectory) insertLocked(o OID) {
	key := strings.TrimPrefix(o.Oid, ".")
	if _, exists := d.byOid[key]; exists {
		for i := range d.entries {
			if strings.TrimPrefix(d.entries[i].Oid, ".") == key {
				d.entries[i].Name = o.Name
			}
		}
	} else {
		d.entries = append(d.entries, OID{Oid: key, Name: o.Name})
	}
	d.byOid[key] = o.Name
}

// Resolve returns the display name of oid, or false when no prefix of it is known.
func (d *OidDirectory) Resolve(oid string) (string, bool) {
	if d == nil {
		return "", false
	}
	parts := strings.Split(strings.TrimPrefix(oid, "."), ".")
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i := len(parts); i >= 0; i-- {
		name, ok := d.byOid[strings.Join(parts[:i], ".")]
		if !ok {
			continue
		}
		if i == len(parts) {
			return name, true
		}
		return name + "." + strings.Join(parts[i:], "."), true
	}
	return "", false
}

// ResolveOrRaw returns the resolved name, falling back to oid itself.
func (d *OidDirectory) ResolveOrRaw(oid string) string {
	if name, ok := d.Resolve(oid); ok {
		return name
	}
	return oid
}

// OidMap returns a copy of the entries in insertion order.
func (d *OidDirectory) OidMap() OidMap {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]OID, len(d.entries))
	copy(out, d.entries)
	return OidMap{Oids: out}
}

// Len is the number of distinct OIDs.
func (d *OidDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}
