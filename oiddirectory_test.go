//go:build !integration

// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testDirectory() *OidDirectory {
	return NewOidDirectory(OidMap{Oids: []OID{
		{Oid: "1.3.6.1.2.1.2.2.1.10", Name: "ifInOctets"},
		{Oid: ".1.3.6.1.2.1.1.5", Name: "sysName"},
		{Oid: "1.3.6.1.2.1", Name: "mib-2"},
	}})
}

func TestOidDirectoryResolve(t *testing.T) {
	d := testDirectory()
	tests := []struct {
		oid    string
		want   string
		wantOK bool
	}{
		{"1.3.6.1.2.1.2.2.1.10.5", "ifInOctets.5", true},
		{"1.3.6.1.2.1.2.2.1.10", "ifInOctets", true},
		{".1.3.6.1.2.1.1.5.0", "sysName.0", true},
		{"1.3.6.1.2.1.4.20.1.1.10.0.0.1", "mib-2.4.20.1.1.10.0.0.1", true},
		{"1.3.6.1.4.1.9", "", false},
		{"1.3.6.1.2", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.oid, func(t *testing.T) {
			got, ok := d.Resolve(tt.oid)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOidDirectoryResolveOrRaw(t *testing.T) {
	d := testDirectory()
	assert.Equal(t, "ifInOctets.5", d.ResolveOrRaw("1.3.6.1.2.1.2.2.1.10.5"))
	assert.Equal(t, "1.3.6.1.4.1.9.2.1", d.ResolveOrRaw("1.3.6.1.4.1.9.2.1"))

	var empty *OidDirectory
	assert.Equal(t, "1.3.6.1.2.1.1.5.0", empty.ResolveOrRaw("1.3.6.1.2.1.1.5.0"))
}

func TestOidDirectoryInsert(t *testing.T) {
	d := NewOidDirectory(OidMap{})
	assert.Equal(t, 0, d.Len())

	d.Insert("1.3.6.1.2.1.31.1.1.1.6", "ifHCInOctets")
	d.Insert(".1.3.6.1.2.1.31.1.1.1.6", "ifHCInOctets64")
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, "ifHCInOctets64.2", d.ResolveOrRaw("1.3.6.1.2.1.31.1.1.1.6.2"))

	assert.Equal(t, OidMap{Oids: []OID{{Oid: "1.3.6.1.2.1.31.1.1.1.6", Name: "ifHCInOctets64"}}}, d.OidMap())
}
