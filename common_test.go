//go:build !integration

// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateParams(t *testing.T) {
	base := Params{User: "monitor", Host: "192.0.2.1", Cmd: GetCommand(OID{Oid: "1.3.6.1.2.1.1.5.0"})}
	with := func(fn func(p *Params)) Params {
		p := base
		fn(&p)
		return p
	}
	tests := []struct {
		name     string
		params   Params
		wantAuth DigestAlgorithm
		wantPriv PrivacyProtocol
		wantErr  bool
	}{
		{name: "noAuthNoPriv", params: base},
		{
			name:     "authNoPriv",
			params:   with(func(p *Params) { p.Auth, p.AuthProtocol = "authpass1", "sha" }),
			wantAuth: AUTH_PROTOCOL_SHA,
		},
		{
			name: "authPriv",
			params: with(func(p *Params) {
				p.Auth, p.AuthProtocol = "authpass1", "MD5"
				p.Privacy, p.PrivacyProtocol = "privpass1", "AES"
			}),
			wantAuth: AUTH_PROTOCOL_MD5,
			wantPriv: PRIV_PROTOCOL_AES128,
		},
		{name: "no user", params: with(func(p *Params) { p.User = " " }), wantErr: true},
		{name: "no host", params: with(func(p *Params) { p.Host = "" }), wantErr: true},
		{name: "auth without protocol", params: with(func(p *Params) { p.Auth = "authpass1" }), wantErr: true},
		{name: "protocol without auth", params: with(func(p *Params) { p.AuthProtocol = "SHA1" }), wantErr: true},
		{
			name:    "privacy without auth",
			params:  with(func(p *Params) { p.Privacy, p.PrivacyProtocol = "privpass1", "DES" }),
			wantErr: true,
		},
		{
			name: "privacy without protocol",
			params: with(func(p *Params) {
				p.Auth, p.AuthProtocol = "authpass1", "SHA1"
				p.Privacy = "privpass1"
			}),
			wantErr: true,
		},
		{name: "unknown auth", params: with(func(p *Params) { p.Auth, p.AuthProtocol = "authpass1", "SHA512" }), wantErr: true},
		{
			name: "unknown privacy",
			params: with(func(p *Params) {
				p.Auth, p.AuthProtocol = "authpass1", "SHA1"
				p.Privacy, p.PrivacyProtocol = "privpass1", "AES256"
			}),
			wantErr: true,
		},
		{name: "short auth", params: with(func(p *Params) { p.Auth, p.AuthProtocol = "short", "SHA1" }), wantErr: true},
		{
			name: "short privacy",
			params: with(func(p *Params) {
				p.Auth, p.AuthProtocol = "authpass1", "SHA1"
				p.Privacy, p.PrivacyProtocol = "short", "DES"
			}),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, priv, err := ValidateParams(tt.params)
			if tt.wantErr {
				requireKind(t, err, ErrInvalidInput)
				var se *Error
				require.True(t, errors.As(err, &se))
				assert.Equal(t, tt.params.Host, se.Host)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAuth, auth)
			assert.Equal(t, tt.wantPriv, priv)
		})
	}
}

func TestNormalizeHost(t *testing.T) {
	tests := map[string]string{
		"192.0.2.1":        "192.0.2.1:161",
		"192.0.2.1:1161":   "192.0.2.1:1161",
		" router.lab ":     "router.lab:161",
		"router.lab:16100": "router.lab:16100",
		"2001:db8::1":      "[2001:db8::1]:161",
		"[2001:db8::1]":    "[2001:db8::1]:161",
		"[2001:db8::1]:16": "[2001:db8::1]:16",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeHost(in), in)
	}
}

func TestRunRejectsInvalidOIDsWithoutIO(t *testing.T) {
	a := newTestAgent(t, agentConfig{Auth: AUTH_PROTOCOL_SHA})

	for _, cmd := range []Command{
		GetCommand(OID{Oid: "bogus"}, OID{Oid: "1..3"}),
		GetNextCommand(),
	} {
		_, err := Run(context.Background(), nil, testParams(a, cmd), ClientOptions{Timeout: time.Second})
		requireKind(t, err, ErrInvalidInput)
		var se *Error
		require.True(t, errors.As(err, &se))
		assert.Equal(t, a.addr(), se.Host)
	}

	_, err := Run(context.Background(), nil, testParams(a, Command{}), ClientOptions{})
	requireKind(t, err, ErrInvalidInput)

	packets, _, _ := a.stats()
	assert.Zero(t, packets)
}

func TestRunBatch(t *testing.T) {
	good := newTestAgent(t, agentConfig{
		Auth:    AUTH_PROTOCOL_SHA,
		Priv:    PRIV_PROTOCOL_AES128,
		Handler: table(vb("1.3.6.1.2.1.1.5.0", StringValue("sw-core-1"))),
	})
	silent := newTestAgent(t, agentConfig{Silent: true})
	dir := NewOidDirectory(OidMap{Oids: []OID{{Oid: "1.3.6.1.2.1.1", Name: "system"}}})

	params := []Params{
		testParams(silent, GetCommand(OID{Oid: "1.3.6.1.2.1.1.5.0"})),
		testParams(good, GetNextCommand(OID{Oid: "1.3.6.1.2.1.1.5"})),
		testParams(good, GetCommand(OID{Oid: "1.3.6.1.2.1.1.5.0", Name: "sysName"})),
		{Host: good.addr(), Cmd: WalkCommand(OID{})},
	}
	batch := RunBatch(context.Background(), dir, params, ClientOptions{Timeout: 200 * time.Millisecond}, 2)
	require.Len(t, batch, len(params))

	assert.Equal(t, silent.addr(), batch[0].Host)
	requireKind(t, batch[0].Err, ErrTimeout)
	assert.Empty(t, batch[0].Results)

	require.NoError(t, batch[1].Err)
	assert.Equal(t, []string{"system.5.0"}, resultOIDs(batch[1].Results))

	require.NoError(t, batch[2].Err)
	assert.Equal(t, []string{"sysName"}, resultOIDs(batch[2].Results))

	requireKind(t, batch[3].Err, ErrInvalidInput)
}
