//go:build !integration

// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"bytes"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestParseDigestAlgorithm(t *testing.T) {
	tests := map[string]DigestAlgorithm{
		"":     AUTH_PROTOCOL_NONE,
		"MD5":  AUTH_PROTOCOL_MD5,
		"md5":  AUTH_PROTOCOL_MD5,
		"SHA":  AUTH_PROTOCOL_SHA,
		"sha1": AUTH_PROTOCOL_SHA,
		"SHA1": AUTH_PROTOCOL_SHA,
	}
	for in, want := range tests {
		got, err := ParseDigestAlgorithm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDigestAlgorithm("SHA256")
	assert.Error(t, err)
	assert.Equal(t, "SHA1", AUTH_PROTOCOL_SHA.String())
}

// RFC 3414 appendix A.3 vectors.
func TestLocalize(t *testing.T) {
	engineID := mustHex(t, "000000000000000000000002")
	tests := []struct {
		alg  DigestAlgorithm
		want string
	}{
		{AUTH_PROTOCOL_MD5, "526f5eed9fcce26f8964c2930787d82b"},
		{AUTH_PROTOCOL_SHA, "6695febc9288e36282235fc7151f128497b38f3f"},
	}
	for _, tt := range tests {
		t.Run(tt.alg.String(), func(t *testing.T) {
			key, err := Localize([]byte("maplesyrup"), engineID, tt.alg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(key))

			again, err := Localize([]byte("maplesyrup"), engineID, tt.alg)
			require.NoError(t, err)
			assert.Equal(t, key, again)

			other, err := Localize([]byte("maplesyrup"), mustHex(t, "000000000000000000000003"), tt.alg)
			require.NoError(t, err)
			assert.NotEqual(t, key, other)
		})
	}
}

func TestLocalizeInvalid(t *testing.T) {
	_, err := Localize([]byte("maplesyrup"), []byte{1, 2, 3, 4, 5}, AUTH_PROTOCOL_NONE)
	assert.Error(t, err)
	_, err = Localize(nil, []byte{1, 2, 3, 4, 5}, AUTH_PROTOCOL_SHA)
	assert.Error(t, err)
}

// RFC 2202 test case 1, truncated to 96 bits.
func TestMakeDigest(t *testing.T) {
	md5Key := bytes.Repeat([]byte{0x0b}, 16)
	assert.Equal(t, "9294727a3638bb1c13f48ef8", hex.EncodeToString(makeDigest([]byte("Hi There"), md5Key, AUTH_PROTOCOL_MD5)))

	shaKey := bytes.Repeat([]byte{0x0b}, 20)
	assert.Equal(t, "b617318655057264e28bc0b6", hex.EncodeToString(makeDigest([]byte("Hi There"), shaKey, AUTH_PROTOCOL_SHA)))
}

func TestVerifyDigestRAW(t *testing.T) {
	engineID := mustHex(t, "80001f8880e9630000d61ff449")
	key, err := Localize([]byte("authpass1"), engineID, AUTH_PROTOCOL_SHA)
	require.NoError(t, err)

	s := &Session{
		client:   &Client{maxMsgSize: SNMP_DEFAULTMSGSIZE},
		user:     []byte("monitor"),
		engineID: engineID,
		boots:    3,
		authAlg:  AUTH_PROTOCOL_SHA,
		authKey:  key,
		priv:     noPrivacy{},
		now:      time.Now,
	}
	vbs, err := requestVarBinds([]ObjectIdentifier{{1, 3, 6, 1, 2, 1, 1, 5, 0}})
	require.NoError(t, err)
	msg, err := s.makeMessage(SNMPv2_REQUEST_GET, SNMP_Packet_V2_PDU{RequestID: 77, VarBinds: vbs}, 11, 1<<msgFlag_Authenticated_Bit|1<<msgFlag_Reportable_Bit)
	require.NoError(t, err)

	var outer SNMPv3_Packet
	var sec SNMPv3_SecSeq
	mustUnmarshal(t, msg, &outer)
	mustUnmarshal(t, outer.SecuritySettings, &sec)
	require.Len(t, sec.AuthParams, SNMP_AUTHPARAMSLEN)

	ok, err := verifyDigestRAW(msg, sec.AuthParams, key, AUTH_PROTOCOL_SHA)
	require.NoError(t, err)
	assert.True(t, ok)

	wrongKey, err := Localize([]byte("authpass2"), engineID, AUTH_PROTOCOL_SHA)
	require.NoError(t, err)
	ok, err = verifyDigestRAW(msg, sec.AuthParams, wrongKey, AUTH_PROTOCOL_SHA)
	require.NoError(t, err)
	assert.False(t, ok)

	tampered := bytes.Clone(msg)
	tampered[len(tampered)-1] ^= 0x01
	ok, err = verifyDigestRAW(tampered, sec.AuthParams, key, AUTH_PROTOCOL_SHA)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = verifyDigestRAW(msg, sec.AuthParams[:8], key, AUTH_PROTOCOL_SHA)
	assert.Error(t, err)
}
