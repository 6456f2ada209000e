// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"bytes"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"errors"
	"fmt"
	"hash"
	"strings"

	ASNber "github.com/OlegPowerC/asn1modsnmp"
)

// DigestAlgorithm selects the USM authentication protocol.
type DigestAlgorithm int

const (
	AUTH_PROTOCOL_NONE DigestAlgorithm = iota
	AUTH_PROTOCOL_MD5
	AUTH_PROTOCOL_SHA
)

// passphraseExpansion is the number of passphrase bytes digested by the
// password-to-key algorithm (RFC 3414 Appendix A.2).
const passphraseExpansion = 1048576

// ParseDigestAlgorithm accepts MD5, SHA1 and SHA in any case. An empty name means none.
func ParseDigestAlgorithm(name string) (DigestAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return AUTH_PROTOCOL_NONE, nil
	case "md5":
		return AUTH_PROTOCOL_MD5, nil
	case "sha", "sha1":
		return AUTH_PROTOCOL_SHA, nil
	}
	return AUTH_PROTOCOL_NONE, fmt.Errorf("unsupported auth protocol %q", name)
}

func (a DigestAlgorithm) String() string {
	switch a {
	case AUTH_PROTOCOL_NONE:
		return "NONE"
	case AUTH_PROTOCOL_MD5:
		return "MD5"
	case AUTH_PROTOCOL_SHA:
		return "SHA1"
	}
	return fmt.Sprintf("DigestAlgorithm(%d)", int(a))
}

// newHash returns the hash constructor, or nil for AUTH_PROTOCOL_NONE.
func (a DigestAlgorithm) newHash() func() hash.Hash {
	switch a {
	case AUTH_PROTOCOL_MD5:
		return md5.New
	case AUTH_PROTOCOL_SHA:
		return sha1.New
	}
	return nil
}

// localizeKey is the RFC 3414 password-to-key algorithm for any digest:
//
//	Ku  = H(passphrase repeated to 1 MiB)
//	Kul = H(Ku | engineID | Ku)
func localizeKey(newHash func() hash.Hash, passphrase, engineID []byte) []byte {
	h := newHash()
	block := make([]byte, 64)
	idx := 0
	for count := 0; count < passphraseExpansion; count += len(block) {
		for i := range block {
			block[i] = passphrase[idx%len(passphrase)]
			idx++
		}
		h.Write(block)
	}
	ku := h.Sum(nil)

	h.Reset()
	h.Write(ku)
	h.Write(engineID)
	h.Write(ku)
	return h.Sum(nil)
}

// Localize derives the USM key bound to one authoritative engine (RFC 3414 A.2).
//
// Parameters:
//
//	passphrase - user secret, at least one byte (Run requires 8)
//	engineID   - authoritative engine ID from discovery
//	alg        - AUTH_PROTOCOL_MD5 or AUTH_PROTOCOL_SHA
//
// Algorithm:
//  1. Repeat passphrase cyclically over 1,048,576 bytes, hashing 64 bytes at a time: Ku
//  2. Kul = hash(Ku | engineID | Ku)
//
// Returns:
//
//	Kul - 16 bytes for MD5, 20 bytes for SHA1. Used directly as the HMAC key, and
//	      as privacy key material (DES takes key and pre-IV from it, AES the first 16)
func Localize(passphrase, engineID []byte, alg DigestAlgorithm) ([]byte, error) {
	newHash := alg.newHash()
	if newHash == nil {
		return nil, fmt.Errorf("cannot localize a key for %s", alg)
	}
	if len(passphrase) == 0 {
		return nil, errors.New("empty passphrase")
	}
	return localizeKey(newHash, passphrase, engineID), nil
}

// makeDigest computes HMAC-96: the HMAC of the whole message truncated to 12 bytes
// (RFC 3414 §6.3.1, §7.3.1). The authentication parameters in msg must be zeroed.
func makeDigest(msg, localizedKey []byte, alg DigestAlgorithm) []byte {
	mac := hmac.New(alg.newHash(), localizedKey)
	mac.Write(msg)
	return mac.Sum(nil)[:SNMP_AUTHPARAMSLEN]
}

// authParamsOffset locates the msgAuthenticationParameters octets inside a raw message.
// The codec lookup is preferred; when its answer does not point at the received
// parameters the first occurrence of them is used instead.
func authParamsOffset(packet, authParams []byte) (int, error) {
	offset, aplen, err := ASNber.FindSNMPv3AuthParamsOffset(packet)
	if err == nil && offset > 0 && aplen == len(authParams) && offset+aplen <= len(packet) &&
		bytes.Equal(packet[offset:offset+aplen], authParams) {
		return offset, nil
	}
	if idx := bytes.Index(packet, authParams); idx > 0 {
		return idx, nil
	}
	if err != nil {
		return 0, err
	}
	return 0, errors.New("authentication parameters not found")
}

// verifyDigestRAW zero-fills the received digest in a copy of packet, recomputes it
// and compares in constant time.
func verifyDigestRAW(packet, digest, localizedKey []byte, alg DigestAlgorithm) (bool, error) {
	if len(digest) != SNMP_AUTHPARAMSLEN {
		return false, fmt.Errorf("authentication parameters of %d bytes, want %d", len(digest), SNMP_AUTHPARAMSLEN)
	}
	offset, err := authParamsOffset(packet, digest)
	if err != nil {
		return false, err
	}
	zeroed := bytes.Clone(packet)
	clear(zeroed[offset : offset+len(digest)])
	return hmac.Equal(makeDigest(zeroed, localizedKey, alg), digest), nil
}
