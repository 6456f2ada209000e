// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
)

// PrivacyProtocol selects the USM privacy protocol.
type PrivacyProtocol int

const (
	PRIV_PROTOCOL_NONE PrivacyProtocol = iota
	PRIV_PROTOCOL_DES
	PRIV_PROTOCOL_AES128
)

// ParsePrivacyProtocol accepts DES, AES128 and AES in any case. An empty name means none.
func ParsePrivacyProtocol(name string) (PrivacyProtocol, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return PRIV_PROTOCOL_NONE, nil
	case "des":
		return PRIV_PROTOCOL_DES, nil
	case "aes", "aes128":
		return PRIV_PROTOCOL_AES128, nil
	}
	return PRIV_PROTOCOL_NONE, fmt.Errorf("unsupported privacy protocol %q", name)
}

func (p PrivacyProtocol) String() string {
	switch p {
	case PRIV_PROTOCOL_NONE:
		return "NONE"
	case PRIV_PROTOCOL_DES:
		return "DES"
	case PRIV_PROTOCOL_AES128:
		return "AES128"
	}
	return fmt.Sprintf("PrivacyProtocol(%d)", int(p))
}

// PrivacyAlgorithm encrypts and decrypts scoped PDUs. Encrypt advances the salt exactly
// once per call and returns the msgPrivacyParameters to send with the ciphertext.
type PrivacyAlgorithm interface {
	Protocol() PrivacyProtocol
	Encrypt(scopedPDU []byte, boots, engineTime int32) (ciphertext, privParams []byte, err error)
	Decrypt(ciphertext, privParams []byte, boots, engineTime int32) ([]byte, error)
	// Reseed restarts the salt from a random value. Called when the agent's boots change.
	Reseed()
}

// NewPrivacyAlgorithm builds the algorithm for proto from a localized privacy key.
func NewPrivacyAlgorithm(proto PrivacyProtocol, localizedKey []byte) (PrivacyAlgorithm, error) {
	switch proto {
	case PRIV_PROTOCOL_NONE:
		return noPrivacy{}, nil
	case PRIV_PROTOCOL_DES:
		if len(localizedKey) < 16 {
			return nil, fmt.Errorf("DES needs a localized key of at least 16 bytes, got %d", len(localizedKey))
		}
		p := &desPrivacy{key: bytes.Clone(localizedKey[:8]), preIV: bytes.Clone(localizedKey[8:16])}
		p.Reseed()
		return p, nil
	case PRIV_PROTOCOL_AES128:
		if len(localizedKey) < 16 {
			return nil, fmt.Errorf("AES128 needs a localized key of at least 16 bytes, got %d", len(localizedKey))
		}
		p := &aesPrivacy{key: bytes.Clone(localizedKey[:16])}
		p.Reseed()
		return p, nil
	}
	return nil, fmt.Errorf("unsupported privacy protocol %s", proto)
}

type noPrivacy struct{}

func (noPrivacy) Protocol() PrivacyProtocol { return PRIV_PROTOCOL_NONE }
func (noPrivacy) Reseed()                   {}

func (noPrivacy) Encrypt(scopedPDU []byte, _, _ int32) ([]byte, []byte, error) {
	return scopedPDU, nil, nil
}

func (noPrivacy) Decrypt(ciphertext, _ []byte, _, _ int32) ([]byte, error) {
	return ciphertext, nil
}

// desPrivacy is CBC-DES (RFC 3414 §8). The salt is boots(4) | counter(4); the IV is
// the pre-IV XOR the salt.
type desPrivacy struct {
	key     []byte
	preIV   []byte
	counter atomic.Uint32
}

func (p *desPrivacy) Protocol() PrivacyProtocol { return PRIV_PROTOCOL_DES }
func (p *desPrivacy) Reseed()                   { p.counter.Store(rand.Uint32()) }

// Step returns the next salt counter.
func (p *desPrivacy) Step() uint32 { return p.counter.Add(1) }

func (p *desPrivacy) iv(salt []byte) []byte {
	iv := make([]byte, 8)
	for i := range iv {
		iv[i] = p.preIV[i] ^ salt[i]
	}
	return iv
}

// Encrypt encrypts one scoped PDU with CBC-DES (RFC 3414 §8.1.1.1).
//
// Parameters:
//
//	scopedPDU - serialized ScopedPDU, padded here to a multiple of 8
//	boots     - msgAuthoritativeEngineBoots sent with the message
//
// Algorithm:
//  1. salt = boots (4 bytes) | next counter (4 bytes)
//  2. IV = pre-IV XOR salt
//  3. CBC-DES with the first 8 bytes of the localized key
//
// Returns:
//
//	ciphertext - encryptedPDU contents
//	salt       - msgPrivacyParameters (8 bytes)
func (p *desPrivacy) Encrypt(scopedPDU []byte, boots, _ int32) ([]byte, []byte, error) {
	salt := make([]byte, SNMP_PRIVPARAMSLEN)
	binary.BigEndian.PutUint32(salt[:4], uint32(boots))
	binary.BigEndian.PutUint32(salt[4:], p.Step())
	ciphertext, err := encryptDES(scopedPDU, p.key, p.iv(salt))
	if err != nil {
		return nil, nil, err
	}
	return ciphertext, salt, nil
}

func (p *desPrivacy) Decrypt(ciphertext, privParams []byte, _, _ int32) ([]byte, error) {
	if len(privParams) != SNMP_PRIVPARAMSLEN {
		return nil, fmt.Errorf("DES privacy parameters of %d bytes, want %d", len(privParams), SNMP_PRIVPARAMSLEN)
	}
	return decryptDES(ciphertext, p.key, p.iv(privParams))
}

// aesPrivacy is CFB128-AES-128 (RFC 3826). The IV is boots(4) | time(4) | salt(8).
type aesPrivacy struct {
	key  []byte
	salt atomic.Uint64
}

func (p *aesPrivacy) Protocol() PrivacyProtocol { return PRIV_PROTOCOL_AES128 }
func (p *aesPrivacy) Reseed()                   { p.salt.Store(rand.Uint64()) }

// Step returns the next 64-bit salt.
func (p *aesPrivacy) Step() uint64 { return p.salt.Add(1) }

func aesIV(boots, engineTime int32, salt []byte) []byte {
	iv := make([]byte, 16)
	binary.BigEndian.PutUint32(iv[0:4], uint32(boots))
	binary.BigEndian.PutUint32(iv[4:8], uint32(engineTime))
	copy(iv[8:], salt)
	return iv
}

// Encrypt encrypts one scoped PDU with CFB128-AES-128 (RFC 3826 §3.1.3).
//
// Parameters:
//
//	scopedPDU  - serialized ScopedPDU, no padding needed
//	boots      - msgAuthoritativeEngineBoots sent with the message
//	engineTime - msgAuthoritativeEngineTime sent with the message
//
// Algorithm:
//
//	IV = boots (4) | engineTime (4) | next 64-bit salt (8)
//
// Returns:
//
//	ciphertext - same length as scopedPDU
//	salt       - msgPrivacyParameters (8 bytes)
func (p *aesPrivacy) Encrypt(scopedPDU []byte, boots, engineTime int32) ([]byte, []byte, error) {
	salt := make([]byte, SNMP_PRIVPARAMSLEN)
	binary.BigEndian.PutUint64(salt, p.Step())
	ciphertext, err := encryptAESCFB(scopedPDU, p.key, aesIV(boots, engineTime, salt))
	if err != nil {
		return nil, nil, err
	}
	return ciphertext, salt, nil
}

func (p *aesPrivacy) Decrypt(ciphertext, privParams []byte, boots, engineTime int32) ([]byte, error) {
	if len(privParams) != SNMP_PRIVPARAMSLEN {
		return nil, fmt.Errorf("AES privacy parameters of %d bytes, want %d", len(privParams), SNMP_PRIVPARAMSLEN)
	}
	return decryptAESCFB(ciphertext, p.key, aesIV(boots, engineTime, privParams))
}

// padToBlock pads src up to a multiple of blockSize. Block aligned input is returned
// unchanged; the receiver ignores trailing octets after the scoped PDU.
func padToBlock(src []byte, blockSize int) ([]byte, error) {
	if len(src) == 0 {
		return nil, errors.New("zero data length")
	}
	if len(src)%blockSize == 0 {
		return src, nil
	}
	padding := blockSize - len(src)%blockSize
	out := make([]byte, len(src), len(src)+padding)
	copy(out, src)
	return append(out, bytes.Repeat([]byte{byte(padding)}, padding)...), nil
}

func encryptAESCFB(src, key, iv []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, errors.New("source data length error")
	}
	if len(iv) != aes.BlockSize {
		return nil, errors.New("IV length error")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, len(src))
	cipher.NewCFBEncrypter(block, iv).XORKeyStream(dst, src)
	return dst, nil
}

func decryptAESCFB(src, key, iv []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, errors.New("source data length error")
	}
	if len(iv) != aes.BlockSize {
		return nil, errors.New("IV length error")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, len(src))
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(dst, src)
	return dst, nil
}

func encryptDES(src, key, iv []byte) ([]byte, error) {
	if len(iv) != des.BlockSize {
		return nil, errors.New("IV length error")
	}
	block, err := des.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded, err := padToBlock(src, block.BlockSize())
	if err != nil {
		return nil, err
	}
	dst := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(dst, padded)
	return dst, nil
}

// decryptDES returns the plaintext with any padding still attached.
func decryptDES(src, key, iv []byte) ([]byte, error) {
	if len(iv) != des.BlockSize {
		return nil, errors.New("IV length error")
	}
	if len(src) == 0 || len(src)%des.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext of %d bytes is not a whole number of DES blocks", len(src))
	}
	block, err := des.NewCipher(key)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, len(src))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(dst, src)
	return dst, nil
}
