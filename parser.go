// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"bytes"
	"fmt"

	ASNber "github.com/OlegPowerC/asn1modsnmp"
)

// parseResponse decodes one received datagram for the request identified by msgID and
// requestID. Datagrams belonging to another request are reported as errMismatch; the
// digest is checked before anything inside the scoped PDU is trusted.
func (s *Session) parseResponse(packet []byte, msgID, requestID int32) (decodedMessage, error) {
	const op = "parse"
	var (
		msg    decodedMessage
		outer  SNMPv3_Packet
		global SNMPv3_GlobalData
		scoped SNMPv3_PDU
		pdu    SNMP_Packet_V2_PDU
	)

	if _, err := ASNber.Unmarshal(packet, &outer); err != nil {
		return msg, fmt.Errorf("%w: %v", errMismatch, err)
	}
	if outer.Version != snmpVersion3 {
		return msg, fmt.Errorf("%w: version %d", errMismatch, outer.Version)
	}
	if _, err := ASNber.Unmarshal(outer.GlobalData.FullBytes, &global); err != nil {
		return msg, newError(ErrProtocol, op, fmt.Errorf("msgGlobalData: %w", err))
	}
	if global.MsgID != msgID {
		return msg, fmt.Errorf("%w: msgID %d, want %d", errMismatch, global.MsgID, msgID)
	}
	if len(global.MsgFlag) != 1 {
		return msg, errorf(ErrProtocol, op, "msgFlags of %d bytes", len(global.MsgFlag))
	}
	if global.MsgSecurityModel != msgSecurityModel_USM {
		return msg, errorf(ErrProtocol, op, "security model %d", global.MsgSecurityModel)
	}
	msg.MsgID = global.MsgID
	msg.Flags = global.MsgFlag[0]

	if _, err := ASNber.Unmarshal(outer.SecuritySettings, &msg.Security); err != nil {
		return msg, newError(ErrProtocol, op, fmt.Errorf("usm parameters: %w", err))
	}

	if msg.Flags&(1<<msgFlag_Authenticated_Bit) != 0 {
		if s.authKey == nil {
			return msg, errorf(ErrSecurity, op, "authenticated response but no authentication key")
		}
		ok, err := verifyDigestRAW(packet, msg.Security.AuthParams, s.authKey, s.authAlg)
		if err != nil {
			return msg, newError(ErrSecurity, op, err)
		}
		if !ok {
			return msg, errorf(ErrSecurity, op, "authentication digest mismatch")
		}
	} else if msg.Flags&(1<<msgFlag_Encrypted_Bit) != 0 {
		return msg, errorf(ErrProtocol, op, "encrypted response without authentication")
	}

	plaintext := outer.PtData.FullBytes
	if msg.Flags&(1<<msgFlag_Encrypted_Bit) != 0 {
		if s.priv.Protocol() == PRIV_PROTOCOL_NONE {
			return msg, errorf(ErrSecurity, op, "encrypted response but no privacy key")
		}
		if outer.PtData.Class != ASNber.ClassUniversal || outer.PtData.Tag != ASNber.TagOctetString {
			return msg, errorf(ErrProtocol, op, "encryptedPDU is not an OCTET STRING")
		}
		var err error
		plaintext, err = s.priv.Decrypt(outer.PtData.Bytes, msg.Security.PrivParams, msg.Security.Boots, msg.Security.Time)
		if err != nil {
			return msg, newError(ErrSecurity, op, err)
		}
	}
	// Trailing bytes after the scoped PDU are cipher padding.
	if _, err := ASNber.Unmarshal(plaintext, &scoped); err != nil {
		if msg.Flags&(1<<msgFlag_Encrypted_Bit) != 0 {
			return msg, newError(ErrSecurity, op, fmt.Errorf("decrypted scoped PDU: %w", err))
		}
		return msg, newError(ErrProtocol, op, fmt.Errorf("scoped PDU: %w", err))
	}

	body := scoped.V2VarBind
	if body.Class != ASNber.ClassContextSpecific || !body.IsCompound || len(body.FullBytes) == 0 {
		return msg, errorf(ErrProtocol, op, "no PDU in scoped PDU")
	}
	switch body.Tag {
	case SNMPv2_REQUEST_RESPONSE, SNMPv2_REQUEST_REPORT:
		msg.PDUType = body.Tag
	default:
		return msg, errorf(ErrProtocol, op, "unexpected PDU type %d", body.Tag)
	}

	// The context tag is replaced by SEQUENCE so the PDU decodes as a plain struct.
	seq := bytes.Clone(body.FullBytes)
	seq[0] = 0x30
	if _, err := ASNber.Unmarshal(seq, &pdu); err != nil {
		return msg, newError(ErrProtocol, op, fmt.Errorf("PDU: %w", err))
	}
	if msg.PDUType == SNMPv2_REQUEST_RESPONSE && pdu.RequestID != requestID {
		return msg, fmt.Errorf("%w: request-id %d, want %d", errMismatch, pdu.RequestID, requestID)
	}
	msg.RequestID = pdu.RequestID
	msg.ErrorStatusRaw = pdu.ErrorStatusRaw
	msg.ErrorIndexRaw = pdu.ErrorIndexRaw

	msg.VarBinds = make([]decodedVarBind, 0, len(pdu.VarBinds))
	for i, vb := range pdu.VarBinds {
		if vb.RSnmpOID.Class != ASNber.ClassUniversal || vb.RSnmpOID.Tag != ASNber.TagOID {
			return msg, errorf(ErrProtocol, op, "var-bind %d: name is not an OBJECT IDENTIFIER", i+1)
		}
		name, err := parseOIDContent(vb.RSnmpOID.Bytes)
		if err != nil {
			return msg, newError(ErrProtocol, op, fmt.Errorf("var-bind %d: %w", i+1, err))
		}
		value, err := decodeValue(vb.RSnmpVar)
		if err != nil {
			return msg, &Error{Kind: ErrProtocol, Op: op, OID: name.String(), Err: err}
		}
		msg.VarBinds = append(msg.VarBinds, decodedVarBind{Name: name, Value: value})
	}
	return msg, nil
}
