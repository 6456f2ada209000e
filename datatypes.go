// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"fmt"

	ASNber "github.com/OlegPowerC/asn1modsnmp"
)

// Wire structures. Field order is the BER SEQUENCE order, ASNber marshals them as is.

// SNMPv3_Packet is the outer SNMPv3Message (RFC 3412 §6).
// PtData holds either the plaintext ScopedPDU (FullBytes) or the encrypted OCTET STRING.
// SNMPv3_Packet is the outer SNMPv3Message (RFC 3412 §6). PtData holds either the
// plaintext ScopedPDU or the encryptedPDU OCTET STRING.
type SNMPv3_Packet struct {
	Version          int
	GlobalData       ASNber.RawValue
	SecuritySettings []byte
	PtData           ASNber.RawValue
}

// SNMPv3_GlobalData is HeaderData: msgID, msgMaxSize, msgFlags, msgSecurityModel.
type SNMPv3_GlobalData struct {
	MsgID            int32
	MsgMaxSize       int
	MsgFlag          []byte
	MsgSecurityModel int
}

// SNMPv3_SecSeq is UsmSecurityParameters (RFC 3414 §2.4).
type SNMPv3_SecSeq struct {
	AuthEng    []byte
	Boots      int32
	Time       int32
	User       []byte
	AuthParams []byte
	PrivParams []byte
}

// SNMPv3_PDU is the ScopedPDU. V2VarBind carries the context-tagged PDU whole.
type SNMPv3_PDU struct {
	ContextEngineId []byte
	ContextName     []byte
	V2VarBind       ASNber.RawValue
}

// SNMP_Packet_V2_PDU is the PDU body shared by GET, GETNEXT, Response and Report.
// The PDU type lives in the context tag of the enclosing RawValue.
type SNMP_Packet_V2_PDU struct {
	RequestID      int32
	ErrorStatusRaw int32
	ErrorIndexRaw  int32
	VarBinds       []SNMP_Packet_V2_VarBind
}

// SNMP_Packet_V2_VarBind keeps the name as a raw OBJECT IDENTIFIER so sub-identifiers
// up to 2^64-1 survive the round trip.
type SNMP_Packet_V2_VarBind struct {
	RSnmpOID ASNber.RawValue
	RSnmpVar ASNber.RawValue
}

// decodedVarBind is one response var-bind after value decoding.
type decodedVarBind struct {
	Name  ObjectIdentifier
	Value SnmpValue
}

// decodedMessage is a validated response message.
type decodedMessage struct {
	MsgID          int32
	Flags          byte
	Security       SNMPv3_SecSeq
	PDUType        int
	RequestID      int32
	ErrorStatusRaw int32
	ErrorIndexRaw  int32
	VarBinds       []decodedVarBind
}

// OID is an object identifier as supplied by the caller or stored in an OidMap.
type OID struct {
	Oid  string `json:"oid" yaml:"oid"`
	Name string `json:"name" yaml:"name"`
}

// OidMap is the ordered OID→name list an OidDirectory is built from.
type OidMap struct {
	Oids []OID `json:"oids" yaml:"oids"`
}

// CommandKind selects Get, GetNext or Walk.
type CommandKind int

const (
	CommandGet CommandKind = iota + 1
	CommandGetNext
	CommandWalk
)

func (k CommandKind) String() string {
	switch k {
	case CommandGet:
		return "Get"
	case CommandGetNext:
		return "GetNext"
	case CommandWalk:
		return "Walk"
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Command selects the operation Run performs. Oids is used by Get and GetNext,
// Oid by Walk.
type Command struct {
	Kind CommandKind
	Oids []OID
	Oid  OID
}

// GetCommand reads oids with one GET.
func GetCommand(oids ...OID) Command { return Command{Kind: CommandGet, Oids: oids} }

// GetNextCommand reads the successors of oids with one GETNEXT.
func GetNextCommand(oids ...OID) Command { return Command{Kind: CommandGetNext, Oids: oids} }

// WalkCommand walks the subtree at oid; an empty oid walks MIB-2.
func WalkCommand(oid OID) Command { return Command{Kind: CommandWalk, Oid: oid} }

// Params describes one command against one agent. Empty Auth/Privacy mean the
// corresponding protocol is not used.
type Params struct {
	User            string  `json:"user" yaml:"user"`
	Host            string  `json:"host" yaml:"host"`
	Auth            string  `json:"auth,omitempty" yaml:"auth,omitempty"`
	AuthProtocol    string  `json:"auth_protocol,omitempty" yaml:"auth_protocol,omitempty"`
	Privacy         string  `json:"privacy,omitempty" yaml:"privacy,omitempty"`
	PrivacyProtocol string  `json:"privacy_protocol,omitempty" yaml:"privacy_protocol,omitempty"`
	Cmd             Command `json:"cmd" yaml:"cmd"`
}

// SnmpResult is one returned var-bind. Oid is the resolved display name or the raw OID.
type SnmpResult struct {
	Host   string     `json:"host" yaml:"host"`
	Oid    string     `json:"oid" yaml:"oid"`
	Result *SnmpValue `json:"result,omitempty" yaml:"result,omitempty"`
}

// String is the two-line "OID: ...\nValue: ..." text form.
func (r SnmpResult) String() string {
	if r.Result == nil {
		return fmt.Sprintf("OID: %s\nValue <none>\n", r.Oid)
	}
	return fmt.Sprintf("OID: %s\nValue: %s\n", r.Oid, r.Result.String())
}

// HostResults is the outcome of one Params entry in a batch.
type HostResults struct {
	Host    string       `json:"host"`
	Results []SnmpResult `json:"results"`
	Err     error        `json:"-"`
}
