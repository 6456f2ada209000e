// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import "time"

// ASN.1/BER tag encoding constants.
// Bits 7-6: Class (Universal=00, Application=01, Context=10, Private=11)
// Bit 5: Constructed flag
// Bits 4-0: Tag Number
//
// Example: Class=0x01 (Application), Tag=0x03 → 0x43 (APPLICATION 3 = SNMP TIMETICKS)

const (
	// SNMP Application Types (Class=1)
	SNMP_type_IPADDR    = 0
	SNMP_type_COUNTER32 = 1
	SNMP_type_GAUGE32   = 2
	SNMP_type_TIMETICKS = 3
	SNMP_type_OPAQUE    = 4
	SNMP_type_COUNTER64 = 6

	// SNMPv2 Exception Tags (ContextSpecific, primitive, zero length)
	tagERR_noSuchObject   = 0
	tagERR_noSuchInstance = 1
	tagERR_EndOfMib       = 2
)

const (
	// Limits & Defaults
	SNMP_PORT            = 161
	SNMP_MAXIMUMWALK     = 1000000
	SNMP_BUFFERSIZE      = 65535
	SNMP_DEFAULTTIMEOUT  = 2 * time.Second
	SNMP_DIALTIMEOUT     = 10 * time.Second
	SNMP_DEFAULTMSGSIZE  = 1360
	SNMP_MINMSGSIZE      = 484
	SNMP_AUTHPARAMSLEN   = 12
	SNMP_PRIVPARAMSLEN   = 8
	SNMP_TIMEWINDOW      = 150
	SNMP_MAXENGINEBOOTS  = 2147483647
	SNMP_MAXCONCURRENCY  = 16
	SNMP_ENGINEID_MINLEN = 5
	SNMP_ENGINEID_MAXLEN = 32
)

const (
	// SNMPv3 Message Flags (msgFlags byte)
	msgFlag_Reportable_Bit    = 2
	msgFlag_Encrypted_Bit     = 1
	msgFlag_Authenticated_Bit = 0
)

const (
	// SNMPv3 message version and USM security model
	snmpVersion3         = 3
	msgSecurityModel_USM = 3
)

const (
	// SNMPv2 PDU Types (RFC3416), context-specific constructed tag numbers
	SNMPv2_REQUEST_GET      = 0
	SNMPv2_REQUEST_GETNEXT  = 1
	SNMPv2_REQUEST_RESPONSE = 2
	SNMPv2_REQUEST_REPORT   = 8
)

// USM statistics and MPD report OIDs (RFC 3414 §5, RFC 3412)
const (
	OID_UnsupportedSecLevels = "1.3.6.1.6.3.15.1.1.1.0"
	OID_NotInTimeWindow      = "1.3.6.1.6.3.15.1.1.2.0"
	OID_UnknownUserNames     = "1.3.6.1.6.3.15.1.1.3.0"
	OID_UnknownEngineIDs     = "1.3.6.1.6.3.15.1.1.4.0"
	OID_WrongDigests         = "1.3.6.1.6.3.15.1.1.5.0"
	OID_DecryptionErrors     = "1.3.6.1.6.3.15.1.1.6.0"
	OID_UnknownContext       = "1.3.6.1.6.3.12.1.5.0"
)

// MIB2_BASE_OID is walked when no usable start OID was supplied.
const MIB2_BASE_OID = "1.3.6.1.2.1"

// discoveryProbeOID is the sysDescr.0 var-bind carried by the engine discovery probe.
const discoveryProbeOID = "1.3.6.1.2.1.1.1.0"

const (
	// SNMP Error Status Codes (RFC3416 §3)
	sNMP_ErrNoError             = 0
	sNMP_ErrTooBig              = 1
	sNMP_ErrNoSuchName          = 2
	sNMP_ErrBadValue            = 3
	sNMP_ErrReadOnly            = 4
	sNMP_ErrGeneralError        = 5
	sNMP_ErrNoAccess            = 6
	sNMP_ErrWrongType           = 7
	sNMP_ErrWrongLength         = 8
	sNMP_ErrWrongEncoding       = 9
	sNMP_ErrWrongValue          = 10
	sNMP_ErrNoCreation          = 11
	sNMP_ErrInconsistentValue   = 12
	sNMP_ErrResourceUnavailable = 13
	sNMP_ErrCommitFailed        = 14
	sNMP_ErrUndoFailed          = 15
	sNMP_ErrAuthorizationError  = 16
	sNMP_ErrNotWritable         = 17
	sNMP_ErrInconsistentName    = 18
)
