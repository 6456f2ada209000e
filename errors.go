// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every failure returned by this package matches exactly one of them
// with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTimeout      = errors.New("timeout")
	ErrSecurity     = errors.New("security error")
	ErrProtocol     = errors.New("protocol error")
	ErrIO           = errors.New("i/o error")
)

// Error carries the kind of a failure together with the target it happened on.
type Error struct {
	Kind error
	Op   string
	Host string
	OID  string
	Err  error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
	}
	if e.Host != "" {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(e.Host)
	}
	if e.OID != "" {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(e.OID)
	}
	if sb.Len() > 0 {
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.Error())
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

func errorf(kind error, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// withTarget fills host and OID context on an *Error that does not carry them yet.
// Foreign errors are wrapped as ErrIO.
func withTarget(err error, host, oid string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if !errors.As(err, &se) {
		return &Error{Kind: ErrIO, Host: host, OID: oid, Err: err}
	}
	if se.Host == "" {
		se.Host = host
	}
	if se.OID == "" {
		se.OID = oid
	}
	return err
}

// StatusError is a response PDU with a non-zero error-status (RFC 3416 §4.2).
type StatusError struct {
	Status int32
	Index  int32
	OID    string
}

func (e *StatusError) Error() string {
	name, ok := SNMPErrorNames[int(e.Status)]
	if !ok {
		name = fmt.Sprintf("status %d", e.Status)
	}
	if e.OID != "" {
		return fmt.Sprintf("agent returned %s at index %d (%s)", name, e.Index, e.OID)
	}
	return fmt.Sprintf("agent returned %s at index %d", name, e.Index)
}

var SNMPErrorNames = map[int]string{
	sNMP_ErrNoError:             "noError",
	sNMP_ErrTooBig:              "tooBig",
	sNMP_ErrNoSuchName:          "noSuchName",
	sNMP_ErrBadValue:            "badValue",
	sNMP_ErrReadOnly:            "readOnly",
	sNMP_ErrGeneralError:        "genErr",
	sNMP_ErrNoAccess:            "noAccess",
	sNMP_ErrWrongType:           "wrongType",
	sNMP_ErrWrongLength:         "wrongLength",
	sNMP_ErrWrongEncoding:       "wrongEncoding",
	sNMP_ErrWrongValue:          "wrongValue",
	sNMP_ErrNoCreation:          "noCreation",
	sNMP_ErrInconsistentValue:   "inconsistentValue",
	sNMP_ErrResourceUnavailable: "resourceUnavailable",
	sNMP_ErrCommitFailed:        "commitFailed",
	sNMP_ErrUndoFailed:          "undoFailed",
	sNMP_ErrAuthorizationError:  "authorizationError",
	sNMP_ErrNotWritable:         "notWritable",
	sNMP_ErrInconsistentName:    "inconsistentName",
}

// ReportError is a Report PDU received in place of a response.
type ReportError struct {
	OID     string
	Counter uint64
}

func (e *ReportError) Error() string {
	name, ok := reportNames[e.OID]
	if !ok {
		name = "report " + e.OID
	}
	return fmt.Sprintf("%s (counter %d)", name, e.Counter)
}

var reportNames = map[string]string{
	OID_UnsupportedSecLevels: "usmStatsUnsupportedSecLevels",
	OID_NotInTimeWindow:      "usmStatsNotInTimeWindows",
	OID_UnknownUserNames:     "usmStatsUnknownUserNames",
	OID_UnknownEngineIDs:     "usmStatsUnknownEngineIDs",
	OID_WrongDigests:         "usmStatsWrongDigests",
	OID_DecryptionErrors:     "usmStatsDecryptionErrors",
	OID_UnknownContext:       "snmpUnknownContexts",
}
