// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"bytes"
	"context"
	"encoding/hex"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Session is the USM state held for one agent: its engine identity, the boots/time
// pair used for timeliness, localized keys and the message counters.
//
// A Session is created by NewSession, which performs engine discovery, and is owned
// by one command at a time. Calls are serialized internally.
//
//	client, _ := snmpv3.Dial(ctx, "192.0.2.1", snmpv3.ClientOptions{})
//	sess, err := snmpv3.NewSession(ctx, client, "monitor")
//	if err != nil { ... }
//	_ = sess.SetAuthKey(snmpv3.AUTH_PROTOCOL_SHA, []byte("authpass"))
//	_ = sess.SetPrivKeyAndSalt(snmpv3.PRIV_PROTOCOL_AES128, []byte("privpass"))
type Session struct {
	mu sync.Mutex

	client *Client
	logger *slog.Logger
	user   []byte

	engineID   []byte
	boots      int32
	engineTime int32
	syncedAt   time.Time

	authAlg DigestAlgorithm
	authKey []byte
	priv    PrivacyAlgorithm

	msgID     int32
	requestID int32

	now func() time.Time
}

// NewSession discovers the agent behind client.
//
// Parameters:
//
//	ctx    - cancels or bounds the discovery round trip
//	client - socket from Dial; the session does not close it
//	user   - USM user name, non-empty
//
// Algorithm:
//
//	Sends a reportable noAuthNoPriv GET with an empty engine ID. The agent answers with
//	a usmStatsUnknownEngineIDs report; its engine ID, boots and time are adopted.
//
// Returns:
//
//	*Session - ready for SetAuthKey / SetPrivKeyAndSalt
//	error    - ErrTimeout when the agent never answers, ErrProtocol on an empty engine ID
func NewSession(ctx context.Context, client *Client, user string) (*Session, error) {
	if user == "" {
		return nil, errorf(ErrInvalidInput, "session", "empty user name")
	}
	s := &Session{
		client:    client,
		logger:    client.logger,
		user:      []byte(user),
		priv:      noPrivacy{},
		msgID:     rand.Int31(),
		requestID: rand.Int31(),
		now:       time.Now,
	}
	if err := s.discover(ctx); err != nil {
		return nil, withTarget(err, client.host, "")
	}
	return s, nil
}

func (s *Session) discover(ctx context.Context) error {
	const op = "discovery"
	probe, err := ParseOID(discoveryProbeOID)
	if err != nil {
		return newError(ErrInvalidInput, op, err)
	}
	vbs, err := requestVarBinds([]ObjectIdentifier{probe})
	if err != nil {
		return newError(ErrInvalidInput, op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	msgID, requestID := s.nextIDs()
	pdu := SNMP_Packet_V2_PDU{RequestID: requestID, VarBinds: vbs}
	msg, err := s.makeMessage(SNMPv2_REQUEST_GET, pdu, msgID, 1<<msgFlag_Reportable_Bit)
	if err != nil {
		return newError(ErrProtocol, op, err)
	}
	resp, err := s.client.roundTrip(ctx, msg, func(packet []byte) (decodedMessage, error) {
		return s.parseResponse(packet, msgID, requestID)
	})
	if err != nil {
		return err
	}
	engineID := resp.Security.AuthEng
	if len(engineID) == 0 {
		return errorf(ErrProtocol, op, "agent reported an empty engine ID")
	}
	if len(engineID) < SNMP_ENGINEID_MINLEN || len(engineID) > SNMP_ENGINEID_MAXLEN {
		s.logger.Warn("engine ID length outside 5..32", "engine_id", hex.EncodeToString(engineID))
	}
	s.engineID = bytes.Clone(engineID)
	s.resync(resp.Security.Boots, resp.Security.Time)
	s.logger.Debug("engine discovered",
		"engine_id", hex.EncodeToString(s.engineID),
		"boots", s.boots,
		"time", s.engineTime)
	return nil
}

// SetAuthKey localizes passphrase for the discovered engine and enables authentication.
func (s *Session) SetAuthKey(alg DigestAlgorithm, passphrase []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.engineID) == 0 {
		return errorf(ErrInvalidInput, "set auth key", "engine not discovered")
	}
	key, err := Localize(passphrase, s.engineID, alg)
	if err != nil {
		return newError(ErrInvalidInput, "set auth key", err)
	}
	s.authAlg, s.authKey = alg, key
	return nil
}

// SetPrivKeyAndSalt localizes passphrase with the authentication digest and installs
// the privacy algorithm with a fresh random salt. Authentication must be set first.
func (s *Session) SetPrivKeyAndSalt(proto PrivacyProtocol, passphrase []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authKey == nil {
		return errorf(ErrInvalidInput, "set priv key", "privacy requires authentication")
	}
	key, err := Localize(passphrase, s.engineID, s.authAlg)
	if err != nil {
		return newError(ErrInvalidInput, "set priv key", err)
	}
	priv, err := NewPrivacyAlgorithm(proto, key)
	if err != nil {
		return newError(ErrInvalidInput, "set priv key", err)
	}
	s.priv = priv
	return nil
}

// EngineID returns a copy of the discovered authoritative engine ID.
func (s *Session) EngineID() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.engineID)
}

// EngineBootsTime returns the last synchronized boots and the current time estimate.
func (s *Session) EngineBootsTime() (boots, engineTime int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boots, s.estimatedTime()
}

// Host is the resolved address of the agent.
func (s *Session) Host() string {
	return s.client.RemoteAddr()
}

func (s *Session) flags() byte {
	f := byte(1 << msgFlag_Reportable_Bit)
	if s.authKey != nil {
		f |= 1 << msgFlag_Authenticated_Bit
		if s.priv.Protocol() != PRIV_PROTOCOL_NONE {
			f |= 1 << msgFlag_Encrypted_Bit
		}
	}
	return f
}

func (s *Session) nextIDs() (msgID, requestID int32) {
	s.msgID = (s.msgID + 1) & 0x7fffffff
	s.requestID = (s.requestID + 1) & 0x7fffffff
	return s.msgID, s.requestID
}

// estimatedTime is the agent's engine time as of now.
func (s *Session) estimatedTime() int32 {
	if s.syncedAt.IsZero() {
		return s.engineTime
	}
	elapsed := int64(s.now().Sub(s.syncedAt) / time.Second)
	t := int64(s.engineTime) + elapsed
	if t > SNMP_MAXENGINEBOOTS {
		t = SNMP_MAXENGINEBOOTS
	}
	return int32(t)
}

func (s *Session) resync(boots, engineTime int32) {
	s.boots, s.engineTime, s.syncedAt = boots, engineTime, s.now()
}

// checkBoots rejects a boots value the session must never adopt: one below the
// synchronized value, or the latched maximum.
func (s *Session) checkBoots(op string, boots int32) error {
	switch {
	case boots == SNMP_MAXENGINEBOOTS:
		return errorf(ErrSecurity, op, "agent boots counter latched at %d", boots)
	case boots < s.boots:
		return errorf(ErrSecurity, op, "agent boots went back from %d to %d", s.boots, boots)
	}
	return nil
}

// resyncFromReport adopts boots and time from a notInTimeWindow report. On an
// authenticated session the report itself must be authenticated.
func (s *Session) resyncFromReport(op string, resp decodedMessage) error {
	if s.authKey != nil && resp.Flags&(1<<msgFlag_Authenticated_Bit) == 0 {
		return errorf(ErrSecurity, op, "unauthenticated notInTimeWindow report")
	}
	if err := s.checkBoots(op, resp.Security.Boots); err != nil {
		return err
	}
	s.logger.Debug("not in time window, resynchronizing",
		"boots", resp.Security.Boots, "time", resp.Security.Time)
	if resp.Security.Boots != s.boots {
		s.priv.Reseed()
	}
	s.resync(resp.Security.Boots, resp.Security.Time)
	return nil
}

// checkTimeliness applies the RFC 3414 §3.2.7 rules to an authenticated response.
func (s *Session) checkTimeliness(sec SNMPv3_SecSeq) error {
	const op = "timeliness"
	if err := s.checkBoots(op, sec.Boots); err != nil {
		return err
	}
	if sec.Boots > s.boots {
		s.logger.Debug("agent rebooted, resynchronizing",
			"old_boots", s.boots, "boots", sec.Boots, "time", sec.Time)
		s.resync(sec.Boots, sec.Time)
		s.priv.Reseed()
		return nil
	}
	estimate := s.estimatedTime()
	if int64(sec.Time) < int64(estimate)-SNMP_TIMEWINDOW {
		return errorf(ErrSecurity, op, "agent time %d outside the window of %d", sec.Time, estimate)
	}
	if sec.Time > s.engineTime {
		s.resync(sec.Boots, sec.Time)
	}
	return nil
}

// send performs one request against the agent. A notInTimeWindow report resynchronizes
// boots and time and the request is sent once more.
func (s *Session) send(ctx context.Context, pduType int, oids []ObjectIdentifier) (decodedMessage, error) {
	op := pduName(pduType)
	vbs, err := requestVarBinds(oids)
	if err != nil {
		return decodedMessage{}, newError(ErrInvalidInput, op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; ; attempt++ {
		flags := s.flags()
		msgID, requestID := s.nextIDs()
		pdu := SNMP_Packet_V2_PDU{RequestID: requestID, VarBinds: vbs}
		msg, err := s.makeMessage(pduType, pdu, msgID, flags)
		if err != nil {
			return decodedMessage{}, newError(ErrProtocol, op, err)
		}
		s.logger.Debug("sending request",
			"pdu", op, "request_id", requestID, "varbinds", len(vbs))
		resp, err := s.client.roundTrip(ctx, msg, func(packet []byte) (decodedMessage, error) {
			return s.parseResponse(packet, msgID, requestID)
		})
		if err != nil {
			return decodedMessage{}, err
		}

		if resp.PDUType == SNMPv2_REQUEST_REPORT {
			rerr := reportOf(resp)
			if rerr.OID == OID_NotInTimeWindow && attempt == 0 {
				if err := s.resyncFromReport(op, resp); err != nil {
					return decodedMessage{}, err
				}
				continue
			}
			return decodedMessage{}, classifyReport(op, rerr)
		}

		if flags&(1<<msgFlag_Authenticated_Bit) != 0 {
			if resp.Flags&(1<<msgFlag_Authenticated_Bit) == 0 {
				return decodedMessage{}, errorf(ErrSecurity, op, "unauthenticated response to an authenticated request")
			}
			if flags&(1<<msgFlag_Encrypted_Bit) != 0 && resp.Flags&(1<<msgFlag_Encrypted_Bit) == 0 {
				return decodedMessage{}, errorf(ErrSecurity, op, "unencrypted response to an encrypted request")
			}
			if err := s.checkTimeliness(resp.Security); err != nil {
				return decodedMessage{}, err
			}
		}

		if resp.ErrorStatusRaw != sNMP_ErrNoError {
			serr := &StatusError{Status: resp.ErrorStatusRaw, Index: resp.ErrorIndexRaw}
			if i := int(resp.ErrorIndexRaw) - 1; i >= 0 && i < len(oids) {
				serr.OID = oids[i].String()
			}
			return decodedMessage{}, &Error{Kind: ErrProtocol, Op: op, OID: serr.OID, Err: serr}
		}
		return resp, nil
	}
}

func reportOf(resp decodedMessage) *ReportError {
	rerr := &ReportError{}
	if len(resp.VarBinds) == 0 {
		return rerr
	}
	vb := resp.VarBinds[0]
	rerr.OID = vb.Name.String()
	switch vb.Value.Kind {
	case KindCounter, KindUnsignedInt, KindBigCounter:
		rerr.Counter = vb.Value.Unsigned
	}
	return rerr
}

// classifyReport maps a report to an error kind.
func classifyReport(op string, rerr *ReportError) error {
	switch rerr.OID {
	case OID_NotInTimeWindow, OID_UnknownUserNames, OID_WrongDigests, OID_DecryptionErrors,
		OID_UnsupportedSecLevels, OID_UnknownEngineIDs:
		return newError(ErrSecurity, op, rerr)
	}
	return newError(ErrProtocol, op, rerr)
}

func pduName(pduType int) string {
	switch pduType {
	case SNMPv2_REQUEST_GET:
		return "get"
	case SNMPv2_REQUEST_GETNEXT:
		return "getnext"
	case SNMPv2_REQUEST_RESPONSE:
		return "response"
	case SNMPv2_REQUEST_REPORT:
		return "report"
	}
	return "pdu"
}
