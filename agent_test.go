//go:build !integration

// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	ASNber "github.com/OlegPowerC/asn1modsnmp"
	"github.com/stretchr/testify/require"
)

// A scripted SNMPv3 agent on the loopback interface. It answers discovery with an
// unknownEngineIDs report, checks digests, decrypts requests and replies with the
// var-binds its handler returns.

const (
	testUser     = "monitor"
	testAuthPass = "authpass1"
	testPrivPass = "privpass1"
)

var testEngineID = []byte{0x80, 0x00, 0x1f, 0x88, 0x80, 0x59, 0xdc, 0x48, 0x61, 0x45, 0xa2, 0x63}

type agentHandler func(pduType int, oids []ObjectIdentifier) []decodedVarBind

type agentConfig struct {
	Auth    DigestAlgorithm
	Priv    PrivacyProtocol
	Handler agentHandler
	Silent  bool
}

type testAgent struct {
	conn     net.PacketConn
	user     string
	authAlg  DigestAlgorithm
	authKey  []byte
	priv     PrivacyAlgorithm
	handler  agentHandler
	silent   bool
	engineID []byte

	mu          sync.Mutex
	boots       int32
	engineTime  int32
	errorStatus int32
	errorIndex  int32
	// report answers every request after discovery with this report OID.
	report string
	// notInTime is the number of notInTimeWindow reports sent before answering;
	// rebootTo, when set, is adopted as boots with the first of them.
	notInTime int
	rebootTo  int32
	// plainReports sends notInTimeWindow reports without authentication.
	plainReports bool
	// responseKey signs responses instead of authKey.
	responseKey []byte
	// downgrade strips the security flags from responses.
	downgrade bool
	// stray sends a response for another msgID ahead of the real one.
	stray    bool
	packets  int
	requests [][]ObjectIdentifier
	lastErr  error
}

func newTestAgent(t *testing.T, cfg agentConfig) *testAgent {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	a := &testAgent{
		conn:       conn,
		user:       testUser,
		authAlg:    cfg.Auth,
		priv:       noPrivacy{},
		handler:    cfg.Handler,
		silent:     cfg.Silent,
		engineID:   testEngineID,
		boots:      5,
		engineTime: 1000,
	}
	if a.handler == nil {
		a.handler = func(int, []ObjectIdentifier) []decodedVarBind { return nil }
	}
	if cfg.Auth != AUTH_PROTOCOL_NONE {
		a.authKey, err = Localize([]byte(testAuthPass), a.engineID, cfg.Auth)
		require.NoError(t, err)
	}
	if cfg.Priv != PRIV_PROTOCOL_NONE {
		key, err := Localize([]byte(testPrivPass), a.engineID, cfg.Auth)
		require.NoError(t, err)
		a.priv, err = NewPrivacyAlgorithm(cfg.Priv, key)
		require.NoError(t, err)
	}
	go a.serve()
	return a
}

func (a *testAgent) addr() string {
	return a.conn.LocalAddr().String()
}

func (a *testAgent) set(fn func(a *testAgent)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a)
}

func (a *testAgent) stats() (packets int, requests [][]ObjectIdentifier, lastErr error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.packets, a.requests, a.lastErr
}

func (a *testAgent) serve() {
	buf := make([]byte, SNMP_BUFFERSIZE)
	for {
		n, from, err := a.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		replies, err := a.handle(bytes.Clone(buf[:n]))
		if err != nil {
			a.set(func(a *testAgent) { a.lastErr = err })
			continue
		}
		for _, reply := range replies {
			_, _ = a.conn.WriteTo(reply, from)
		}
	}
}

func (a *testAgent) handle(packet []byte) ([][]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.packets++
	if a.silent {
		return nil, nil
	}

	var (
		outer  SNMPv3_Packet
		global SNMPv3_GlobalData
		sec    SNMPv3_SecSeq
		scoped SNMPv3_PDU
		pdu    SNMP_Packet_V2_PDU
	)
	if _, err := ASNber.Unmarshal(packet, &outer); err != nil {
		return nil, err
	}
	if _, err := ASNber.Unmarshal(outer.GlobalData.FullBytes, &global); err != nil {
		return nil, err
	}
	if _, err := ASNber.Unmarshal(outer.SecuritySettings, &sec); err != nil {
		return nil, err
	}
	flags := global.MsgFlag[0]
	authenticated := flags&(1<<msgFlag_Authenticated_Bit) != 0

	if authenticated {
		if a.authKey == nil {
			return a.reportLocked(global.MsgID, 0, 0, OID_UnsupportedSecLevels)
		}
		ok, err := verifyDigestRAW(packet, sec.AuthParams, a.authKey, a.authAlg)
		if err != nil || !ok {
			return a.reportLocked(global.MsgID, 0, 0, OID_WrongDigests)
		}
	}
	plaintext := outer.PtData.FullBytes
	if flags&(1<<msgFlag_Encrypted_Bit) != 0 {
		var err error
		plaintext, err = a.priv.Decrypt(outer.PtData.Bytes, sec.PrivParams, sec.Boots, sec.Time)
		if err != nil {
			return a.reportLocked(global.MsgID, 0, 0, OID_DecryptionErrors)
		}
	}
	if _, err := ASNber.Unmarshal(plaintext, &scoped); err != nil {
		return a.reportLocked(global.MsgID, 0, 0, OID_DecryptionErrors)
	}
	seq := bytes.Clone(scoped.V2VarBind.FullBytes)
	seq[0] = 0x30
	if _, err := ASNber.Unmarshal(seq, &pdu); err != nil {
		return nil, err
	}
	oids := make([]ObjectIdentifier, 0, len(pdu.VarBinds))
	for _, vb := range pdu.VarBinds {
		oid, err := parseOIDContent(vb.RSnmpOID.Bytes)
		if err != nil {
			return nil, err
		}
		oids = append(oids, oid)
	}

	if len(sec.AuthEng) == 0 {
		return a.reportLocked(global.MsgID, pdu.RequestID, 0, OID_UnknownEngineIDs)
	}
	if string(sec.User) != a.user {
		return a.reportLocked(global.MsgID, pdu.RequestID, 0, OID_UnknownUserNames)
	}
	if a.notInTime > 0 && authenticated {
		a.notInTime--
		if a.rebootTo != 0 {
			a.boots, a.rebootTo = a.rebootTo, 0
		}
		reportFlags := byte(1 << msgFlag_Authenticated_Bit)
		if a.plainReports {
			reportFlags = 0
		}
		return a.reportLocked(global.MsgID, pdu.RequestID, reportFlags, OID_NotInTimeWindow)
	}
	if a.report != "" {
		return a.reportLocked(global.MsgID, pdu.RequestID, 0, a.report)
	}

	a.requests = append(a.requests, oids)
	vbs := a.handler(scoped.V2VarBind.Tag, oids)
	respFlags := flags &^ (1 << msgFlag_Reportable_Bit)
	if a.downgrade {
		respFlags = 0
	}
	resp := SNMP_Packet_V2_PDU{RequestID: pdu.RequestID, ErrorStatusRaw: a.errorStatus, ErrorIndexRaw: a.errorIndex}
	reply, err := a.messageLocked(SNMPv2_REQUEST_RESPONSE, global.MsgID, respFlags, resp, vbs)
	if err != nil || !a.stray {
		return [][]byte{reply}, err
	}
	stray, err := a.messageLocked(SNMPv2_REQUEST_RESPONSE, global.MsgID+1, respFlags, resp, vbs)
	return [][]byte{stray, reply}, err
}

func (a *testAgent) reportLocked(msgID, requestID int32, flags byte, oid string) ([][]byte, error) {
	name, err := ParseOID(oid)
	if err != nil {
		return nil, err
	}
	reply, err := a.messageLocked(SNMPv2_REQUEST_REPORT, msgID, flags, SNMP_Packet_V2_PDU{RequestID: requestID},
		[]decodedVarBind{{Name: name, Value: CounterValue(1)}})
	return [][]byte{reply}, err
}

// messageLocked builds a reply with the agent's own engine state, reusing the
// client's message builder.
func (a *testAgent) messageLocked(pduType int, msgID int32, flags byte, pdu SNMP_Packet_V2_PDU, vbs []decodedVarBind) ([]byte, error) {
	for _, vb := range vbs {
		content, err := marshalOIDContent(vb.Name)
		if err != nil {
			return nil, err
		}
		value, err := encodeValue(vb.Value)
		if err != nil {
			return nil, err
		}
		pdu.VarBinds = append(pdu.VarBinds, SNMP_Packet_V2_VarBind{
			RSnmpOID: ASNber.RawValue{Class: ASNber.ClassUniversal, Tag: ASNber.TagOID, Bytes: content},
			RSnmpVar: value,
		})
	}
	key := a.authKey
	if a.responseKey != nil {
		key = a.responseKey
	}
	s := &Session{
		client:     &Client{maxMsgSize: SNMP_DEFAULTMSGSIZE},
		user:       []byte(a.user),
		engineID:   a.engineID,
		boots:      a.boots,
		engineTime: a.engineTime,
		authAlg:    a.authAlg,
		authKey:    key,
		priv:       a.priv,
		now:        time.Now,
	}
	return s.makeMessage(pduType, pdu, msgID, flags)
}

// table answers GET with exact matches and GETNEXT with the first entry after the
// requested OID. Missing GET entries are noSuchInstance; GETNEXT past the end is
// endOfMibView.
func table(entries ...decodedVarBind) agentHandler {
	return func(pduType int, oids []ObjectIdentifier) []decodedVarBind {
		out := make([]decodedVarBind, 0, len(oids))
		for _, oid := range oids {
			out = append(out, lookup(entries, pduType, oid))
		}
		return out
	}
}

func lookup(entries []decodedVarBind, pduType int, oid ObjectIdentifier) decodedVarBind {
	if pduType == SNMPv2_REQUEST_GET {
		for _, e := range entries {
			if e.Name.Equal(oid) {
				return e
			}
		}
		return decodedVarBind{Name: oid, Value: exceptionValue(KindNoSuchInstance)}
	}
	var best *decodedVarBind
	for i, e := range entries {
		if e.Name.Compare(oid) > 0 && (best == nil || e.Name.Compare(best.Name) < 0) {
			best = &entries[i]
		}
	}
	if best == nil {
		return decodedVarBind{Name: oid, Value: exceptionValue(KindEndOfMibView)}
	}
	return *best
}

func vb(oid string, value SnmpValue) decodedVarBind {
	parsed, err := ParseOID(oid)
	if err != nil {
		panic(fmt.Sprintf("test OID %q: %v", oid, err))
	}
	return decodedVarBind{Name: parsed, Value: value}
}

func mustUnmarshal(t *testing.T, data []byte, v any) {
	t.Helper()
	_, err := ASNber.Unmarshal(data, v)
	require.NoError(t, err)
}

// newTestSession dials a, runs discovery and installs the agent's credentials.
func newTestSession(t *testing.T, a *testAgent) *Session {
	t.Helper()
	ctx := context.Background()
	client, err := Dial(ctx, a.addr(), ClientOptions{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	sess, err := NewSession(ctx, client, testUser)
	require.NoError(t, err)
	if a.authAlg != AUTH_PROTOCOL_NONE {
		require.NoError(t, sess.SetAuthKey(a.authAlg, []byte(testAuthPass)))
	}
	if a.priv.Protocol() != PRIV_PROTOCOL_NONE {
		require.NoError(t, sess.SetPrivKeyAndSalt(a.priv.Protocol(), []byte(testPrivPass)))
	}
	return sess
}

func testParams(a *testAgent, cmd Command) Params {
	p := Params{User: testUser, Host: a.addr(), Cmd: cmd}
	if a.authAlg != AUTH_PROTOCOL_NONE {
		p.Auth, p.AuthProtocol = testAuthPass, a.authAlg.String()
	}
	if a.priv.Protocol() != PRIV_PROTOCOL_NONE {
		p.Privacy, p.PrivacyProtocol = testPrivPass, a.priv.Protocol().String()
	}
	return p
}

func requireKind(t *testing.T, err error, kind error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, kind), "want %v, got %v", kind, err)
}
