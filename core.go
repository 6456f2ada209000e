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
	"io"
	"log/slog"
	"net"
	"time"

	ASNber "github.com/OlegPowerC/asn1modsnmp"
)

// ClientOptions configures the UDP transport. Zero values select the defaults.
type ClientOptions struct {
	// Timeout bounds one request/response round trip. Default 2s.
	Timeout time.Duration
	// MaxMsgSize is advertised as msgMaxSize. Default 1360.
	MaxMsgSize int
	// Logger receives debug records; nil discards them.
	Logger *slog.Logger
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.Timeout <= 0 {
		o.Timeout = SNMP_DEFAULTTIMEOUT
	}
	if o.MaxMsgSize < SNMP_MINMSGSIZE {
		o.MaxMsgSize = SNMP_DEFAULTMSGSIZE
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Client is a connected UDP socket to one agent. It is owned by a single Session.
type Client struct {
	conn       net.Conn
	host       string
	timeout    time.Duration
	maxMsgSize int
	logger     *slog.Logger
	buf        []byte
}

// errMismatch marks a datagram that does not answer the outstanding request.
// The transport drops it and keeps reading until the deadline.
var errMismatch = errors.New("response does not match request")

// Dial opens the UDP socket a Session talks through.
//
// Parameters:
//
//	ctx  - bounds name resolution only
//	host - "ip", "ip:port", "name:port" or an IPv6 literal; port 161 when absent
//	opts - timeout per round trip, advertised msgMaxSize, logger (zero values = defaults)
//
// Returns:
//
//	*Client - connected socket; the caller closes it
//	error   - ErrIO when the address cannot be resolved or dialled
func Dial(ctx context.Context, host string, opts ClientOptions) (*Client, error) {
	opts = opts.withDefaults()
	addr := normalizeHost(host)
	d := net.Dialer{Timeout: SNMP_DIALTIMEOUT}
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, &Error{Kind: ErrIO, Op: "dial", Host: host, Err: err}
	}
	return &Client{
		conn:       conn,
		host:       addr,
		timeout:    opts.Timeout,
		maxMsgSize: opts.MaxMsgSize,
		logger:     opts.Logger.With("host", addr),
		buf:        make([]byte, SNMP_BUFFERSIZE),
	}, nil
}

// RemoteAddr is the resolved ip:port of the agent.
func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Close releases the socket.
func (c *Client) Close() error {
	return c.conn.Close()
}

// roundTrip writes msg once and reads datagrams until accept takes one or the
// deadline (Timeout or the context deadline, whichever is earlier) passes.
func (c *Client) roundTrip(ctx context.Context, msg []byte, accept func(packet []byte) (decodedMessage, error)) (decodedMessage, error) {
	const op = "exchange"
	if err := ctx.Err(); err != nil {
		return decodedMessage{}, contextError(op, err)
	}
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return decodedMessage{}, newError(ErrIO, op, err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if _, err := c.conn.Write(msg); err != nil {
		return decodedMessage{}, newError(ErrIO, op, err)
	}
	for {
		n, err := c.conn.Read(c.buf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return decodedMessage{}, contextError(op, ctxErr)
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return decodedMessage{}, errorf(ErrTimeout, op, "no response within %s", c.timeout)
			}
			return decodedMessage{}, newError(ErrIO, op, err)
		}
		resp, err := accept(bytes.Clone(c.buf[:n]))
		if errors.Is(err, errMismatch) {
			c.logger.Debug("dropping unmatched datagram", "bytes", n, "error", err)
			continue
		}
		return resp, err
	}
}

func contextError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrTimeout, op, err)
	}
	return newError(ErrIO, op, err)
}

// makeMessage builds one SNMPv3 message for the session's current security state.
//
// Parameters:
//
//	pduType - SNMPv2_REQUEST_* context tag of the PDU
//	pdu     - request ID, error fields and var-binds
//	msgID   - msgID of the header, matched against the reply
//	flags   - msgFlags; the auth and priv bits select signing and encryption
//
// Algorithm:
//  1. Marshal HeaderData and the ScopedPDU (context engine ID = session engine ID)
//  2. priv bit: encrypt the ScopedPDU with the next salt, store the salt in msgPrivacyParameters
//  3. auth bit: marshal with 12 zero bytes in msgAuthenticationParameters, HMAC-96 the
//     whole message, then marshal again with the digest in place
//
// Returns:
//
//	Wire bytes ready for Client.roundTrip
func (s *Session) makeMessage(pduType int, pdu SNMP_Packet_V2_PDU, msgID int32, flags byte) ([]byte, error) {
	var packet SNMPv3_Packet
	packet.Version = snmpVersion3

	globalData, err := ASNber.Marshal(SNMPv3_GlobalData{
		MsgID:            msgID,
		MsgMaxSize:       s.client.maxMsgSize,
		MsgFlag:          []byte{flags},
		MsgSecurityModel: msgSecurityModel_USM,
	})
	if err != nil {
		return nil, err
	}
	packet.GlobalData.FullBytes = globalData

	boots, engineTime := s.boots, s.estimatedTime()
	secParams := SNMPv3_SecSeq{
		AuthEng:    s.engineID,
		Boots:      boots,
		Time:       engineTime,
		User:       s.user,
		AuthParams: []byte{},
		PrivParams: []byte{},
	}
	if flags&(1<<msgFlag_Authenticated_Bit) != 0 {
		secParams.AuthParams = make([]byte, SNMP_AUTHPARAMSLEN)
	}

	pduBytes, err := ASNber.Marshal(pdu)
	if err != nil {
		return nil, err
	}
	// The PDU is marshalled as a SEQUENCE; its content is re-tagged as [pduType].
	content, err := ASNber.ExtractDataWOTagAndLen(pduBytes)
	if err != nil {
		return nil, err
	}
	scopedPDU, err := ASNber.Marshal(SNMPv3_PDU{
		ContextEngineId: s.engineID,
		ContextName:     []byte{},
		V2VarBind: ASNber.RawValue{
			Class:      ASNber.ClassContextSpecific,
			IsCompound: true,
			Tag:        pduType,
			Bytes:      content,
		},
	})
	if err != nil {
		return nil, err
	}

	if flags&(1<<msgFlag_Encrypted_Bit) != 0 {
		ciphertext, privParams, err := s.priv.Encrypt(scopedPDU, boots, engineTime)
		if err != nil {
			return nil, err
		}
		secParams.PrivParams = privParams
		packet.PtData = ASNber.RawValue{Class: ASNber.ClassUniversal, Tag: ASNber.TagOctetString, Bytes: ciphertext}
	} else {
		packet.PtData.FullBytes = scopedPDU
	}

	if packet.SecuritySettings, err = ASNber.Marshal(secParams); err != nil {
		return nil, err
	}
	msg, err := ASNber.Marshal(packet)
	if err != nil {
		return nil, err
	}
	if flags&(1<<msgFlag_Authenticated_Bit) == 0 {
		return msg, nil
	}

	secParams.AuthParams = makeDigest(msg, s.authKey, s.authAlg)
	if packet.SecuritySettings, err = ASNber.Marshal(secParams); err != nil {
		return nil, err
	}
	return ASNber.Marshal(packet)
}

// requestVarBinds turns OIDs into var-binds with NULL values.
func requestVarBinds(oids []ObjectIdentifier) ([]SNMP_Packet_V2_VarBind, error) {
	vbs := make([]SNMP_Packet_V2_VarBind, 0, len(oids))
	for _, oid := range oids {
		content, err := marshalOIDContent(oid)
		if err != nil {
			return nil, err
		}
		vbs = append(vbs, SNMP_Packet_V2_VarBind{
			RSnmpOID: ASNber.RawValue{Class: ASNber.ClassUniversal, Tag: ASNber.TagOID, Bytes: content},
			RSnmpVar: nullValue(),
		})
	}
	return vbs, nil
}
