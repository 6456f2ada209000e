// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// minPassphraseLen is the shortest passphrase accepted (RFC 3414 §11.2).
const minPassphraseLen = 8

// ValidateParams checks the credential combination of p and returns the selected
// protocols. Authentication fields must be set together, privacy fields likewise,
// and privacy is only allowed with authentication.
func ValidateParams(p Params) (DigestAlgorithm, PrivacyProtocol, error) {
	const op = "validate"
	fail := func(format string, args ...any) (DigestAlgorithm, PrivacyProtocol, error) {
		return AUTH_PROTOCOL_NONE, PRIV_PROTOCOL_NONE, &Error{Kind: ErrInvalidInput, Op: op, Host: p.Host, Err: fmt.Errorf(format, args...)}
	}

	if strings.TrimSpace(p.User) == "" {
		return fail("user is required")
	}
	if strings.TrimSpace(p.Host) == "" {
		return fail("host is required")
	}
	if (p.Auth == "") != (strings.TrimSpace(p.AuthProtocol) == "") {
		return fail("auth and auth_protocol must be given together")
	}
	if (p.Privacy == "") != (strings.TrimSpace(p.PrivacyProtocol) == "") {
		return fail("privacy and privacy_protocol must be given together")
	}
	if p.Privacy != "" && p.Auth == "" {
		return fail("privacy requires authentication")
	}

	auth, err := ParseDigestAlgorithm(p.AuthProtocol)
	if err != nil {
		return fail("%v", err)
	}
	priv, err := ParsePrivacyProtocol(p.PrivacyProtocol)
	if err != nil {
		return fail("%v", err)
	}
	if auth != AUTH_PROTOCOL_NONE && len(p.Auth) < minPassphraseLen {
		return fail("auth passphrase shorter than %d characters", minPassphraseLen)
	}
	if priv != PRIV_PROTOCOL_NONE && len(p.Privacy) < minPassphraseLen {
		return fail("privacy passphrase shorter than %d characters", minPassphraseLen)
	}
	return auth, priv, nil
}

// normalizeHost appends port 161 to a host given without one.
func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	bare := strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if !strings.Contains(host, ":") || net.ParseIP(bare) != nil {
		return net.JoinHostPort(bare, strconv.Itoa(SNMP_PORT))
	}
	return host
}

// Run executes one command against one agent.
//
// Parameters:
//
//	dir  - OID directory for result names; may be nil
//	p    - credentials, host and the Get / GetNext / Walk command
//	opts - transport options shared by every round trip
//
// Algorithm:
//  1. ValidateParams and the OID list, before any I/O
//  2. Dial, NewSession (discovery), SetAuthKey, SetPrivKeyAndSalt
//  3. Dispatch to Get, GetNext or Walk; the socket is closed on return
//
// Returns:
//
//	The ordered results, or an *Error carrying kind, host and OID.
//
// Example:
//
//	dir := snmpv3.NewOidDirectory(oidMap)
//	res, err := snmpv3.Run(ctx, dir, snmpv3.Params{
//		User: "monitor", Host: "192.0.2.1",
//		Auth: "authpass1", AuthProtocol: "SHA1",
//		Privacy: "privpass1", PrivacyProtocol: "AES128",
//		Cmd: snmpv3.WalkCommand(snmpv3.OID{Oid: "1.3.6.1.2.1.2.2"}),
//	}, snmpv3.ClientOptions{})
func Run(ctx context.Context, dir *OidDirectory, p Params, opts ClientOptions) ([]SnmpResult, error) {
	auth, priv, err := ValidateParams(p)
	if err != nil {
		return nil, err
	}
	switch p.Cmd.Kind {
	case CommandGet, CommandGetNext:
		// Checked before any network I/O.
		if _, _, err := parseOIDList(nil, strings.ToLower(p.Cmd.Kind.String()), p.Cmd.Oids); err != nil {
			return nil, withTarget(err, p.Host, "")
		}
	case CommandWalk:
	default:
		return nil, &Error{Kind: ErrInvalidInput, Op: "run", Host: p.Host, Err: fmt.Errorf("unknown command %s", p.Cmd.Kind)}
	}

	client, err := Dial(ctx, p.Host, opts)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	sess, err := NewSession(ctx, client, p.User)
	if err != nil {
		return nil, err
	}
	if auth != AUTH_PROTOCOL_NONE {
		if err := sess.SetAuthKey(auth, []byte(p.Auth)); err != nil {
			return nil, withTarget(err, p.Host, "")
		}
	}
	if priv != PRIV_PROTOCOL_NONE {
		if err := sess.SetPrivKeyAndSalt(priv, []byte(p.Privacy)); err != nil {
			return nil, withTarget(err, p.Host, "")
		}
	}

	switch p.Cmd.Kind {
	case CommandGet:
		return Get(ctx, sess, p.Cmd.Oids)
	case CommandGetNext:
		return GetNext(ctx, sess, dir, p.Cmd.Oids)
	default:
		return Walk(ctx, sess, dir, p.Cmd.Oid)
	}
}

// RunBatch runs every entry of params with at most limit sessions in flight
// (limit <= 0 selects SNMP_MAXCONCURRENCY). Results keep the order of params; a
// failing host is reported in its HostResults.Err and does not stop the others.
func RunBatch(ctx context.Context, dir *OidDirectory, params []Params, opts ClientOptions, limit int) []HostResults {
	if limit <= 0 {
		limit = SNMP_MAXCONCURRENCY
	}
	out := make([]HostResults, len(params))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, p := range params {
		i, p := i, p
		g.Go(func() error {
			res, err := Run(ctx, dir, p, opts)
			out[i] = HostResults{Host: p.Host, Results: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
