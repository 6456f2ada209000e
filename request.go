// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"context"
	"errors"
	"fmt"
)

// parseOIDList parses the requested OIDs. Entries that do not parse are skipped with
// a warning; an error is returned only when nothing usable is left.
func parseOIDList(sess *Session, op string, oids []OID) ([]ObjectIdentifier, []OID, error) {
	parsed := make([]ObjectIdentifier, 0, len(oids))
	kept := make([]OID, 0, len(oids))
	var errs []error
	for _, o := range oids {
		oid, err := ParseOID(o.Oid)
		if err != nil {
			errs = append(errs, err)
			if sess != nil {
				sess.logger.Warn("skipping invalid OID", "oid", o.Oid, "error", err)
			}
			continue
		}
		parsed = append(parsed, oid)
		kept = append(kept, o)
	}
	if len(parsed) == 0 {
		if len(oids) == 0 {
			return nil, nil, errorf(ErrInvalidInput, op, "empty OID list")
		}
		return nil, nil, newError(ErrInvalidInput, op, errors.Join(errs...))
	}
	return parsed, kept, nil
}

// Get reads all oids with one GET request.
//
// Parameters:
//
//	sess - discovered session with keys installed
//	oids - requested OIDs; unparsable entries are skipped with a warning
//
// Returns:
//
//	One SnmpResult per returned var-bind, named after the requested OID's Name or the
//	dotted OID when the name is empty. ErrInvalidInput when no OID is usable (no I/O
//	happens), ErrProtocol when the agent answers an OID that was not requested.
//
// Example:
//
//	res, err := snmpv3.Get(ctx, sess, []snmpv3.OID{{Oid: "1.3.6.1.2.1.1.5.0", Name: "sysName"}})
func Get(ctx context.Context, sess *Session, oids []OID) ([]SnmpResult, error) {
	const op = "get"
	parsed, kept, err := parseOIDList(sess, op, oids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(parsed))
	for i, oid := range parsed {
		name := kept[i].Name
		if name == "" {
			name = oid.String()
		}
		names[oid.String()] = name
	}

	host := sess.Host()
	resp, err := sess.send(ctx, SNMPv2_REQUEST_GET, parsed)
	if err != nil {
		return nil, withTarget(err, host, "")
	}
	results := make([]SnmpResult, 0, len(resp.VarBinds))
	for _, vb := range resp.VarBinds {
		key := vb.Name.String()
		name, ok := names[key]
		if !ok {
			return nil, &Error{Kind: ErrProtocol, Op: op, Host: host, OID: key, Err: errors.New("agent returned an OID that was not requested")}
		}
		value := vb.Value
		results = append(results, SnmpResult{Host: host, Oid: name, Result: &value})
	}
	return results, nil
}

// GetNext issues one GETNEXT for oids.
//
// Parameters:
//
//	sess - discovered session with keys installed
//	dir  - names the returned OIDs; nil leaves them numeric
//	oids - requested OIDs; unparsable entries are skipped with a warning
//
// Returns:
//
//	The i-th result answers the i-th usable OID. A different var-bind count, or a
//	returned OID not after its request, is ErrProtocol.
func GetNext(ctx context.Context, sess *Session, dir *OidDirectory, oids []OID) ([]SnmpResult, error) {
	const op = "getnext"
	parsed, _, err := parseOIDList(sess, op, oids)
	if err != nil {
		return nil, err
	}

	host := sess.Host()
	resp, err := sess.send(ctx, SNMPv2_REQUEST_GETNEXT, parsed)
	if err != nil {
		return nil, withTarget(err, host, "")
	}
	if len(resp.VarBinds) != len(parsed) {
		return nil, &Error{Kind: ErrProtocol, Op: op, Host: host,
			Err: fmt.Errorf("%d var-binds for %d requested OIDs", len(resp.VarBinds), len(parsed))}
	}
	results := make([]SnmpResult, 0, len(resp.VarBinds))
	for i, vb := range resp.VarBinds {
		if !vb.Value.IsEndOfMibView() && vb.Name.Compare(parsed[i]) <= 0 {
			return nil, &Error{Kind: ErrProtocol, Op: op, Host: host, OID: vb.Name.String(),
				Err: fmt.Errorf("does not follow requested %s", parsed[i])}
		}
		value := vb.Value
		results = append(results, SnmpResult{Host: host, Oid: dir.ResolveOrRaw(vb.Name.String()), Result: &value})
	}
	return results, nil
}

// Walk enumerates the subtree at start with repeated GETNEXT requests.
//
// Parameters:
//
//	sess  - discovered session with keys installed
//	dir   - names the returned OIDs; nil leaves them numeric
//	start - subtree root; empty or unparsable walks MIB-2 (1.3.6.1.2.1) with a warning
//
// Algorithm:
//  1. end = start with its last component incremented (wraps, never carries)
//  2. GETNEXT current; stop on no var-binds, endOfMibView or an OID >= end
//  3. An OID <= current is ErrProtocol; otherwise record it and continue from it
//
// Returns:
//
//	The results in agent order, or the error alone: a failure mid-walk drops the
//	partial results.
func Walk(ctx context.Context, sess *Session, dir *OidDirectory, start OID) ([]SnmpResult, error) {
	const op = "walk"
	root, err := ParseOID(start.Oid)
	if err != nil {
		sess.logger.Warn("no usable walk OID, walking MIB-2", "oid", start.Oid, "base", MIB2_BASE_OID)
		root, _ = ParseOID(MIB2_BASE_OID)
	}
	end := root.NextSibling()
	host := sess.Host()

	results := []SnmpResult{}
	current := root
	for step := 0; step < SNMP_MAXIMUMWALK; step++ {
		if err := ctx.Err(); err != nil {
			return nil, withTarget(contextError(op, err), host, current.String())
		}
		resp, err := sess.send(ctx, SNMPv2_REQUEST_GETNEXT, []ObjectIdentifier{current})
		if err != nil {
			return nil, withTarget(err, host, current.String())
		}
		if len(resp.VarBinds) == 0 {
			return results, nil
		}
		vb := resp.VarBinds[0]
		if vb.Value.IsEndOfMibView() || vb.Name.Compare(end) >= 0 {
			return results, nil
		}
		if vb.Name.Compare(current) <= 0 {
			return nil, &Error{Kind: ErrProtocol, Op: op, Host: host, OID: vb.Name.String(),
				Err: fmt.Errorf("agent did not advance past %s", current)}
		}
		value := vb.Value
		results = append(results, SnmpResult{Host: host, Oid: dir.ResolveOrRaw(vb.Name.String()), Result: &value})
		current = vb.Name
	}
	return nil, &Error{Kind: ErrProtocol, Op: op, Host: host, OID: current.String(),
		Err: fmt.Errorf("walk exceeded %d steps", SNMP_MAXIMUMWALK)}
}
