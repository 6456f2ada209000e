// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package snmpv3

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// commandBody is the payload of an externally tagged command:
//
//	{"Get": {"oids": [...]}}  {"GetNext": {"oids": [...]}}  {"Walk": {"oid": {...}}}
type commandBody struct {
	Oids []OID `json:"oids,omitempty" yaml:"oids,omitempty"`
	Oid  *OID  `json:"oid,omitempty" yaml:"oid,omitempty"`
}

func (c Command) tagged() (map[string]commandBody, error) {
	switch c.Kind {
	case CommandGet, CommandGetNext:
		return map[string]commandBody{c.Kind.String(): {Oids: c.Oids}}, nil
	case CommandWalk:
		oid := c.Oid
		return map[string]commandBody{c.Kind.String(): {Oid: &oid}}, nil
	}
	return nil, fmt.Errorf("unknown command %s", c.Kind)
}

func (c *Command) fromTagged(m map[string]commandBody) error {
	if len(m) != 1 {
		return fmt.Errorf("command must have exactly one variant, got %d", len(m))
	}
	for name, body := range m {
		switch name {
		case "Get":
			*c = GetCommand(body.Oids...)
		case "GetNext":
			*c = GetNextCommand(body.Oids...)
		case "Walk":
			var oid OID
			if body.Oid != nil {
				oid = *body.Oid
			}
			*c = WalkCommand(oid)
		default:
			return fmt.Errorf("unknown command %q", name)
		}
	}
	return nil
}

// MarshalJSON writes the externally tagged form, e.g. {"Walk": {"oid": {...}}}.
func (c Command) MarshalJSON() ([]byte, error) {
	m, err := c.tagged()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts exactly one of the Get, GetNext and Walk keys.
func (c *Command) UnmarshalJSON(data []byte) error {
	var m map[string]commandBody
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	return c.fromTagged(m)
}

// MarshalYAML mirrors MarshalJSON.
func (c Command) MarshalYAML() (any, error) {
	return c.tagged()
}

func (c *Command) UnmarshalYAML(value *yaml.Node) error {
	var m map[string]commandBody
	if err := value.Decode(&m); err != nil {
		return err
	}
	return c.fromTagged(m)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// DecodeParams reads a params list. A single object is accepted as a list of one.
func DecodeParams(r io.Reader, asYAML bool) ([]Params, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if asYAML {
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, err
		}
		if len(node.Content) == 0 {
			return nil, errors.New("empty params document")
		}
		doc := node.Content[0]
		if doc.Kind == yaml.SequenceNode {
			var list []Params
			err := doc.Decode(&list)
			return list, err
		}
		var one Params
		if err := doc.Decode(&one); err != nil {
			return nil, err
		}
		return []Params{one}, nil
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []Params
		err := json.Unmarshal(trimmed, &list)
		return list, err
	}
	var one Params
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, err
	}
	return []Params{one}, nil
}

// LoadParams reads a params file; .yaml and .yml files are YAML, anything else JSON.
func LoadParams(path string) ([]Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(ErrInvalidInput, "load params", err)
	}
	defer f.Close()
	params, err := DecodeParams(f, isYAML(path))
	if err != nil {
		return nil, newError(ErrInvalidInput, "load params", fmt.Errorf("%s: %w", path, err))
	}
	return params, nil
}

// DecodeOidMap reads an OidMap document: {"oids": [{"oid": ..., "name": ...}]}.
func DecodeOidMap(r io.Reader, asYAML bool) (OidMap, error) {
	var m OidMap
	if asYAML {
		err := yaml.NewDecoder(r).Decode(&m)
		if errors.Is(err, io.EOF) {
			err = nil
		}
		return m, err
	}
	err := json.NewDecoder(r).Decode(&m)
	return m, err
}

// LoadOidMap reads an OidMap file; ".yaml" and ".yml" are decoded as YAML, anything
// else as JSON.
func LoadOidMap(path string) (OidMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return OidMap{}, newError(ErrInvalidInput, "load oids", err)
	}
	defer f.Close()
	m, err := DecodeOidMap(f, isYAML(path))
	if err != nil {
		return OidMap{}, newError(ErrInvalidInput, "load oids", fmt.Errorf("%s: %w", path, err))
	}
	return m, nil
}

// EncodeHostResults writes batch results as a JSON array of [host, results] pairs.
// A host that failed is written with an empty result list.
func EncodeHostResults(w io.Writer, batch []HostResults) error {
	pairs := make([][2]any, len(batch))
	for i, hr := range batch {
		results := hr.Results
		if results == nil {
			results = []SnmpResult{}
		}
		pairs[i] = [2]any{hr.Host, results}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(pairs)
}

// WriteHostResults writes EncodeHostResults output to path.
func WriteHostResults(path string, batch []HostResults) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeHostResults(f, batch); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
