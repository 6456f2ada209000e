// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	snmpv3 "github.com/K0HAX/snmpv3"
)

func render(w io.Writer, format string, batch []snmpv3.HostResults) error {
	switch format {
	case "text":
		return renderText(w, batch)
	case "table":
		renderTable(w, batch)
		return nil
	case "json":
		return snmpv3.EncodeHostResults(w, batch)
	}
	return fmt.Errorf("unknown output format %q (expected text|table|json)", format)
}

func renderText(w io.Writer, batch []snmpv3.HostResults) error {
	for _, hr := range batch {
		if _, err := fmt.Fprintf(w, "Host: %s\n", hr.Host); err != nil {
			return err
		}
		for _, r := range hr.Results {
			if _, err := fmt.Fprintf(w, "\n%s", r); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "----"); err != nil {
			return err
		}
	}
	return nil
}

func renderTable(w io.Writer, batch []snmpv3.HostResults) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Host", "OID", "Type", "Value"})
	for _, hr := range batch {
		for _, r := range hr.Results {
			kind, value := "", "<none>"
			if r.Result != nil {
				kind, value = r.Result.Kind.String(), r.Result.String()
			}
			t.AppendRow(table.Row{r.Host, r.Oid, kind, value})
		}
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
