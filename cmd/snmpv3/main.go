// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)

// Command snmpv3 runs SNMPv3 GET, GETNEXT and WALK requests against one agent given on
// the command line, or against every agent listed in a params file.
//
//	snmpv3 walk --host 192.0.2.1 --user monitor -a SHA1 -A authpass1 -x AES128 -X privpass1 1.3.6.1.2.1.2.2
//	snmpv3 batch --config params.json --oids oids.json --out output.json
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
