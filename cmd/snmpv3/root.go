// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	snmpv3 "github.com/K0HAX/snmpv3"
)

const defaultOidsFile = "oids.json"

type globalOptions struct {
	oidsFile    string
	outFile     string
	output      string
	timeout     time.Duration
	logLevel    string
	logFormat   string
	concurrency int
}

type targetOptions struct {
	host         string
	user         string
	authProtocol string
	authKey      string
	privProtocol string
	privKey      string
}

func (t targetOptions) params(cmd snmpv3.Command) snmpv3.Params {
	return snmpv3.Params{
		User:            t.user,
		Host:            t.host,
		Auth:            t.authKey,
		AuthProtocol:    t.authProtocol,
		Privacy:         t.privKey,
		PrivacyProtocol: t.privProtocol,
		Cmd:             cmd,
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:           "snmpv3",
		Short:         "SNMPv3 USM client: get, getnext and walk",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.oidsFile, "oids", defaultOidsFile, "OID name directory (JSON or YAML)")
	pf.StringVar(&g.outFile, "out", "", "also write results as JSON to this file")
	pf.StringVarP(&g.output, "output", "o", "text", "output format: text|table|json")
	pf.DurationVar(&g.timeout, "timeout", snmpv3.SNMP_DEFAULTTIMEOUT, "per request timeout")
	pf.StringVar(&g.logLevel, "log-level", "warn", "log level: debug|info|warn|error")
	pf.StringVar(&g.logFormat, "log-format", "text", "log format: text|json")

	root.AddCommand(
		newSingleCmd(g, "get", "GET the given OIDs", func(oids []snmpv3.OID) snmpv3.Command {
			return snmpv3.GetCommand(oids...)
		}),
		newSingleCmd(g, "getnext", "GETNEXT the given OIDs", func(oids []snmpv3.OID) snmpv3.Command {
			return snmpv3.GetNextCommand(oids...)
		}),
		newSingleCmd(g, "walk", "walk the subtree of one OID (MIB-2 when omitted)", func(oids []snmpv3.OID) snmpv3.Command {
			if len(oids) == 0 {
				return snmpv3.WalkCommand(snmpv3.OID{})
			}
			return snmpv3.WalkCommand(oids[0])
		}),
		newBatchCmd(g),
	)
	return root
}

func newSingleCmd(g *globalOptions, use, short string, build func([]snmpv3.OID) snmpv3.Command) *cobra.Command {
	t := &targetOptions{}
	args := cobra.MinimumNArgs(1)
	if use == "walk" {
		args = cobra.MaximumNArgs(1)
	}
	cmd := &cobra.Command{
		Use:   use + " [OID...]",
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			oids := make([]snmpv3.OID, len(argv))
			for i, a := range argv {
				oids[i] = snmpv3.OID{Oid: a}
			}
			return run(cmd.Context(), g, []snmpv3.Params{t.params(build(oids))})
		},
	}
	f := cmd.Flags()
	f.StringVar(&t.host, "host", "", "agent address, host or host:port")
	f.StringVarP(&t.user, "user", "u", "", "USM user name")
	f.StringVarP(&t.authProtocol, "auth-protocol", "a", "", "MD5 or SHA1")
	f.StringVarP(&t.authKey, "auth-key", "A", "", "authentication passphrase")
	f.StringVarP(&t.privProtocol, "privacy-protocol", "x", "", "DES or AES128")
	f.StringVarP(&t.privKey, "priv-key", "X", "", "privacy passphrase")
	_ = cmd.MarkFlagRequired("host")
	_ = cmd.MarkFlagRequired("user")
	cmd.MarkFlagsRequiredTogether("auth-protocol", "auth-key")
	cmd.MarkFlagsRequiredTogether("privacy-protocol", "priv-key")
	return cmd
}

func newBatchCmd(g *globalOptions) *cobra.Command {
	var config string
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "run every entry of a params file (JSON or YAML)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := snmpv3.LoadParams(config)
			if err != nil {
				return err
			}
			return run(cmd.Context(), g, params)
		},
	}
	cmd.Flags().StringVarP(&config, "config", "c", "", "params file")
	cmd.Flags().IntVar(&g.concurrency, "concurrency", snmpv3.SNMP_MAXCONCURRENCY, "hosts queried in parallel")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func run(ctx context.Context, g *globalOptions, params []snmpv3.Params) error {
	logger, err := buildLogger(g.logLevel, g.logFormat)
	if err != nil {
		return err
	}
	dir, err := loadDirectory(g.oidsFile)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	opts := snmpv3.ClientOptions{Timeout: g.timeout, Logger: logger}
	batch := snmpv3.RunBatch(ctx, dir, params, opts, g.concurrency)

	failed := 0
	for _, hr := range batch {
		if hr.Err != nil {
			failed++
			logger.Error("request failed", "host", hr.Host, "error", hr.Err)
		}
	}
	if err := render(os.Stdout, g.output, batch); err != nil {
		return err
	}
	if g.outFile != "" {
		if err := snmpv3.WriteHostResults(g.outFile, batch); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d hosts failed", failed, len(batch))
	}
	return nil
}

// loadDirectory reads the OID directory. A missing default file yields an empty one.
func loadDirectory(path string) (*snmpv3.OidDirectory, error) {
	m, err := snmpv3.LoadOidMap(path)
	if err != nil {
		if path == defaultOidsFile && errors.Is(err, fs.ErrNotExist) {
			return snmpv3.NewOidDirectory(snmpv3.OidMap{}), nil
		}
		return nil, err
	}
	return snmpv3.NewOidDirectory(m), nil
}

func buildLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q (expected debug|info|warn|error)", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (expected json|text)", format)
	}
	return slog.New(handler), nil
}
