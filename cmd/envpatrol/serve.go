package main

import (
	"github.com/spf13/cobra"

	"github.com/had-nu/envpatrol"
	"github.com/had-nu/envpatrol/internal/normalizer"
	"github.com/had-nu/envpatrol/internal/scanner"
	"github.com/had-nu/envpatrol/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			return a.newServer().ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (a *app) newServer() *server.Server {
	sc := scanner.New(a.cfg.ScannerOptions()...)
	return server.New(
		server.WithScanner(sc),
		server.WithNormalizer(normalizer.New(append(a.cfg.NormalizerOptions(), normalizer.WithScanner(sc))...)),
		server.WithFeatures(server.Features{
			AutoFixPaid: a.cfg.AutoFixPaid,
			PDFPaid:     a.cfg.PDFPaid,
			HistoryPaid: a.cfg.HistoryPaid,
		}),
		server.WithVersion(envpatrol.Version),
		server.WithCacheTTL(a.cfg.Server.CacheTTL),
	)
}
