// Copyright 2025 ACLGate Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/LeeDigitalWorks/aclgate/pkg/backend"
	"github.com/LeeDigitalWorks/aclgate/pkg/debug"
	"github.com/LeeDigitalWorks/aclgate/pkg/gateway"
	"github.com/LeeDigitalWorks/aclgate/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type GatewayOpts struct {
	IP        string
	HTTPPort  int
	DebugPort int
	LogLevel  string
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start authorization gateway",
	Long: `Start an ACLGate gateway that handles:
- S3 ACL evaluation for bucket and object operations
- GET/PUT ?acl subresource requests
- ACL metadata persistence on the backing store`,
	Run: runGateway,
}

func init() {
	rootCmd.AddCommand(gatewayCmd)

	f := gatewayCmd.Flags()
	f.String("ip", "0.0.0.0", "IP address to bind to")
	f.Int("http_port", 8090, "HTTP port for gateway server")
	f.Int("debug_port", 8091, "Debug HTTP port for gateway server")
	f.String("log_level", "info", "Log level (debug, info, warn, error, fatal)")

	viper.BindPFlags(f)
}

func runGateway(cmd *cobra.Command, args []string) {
	opts := loadGatewayOpts(cmd)

	if level, err := zerolog.ParseLevel(opts.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	debug.SetNotReady()

	// TODO: replace with the real object-store client once its metadata
	// API is stable; the in-memory store only serves single-process use.
	store := backend.NewMemory()
	srv := gateway.NewServer(store)

	httpServer := startHTTPServer(srv, opts.IP, opts.HTTPPort)
	debugServer := startHTTPServer(debug.GetMux(), opts.IP, opts.DebugPort)

	debug.SetReady()
	waitForShutdown()
	debug.SetNotReady()

	httpServer.Shutdown(cmd.Context())
	debugServer.Shutdown(cmd.Context())
}

func loadGatewayOpts(cmd *cobra.Command) GatewayOpts {
	f := NewFlagLoader(cmd)

	return GatewayOpts{
		IP:        f.String("ip"),
		HTTPPort:  f.Int("http_port"),
		DebugPort: f.Int("debug_port"),
		LogLevel:  f.String("log_level"),
	}
}

func startHTTPServer(handler http.Handler, ip string, port int) *http.Server {
	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create HTTP listener")
	}

	httpServer := &http.Server{Handler: handler}
	go func() {
		logger.Info().Str("http_addr", addr).Msg("Starting HTTP server")
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start HTTP server")
		}
	}()
	return httpServer
}

func waitForShutdown() {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGALRM, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	<-stopChan
}
