package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"atm-gateway/config"
	"atm-gateway/internal/adapter/storage/yamlfile"
	"atm-gateway/internal/client"
	"atm-gateway/pkg/logger"
)

const usage = "Usage: atm-client <host> <port>"

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	host, port, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			fmt.Fprintf(os.Stderr, "Unknown host: %s\n", addr)
		} else {
			fmt.Fprintf(os.Stderr, "Couldn't open connection to %s\n", addr)
		}
		os.Exit(1)
	}
	defer conn.Close()
	// Blocking reads do not watch ctx; closing the socket ends them.
	context.AfterFunc(ctx, func() { conn.Close() })

	catalogs := yamlfile.NewCatalogStore(cfg.Client.CatalogFile)
	c := client.New(ctx, conn, catalogs, client.Options{Language: cfg.Client.Language}, log)

	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Str("addr", addr).Msg("connection lost")
		os.Exit(1)
	}
}

// parseArgs validates the <host> <port> command line.
func parseArgs(args []string) (string, int, error) {
	if len(args) != 2 || args[0] == "" {
		return "", 0, fmt.Errorf("expected <host> <port>")
	}
	port, err := config.ParsePort(args[1])
	if err != nil {
		return "", 0, err
	}
	return args[0], port, nil
}
