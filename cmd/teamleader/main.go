// Command teamleader runs a mid-tier node: it serves Delegate for its
// team, streaming its own partition first and then forwarding each of
// its workers in configured order.
//
// Usage:
//
//	teamleader <config_file>
//
// The config file must have role "team_leader" and a team. When
// status_addr is set the process attaches to the leader's board at
// startup, retrying for a few seconds, and exits with an error if the
// leader is still not up.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/dreamware/firequery/internal/config"
	"github.com/dreamware/firequery/internal/firedata"
	"github.com/dreamware/firequery/internal/metrics"
	"github.com/dreamware/firequery/internal/node"
	"github.com/dreamware/firequery/internal/status"
	"github.com/dreamware/firequery/internal/wire"
)

var logFatal = log.Fatalf

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <config_file>\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		logFatal("load config: %v", err)
	}
	if cfg.Role != config.RoleTeamLeader {
		logFatal("config role is %q, want %q", cfg.Role, config.RoleTeamLeader)
	}

	log.Printf("Team leader process %s (team %s) starting on %s",
		cfg.ProcessID, cfg.Team, cfg.ListenAddr())
	log.Printf("data partition: %v", cfg.Partitioning.OwnedDates)

	sink := metrics.New("logs", cfg.ProcessID, cfg.Role)
	defer sink.Close()

	source, err := firedata.NewSource(cfg.DataPath)
	if err != nil {
		logFatal("open data source: %v", err)
	}

	var view status.View
	if cfg.StatusAddr != "" {
		remote, err := status.Attach(context.Background(), cfg.StatusAddr, cfg.ProcessID)
		if err != nil {
			logFatal("coordination view unavailable (is the leader running?): %v", err)
		}
		view = remote
	}

	tl, err := node.NewTeamLeader(cfg, source, view, sink, node.GRPCDial)
	if err != nil {
		logFatal("build team leader: %v", err)
	}

	lis, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		logFatal("listen %s: %v", cfg.ListenAddr(), err)
	}

	srv := grpc.NewServer()
	wire.RegisterFireQueryServer(srv, tl)

	go func() {
		log.Printf("*** Team leader server listening on %s ***", cfg.ListenAddr())
		if err := srv.Serve(lis); err != nil {
			logFatal("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	srv.GracefulStop()
	log.Println("team leader stopped")
}
