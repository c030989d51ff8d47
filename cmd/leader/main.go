// Command leader runs the root of the firequery tree: the client
// facing Query endpoint, the fan-out multiplexer over the two team
// leaders, and the coordination status board the rest of the tree
// attaches to.
//
// Usage:
//
//	leader <config_file>
//
// The config file must have role "leader". FIRE_DATA_PATH overrides
// the configured data path for the whole tree; the leader itself owns
// no data.
package main

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/dreamware/firequery/internal/config"
	"github.com/dreamware/firequery/internal/metrics"
	"github.com/dreamware/firequery/internal/node"
	"github.com/dreamware/firequery/internal/status"
	"github.com/dreamware/firequery/internal/wire"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
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
	if cfg.Role != config.RoleLeader {
		logFatal("config role is %q, want %q", cfg.Role, config.RoleLeader)
	}

	log.Printf("Leader process %s starting on %s", cfg.ProcessID, cfg.ListenAddr())

	sink := metrics.New("logs", cfg.ProcessID, cfg.Role)
	defer sink.Close()

	// The leader hosts the coordination board; children attach to it
	// at startup, so it must be up before the gRPC surface matters.
	board := status.NewBoard()
	if cfg.StatusAddr != "" {
		go func() {
			if err := board.Serve(cfg.StatusAddr); err != nil && err != http.ErrServerClosed {
				log.Printf("status board stopped: %v", err)
			}
		}()
		log.Printf("status board listening on %s", cfg.StatusAddr)
	}

	leader, err := node.NewLeader(cfg, board, sink, node.BothTeams{View: board}, node.GRPCDial)
	if err != nil {
		logFatal("build leader: %v", err)
	}

	lis, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		logFatal("listen %s: %v", cfg.ListenAddr(), err)
	}

	srv := grpc.NewServer()
	wire.RegisterFireQueryServer(srv, leader)

	go func() {
		log.Printf("*** Leader server listening on %s ***", cfg.ListenAddr())
		if err := srv.Serve(lis); err != nil {
			logFatal("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	srv.GracefulStop()
	log.Println("leader stopped")
}
