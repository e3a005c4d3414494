// Package main provides lawctl, a command-line client for the law server's
// admin gRPC service.
//
// Usage:
//
//	lawctl [-addr host:port] snapshot
//	lawctl [-addr host:port] <law command...>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/cory-johannsen/enforcer/internal/gameserver"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:50061", "admin gRPC address")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Parse()

	if err := run(*addr, *timeout, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(addr string, timeout time.Duration, args []string) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()
	client := gameserver.NewLawAdminClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if len(args) == 1 && args[0] == "snapshot" {
		snap, err := client.Snapshot(ctx)
		if err != nil {
			return describe(err)
		}
		out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encoding snapshot: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	reply, err := client.Execute(ctx, strings.Join(args, " "))
	if err != nil {
		return describe(err)
	}
	fmt.Println(reply)
	return nil
}

func describe(err error) error {
	if st, ok := status.FromError(err); ok {
		return fmt.Errorf("%s: %s", st.Code(), st.Message())
	}
	return err
}
