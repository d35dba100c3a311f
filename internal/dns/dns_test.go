package dns

import (
	"context"
	"net"
	"testing"
)

func TestLookupIPLiteral(t *testing.T) {
	for _, host := range []string{"127.0.0.1", "::1"} {
		got, err := Lookup(context.Background(), host)
		if err != nil {
			t.Fatalf("lookup %s: %v", host, err)
		}
		if got != host {
			t.Fatalf("lookup %s = %s", host, got)
		}
	}
}

func TestPickIPPrefersIPv4(t *testing.T) {
	got, err := pickIP([]string{"::1", "10.0.0.1"})
	if err != nil || got != "10.0.0.1" {
		t.Fatalf("pickIP = %q, %v", got, err)
	}
	if _, err := pickIP(nil); err == nil {
		t.Fatal("expected error for empty result")
	}
}

func TestDialContextLoopback(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
		close(accepted)
	}()

	conn, err := DialContext(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()
	<-accepted
}
