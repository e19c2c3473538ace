package cache

import (
	"context"
	"testing"

	"docketflow/internal/platform/config"
)

func TestNewClient_Unconfigured(t *testing.T) {
	rdb, err := NewClient(context.Background(), config.RedisConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rdb != nil {
		t.Error("Expected nil client without an address")
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	// port 1 on loopback refuses connections
	if _, err := NewClient(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"}); err == nil {
		t.Error("Expected connection error")
	}
}

func TestNewLocker_NilClient(t *testing.T) {
	if l := NewLocker(nil); l != nil {
		t.Error("Expected nil locker without redis")
	}
}
