package infrastructure

import (
	"testing"
	"time"
)

func TestKVStoreSetGet(t *testing.T) {
	kv := NewKVStore()

	kv.Set("key", "value", time.Minute)
	got, ok := kv.Get("key")
	if !ok || got != "value" {
		t.Errorf("got (%v, %v), want (value, true)", got, ok)
	}

	if _, ok := kv.Get("missing"); ok {
		t.Error("missing key reported present")
	}
}

func TestKVStoreExpiry(t *testing.T) {
	kv := NewKVStore()

	kv.Set("key", "value", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, ok := kv.Get("key"); ok {
		t.Error("expired entry still returned")
	}
}

func TestKVStoreDeleteAndClear(t *testing.T) {
	kv := NewKVStore()

	kv.Set("a", 1, time.Minute)
	kv.Set("b", 2, time.Minute)

	kv.Delete("a")
	if _, ok := kv.Get("a"); ok {
		t.Error("deleted key still present")
	}

	kv.Clear()
	if _, ok := kv.Get("b"); ok {
		t.Error("cleared store still holds entries")
	}
}
