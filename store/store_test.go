package store

import (
	"math/big"
	"testing"
)

func TestMemoryPutThenGet(t *testing.T) {
	m := NewMemory()
	key := big.NewInt(42)

	if _, ok := m.Get(key); ok {
		t.Fatalf("expected miss before Put")
	}

	m.Put(key, []byte("value"))

	got, ok := m.Get(key)
	if !ok || string(got) != "value" {
		t.Fatalf("Get after Put = %q, %v; want %q, true", got, ok, "value")
	}
}

func TestMemoryOverwritesExistingKey(t *testing.T) {
	m := NewMemory()
	key := big.NewInt(1)

	m.Put(key, []byte("first"))
	m.Put(key, []byte("second"))

	got, _ := m.Get(key)
	if string(got) != "second" {
		t.Fatalf("Get after overwrite = %q, want %q", got, "second")
	}
}
