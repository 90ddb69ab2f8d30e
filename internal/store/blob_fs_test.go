package store

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestFSBlobsPutGetDelete(t *testing.T) {
	s, err := NewFSBlobs(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	key := RegionBlobKey("img-1", "r-1")
	if err := s.Put(ctx, key, []byte("ciphertext")); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("ciphertext")) {
		t.Fatalf("payload mismatch")
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestFSBlobsOverwrite(t *testing.T) {
	s, err := NewFSBlobs(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("one")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "k", []byte("two")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "two" {
		t.Fatalf("expected overwrite, got %q", got)
	}
}

func TestFSBlobsRejectsTraversalKeys(t *testing.T) {
	s, err := NewFSBlobs(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "/abs/path", "a/../../b"} {
		if err := s.Put(ctx, key, []byte("x")); err == nil {
			t.Fatalf("expected rejection for key %q", key)
		}
	}
}

func TestBlobKeysAreStable(t *testing.T) {
	if RegionBlobKey("i", "r") != "regions/i/r" {
		t.Fatalf("unexpected region key")
	}
	if OriginalImageKey("i") != "images/i/original.png" {
		t.Fatalf("unexpected original key")
	}
	if RedactedImageKey("i") != "images/i/redacted.png" {
		t.Fatalf("unexpected redacted key")
	}
}
