// # internal/engine/parser/pool_test.go
package parser

import (
	"sync"
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

func goLanguage() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_go.Language())
}

func TestParserPool_GetPut(t *testing.T) {
	pool := NewParserPool(goLanguage())

	sp := pool.Get()
	if sp == nil {
		t.Fatal("expected non-nil parser from pool")
	}
	if pool.Active() != 1 {
		t.Fatalf("expected 1 active parser, got %d", pool.Active())
	}
	pool.Put(sp)
	if pool.Active() != 0 {
		t.Fatalf("expected 0 active parsers, got %d", pool.Active())
	}
}

func TestParserPool_PutNil(t *testing.T) {
	pool := NewParserPool(goLanguage())
	pool.Put(nil)
	if pool.Active() != 0 {
		t.Fatalf("Put(nil) must not change the lease count")
	}
}

func TestParserPool_Concurrent(t *testing.T) {
	pool := NewParserPool(goLanguage())
	src := []byte("package main\nfunc main() {}\n")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sp := pool.Get()
			defer pool.Put(sp)
			tree := sp.Parse(src, nil)
			if tree == nil {
				t.Error("parse returned nil tree")
				return
			}
			defer tree.Close()
			if tree.RootNode().HasError() {
				t.Error("unexpected syntax error")
			}
		}()
	}
	wg.Wait()
}
