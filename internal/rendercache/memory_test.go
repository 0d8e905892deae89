package rendercache

import (
	"context"
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	t.Parallel()
	c := NewMemory(time.Minute)
	ctx := context.Background()

	key := Key("tpl-1", 1, "abc")
	c.Set(ctx, key, &Entry{Subject: "s", HTML: "<p>h</p>", Text: "t"}, 0)

	e, ok := c.Get(ctx, key)
	if !ok {
		t.Fatalf("expected hit")
	}
	if e.Subject != "s" || e.HTML != "<p>h</p>" || e.Text != "t" {
		t.Fatalf("entry mismatch: %+v", e)
	}
}

func TestMemory_ExpiredNeverReturned(t *testing.T) {
	t.Parallel()
	c := NewMemory(time.Minute)
	ctx := context.Background()

	key := Key("tpl-1", 1, "abc")
	c.Set(ctx, key, &Entry{Subject: "s"}, 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get(ctx, key); ok {
		t.Fatalf("expired entry returned as hit")
	}
}

func TestMemory_InvalidateTemplate(t *testing.T) {
	t.Parallel()
	c := NewMemory(time.Minute)
	ctx := context.Background()

	// Dos versiones y dos fingerprints del mismo template, más otro template.
	c.Set(ctx, Key("tpl-1", 1, "aaa"), &Entry{}, 0)
	c.Set(ctx, Key("tpl-1", 2, "bbb"), &Entry{}, 0)
	c.Set(ctx, Key("tpl-2", 1, "ccc"), &Entry{}, 0)

	if n := c.InvalidateTemplate(ctx, "tpl-1"); n != 2 {
		t.Fatalf("invalidated %d entries, want 2", n)
	}
	if _, ok := c.Get(ctx, Key("tpl-1", 1, "aaa")); ok {
		t.Fatalf("tpl-1 v1 survived invalidation")
	}
	if _, ok := c.Get(ctx, Key("tpl-1", 2, "bbb")); ok {
		t.Fatalf("tpl-1 v2 survived invalidation")
	}
	if _, ok := c.Get(ctx, Key("tpl-2", 1, "ccc")); !ok {
		t.Fatalf("invalidation leaked to tpl-2")
	}
}

func TestMemory_Clear(t *testing.T) {
	t.Parallel()
	c := NewMemory(time.Minute)
	ctx := context.Background()

	c.Set(ctx, Key("tpl-1", 1, "aaa"), &Entry{}, 0)
	c.Set(ctx, Key("tpl-2", 1, "bbb"), &Entry{}, 0)
	c.Clear(ctx)

	if _, ok := c.Get(ctx, Key("tpl-1", 1, "aaa")); ok {
		t.Fatalf("entry survived clear")
	}
	if _, ok := c.Get(ctx, Key("tpl-2", 1, "bbb")); ok {
		t.Fatalf("entry survived clear")
	}
}
