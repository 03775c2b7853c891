package utils

import (
	"testing"
	"time"
)

func TestPageCache(t *testing.T) {
	c, err := NewPageCache(10)
	if err != nil {
		t.Fatal(err)
	}

	c.Set("polls:public:page:1", "one", time.Minute)
	c.Set("polls:public:page:2", "two", time.Minute)
	c.Set("other", "keep", time.Minute)
	c.Set("stale", "gone", -time.Second)

	if got := c.Get("polls:public:page:1"); got != "one" {
		t.Errorf("expected cached value, got %v", got)
	}
	if got := c.Get("stale"); got != nil {
		t.Errorf("expired entry should be nil, got %v", got)
	}

	c.DeletePrefix("polls:public:")
	if c.Get("polls:public:page:1") != nil || c.Get("polls:public:page:2") != nil {
		t.Error("prefix delete left entries behind")
	}
	if c.Get("other") != "keep" {
		t.Error("prefix delete removed an unrelated key")
	}

	c.Delete("other")
	if c.Get("other") != nil {
		t.Error("delete did not remove key")
	}
}
