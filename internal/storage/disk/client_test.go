package disk

import (
	"context"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(t.TempDir(), 1<<20)

	got, err := c.GetSettings(ctx, "user/with:odd chars")
	if err != nil || got != nil {
		t.Fatalf("missing key: %q %v", got, err)
	}
	if err := c.PutSettings(ctx, "user/with:odd chars", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err = c.GetSettings(ctx, "user/with:odd chars")
	if err != nil || string(got) != `{"a":1}` {
		t.Fatalf("get: %q %v", got, err)
	}

	// новый экземпляр на том же каталоге видит данные
	again := New(c.d.BasePath, 0)
	if got, _ := again.GetSettings(ctx, "user/with:odd chars"); string(got) != `{"a":1}` {
		t.Errorf("reopen: %q", got)
	}

	if err := c.DeleteSettings(ctx, "user/with:odd chars"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := c.GetSettings(ctx, "user/with:odd chars"); got != nil {
		t.Errorf("after delete: %q", got)
	}
	if err := c.DeleteSettings(ctx, "never"); err != nil {
		t.Errorf("delete missing: %v", err)
	}
}
