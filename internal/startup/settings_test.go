package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatsync/internal/config"
	"github.com/chatsync/internal/storage/cached"
	"github.com/chatsync/internal/storage/memory"
)

func TestOpenSettingsStore(t *testing.T) {
	ctx := context.Background()

	mem, err := OpenSettingsStore(ctx, &config.Config{Settings: config.SettingsConfig{Backend: config.SettingsMemory}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := mem.(*memory.Client); !ok {
		t.Fatalf("memory backend = %T", mem)
	}

	dir := t.TempDir()
	cfg := &config.Config{Settings: config.SettingsConfig{Backend: config.SettingsDisk, DiskDir: dir, DiskCacheBytes: 1 << 16}}
	st, err := OpenSettingsStore(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(*cached.Client); !ok {
		t.Fatalf("disk backend = %T", st)
	}
	if err := st.PutSettings(ctx, "alice", []byte(`{"default_theme":"dark"}`)); err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	// новый экземпляр читает то, что записал прежний
	again, err := OpenSettingsStore(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()
	got, err := again.GetSettings(ctx, "alice")
	if err != nil || string(got) != `{"default_theme":"dark"}` {
		t.Fatalf("GetSettings = %q, %v", got, err)
	}
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	boom := errors.New("refused")
	_, err := retry(context.Background(), "db connect", time.Second, "", func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("retry = %v after %d calls", err, calls)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := retry(ctx, "db connect", time.Minute, "", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("refused")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("retry = %v after %d calls", err, calls)
	}
}
