package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sessionbot/internal/domain"
)

func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Release the file handle before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCreatePoll_SetsFieldsAndActive(t *testing.T) {
	db := newRepoDB(t, &domain.Poll{})

	deadline := time.Date(2026, 9, 2, 18, 0, 0, 0, time.UTC)
	p, err := CreatePoll(context.Background(), db, "m1", "c1", deadline)
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	if p.ID == 0 || p.MessageRef != "m1" || p.ChannelRef != "c1" || !p.Active {
		t.Fatalf("unexpected poll fields: %+v", p)
	}
	if !p.Deadline.Equal(deadline) {
		t.Fatalf("deadline = %v, want %v", p.Deadline, deadline)
	}
	if p.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt not set")
	}
}

func TestCreatePoll_DuplicateMessageRefFails(t *testing.T) {
	db := newRepoDB(t, &domain.Poll{})

	if _, err := CreatePoll(context.Background(), db, "m1", "c1", time.Now()); err != nil {
		t.Fatalf("first CreatePoll: %v", err)
	}
	if _, err := CreatePoll(context.Background(), db, "m1", "c2", time.Now()); err == nil {
		t.Fatalf("expected unique violation on duplicate message ref")
	}
}

func TestGetActivePoll_NotFound(t *testing.T) {
	db := newRepoDB(t, &domain.Poll{})

	_, err := GetActivePoll(context.Background(), db, "c1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetActivePoll_IgnoresClosedAndOtherChannels(t *testing.T) {
	db := newRepoDB(t, &domain.Poll{})
	ctx := context.Background()

	closed, err := CreatePoll(ctx, db, "m1", "c1", time.Now())
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	if err := ClosePoll(ctx, db, closed.ID); err != nil {
		t.Fatalf("ClosePoll: %v", err)
	}
	if _, err := CreatePoll(ctx, db, "m2", "other", time.Now()); err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	want, err := CreatePoll(ctx, db, "m3", "c1", time.Now())
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}

	got, err := GetActivePoll(ctx, db, "c1")
	if err != nil {
		t.Fatalf("GetActivePoll: %v", err)
	}
	if got.ID != want.ID {
		t.Fatalf("got poll %d, want %d", got.ID, want.ID)
	}
}

func TestGetActivePollByMessageRef(t *testing.T) {
	db := newRepoDB(t, &domain.Poll{})
	ctx := context.Background()

	p, err := CreatePoll(ctx, db, "m42", "c1", time.Now())
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}

	got, err := GetActivePollByMessageRef(ctx, db, "m42")
	if err != nil {
		t.Fatalf("GetActivePollByMessageRef: %v", err)
	}
	if got.ID != p.ID {
		t.Fatalf("got poll %d, want %d", got.ID, p.ID)
	}

	if err := ClosePoll(ctx, db, p.ID); err != nil {
		t.Fatalf("ClosePoll: %v", err)
	}
	if _, err := GetActivePollByMessageRef(ctx, db, "m42"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after close", err)
	}
}

func TestListActivePolls_FilterAndAll(t *testing.T) {
	db := newRepoDB(t, &domain.Poll{})
	ctx := context.Background()

	if _, err := CreatePoll(ctx, db, "m1", "c1", time.Now()); err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	if _, err := CreatePoll(ctx, db, "m2", "c2", time.Now()); err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}

	all, err := ListActivePolls(ctx, db, "")
	if err != nil {
		t.Fatalf("ListActivePolls: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d polls, want 2", len(all))
	}

	one, err := ListActivePolls(ctx, db, "c2")
	if err != nil {
		t.Fatalf("ListActivePolls filtered: %v", err)
	}
	if len(one) != 1 || one[0].ChannelRef != "c2" {
		t.Fatalf("filtered = %+v, want single c2 poll", one)
	}
}

func TestClosePoll_MissingIsNoop(t *testing.T) {
	db := newRepoDB(t, &domain.Poll{})

	if err := ClosePoll(context.Background(), db, 999); err != nil {
		t.Fatalf("ClosePoll on missing id: %v", err)
	}
}
