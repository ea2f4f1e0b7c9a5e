package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/somunicate/dbas/internal/db"
)

// --- client.go tests ---

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error without addrs")
	}
}

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(errors.New("connection refused"))).
		AnyTimes()

	s := NewStoreForTest(c)
	err := s.WaitForReady(context.Background(), 250*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestWaitForReady_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG"))).
		AnyTimes()

	s := NewStoreForTest(c)
	if err := s.WaitForReady(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForReady_RecoversAfterFailures(t *testing.T) {
	c := mock.NewClient(gomock.NewController(t))

	failures := 2
	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		DoAndReturn(func(_ context.Context, _ rueidis.Completed) rueidis.RedisResult {
			if failures > 0 {
				failures--
				return mock.ErrorResult(errors.New("LOADING"))
			}
			return mock.Result(mock.RedisString("PONG"))
		}).
		Times(3)

	if err := NewStoreForTest(c).WaitForReady(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- kv.go tests ---

const (
	entryKey   = "dbas:match:3f2a"
	entryValue = `{"r":[{"s":"a.mp3","d":0.1}]}`
)

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		reply   rueidis.RedisResult
		want    string
		wantErr error
		wantOp  string
	}{
		{"hit", mock.Result(mock.RedisBlobString(entryValue)), entryValue, nil, ""},
		{"miss", mock.Result(mock.RedisNil()), "", db.ErrKeyNotFound, ""},
		{"backend error", mock.ErrorResult(errors.New("network down")), "", nil, db.OpGet},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := mock.NewClient(gomock.NewController(t))
			c.EXPECT().Do(gomock.Any(), mock.Match("GET", entryKey)).Return(tc.reply)

			data, err := NewStoreForTest(c).Get(context.Background(), entryKey)
			switch {
			case tc.wantOp != "":
				var dbErr *db.Error
				if !errors.As(err, &dbErr) || dbErr.Op != tc.wantOp {
					t.Fatalf("expected *db.Error with op %s, got %v", tc.wantOp, err)
				}
				if errors.Is(err, db.ErrKeyNotFound) {
					t.Error("backend errors must not read as a miss")
				}
			case tc.wantErr != nil:
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
			default:
				if err != nil || string(data) != tc.want {
					t.Fatalf("Get = %q, %v", data, err)
				}
			}
		})
	}
}

func TestSetWithTTL(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
		cmd  []string
	}{
		{"expiring", 90 * time.Second, []string{"SET", entryKey, entryValue, "EX", "90"}},
		{"no expiry", 0, []string{"SET", entryKey, entryValue}},
		{"negative means no expiry", -time.Second, []string{"SET", entryKey, entryValue}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := mock.NewClient(gomock.NewController(t))
			c.EXPECT().Do(gomock.Any(), mock.Match(tc.cmd...)).Return(mock.Result(mock.RedisString("OK")))

			if err := NewStoreForTest(c).SetWithTTL(context.Background(), entryKey, []byte(entryValue), tc.ttl); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSet_ReadOnlyReplica(t *testing.T) {
	c := mock.NewClient(gomock.NewController(t))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", entryKey, entryValue)).
		Return(mock.ErrorResult(errors.New("READONLY You can't write against a read only replica.")))

	err := NewStoreForTest(c).Set(context.Background(), entryKey, []byte(entryValue))
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpSet {
		t.Fatalf("expected *db.Error with op SET, got %v", err)
	}
}

func TestDel_MissingKeyIsNotAnError(t *testing.T) {
	c := mock.NewClient(gomock.NewController(t))
	c.EXPECT().Do(gomock.Any(), mock.Match("DEL", entryKey)).Return(mock.Result(mock.RedisInt64(0)))

	if err := NewStoreForTest(c).Del(context.Background(), entryKey); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- DeletePrefix ---

func isCmd(name string) gomock.Matcher {
	return mock.MatchFn(func(cmd []string) bool { return cmd[0] == name })
}

func TestDeletePrefix_MultiPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var patterns []string
	page := 0
	c.EXPECT().
		Do(gomock.Any(), isCmd("SCAN")).
		DoAndReturn(func(_ context.Context, cmd rueidis.Completed) rueidis.RedisResult {
			patterns = append(patterns, cmd.Commands()[3])
			page++
			if page == 1 {
				return mock.Result(mock.RedisArray(
					mock.RedisInt64(17),
					mock.RedisArray(mock.RedisString("dbas:match:a"), mock.RedisString("dbas:match:b")),
				))
			}
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(0),
				mock.RedisArray(mock.RedisString("dbas:match:c")),
			))
		}).
		Times(2)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("UNLINK", "dbas:match:a", "dbas:match:b")).
		Return(mock.Result(mock.RedisInt64(2)))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("UNLINK", "dbas:match:c")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	n, err := s.DeletePrefix(context.Background(), "dbas:match:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 removed keys, got %d", n)
	}
	for _, p := range patterns {
		if p != "dbas:match:*" {
			t.Errorf("unexpected SCAN pattern %q", p)
		}
	}
}

func TestDeletePrefix_EmptyPageSkipsUnlink(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), isCmd("SCAN")).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0), mock.RedisArray())))

	s := NewStoreForTest(c)
	n, err := s.DeletePrefix(context.Background(), "dbas:")
	if err != nil || n != 0 {
		t.Fatalf("DeletePrefix = %d, %v", n, err)
	}
}

func TestDeletePrefix_ScanError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), isCmd("SCAN")).
		Return(mock.ErrorResult(errors.New("LOADING")))

	s := NewStoreForTest(c)
	_, err := s.DeletePrefix(context.Background(), "dbas:")
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpScan {
		t.Fatalf("expected *db.Error with op SCAN, got %v", err)
	}
}

func TestGlobEscape(t *testing.T) {
	tests := []struct{ in, want string }{
		{"dbas:", "dbas:"},
		{"a*b", `a\*b`},
		{"[x]?", `\[x\]\?`},
		{`back\slash`, `back\\slash`},
	}
	for _, tc := range tests {
		if got := globEscape(tc.in); got != tc.want {
			t.Errorf("globEscape(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
