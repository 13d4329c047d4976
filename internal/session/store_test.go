package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/evihealth/evi/internal/log"
	"github.com/evihealth/evi/internal/tools"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(Config{
		Model:    &mockModel{},
		Registry: tools.NewRegistry(),
		Logger:   log.NewNop(),
		Limiter:  rate.NewLimiter(rate.Inf, 1),
		Sleep:    func(time.Duration) {},
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return st
}

func TestStoreCreateGetDelete(t *testing.T) {
	st := newTestStore(t)

	s, err := st.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := st.Get(s.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID() != s.ID() {
		t.Errorf("Get returned id %s, want %s", got.ID(), s.ID())
	}
	if st.Count() != 1 {
		t.Errorf("Count = %d, want 1", st.Count())
	}

	st.Delete(s.ID())
	if _, err := st.Get(s.ID()); err != ErrNotFound {
		t.Errorf("Get after delete: %v, want ErrNotFound", err)
	}
}

func TestStoreGetUnknown(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.Get(uuid.New()); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreWithTurnLock(t *testing.T) {
	st := newTestStore(t)
	s, _ := st.Create()

	var ran bool
	err := st.WithTurnLock(s.ID(), func(got *Session) error {
		ran = got.ID() == s.ID()
		return nil
	})
	if err != nil || !ran {
		t.Errorf("WithTurnLock err=%v ran=%v", err, ran)
	}

	if err := st.WithTurnLock(uuid.New(), func(*Session) error { return nil }); err != ErrNotFound {
		t.Errorf("unknown id err = %v, want ErrNotFound", err)
	}
}

// Exercises PurgeIdle sweeping while turns are in flight; meaningful under
// the race detector.
func TestStorePurgeIdleDuringTurns(t *testing.T) {
	st := newTestStore(t)
	s, _ := st.Create()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_ = st.WithTurnLock(s.ID(), func(sess *Session) error {
				_, err := sess.Turn(context.Background(), "hello")
				return err
			})
		}
	}()

	for i := 0; i < 50; i++ {
		st.PurgeIdle(time.Hour)
	}
	<-done

	if _, err := st.Get(s.ID()); err != nil {
		t.Errorf("active session purged: %v", err)
	}
}

func TestStorePurgeIdle(t *testing.T) {
	st := newTestStore(t)
	old, _ := st.Create()
	old.lastActive = time.Now().Add(-2 * time.Hour)
	fresh, _ := st.Create()

	if removed := st.PurgeIdle(time.Hour); removed != 1 {
		t.Fatalf("PurgeIdle removed %d, want 1", removed)
	}
	if _, err := st.Get(old.ID()); err != ErrNotFound {
		t.Error("idle session survived purge")
	}
	if _, err := st.Get(fresh.ID()); err != nil {
		t.Error("fresh session purged")
	}
}
