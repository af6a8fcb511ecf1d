package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/mixlink/internal/cache"
	"github.com/desertthunder/mixlink/internal/models"
	"github.com/desertthunder/mixlink/internal/pkce"
	"github.com/desertthunder/mixlink/internal/services"
	"github.com/desertthunder/mixlink/internal/shared"
)

type fakeAuthorizer struct{}

func (fakeAuthorizer) AuthCodeURL(state, challenge string) string {
	v := url.Values{"state": {state}, "code_challenge": {challenge}}
	return "https://accounts.example/authorize?" + v.Encode()
}

type memCredentials struct {
	mu      sync.Mutex
	records map[string]models.TokenRecord
	clears  int
}

func newMemCredentials() *memCredentials {
	return &memCredentials{records: map[string]models.TokenRecord{}}
}

func (m *memCredentials) Tokens(_ context.Context, sessionID string) (models.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[sessionID], nil
}

func (m *memCredentials) SaveTokens(_ context.Context, sessionID string, rec models.TokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.RefreshToken == "" {
		rec.RefreshToken = m.records[sessionID].RefreshToken
	}
	m.records[sessionID] = rec
	return nil
}

func (m *memCredentials) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	delete(m.records, sessionID)
	return nil
}

type fakeRefresher struct {
	calls int
	token *oauth2.Token
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

type countingBeginner struct {
	calls   int
	artists []string
}

func (c *countingBeginner) Begin(_ context.Context, sessionID, artist string) (string, error) {
	c.calls++
	c.artists = append(c.artists, artist)
	return "https://accounts.example/authorize?state=" + artist, nil
}

func discardLogger() *log.Logger { return log.New(io.Discard) }

func TestInitiator(t *testing.T) {
	t.Run("stores transaction and returns URL", func(t *testing.T) {
		store := cache.NewTransientStore(time.Minute)
		defer store.Stop()

		i := NewInitiator(fakeAuthorizer{}, store, discardLogger())
		raw, err := i.Begin(context.Background(), "sess", "trinix")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		u, _ := url.Parse(raw)
		if u.Query().Get("state") != "trinix" {
			t.Errorf("expected state=trinix, got %s", u.Query().Get("state"))
		}

		tx, ok := store.Peek("sess")
		if !ok {
			t.Fatal("expected pending transaction")
		}
		if tx.Artist != "trinix" || len(tx.Verifier) != pkce.DefaultLength {
			t.Errorf("unexpected transaction %+v", tx)
		}
		if got := u.Query().Get("code_challenge"); got != pkce.Challenge(tx.Verifier) {
			t.Errorf("challenge does not match stored verifier")
		}
	})

	t.Run("rejects empty artist", func(t *testing.T) {
		store := cache.NewTransientStore(time.Minute)
		defer store.Stop()

		i := NewInitiator(fakeAuthorizer{}, store, discardLogger())
		if _, err := i.Begin(context.Background(), "sess", ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if _, ok := store.Peek("sess"); ok {
			t.Error("no transaction should be stored")
		}
	})

	t.Run("new attempt overwrites pending transaction", func(t *testing.T) {
		store := cache.NewTransientStore(time.Minute)
		defer store.Stop()

		i := NewInitiator(fakeAuthorizer{}, store, discardLogger())
		i.Begin(context.Background(), "sess", "a")
		i.Begin(context.Background(), "sess", "b")

		tx, _ := store.Peek("sess")
		if tx.Artist != "b" {
			t.Errorf("expected latest artist b, got %s", tx.Artist)
		}
	})
}

func TestGuard(t *testing.T) {
	t.Run("transitions", func(t *testing.T) {
		g := newGuard[string]()
		if g.State() != Idle {
			t.Fatalf("expected idle, got %s", g.State())
		}
		if !g.TryStart() {
			t.Fatal("first TryStart should win")
		}
		if g.TryStart() {
			t.Fatal("second TryStart should lose")
		}
		if _, ok := g.Outcome(); ok {
			t.Error("outcome should not be available while in progress")
		}

		g.Finish(true, "done")
		if g.State() != Completed {
			t.Errorf("expected completed, got %s", g.State())
		}
		if out, ok := g.Outcome(); !ok || out != "done" {
			t.Errorf("expected recorded outcome, got %q (ok=%v)", out, ok)
		}

		g.Finish(false, "late")
		if g.State() != Completed {
			t.Error("state must not change after finishing")
		}
		if out, _ := g.Outcome(); out != "done" {
			t.Errorf("outcome must not change after finishing, got %q", out)
		}
		if g.TryStart() {
			t.Error("finished guard must never restart")
		}
	})

	t.Run("failed", func(t *testing.T) {
		g := newGuard[int]()
		g.TryStart()
		g.Finish(false, 7)
		if g.State() != Failed {
			t.Errorf("expected failed, got %s", g.State())
		}
	})

	t.Run("Finish without start is ignored", func(t *testing.T) {
		g := newGuard[int]()
		g.Finish(true, 1)
		if g.State() != Idle {
			t.Errorf("expected idle, got %s", g.State())
		}
	})

	t.Run("Wait", func(t *testing.T) {
		g := newGuard[string]()
		g.TryStart()
		go func() {
			time.Sleep(10 * time.Millisecond)
			g.Finish(true, "ok")
		}()
		out, err := g.Wait(context.Background())
		if err != nil || out != "ok" {
			t.Errorf("expected ok, got %q, %v", out, err)
		}

		pending := newGuard[string]()
		pending.TryStart()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if _, err := pending.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}

func TestGuards(t *testing.T) {
	t.Run("same key shares guard", func(t *testing.T) {
		guards := NewGuards[string](time.Minute)
		defer guards.Stop()

		g1, won1 := guards.Acquire("sess|XYZ")
		g2, won2 := guards.Acquire("sess|XYZ")
		if !won1 || won2 {
			t.Errorf("expected first to win and second to lose, got %v %v", won1, won2)
		}
		if g1 != g2 {
			t.Error("expected the same guard instance")
		}

		_, won3 := guards.Acquire("sess|OTHER")
		if !won3 {
			t.Error("different key should get its own guard")
		}
	})

	t.Run("concurrent acquire has one winner", func(t *testing.T) {
		guards := NewGuards[string](time.Minute)
		defer guards.Stop()

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, won := guards.Acquire("key"); won {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		if wins.Load() != 1 {
			t.Errorf("expected exactly one winner, got %d", wins.Load())
		}
	})

	t.Run("finished guard survives many other deliveries", func(t *testing.T) {
		guards := NewGuards[string](time.Minute)
		defer guards.Stop()

		g, _ := guards.Acquire("sess|FIRST")
		g.Finish(true, "done")

		for i := range 1000 {
			guards.Acquire(fmt.Sprintf("sess|%d", i))
		}

		again, won := guards.Acquire("sess|FIRST")
		if won {
			t.Fatal("finished delivery should not run again")
		}
		if out, ok := again.Outcome(); !ok || out != "done" {
			t.Errorf("expected replayed outcome, got %q %v", out, ok)
		}
	})
}

func TestCall(t *testing.T) {
	ctx := context.Background()
	unauthorized := &services.APIError{StatusCode: 401}

	t.Run("success passes through", func(t *testing.T) {
		creds := newMemCredentials()
		refresher := &fakeRefresher{}
		beginner := &countingBeginner{}
		l := NewLifecycle(refresher, creds, beginner, discardLogger())

		got, token, err := Call(ctx, l, "sess", "A1", "trinix", func(_ context.Context, tok string) (string, error) {
			return "user-" + tok, nil
		})
		if err != nil || got != "user-A1" || token != "A1" {
			t.Errorf("unexpected result %q %q %v", got, token, err)
		}
		if refresher.calls != 0 || beginner.calls != 0 {
			t.Error("no refresh or reauthorization expected")
		}
	})

	t.Run("one refresh then one retry", func(t *testing.T) {
		creds := newMemCredentials()
		creds.records["sess"] = models.TokenRecord{AccessToken: "A1", RefreshToken: "R1"}
		refresher := &fakeRefresher{token: &oauth2.Token{AccessToken: "A2", RefreshToken: "R1"}}
		beginner := &countingBeginner{}
		l := NewLifecycle(refresher, creds, beginner, discardLogger())

		var tokensSeen []string
		got, token, err := Call(ctx, l, "sess", "A1", "trinix", func(_ context.Context, tok string) (string, error) {
			tokensSeen = append(tokensSeen, tok)
			if tok == "A1" {
				return "", unauthorized
			}
			return "u1", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "u1" || token != "A2" {
			t.Errorf("expected u1 with A2, got %q with %q", got, token)
		}
		if refresher.calls != 1 {
			t.Errorf("expected exactly one refresh, got %d", refresher.calls)
		}
		if len(tokensSeen) != 2 || tokensSeen[1] != "A2" {
			t.Errorf("expected exactly one retry with the new token, got %v", tokensSeen)
		}
		if beginner.calls != 0 {
			t.Error("no reauthorization expected")
		}
		if rec := creds.records["sess"]; rec.AccessToken != "A2" || rec.RefreshToken != "R1" {
			t.Errorf("expected refreshed token persisted, got %+v", rec)
		}
	})

	t.Run("no refresh token reauthorizes", func(t *testing.T) {
		creds := newMemCredentials()
		creds.records["sess"] = models.TokenRecord{AccessToken: "A1"}
		refresher := &fakeRefresher{}
		beginner := &countingBeginner{}
		l := NewLifecycle(refresher, creds, beginner, discardLogger())

		_, _, err := Call(ctx, l, "sess", "A1", "trinix", func(context.Context, string) (string, error) {
			return "", unauthorized
		})
		if !errors.Is(err, ErrReauthorizing) {
			t.Fatalf("expected ErrReauthorizing, got %v", err)
		}
		if u, ok := AuthorizeURL(err); !ok || u == "" {
			t.Error("expected authorize URL on reauth error")
		}
		if refresher.calls != 0 {
			t.Errorf("expected no refresh, got %d", refresher.calls)
		}
		if beginner.calls != 1 || beginner.artists[0] != "trinix" {
			t.Errorf("expected one reauthorization for trinix, got %v", beginner.artists)
		}
		if _, ok := creds.records["sess"]; ok || creds.clears != 1 {
			t.Error("expected stored tokens to be cleared once")
		}
	})

	t.Run("refresh failure reauthorizes", func(t *testing.T) {
		creds := newMemCredentials()
		creds.records["sess"] = models.TokenRecord{AccessToken: "A1", RefreshToken: "R1"}
		refresher := &fakeRefresher{err: shared.ErrRefreshFailed}
		beginner := &countingBeginner{}
		l := NewLifecycle(refresher, creds, beginner, discardLogger())

		calls := 0
		_, _, err := Call(ctx, l, "sess", "A1", "trinix", func(context.Context, string) (string, error) {
			calls++
			return "", unauthorized
		})
		if !errors.Is(err, ErrReauthorizing) {
			t.Fatalf("expected ErrReauthorizing, got %v", err)
		}
		if refresher.calls != 1 || calls != 1 || beginner.calls != 1 {
			t.Errorf("expected 1 refresh, 1 call, 1 reauth; got %d, %d, %d", refresher.calls, calls, beginner.calls)
		}
		if _, ok := creds.records["sess"]; ok {
			t.Error("expected tokens cleared")
		}
	})

	t.Run("failed retry reauthorizes without a second refresh", func(t *testing.T) {
		creds := newMemCredentials()
		creds.records["sess"] = models.TokenRecord{AccessToken: "A1", RefreshToken: "R1"}
		refresher := &fakeRefresher{token: &oauth2.Token{AccessToken: "A2"}}
		beginner := &countingBeginner{}
		l := NewLifecycle(refresher, creds, beginner, discardLogger())

		calls := 0
		_, _, err := Call(ctx, l, "sess", "A1", "trinix", func(context.Context, string) (string, error) {
			calls++
			return "", unauthorized
		})
		if !errors.Is(err, ErrReauthorizing) {
			t.Fatalf("expected ErrReauthorizing, got %v", err)
		}
		if refresher.calls != 1 {
			t.Errorf("expected one refresh, got %d", refresher.calls)
		}
		if calls != 2 {
			t.Errorf("expected original call plus one retry, got %d", calls)
		}
		if beginner.calls != 1 {
			t.Errorf("expected one reauthorization, got %d", beginner.calls)
		}
	})

	t.Run("other errors are terminal", func(t *testing.T) {
		creds := newMemCredentials()
		creds.records["sess"] = models.TokenRecord{AccessToken: "A1", RefreshToken: "R1"}
		refresher := &fakeRefresher{}
		beginner := &countingBeginner{}
		l := NewLifecycle(refresher, creds, beginner, discardLogger())

		boom := &services.APIError{StatusCode: 500}
		_, _, err := Call(ctx, l, "sess", "A1", "trinix", func(context.Context, string) (string, error) {
			return "", boom
		})
		if !errors.Is(err, boom) || errors.Is(err, ErrReauthorizing) {
			t.Errorf("expected terminal error, got %v", err)
		}
		if refresher.calls != 0 || beginner.calls != 0 {
			t.Error("no refresh or reauthorization expected")
		}
		if _, ok := creds.records["sess"]; !ok {
			t.Error("tokens must be kept on terminal errors")
		}
	})
}
