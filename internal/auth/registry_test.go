package auth

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T, opts ...RegistryOption) *Registry {
	t.Helper()
	r := NewRegistry(opts...)
	t.Cleanup(r.Stop)
	return r
}

func TestCreateOrGet(t *testing.T) {
	r := newTestRegistry(t)

	sess := r.CreateOrGet("sess-1")
	if sess.ID != "sess-1" {
		t.Errorf("ID = %q, want sess-1", sess.ID)
	}
	if sess.Credential != nil {
		t.Error("new session should have no credential")
	}
	if sess.CreatedAt.IsZero() || sess.LastSeenAt.IsZero() {
		t.Error("timestamps should be set on creation")
	}

	again := r.CreateOrGet("sess-1")
	if !again.CreatedAt.Equal(sess.CreatedAt) {
		t.Error("second CreateOrGet should return the existing session")
	}

	if got := r.Stats()["sessions"]; got != 1 {
		t.Errorf("sessions = %d, want 1", got)
	}
}

func TestGenerateStateCreatesSession(t *testing.T) {
	r := newTestRegistry(t)

	state, err := r.GenerateState("sess-1")
	if err != nil {
		t.Fatalf("GenerateState: %v", err)
	}
	if state == "" {
		t.Fatal("state should not be empty")
	}

	stats := r.Stats()
	if stats["sessions"] != 1 {
		t.Errorf("sessions = %d, want 1 (created on issuance)", stats["sessions"])
	}
	if stats["pending_states"] != 1 {
		t.Errorf("pending_states = %d, want 1", stats["pending_states"])
	}

	other, err := r.GenerateState("sess-1")
	if err != nil {
		t.Fatalf("GenerateState: %v", err)
	}
	if other == state {
		t.Error("successive state tokens must differ")
	}
}

func TestPeekStateOwner(t *testing.T) {
	r := newTestRegistry(t)

	state, err := r.GenerateState("sess-1")
	if err != nil {
		t.Fatalf("GenerateState: %v", err)
	}

	owner, ok := r.PeekStateOwner(state)
	if !ok || owner != "sess-1" {
		t.Errorf("PeekStateOwner = (%q, %v), want (sess-1, true)", owner, ok)
	}

	// Peek does not consume.
	if _, ok := r.PeekStateOwner(state); !ok {
		t.Error("peek should be repeatable")
	}

	if _, ok := r.PeekStateOwner("unknown"); ok {
		t.Error("unknown state should not resolve")
	}
}

func TestValidateAndConsumeState(t *testing.T) {
	r := newTestRegistry(t)

	state, err := r.GenerateState("sess-1")
	if err != nil {
		t.Fatalf("GenerateState: %v", err)
	}

	if !r.ValidateAndConsumeState(state, "sess-1") {
		t.Fatal("first redemption should succeed")
	}
	if r.ValidateAndConsumeState(state, "sess-1") {
		t.Error("second redemption of the same token must fail")
	}
	if got := r.Stats()["pending_states"]; got != 0 {
		t.Errorf("pending_states = %d, want 0 after redemption", got)
	}
}

func TestValidateAndConsumeStateWrongSession(t *testing.T) {
	r := newTestRegistry(t)

	state, err := r.GenerateState("sess-1")
	if err != nil {
		t.Fatalf("GenerateState: %v", err)
	}

	if r.ValidateAndConsumeState(state, "sess-2") {
		t.Fatal("redemption for a different session must fail")
	}

	// A failed attempt still burns the token.
	if r.ValidateAndConsumeState(state, "sess-1") {
		t.Error("token must be gone after a failed redemption attempt")
	}
}

func TestValidateAndConsumeStateExpired(t *testing.T) {
	r := newTestRegistry(t, WithStateTTL(time.Nanosecond))

	state, err := r.GenerateState("sess-1")
	if err != nil {
		t.Fatalf("GenerateState: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok := r.PeekStateOwner(state); ok {
		t.Error("expired state should not peek")
	}
	if r.ValidateAndConsumeState(state, "sess-1") {
		t.Error("expired state must not redeem")
	}
}

func TestValidateAndConsumeStateExactlyOnce(t *testing.T) {
	r := newTestRegistry(t)

	state, err := r.GenerateState("sess-1")
	if err != nil {
		t.Fatalf("GenerateState: %v", err)
	}

	const racers = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if r.ValidateAndConsumeState(state, "sess-1") {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("redemptions succeeded = %d, want exactly 1", wins.Load())
	}
}

func TestBindAndUnbindCredential(t *testing.T) {
	r := newTestRegistry(t)

	if _, ok := r.Credential("sess-1"); ok {
		t.Fatal("unknown session should have no credential")
	}

	r.BindCredential("sess-1", Credential{
		AccessToken: "xoxp-test",
		UserID:      "U123",
		Scopes:      []string{"search:read"},
		ObtainedAt:  time.Now(),
	})

	cred, ok := r.Credential("sess-1")
	if !ok {
		t.Fatal("credential should be bound")
	}
	if cred.UserID != "U123" || cred.AccessToken != "xoxp-test" {
		t.Errorf("unexpected credential %+v", cred)
	}

	// Re-authentication replaces the binding.
	r.BindCredential("sess-1", Credential{AccessToken: "xoxp-new", UserID: "U456"})
	cred, _ = r.Credential("sess-1")
	if cred.AccessToken != "xoxp-new" || cred.UserID != "U456" {
		t.Errorf("rebind should overwrite, got %+v", cred)
	}

	if got := r.Stats()["bound_sessions"]; got != 1 {
		t.Errorf("bound_sessions = %d, want 1", got)
	}

	r.Unbind("sess-1")
	if _, ok := r.Credential("sess-1"); ok {
		t.Error("credential should be gone after Unbind")
	}
	if got := r.Stats()["sessions"]; got != 1 {
		t.Error("session itself should survive Unbind")
	}
}

func TestCredentialIsCopy(t *testing.T) {
	r := newTestRegistry(t)

	r.BindCredential("sess-1", Credential{AccessToken: "xoxp-test", UserID: "U123"})

	cred, _ := r.Credential("sess-1")
	cred.AccessToken = "mutated"

	again, _ := r.Credential("sess-1")
	if again.AccessToken != "xoxp-test" {
		t.Error("mutating a returned credential must not affect the registry")
	}
}

func TestRemoveSession(t *testing.T) {
	r := newTestRegistry(t)

	r.BindCredential("sess-1", Credential{AccessToken: "xoxp-test"})
	r.RemoveSession("sess-1")

	if _, ok := r.Credential("sess-1"); ok {
		t.Error("removed session should have no credential")
	}
	if got := r.Stats()["sessions"]; got != 0 {
		t.Errorf("sessions = %d, want 0", got)
	}
}

func TestSweepExpired(t *testing.T) {
	r := newTestRegistry(t,
		WithStateTTL(time.Nanosecond),
		WithSessionTimeout(time.Nanosecond))

	if _, err := r.GenerateState("sess-1"); err != nil {
		t.Fatalf("GenerateState: %v", err)
	}
	r.CreateOrGet("sess-2")
	time.Sleep(5 * time.Millisecond)

	states, sessions := r.SweepExpired()
	if states != 1 {
		t.Errorf("swept states = %d, want 1", states)
	}
	if sessions != 2 {
		t.Errorf("swept sessions = %d, want 2", sessions)
	}

	stats := r.Stats()
	if stats["sessions"] != 0 || stats["pending_states"] != 0 {
		t.Errorf("registry should be empty after sweep, got %v", stats)
	}
}

func TestSweepKeepsLiveEntries(t *testing.T) {
	r := newTestRegistry(t)

	if _, err := r.GenerateState("sess-1"); err != nil {
		t.Fatalf("GenerateState: %v", err)
	}
	r.BindCredential("sess-1", Credential{AccessToken: "xoxp-test"})

	states, sessions := r.SweepExpired()
	if states != 0 || sessions != 0 {
		t.Errorf("sweep removed live entries: states=%d sessions=%d", states, sessions)
	}
}

func TestConcurrentRegistryAccess(t *testing.T) {
	r := newTestRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			r.CreateOrGet(id)
			if _, err := r.GenerateState(id); err != nil {
				t.Errorf("GenerateState: %v", err)
			}
			r.BindCredential(id, Credential{AccessToken: "xoxp-" + id})
			r.Touch(id)
			r.Stats()
		}(i)
	}
	wg.Wait()

	stats := r.Stats()
	if stats["sessions"] != 16 {
		t.Errorf("sessions = %d, want 16", stats["sessions"])
	}
	if stats["bound_sessions"] != 16 {
		t.Errorf("bound_sessions = %d, want 16", stats["bound_sessions"])
	}
}

func TestSessionObserver(t *testing.T) {
	var started, ended int
	r := newTestRegistry(t,
		WithSessionTimeout(time.Nanosecond),
		WithSessionObserver(
			func() { started++ },
			func() { ended++ },
		))

	r.CreateOrGet("sess-1")
	r.CreateOrGet("sess-1") // existing, no notification
	r.BindCredential("sess-2", Credential{AccessToken: "xoxp-test"})
	if started != 2 {
		t.Errorf("started = %d, want 2", started)
	}

	r.RemoveSession("sess-1")
	r.RemoveSession("sess-1") // already gone, no notification
	if ended != 1 {
		t.Errorf("ended = %d, want 1", ended)
	}

	time.Sleep(5 * time.Millisecond)
	r.SweepExpired()
	if ended != 2 {
		t.Errorf("ended = %d after sweep, want 2", ended)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Stop()
	r.Stop()
}
