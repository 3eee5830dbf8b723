package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shikshadisha/portal/internal/model"
	"github.com/shikshadisha/portal/internal/security"
	"github.com/shikshadisha/portal/internal/upstream"
)

// --- モック定義 ---

type mockUpstream struct {
	configured     bool
	loginFn        func(ctx context.Context, email, password string, rememberMe bool) (*upstream.Result, error)
	authenticateFn func(ctx context.Context, email, password, name string, isSignup bool) (*upstream.Result, error)
}

func (m *mockUpstream) Configured() bool { return m.configured }

func (m *mockUpstream) Login(ctx context.Context, email, password string, rememberMe bool) (*upstream.Result, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password, rememberMe)
	}
	return &upstream.Result{}, nil
}

func (m *mockUpstream) Authenticate(ctx context.Context, email, password, name string, isSignup bool) (*upstream.Result, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, email, password, name, isSignup)
	}
	return &upstream.Result{}, nil
}

type mockCollector struct {
	outcomes []string
}

func (m *mockCollector) RecordAuthOutcome(flow, outcome string) {
	m.outcomes = append(m.outcomes, flow+":"+outcome)
}
func (m *mockCollector) RecordUpstreamLatency(string, time.Duration)    {}
func (m *mockCollector) RecordServiceCheck(string, bool, time.Duration) {}
func (m *mockCollector) RecordHTTPStatus(int)                           {}

func newTestService(up Upstream, collector *mockCollector) *Service {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	svc := NewService(up, security.NewMessageSanitizer(), collector, logger)
	svc.now = func() time.Time { return time.UnixMilli(1700000000123) }
	svc.newID = func() string { return "generated-id" }
	return svc
}

// --- Login ---

func TestService_Login_NotConfigured_ReturnsErrNotConfigured(t *testing.T) {
	called := false
	up := &mockUpstream{
		configured: false,
		loginFn: func(context.Context, string, string, bool) (*upstream.Result, error) {
			called = true
			return nil, nil
		},
	}
	collector := &mockCollector{}
	svc := newTestService(up, collector)

	_, err := svc.Login(context.Background(), model.LoginRequest{Email: "a@example.com", Password: "pw"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	if called {
		t.Error("upstream should not be called when not configured")
	}
	if len(collector.outcomes) != 1 || collector.outcomes[0] != "login:not_configured" {
		t.Errorf("outcomes = %v, want [login:not_configured]", collector.outcomes)
	}
}

func TestService_Login_UpstreamSuccess_RelaysResponse(t *testing.T) {
	up := &mockUpstream{
		configured: true,
		loginFn: func(_ context.Context, email, password string, rememberMe bool) (*upstream.Result, error) {
			if email != "asha@example.com" || password != "secret" || !rememberMe {
				t.Errorf("unexpected forwarded credentials: %s %s %v", email, password, rememberMe)
			}
			return &upstream.Result{
				Message: "Welcome back",
				User:    &model.User{ID: "u-1", Name: "Asha", Email: "asha@example.com"},
				Token:   "tok-1",
			}, nil
		},
	}
	svc := newTestService(up, &mockCollector{})

	resp, err := svc.Login(context.Background(), model.LoginRequest{Email: "asha@example.com", Password: "secret", RememberMe: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success {
		t.Error("Success should be true")
	}
	if resp.Message != "Welcome back" {
		t.Errorf("Message = %q, want %q", resp.Message, "Welcome back")
	}
	if resp.User.ID != "u-1" || resp.User.Name != "Asha" {
		t.Errorf("User = %+v, want upstream user", resp.User)
	}
	if resp.Token != "tok-1" {
		t.Errorf("Token = %q, want tok-1", resp.Token)
	}
}

func TestService_Login_UpstreamOmitsFields_SynthesizesDefaults(t *testing.T) {
	up := &mockUpstream{configured: true}
	svc := newTestService(up, &mockCollector{})

	resp, err := svc.Login(context.Background(), model.LoginRequest{Email: "ravi.k@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Message != DefaultLoginMessage {
		t.Errorf("Message = %q, want %q", resp.Message, DefaultLoginMessage)
	}
	want := model.User{ID: "generated-id", Name: "ravi.k", Email: "ravi.k@example.com"}
	if *resp.User != want {
		t.Errorf("User = %+v, want %+v", *resp.User, want)
	}
	if resp.Token != "demo-token-1700000000123" {
		t.Errorf("Token = %q, want demo-token-1700000000123", resp.Token)
	}
}

func TestService_Login_Rejected_ReturnsSanitizedMessage(t *testing.T) {
	up := &mockUpstream{
		configured: true,
		loginFn: func(context.Context, string, string, bool) (*upstream.Result, error) {
			return nil, &upstream.RejectedError{StatusCode: 401, Message: "<b>Wrong</b> password"}
		},
	}
	collector := &mockCollector{}
	svc := newTestService(up, collector)

	_, err := svc.Login(context.Background(), model.LoginRequest{Email: "a@example.com", Password: "bad"})

	var invalid *InvalidCredentialsError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want *InvalidCredentialsError", err)
	}
	if invalid.Message != "Wrong password" {
		t.Errorf("Message = %q, want %q", invalid.Message, "Wrong password")
	}
	if collector.outcomes[0] != "login:rejected" {
		t.Errorf("outcome = %q, want login:rejected", collector.outcomes[0])
	}
}

func TestService_Login_RejectedWithoutMessage_UsesDefault(t *testing.T) {
	up := &mockUpstream{
		configured: true,
		loginFn: func(context.Context, string, string, bool) (*upstream.Result, error) {
			return nil, &upstream.RejectedError{StatusCode: 500}
		},
	}
	svc := newTestService(up, &mockCollector{})

	_, err := svc.Login(context.Background(), model.LoginRequest{Email: "a@example.com", Password: "bad"})

	var invalid *InvalidCredentialsError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want *InvalidCredentialsError", err)
	}
	if invalid.Message != DefaultRejectMessage {
		t.Errorf("Message = %q, want %q", invalid.Message, DefaultRejectMessage)
	}
}

func TestService_Login_Unavailable_ReturnsErrUnavailable(t *testing.T) {
	up := &mockUpstream{
		configured: true,
		loginFn: func(context.Context, string, string, bool) (*upstream.Result, error) {
			return nil, &upstream.UnavailableError{Err: context.DeadlineExceeded}
		},
	}
	collector := &mockCollector{}
	svc := newTestService(up, collector)

	_, err := svc.Login(context.Background(), model.LoginRequest{Email: "a@example.com", Password: "pw"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, should keep the cause", err)
	}
	if collector.outcomes[0] != "login:unavailable" {
		t.Errorf("outcome = %q, want login:unavailable", collector.outcomes[0])
	}
}

// --- AuthorizeCredentials ---

func TestService_AuthorizeCredentials_Signup_PassesFlagAndName(t *testing.T) {
	var gotSignup bool
	var gotName string
	up := &mockUpstream{
		configured: true,
		authenticateFn: func(_ context.Context, _, _ string, name string, isSignup bool) (*upstream.Result, error) {
			gotSignup = isSignup
			gotName = name
			return &upstream.Result{User: &model.User{ID: "u-7", Name: "Meera", Email: "meera@example.com"}}, nil
		},
	}
	svc := newTestService(up, &mockCollector{})

	user, err := svc.AuthorizeCredentials(context.Background(), model.CredentialsRequest{
		Email: "meera@example.com", Password: "pw", Name: "Meera", IsSignup: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gotSignup {
		t.Error("isSignup should be forwarded as true")
	}
	if gotName != "Meera" {
		t.Errorf("name = %q, want Meera", gotName)
	}
	if user.ID != "u-7" {
		t.Errorf("user.ID = %q, want u-7", user.ID)
	}
}

func TestService_AuthorizeCredentials_NoUpstreamUser_UsesRequestName(t *testing.T) {
	up := &mockUpstream{configured: true}
	svc := newTestService(up, &mockCollector{})

	user, err := svc.AuthorizeCredentials(context.Background(), model.CredentialsRequest{
		Email: "meera@example.com", Password: "pw", Name: "Meera S",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := model.User{ID: "generated-id", Name: "Meera S", Email: "meera@example.com"}
	if *user != want {
		t.Errorf("user = %+v, want %+v", *user, want)
	}
}

func TestService_AuthorizeCredentials_Rejected_SurfacesUpstreamError(t *testing.T) {
	up := &mockUpstream{
		configured: true,
		authenticateFn: func(context.Context, string, string, string, bool) (*upstream.Result, error) {
			return nil, &upstream.RejectedError{StatusCode: 409, Message: "Email already registered"}
		},
	}
	svc := newTestService(up, &mockCollector{})

	_, err := svc.AuthorizeCredentials(context.Background(), model.CredentialsRequest{
		Email: "a@example.com", Password: "pw", IsSignup: true,
	})

	var invalid *InvalidCredentialsError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want *InvalidCredentialsError", err)
	}
	if invalid.Message != "Email already registered" {
		t.Errorf("Message = %q, want %q", invalid.Message, "Email already registered")
	}
}

func TestService_AuthorizeCredentials_NotConfigured_ReturnsErrNotConfigured(t *testing.T) {
	svc := newTestService(&mockUpstream{configured: false}, &mockCollector{})

	_, err := svc.AuthorizeCredentials(context.Background(), model.CredentialsRequest{Email: "a@example.com", Password: "pw"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

// --- GoogleDemoLogin ---

func TestService_GoogleDemoLogin_ReturnsStaticEnvelope(t *testing.T) {
	svc := newTestService(&mockUpstream{}, &mockCollector{})

	resp := svc.GoogleDemoLogin()

	if !resp.Success || resp.Message != "Google login successful" {
		t.Errorf("resp = %+v, want success with Google message", resp)
	}
	want := model.User{ID: "google-demo-user", Name: "Google User", Email: "user@gmail.com"}
	if *resp.User != want {
		t.Errorf("User = %+v, want %+v", *resp.User, want)
	}
	if resp.Token != "demo-google-token-1700000000123" {
		t.Errorf("Token = %q, want demo-google-token-1700000000123", resp.Token)
	}
}
