package account_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/rentdesk/internal/account"
	"github.com/geocoder89/rentdesk/internal/domain/user"
	"github.com/geocoder89/rentdesk/internal/oauth"
	"github.com/geocoder89/rentdesk/internal/repo/memory"
	"github.com/geocoder89/rentdesk/internal/security"
)

type fakeIssuer struct {
	grantFn  func(ctx context.Context, username, password string) (oauth.TokenResponse, error)
	revokeFn func(ctx context.Context, token string) error
	revoked  []string
}

func (f *fakeIssuer) PasswordGrant(ctx context.Context, username, password string) (oauth.TokenResponse, error) {
	if f.grantFn != nil {
		return f.grantFn(ctx, username, password)
	}
	return oauth.TokenResponse{"access_token": "tok-" + username, "token_type": "Bearer"}, nil
}

func (f *fakeIssuer) Revoke(ctx context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	if f.revokeFn != nil {
		return f.revokeFn(ctx, token)
	}
	return nil
}

type fakeForgetter struct{ forgotten []string }

func (f *fakeForgetter) Forget(_ context.Context, token string) {
	f.forgotten = append(f.forgotten, token)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(issuer *fakeIssuer) (*account.Service, *memory.UsersRepo) {
	users := memory.NewUsersRepo()
	return account.NewService(users, issuer, nil, 120*time.Second, quietLogger()), users
}

func TestRegisterCreatesActiveStaffUser(t *testing.T) {
	ctx := context.Background()
	svc, users := newService(&fakeIssuer{})

	res, err := svc.Register(ctx, user.RegisterRequest{Email: "sam@Example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	u, err := users.GetByEmail(ctx, "sam@example.com")
	if err != nil {
		t.Fatalf("user not persisted: %v", err)
	}
	if !u.IsActive || !u.IsStaff || u.IsSuperuser {
		t.Fatalf("flags: %+v", u)
	}
	if u.PasswordHash == "secret" || security.CheckPassword(u.PasswordHash, "secret") != nil {
		t.Fatalf("password must be stored hashed")
	}

	if res["id"] != u.ID {
		t.Fatalf("id: got %v want %d", res["id"], u.ID)
	}
	if res["access_token"] != "tok-sam@example.com" {
		t.Fatalf("token not relayed: %v", res)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, users := newService(&fakeIssuer{})

	if _, err := svc.Register(ctx, user.RegisterRequest{Email: "dup@example.com", Password: "secret"}); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(ctx, user.RegisterRequest{Email: "dup@example.com", Password: "secret"})
	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("got %v, want ErrEmailTaken", err)
	}

	_, total, _ := users.List(ctx, user.ListFilter{})
	if total != 1 {
		t.Fatalf("duplicate registration created a record, total=%d", total)
	}
}

func TestRegisterRollsBackWhenGrantFails(t *testing.T) {
	ctx := context.Background()
	upstream := &oauth.UpstreamError{Endpoint: "token", StatusCode: 401, Body: []byte(`{"error":"invalid_client"}`)}
	svc, users := newService(&fakeIssuer{grantFn: func(context.Context, string, string) (oauth.TokenResponse, error) {
		return nil, upstream
	}})

	_, err := svc.Register(ctx, user.RegisterRequest{Email: "sam@example.com", Password: "secret"})
	if !errors.Is(err, upstream) {
		t.Fatalf("got %v, want the upstream error", err)
	}

	if _, err := users.GetByEmail(ctx, "sam@example.com"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("user should be removed after failed grant, got %v", err)
	}
}

func TestRegisterRollsBackOnNullTokenBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`null`))
	}))
	defer srv.Close()

	ctx := context.Background()
	users := memory.NewUsersRepo()
	client := oauth.NewClient(oauth.Config{BaseURL: srv.URL, ClientID: "cid", ClientSecret: "csecret"}, nil)
	svc := account.NewService(users, client, nil, time.Minute, quietLogger())

	_, err := svc.Register(ctx, user.RegisterRequest{Email: "sam@example.com", Password: "secret"})

	var upErr *oauth.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("got %v, want *oauth.UpstreamError", err)
	}
	if _, err := users.GetByEmail(ctx, "sam@example.com"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("user should be removed after an unusable token response, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	var deadline time.Time
	issuer := &fakeIssuer{grantFn: func(ctx context.Context, username, _ string) (oauth.TokenResponse, error) {
		deadline, _ = ctx.Deadline()
		return oauth.TokenResponse{"access_token": "abc"}, nil
	}}
	svc, users := newService(issuer)

	hash, _ := security.HashPassword("secret")
	u, _ := users.Create(ctx, user.NewUser{Email: "sam@example.com", PasswordHash: hash, IsActive: true}, nil)
	_, _ = users.Create(ctx, user.NewUser{Email: "off@example.com", PasswordHash: hash, IsActive: false}, nil)

	tests := []struct {
		name    string
		req     user.LoginRequest
		wantErr error
	}{
		{name: "success", req: user.LoginRequest{Email: "sam@example.com", Password: "secret"}},
		{name: "wrong_password", req: user.LoginRequest{Email: "sam@example.com", Password: "nope"}, wantErr: account.ErrInvalidCredentials},
		{name: "unknown_email", req: user.LoginRequest{Email: "who@example.com", Password: "secret"}, wantErr: account.ErrInvalidCredentials},
		{name: "inactive", req: user.LoginRequest{Email: "off@example.com", Password: "secret"}, wantErr: account.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Login(ctx, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got err %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && res["access_token"] != "abc" {
				t.Fatalf("token not relayed: %v", res)
			}
		})
	}

	if deadline.IsZero() || time.Until(deadline) > 120*time.Second {
		t.Fatalf("login grant should run under the login timeout, deadline=%v", deadline)
	}

	got, _ := users.GetByID(ctx, u.ID)
	if got.LastLogin == nil {
		t.Fatalf("last_login not stamped on success")
	}
}

func TestFailedLoginLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()

	grants := 0
	issuer := &fakeIssuer{grantFn: func(context.Context, string, string) (oauth.TokenResponse, error) {
		grants++
		return oauth.TokenResponse{"access_token": "abc"}, nil
	}}
	svc, users := newService(issuer)

	hash, _ := security.HashPassword("secret")
	active, _ := users.Create(ctx, user.NewUser{Email: "sam@example.com", PasswordHash: hash, IsActive: true}, nil)
	inactive, _ := users.Create(ctx, user.NewUser{Email: "off@example.com", PasswordHash: hash, IsActive: false}, nil)

	tests := []struct {
		name string
		u    user.User
		req  user.LoginRequest
	}{
		{name: "wrong_password", u: active, req: user.LoginRequest{Email: "sam@example.com", Password: "nope"}},
		{name: "inactive", u: inactive, req: user.LoginRequest{Email: "off@example.com", Password: "secret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Login(ctx, tt.req); !errors.Is(err, account.ErrInvalidCredentials) {
				t.Fatalf("got %v, want ErrInvalidCredentials", err)
			}

			got, _ := users.GetByID(ctx, tt.u.ID)
			if got.LastLogin != nil {
				t.Fatalf("last_login stamped on failed login")
			}
			if got.IsActive != tt.u.IsActive {
				t.Fatalf("is_active changed: got %v want %v", got.IsActive, tt.u.IsActive)
			}
			if got.PasswordHash != tt.u.PasswordHash || !got.UpdatedAt.Equal(tt.u.UpdatedAt) {
				t.Fatalf("user record changed on failed login")
			}
		})
	}

	if grants != 0 {
		t.Fatalf("authorization server called %d times for failed logins", grants)
	}
}

func TestLogoutIgnoresRevokeFailure(t *testing.T) {
	issuer := &fakeIssuer{revokeFn: func(context.Context, string) error {
		return &oauth.UpstreamError{Endpoint: "revoke", Err: errors.New("refused")}
	}}
	forget := &fakeForgetter{}
	svc := account.NewService(memory.NewUsersRepo(), issuer, forget, time.Minute, quietLogger())

	svc.Logout(context.Background(), "tok")

	if len(issuer.revoked) != 1 || issuer.revoked[0] != "tok" {
		t.Fatalf("revoke not forwarded: %v", issuer.revoked)
	}
	if len(forget.forgotten) != 1 {
		t.Fatalf("cached verification not dropped")
	}
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	svc, users := newService(&fakeIssuer{})

	hash, _ := security.HashPassword("old-secret")
	u, _ := users.Create(ctx, user.NewUser{Email: "sam@example.com", PasswordHash: hash, IsActive: true}, nil)

	err := svc.ResetPassword(ctx, u.ID, user.PasswordResetRequest{OldPassword: "wrong", NewPassword: "new-secret"})
	if !errors.Is(err, account.ErrPasswordMismatch) {
		t.Fatalf("got %v, want ErrPasswordMismatch", err)
	}

	unchanged, _ := users.GetByID(ctx, u.ID)
	if unchanged.PasswordHash != hash {
		t.Fatalf("hash changed after a failed reset")
	}

	if err := svc.ResetPassword(ctx, u.ID, user.PasswordResetRequest{OldPassword: "old-secret", NewPassword: "new-secret"}); err != nil {
		t.Fatalf("reset: %v", err)
	}

	changed, _ := users.GetByID(ctx, u.ID)
	if security.CheckPassword(changed.PasswordHash, "new-secret") != nil {
		t.Fatalf("new password not stored")
	}
	if changed.UpdatedBy == nil || *changed.UpdatedBy != u.ID {
		t.Fatalf("updated_by should be the caller")
	}
}
