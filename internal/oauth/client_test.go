package oauth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/rentdesk/internal/oauth"
)

func newClient(srvURL string) *oauth.Client {
	return oauth.NewClient(oauth.Config{
		BaseURL:      srvURL + "/",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}, nil)
}

func TestPasswordGrantSendsCredentialsAndRelaysJSON(t *testing.T) {
	var got map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != oauth.TokenPath || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type: %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","expires_in":86400,"token_type":"Bearer","scope":"read write"}`))
	}))
	defer srv.Close()

	res, err := newClient(srv.URL).PasswordGrant(context.Background(), "sam@example.com", "secret")
	if err != nil {
		t.Fatalf("PasswordGrant: %v", err)
	}

	want := map[string]string{
		"grant_type":    "password",
		"username":      "sam@example.com",
		"password":      "secret",
		"client_id":     "client-id",
		"client_secret": "client-secret",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("request field %s: got %q want %q", k, got[k], v)
		}
	}

	if res["access_token"] != "abc" {
		t.Fatalf("access_token: %v", res["access_token"])
	}
	// numbers are kept verbatim
	if n, ok := res["expires_in"].(json.Number); !ok || n.String() != "86400" {
		t.Fatalf("expires_in should be json.Number 86400, got %#v", res["expires_in"])
	}
}

func TestPasswordGrantRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).PasswordGrant(context.Background(), "a@b.co", "x")

	var upErr *oauth.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("want *UpstreamError, got %v", err)
	}
	if upErr.StatusCode != http.StatusBadRequest || string(upErr.Body) != `{"error":"invalid_grant"}` {
		t.Fatalf("unexpected upstream error: %+v", upErr)
	}
	if upErr.Unreachable() {
		t.Fatalf("a rejected grant is not unreachable")
	}
}

func TestPasswordGrantNonObjectBody(t *testing.T) {
	for _, body := range []string{`null`, `[]`, `"token"`} {
		t.Run(body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			res, err := newClient(srv.URL).PasswordGrant(context.Background(), "a@b.co", "x")

			var upErr *oauth.UpstreamError
			if !errors.As(err, &upErr) || upErr.Endpoint != "token" {
				t.Fatalf("want token *UpstreamError, got res=%v err=%v", res, err)
			}
		})
	}
}

func TestPasswordGrantUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(url).PasswordGrant(context.Background(), "a@b.co", "x")

	var upErr *oauth.UpstreamError
	if !errors.As(err, &upErr) || !upErr.Unreachable() {
		t.Fatalf("want unreachable *UpstreamError, got %v", err)
	}
}

func TestRevokeAndIntrospect(t *testing.T) {
	var revoked string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case oauth.RevokePath:
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			revoked = body["token"]
			w.WriteHeader(http.StatusOK)
		case oauth.IntrospectPath:
			user, pass, ok := r.BasicAuth()
			if !ok || user != "client-id" || pass != "client-secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if err := r.ParseForm(); err != nil || r.PostForm.Get("token") != "tok" {
				_, _ = w.Write([]byte(`{"active":false}`))
				return
			}
			_, _ = w.Write([]byte(`{"active":true,"username":"sam@example.com","exp":1900000000}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	ctx := context.Background()

	if err := c.Revoke(ctx, "tok"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if revoked != "tok" {
		t.Fatalf("revoked token: %q", revoked)
	}

	in, err := c.Introspect(ctx, "tok")
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}
	if !in.Active || in.Username != "sam@example.com" || in.ExpiresAt().Unix() != 1900000000 {
		t.Fatalf("unexpected introspection: %+v", in)
	}

	in, err = c.Introspect(ctx, "other")
	if err != nil || in.Active {
		t.Fatalf("inactive token: %+v err=%v", in, err)
	}
}
