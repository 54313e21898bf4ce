package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/zora/internal/auth"
	"github.com/geocoder89/zora/internal/domain/user"
	"github.com/geocoder89/zora/internal/http/handlers"
	"github.com/geocoder89/zora/internal/http/middlewares"
	"github.com/geocoder89/zora/internal/security"
	"github.com/gin-gonic/gin"
)

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]user.User
	nextID  int64
	failErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]user.User{}}
}

func (f *fakeUsers) Create(ctx context.Context, email, passwordHash string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failErr != nil {
		return user.User{}, f.failErr
	}
	if _, ok := f.byEmail[email]; ok {
		return user.User{}, user.ErrEmailTaken
	}

	f.nextID++
	u := user.User{ID: f.nextID, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	f.byEmail[email] = u
	return u, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id int64) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func authRouter(users handlers.UserStore, jwt *auth.Manager) *gin.Engine {
	var issuer handlers.TokenIssuer
	if jwt != nil {
		issuer = jwt
	}
	h := handlers.NewAuthHandler(users, issuer)

	r := gin.New()
	r.POST("/api/users", h.Register)
	r.POST("/api/login", h.Login)
	if jwt != nil {
		r.GET("/api/me", middlewares.NewAuthMiddleware(jwt).RequireAuth(), h.Me)
	}
	return r
}

type authBody struct {
	User struct {
		ID        int64  `json:"id"`
		Email     string `json:"email"`
		CreatedAt string `json:"createdAt"`
	} `json:"user"`
	AccessToken string `json:"accessToken"`
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setUp      func(*fakeUsers)
		wantStatus int
		wantCode   string
	}{
		{"success", `{"email":"  Shopper@Example.COM ","password":"longenough"}`, nil, http.StatusCreated, ""},
		{"invalid email", `{"email":"not-an-email","password":"longenough"}`, nil, http.StatusBadRequest, "invalid_request"},
		{"email with space", `{"email":"a b@c.io","password":"longenough"}`, nil, http.StatusBadRequest, "invalid_request"},
		{"short password", `{"email":"a@b.io","password":"short"}`, nil, http.StatusBadRequest, "invalid_request"},
		{"missing password", `{"email":"a@b.io"}`, nil, http.StatusBadRequest, "invalid_request"},
		{
			name: "duplicate email differing in case",
			body: `{"email":"A@B.io","password":"longenough"}`,
			setUp: func(f *fakeUsers) {
				_, _ = f.Create(context.Background(), "a@b.io", "x:y")
			},
			wantStatus: http.StatusConflict,
			wantCode:   "email_taken",
		},
		{
			name:       "store failure",
			body:       `{"email":"a@b.io","password":"longenough"}`,
			setUp:      func(f *fakeUsers) { f.failErr = errors.New("db down") },
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users := newFakeUsers()
			if tc.setUp != nil {
				tc.setUp(users)
			}

			w := postJSON(authRouter(users, nil), "/api/users", tc.body)
			if w.Code != tc.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatus, w.Body.String())
			}

			if tc.wantCode != "" {
				if got := decodeBindError(t, w).Error.Code; got != tc.wantCode {
					t.Fatalf("got code %q, want %q", got, tc.wantCode)
				}
				return
			}

			var body authBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.User.Email != "shopper@example.com" {
				t.Fatalf("email not normalised: %q", body.User.Email)
			}
			if body.AccessToken != "" {
				t.Fatalf("no token expected without a JWT manager")
			}
			if strings.Contains(w.Body.String(), "passwordHash") || strings.Contains(w.Body.String(), "password_hash") {
				t.Fatalf("hash leaked: %s", w.Body.String())
			}

			stored, _ := users.GetByEmail(context.Background(), "shopper@example.com")
			if !security.VerifyPassword("longenough", stored.PasswordHash) {
				t.Fatalf("stored credential does not verify")
			}
		})
	}
}

func TestLogin(t *testing.T) {
	users := newFakeUsers()
	hash, err := security.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	_, _ = users.Create(context.Background(), "a@b.io", hash)

	r := authRouter(users, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"success", `{"email":"A@b.io ","password":"correct horse"}`, http.StatusOK},
		{"wrong password", `{"email":"a@b.io","password":"wrong horse"}`, http.StatusUnauthorized},
		{"unknown email", `{"email":"x@b.io","password":"correct horse"}`, http.StatusUnauthorized},
		{"missing fields", `{}`, http.StatusBadRequest},
		{"malformed email", `{"email":"not-an-email","password":"correct horse"}`, http.StatusBadRequest},
		{"short password", `{"email":"a@b.io","password":"short"}`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(r, "/api/login", tc.body)
			if w.Code != tc.want {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.want, w.Body.String())
			}

			if tc.want == http.StatusUnauthorized {
				if got := decodeBindError(t, w).Error.Code; got != "invalid_credentials" {
					t.Fatalf("got code %q", got)
				}
			}
		})
	}
}

func TestRegisterLoginMe_WithTokens(t *testing.T) {
	jwt := auth.NewManager("test-secret", time.Minute)
	r := authRouter(newFakeUsers(), jwt)

	w := postJSON(r, "/api/users", `{"email":"me@b.io","password":"longenough"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}

	w = postJSON(r, "/api/login", `{"email":"me@b.io","password":"longenough"}`)
	var body authBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.AccessToken == "" {
		t.Fatalf("login must return a token: %s", w.Body.String())
	}

	if w := get(r, "/api/me"); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous /me: got %d", w.Code)
	}

	w = get(r, "/api/me", "Authorization", "Bearer "+body.AccessToken)
	if w.Code != http.StatusOK {
		t.Fatalf("/me: got %d %s", w.Code, w.Body.String())
	}

	var me authBody
	if err := json.Unmarshal(w.Body.Bytes(), &me); err != nil || me.User.Email != "me@b.io" {
		t.Fatalf("unexpected /me body %s", w.Body.String())
	}
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	users := newFakeUsers()
	r := authRouter(users, nil)

	const n = 6
	codes := make(chan int, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- postJSON(r, "/api/users", `{"email":"race@b.io","password":"longenough"}`).Code
		}()
	}
	wg.Wait()
	close(codes)

	created, conflicts := 0, 0
	for c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		default:
			t.Fatalf("unexpected status %d", c)
		}
	}

	if created != 1 || conflicts != n-1 {
		t.Fatalf("created=%d conflicts=%d", created, conflicts)
	}
}
