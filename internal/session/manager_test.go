package session_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/supervisorapp/supervisor-client/internal/core/datamodel/user"
	"github.com/supervisorapp/supervisor-client/internal/credentials"
	"github.com/supervisorapp/supervisor-client/internal/notify"
	"github.com/supervisorapp/supervisor-client/internal/session"
	"github.com/supervisorapp/supervisor-client/internal/transport"
)

func TestSession(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Session Suite")
}

func signedToken(expiresIn time.Duration) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(expiresIn).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	Expect(err).NotTo(HaveOccurred())
	return signed
}

func aliceUser() user.User {
	return user.User{
		ID:       1,
		Username: "alice",
		Email:    "alice@example.com",
		IsActive: true,
		Profile: user.Profile{
			Nom:     "Diallo",
			Prenoms: "Alice",
			Role:    user.RoleAdmin,
		},
	}
}

// authBackend is the fake auth surface: a counter per endpoint plus
// switches the specs flip to simulate failures.
type authBackend struct {
	router *chi.Mux

	loginOK       bool
	logoutFails   bool
	profileStatus int
	logoutCalls   int
	refreshCalls  int
	lastPassword  map[string]string
}

func newAuthBackend() *authBackend {
	b := &authBackend{
		router:        chi.NewRouter(),
		loginOK:       true,
		profileStatus: http.StatusOK,
	}

	b.router.Post("/token/", func(w http.ResponseWriter, r *http.Request) {
		if !b.loginOK {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access":  "tokA",
			"refresh": "tokR",
			"user":    aliceUser(),
		})
	})

	b.router.Post("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls++
		json.NewEncoder(w).Encode(map[string]string{"access": "tokA2", "refresh": "tokR2"})
	})

	b.router.Post("/auth/logout/", func(w http.ResponseWriter, r *http.Request) {
		b.logoutCalls++
		if b.logoutFails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	b.router.Get("/auth/profile/", func(w http.ResponseWriter, r *http.Request) {
		if b.profileStatus != http.StatusOK {
			w.WriteHeader(b.profileStatus)
			w.Write([]byte(`{"detail":"nope"}`))
			return
		}
		json.NewEncoder(w).Encode(aliceUser())
	})

	b.router.Put("/auth/profile/", func(w http.ResponseWriter, r *http.Request) {
		var patch map[string]any
		json.NewDecoder(r.Body).Decode(&patch)
		u := aliceUser()
		if tel, ok := patch["telephone"].(string); ok {
			u.Profile.Telephone = tel
		}
		json.NewEncoder(w).Encode(u)
	})

	b.router.Post("/auth/change-password/", func(w http.ResponseWriter, r *http.Request) {
		b.lastPassword = map[string]string{}
		json.NewDecoder(r.Body).Decode(&b.lastPassword)
		w.WriteHeader(http.StatusNoContent)
	})

	return b
}

var _ = Describe("Manager", func() {
	var (
		backend *authBackend
		server  *httptest.Server
		creds   *credentials.MemoryStore
		manager *session.Manager
		logger  *slog.Logger
	)

	BeforeEach(func() {
		backend = newAuthBackend()
		server = httptest.NewServer(backend.router)
		DeferCleanup(server.Close)

		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		creds = credentials.NewMemoryStore()

		api, err := transport.New(transport.Config{
			BaseURL: server.URL,
			Timeout: 5 * time.Second,
		}, creds, &notify.LogNotifier{Logger: logger}, notify.NopNavigator{}, logger)
		Expect(err).NotTo(HaveOccurred())

		manager = session.NewManager(api, creds, 5*time.Minute, logger)
	})

	Describe("Login", func() {
		It("establishes the session and persists every credential", func() {
			u, err := manager.Login(context.Background(), session.Credentials{
				Username: "alice", Password: "secret",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(u.Username).To(Equal("alice"))

			Expect(creds.AccessToken()).To(Equal("tokA"))
			Expect(creds.RefreshToken()).To(Equal("tokR"))
			Expect(creds.User()).NotTo(BeNil())

			Expect(manager.IsAuthenticated()).To(BeTrue())
			Expect(manager.Role()).To(Equal(user.RoleAdmin))
			Expect(manager.FullName()).To(Equal("Diallo Alice"))
			Expect(manager.IsAdmin()).To(BeTrue())
			Expect(manager.IsSupervisor()).To(BeFalse())
			Expect(manager.HasAdminRights()).To(BeTrue())
		})

		It("leaves no partial state behind on a rejected login", func() {
			backend.loginOK = false

			_, err := manager.Login(context.Background(), session.Credentials{
				Username: "alice", Password: "wrong",
			})

			Expect(err).To(HaveOccurred())
			Expect(manager.IsAuthenticated()).To(BeFalse())
			Expect(creds.AccessToken()).To(BeEmpty())
			Expect(creds.RefreshToken()).To(BeEmpty())
			Expect(creds.User()).To(BeNil())
		})
	})

	Describe("Logout", func() {
		It("asks the server to blacklist the refresh token, then clears", func() {
			_, err := manager.Login(context.Background(), session.Credentials{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())

			manager.Logout(context.Background())

			Expect(backend.logoutCalls).To(Equal(1))
			Expect(manager.IsAuthenticated()).To(BeFalse())
			Expect(creds.AccessToken()).To(BeEmpty())
			Expect(creds.User()).To(BeNil())
		})

		It("clears local state even when the server call fails", func() {
			_, err := manager.Login(context.Background(), session.Credentials{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())

			backend.logoutFails = true
			manager.Logout(context.Background())

			Expect(manager.IsAuthenticated()).To(BeFalse())
			Expect(creds.RefreshToken()).To(BeEmpty())
		})
	})

	Describe("RefreshAccessToken", func() {
		It("fails fast without a refresh token", func() {
			_, err := manager.RefreshAccessToken(context.Background())
			Expect(err).To(HaveOccurred())
			Expect(backend.refreshCalls).To(BeZero())
		})

		It("replaces both tokens when the backend rotates", func() {
			_, err := manager.Login(context.Background(), session.Credentials{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())

			access, err := manager.RefreshAccessToken(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(access).To(Equal("tokA2"))
			Expect(creds.RefreshToken()).To(Equal("tokR2"))
		})
	})

	Describe("FetchCurrentUser", func() {
		It("replaces the stored snapshot from the server", func() {
			_, err := manager.Login(context.Background(), session.Credentials{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())

			u, err := manager.FetchCurrentUser(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Email).To(Equal("alice@example.com"))
		})

		It("tears the session down when the profile call is unauthorized", func() {
			creds.SaveAccessToken("stale")
			backend.profileStatus = http.StatusUnauthorized

			_, err := manager.FetchCurrentUser(context.Background())
			Expect(err).To(HaveOccurred())
			Expect(manager.IsAuthenticated()).To(BeFalse())
			Expect(creds.AccessToken()).To(BeEmpty())
		})

		It("keeps the session on a non-auth failure", func() {
			_, err := manager.Login(context.Background(), session.Credentials{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())

			backend.profileStatus = http.StatusInternalServerError
			_, err = manager.FetchCurrentUser(context.Background())
			Expect(err).To(HaveOccurred())
			Expect(manager.IsAuthenticated()).To(BeTrue())
		})
	})

	Describe("UpdateProfile", func() {
		It("refreshes the snapshot from the server reply", func() {
			_, err := manager.Login(context.Background(), session.Credentials{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())

			u, err := manager.UpdateProfile(context.Background(), map[string]string{"telephone": "0700000000"})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Profile.Telephone).To(Equal("0700000000"))
			Expect(manager.User().Profile.Telephone).To(Equal("0700000000"))
		})
	})

	Describe("ChangePassword", func() {
		It("sends old and new password under the backend's field names", func() {
			_, err := manager.Login(context.Background(), session.Credentials{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())

			err = manager.ChangePassword(context.Background(), session.ChangePasswordRequest{
				OldPassword: "secret",
				NewPassword: "stronger",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(backend.lastPassword).To(HaveKeyWithValue("old_password", "secret"))
			Expect(backend.lastPassword).To(HaveKeyWithValue("new_password", "stronger"))
		})
	})

	Describe("Initialize", func() {
		It("restores and validates a persisted session", func() {
			u := aliceUser()
			creds.SaveAccessToken("tokA")
			creds.SaveRefreshToken("tokR")
			creds.SaveUser(&u)

			manager.Initialize(context.Background())

			Expect(manager.IsAuthenticated()).To(BeTrue())
			Expect(manager.User().Username).To(Equal("alice"))
		})

		It("stays logged out when any credential is missing", func() {
			creds.SaveAccessToken("tokA")

			manager.Initialize(context.Background())
			Expect(manager.IsAuthenticated()).To(BeFalse())
		})

		It("tears down a session the server no longer accepts", func() {
			u := aliceUser()
			creds.SaveAccessToken("tokA")
			creds.SaveRefreshToken("tokR")
			creds.SaveUser(&u)
			backend.profileStatus = http.StatusUnauthorized

			manager.Initialize(context.Background())

			Expect(manager.IsAuthenticated()).To(BeFalse())
			Expect(creds.AccessToken()).To(BeEmpty())
		})
	})

	Describe("NeedsRefresh", func() {
		It("is true when the token expires inside the refresh window", func() {
			creds.SaveAccessToken(signedToken(time.Minute))
			Expect(manager.NeedsRefresh()).To(BeTrue())
		})

		It("is false for a token with plenty of life left", func() {
			creds.SaveAccessToken(signedToken(time.Hour))
			Expect(manager.NeedsRefresh()).To(BeFalse())
		})

		It("is false without a token or with an unparseable one", func() {
			Expect(manager.NeedsRefresh()).To(BeFalse())
			creds.SaveAccessToken("not-a-jwt")
			Expect(manager.NeedsRefresh()).To(BeFalse())
		})
	})
})
