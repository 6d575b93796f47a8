package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

var _ repository.UserRepository = (*fakeUserRepo)(nil)

const testSecret = "test-secret-at-least-16-chars!!"

// newTestAuthService wires an AuthService with fakes and bcrypt.MinCost.
func newTestAuthService(t *testing.T, repo *fakeUserRepo, admin AdminCredentials) *AuthService {
	t.Helper()
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return NewAuthService(repo, tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), admin, newTestLogger())
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	return string(h)
}

func register(t *testing.T, svc *AuthService, username, email, password string) *AuthResult {
	t.Helper()
	res, err := svc.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: password})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return res
}

// =========================================================================
// REGISTER
// =========================================================================

func TestRegister_CreatesUserAndToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, AdminCredentials{})

	res := register(t, svc, "  alice ", " alice@example.com ", "password123")

	if res.Token == "" {
		t.Error("Register() returned an empty token")
	}
	if res.User.Username != "alice" || res.User.Email != "alice@example.com" {
		t.Errorf("Register() user = %+v, want trimmed username and email", res.User)
	}
	if res.User.IsAdmin {
		t.Error("Register() returned an admin profile")
	}

	stored, err := repo.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("stored user lookup error = %v", err)
	}
	if stored.PasswordHash == "password123" || !strings.HasPrefix(stored.PasswordHash, "$2") {
		t.Errorf("password was not bcrypt-hashed: %q", stored.PasswordHash)
	}

	caller, err := svc.VerifySession(res.Token)
	if err != nil {
		t.Fatalf("VerifySession() error = %v", err)
	}
	if caller != (model.RegularUser{ID: stored.ID, Username: "alice"}) {
		t.Errorf("VerifySession() = %#v", caller)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name      string
		in        RegisterInput
		wantField string
	}{
		{name: "missing username", in: RegisterInput{Email: "a@b.co", Password: "password123"}, wantField: "username"},
		{name: "username too short", in: RegisterInput{Username: "ab", Email: "a@b.co", Password: "password123"}, wantField: "username"},
		{name: "username too long", in: RegisterInput{Username: strings.Repeat("x", 21), Email: "a@b.co", Password: "password123"}, wantField: "username"},
		{name: "bad email", in: RegisterInput{Username: "alice", Email: "nope", Password: "password123"}, wantField: "email"},
		{name: "short password", in: RegisterInput{Username: "alice", Email: "a@b.co", Password: "short"}, wantField: "password"},
		{name: "password over 72 bytes", in: RegisterInput{Username: "alice", Email: "a@b.co", Password: strings.Repeat("é", 40)}, wantField: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestAuthService(t, newFakeUserRepo(), AdminCredentials{})

			_, err := svc.Register(context.Background(), tt.in)

			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Register() error = %v, want ErrValidation", err)
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
		})
	}
}

func TestRegister_UsernameBoundaries(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), AdminCredentials{})

	register(t, svc, "abc", "three@example.com", "password123")
	register(t, svc, strings.Repeat("z", 20), "twenty@example.com", "password123")
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), AdminCredentials{})
	register(t, svc, "alice", "alice@example.com", "password123")

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "other@example.com", Password: "password123",
	})

	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Register() error = %v, want ErrConflict", err)
	}
	if err.Error() != "Username already taken" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), AdminCredentials{})
	register(t, svc, "alice", "alice@example.com", "password123")

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice2", Email: "alice@example.com", Password: "password123",
	})

	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Register() error = %v, want ErrConflict", err)
	}
	if err.Error() != "Email already registered" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestRegister_RepositoryFailure(t *testing.T) {
	repo := newFakeUserRepo()
	repo.createErr = errDatabase
	svc := newTestAuthService(t, repo, AdminCredentials{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "password123",
	})

	if !errors.Is(err, errDatabase) {
		t.Errorf("Register() error = %v, want wrapped database error", err)
	}
}

// =========================================================================
// LOGIN
// =========================================================================

func TestLogin_Success(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, AdminCredentials{})
	registered := register(t, svc, "alice", "alice@example.com", "password123")

	res, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.User.ID != registered.User.ID {
		t.Errorf("Login() user id = %d, want %d", res.User.ID, registered.User.ID)
	}
	if repo.lastLoginHits != 1 {
		t.Errorf("UpdateLastLogin called %d times, want 1", repo.lastLoginHits)
	}
}

func TestLogin_TrimsUsernameLikeRegister(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), AdminCredentials{})
	registered := register(t, svc, " bob ", "bob@example.com", "password123")
	if registered.User.Username != "bob" {
		t.Fatalf("Register() stored username %q, want %q", registered.User.Username, "bob")
	}

	for _, name := range []string{" bob ", "bob", "bob\t"} {
		res, err := svc.Login(context.Background(), LoginInput{Username: name, Password: "password123"})
		if err != nil {
			t.Fatalf("Login(%q) error = %v", name, err)
		}
		if res.User.ID != registered.User.ID {
			t.Errorf("Login(%q) user id = %d, want %d", name, res.User.ID, registered.User.ID)
		}
	}
}

func TestLogin_FailuresShareOneMessage(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), AdminCredentials{})
	register(t, svc, "alice", "alice@example.com", "password123")

	_, wrongPassword := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "wrong-password"})
	_, unknownUser := svc.Login(context.Background(), LoginInput{Username: "nobody", Password: "password123"})

	for _, err := range []error{wrongPassword, unknownUser} {
		if !errors.Is(err, apperror.ErrUnauthenticated) {
			t.Fatalf("Login() error = %v, want ErrUnauthenticated", err)
		}
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Errorf("messages differ: %q vs %q", wrongPassword.Error(), unknownUser.Error())
	}
}

func TestLogin_MissingFields(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), AdminCredentials{})

	_, err := svc.Login(context.Background(), LoginInput{Username: "alice"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Login() error = %v, want ErrValidation", err)
	}
}

func TestLogin_LastLoginFailureIsTolerated(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, AdminCredentials{})
	register(t, svc, "alice", "alice@example.com", "password123")
	repo.lastLoginErr = errDatabase

	res, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error = %v, want success despite last-login failure", err)
	}
	if res.Token == "" {
		t.Error("Login() returned an empty token")
	}
}

func TestLogin_Admin(t *testing.T) {
	admin := AdminCredentials{Username: "admin", PasswordHash: mustHash(t, "admin-pass")}
	svc := newTestAuthService(t, newFakeUserRepo(), admin)

	res, err := svc.Login(context.Background(), LoginInput{Username: "admin", Password: "admin-pass"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !res.User.IsAdmin || res.User.ID != 0 {
		t.Errorf("Login() profile = %+v, want admin without id", res.User)
	}

	caller, err := svc.VerifySession(res.Token)
	if err != nil {
		t.Fatalf("VerifySession() error = %v", err)
	}
	if _, ok := caller.(model.AdminUser); !ok {
		t.Errorf("VerifySession() = %#v, want AdminUser", caller)
	}
}

func TestLogin_AdminWrongPasswordFallsThroughToUsers(t *testing.T) {
	admin := AdminCredentials{Username: "admin", PasswordHash: mustHash(t, "admin-pass")}
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, admin)

	_, err := svc.Login(context.Background(), LoginInput{Username: "admin", Password: "guess"})
	if !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Fatalf("Login() error = %v, want ErrUnauthenticated", err)
	}

	// A registered user sharing the admin's name logs in as themselves.
	register(t, svc, "admin", "admin@example.com", "user-password")
	res, err := svc.Login(context.Background(), LoginInput{Username: "admin", Password: "user-password"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.User.IsAdmin {
		t.Error("Login() returned the admin identity for a regular password")
	}
}

func TestLogin_AdminDisabledWithoutHash(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), AdminCredentials{Username: "admin"})

	_, err := svc.Login(context.Background(), LoginInput{Username: "admin", Password: "anything"})
	if !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("Login() error = %v, want ErrUnauthenticated", err)
	}
}

// =========================================================================
// SESSION AND PROFILE
// =========================================================================

func TestVerifySession_Rejects(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), AdminCredentials{})

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := svc.VerifySession(token)
		if !errors.Is(err, apperror.ErrUnauthenticated) {
			t.Errorf("VerifySession(%q) error = %v, want ErrUnauthenticated", token, err)
		}
	}
}

func TestMe(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, AdminCredentials{})
	res := register(t, svc, "alice", "alice@example.com", "password123")
	ctx := context.Background()

	profile, err := svc.Me(ctx, res.Caller)
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if profile.Email != "alice@example.com" {
		t.Errorf("Me() email = %q", profile.Email)
	}

	admin, err := svc.Me(ctx, model.AdminUser{Username: "root"})
	if err != nil {
		t.Fatalf("Me() admin error = %v", err)
	}
	if !admin.IsAdmin || admin.Username != "root" {
		t.Errorf("Me() admin = %+v", admin)
	}

	_, err = svc.Me(ctx, model.RegularUser{ID: 999, Username: "ghost"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Me() for deleted user error = %v, want ErrNotFound", err)
	}
}
