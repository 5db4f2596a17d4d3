package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/quizport/internal/rbac"
)

const (
	issuer   = "quizport"
	tokenTTL = 8 * time.Hour
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	hmac []byte
	now  func() time.Time

	adminUser string
	adminHash []byte
	// devLogin accepts username == password for viewer and author roles.
	devLogin bool
}

type Options struct {
	Secret        string
	AdminUser     string
	AdminPassHash string
	DevLogin      bool
}

func NewAuthService(o Options) *AuthService {
	return &AuthService{
		hmac:      []byte(o.Secret),
		now:       time.Now,
		adminUser: o.AdminUser,
		adminHash: []byte(o.AdminPassHash),
		devLogin:  o.DevLogin,
	}
}

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"` // viewer|author|admin
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(sub, role string) (string, error) {
	now := a.now()
	claims := &Claims{
		Sub:  sub,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// Authenticate checks credentials and returns the role to issue.
func (a *AuthService) Authenticate(username, password, role string) (string, error) {
	if username == "" {
		return "", ErrInvalidCredentials
	}
	if username == a.adminUser && len(a.adminHash) > 0 {
		if bcrypt.CompareHashAndPassword(a.adminHash, []byte(password)) != nil {
			return "", ErrInvalidCredentials
		}
		return rbac.RoleAdmin, nil
	}
	if a.devLogin && username == password && (role == rbac.RoleViewer || role == rbac.RoleAuthor) {
		return role, nil
	}
	return "", ErrInvalidCredentials
}

// POST /auth/login  { "username": "...", "password": "...", "role": "viewer|author" }
func LoginHandler(a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		role, err := a.Authenticate(strings.TrimSpace(req.Username), req.Password, req.Role)
		if err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(strings.TrimSpace(req.Username), role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok, "role": role})
	}
}

// JWTMiddleware verifies the bearer token and puts subject and role into
// the request context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			c, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil || !rbac.KnownRole(c.Role) {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			ctx := WithSubject(r.Context(), c.Sub)
			ctx = rbac.WithRole(ctx, c.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
