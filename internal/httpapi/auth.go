package httpapi

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = errors.New("invalid credentials")

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor is the authenticated owner of a request.
type Actor struct {
	Username string
}

// AuthManager signs in the single book owner configured at startup. The
// password may be given as a bcrypt hash or in plain text; plain text is
// hashed once and never kept.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	username string
	password string
	now      func() time.Time
}

type ownerClaims struct {
	jwtlib.RegisteredClaims
}

func NewAuthManager(secret string, tokenTTL time.Duration, username, password string) (*AuthManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth secret is required")
	}
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, errors.New("auth username is required")
	}
	if strings.TrimSpace(password) == "" {
		return nil, errors.New("auth password is required")
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	if !isPasswordHash(password) {
		hashed, err := hashPassword(password)
		if err != nil {
			return nil, err
		}
		password = hashed
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		username: username,
		password: password,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (a *AuthManager) Login(req LoginRequest) (LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username != a.username {
		// Compare anyway so a wrong username costs the same as a wrong password.
		_ = verifyPassword(a.password, req.Password)
		return LoginResponse{}, errInvalidCredentials
	}
	if !verifyPassword(a.password, req.Password) {
		return LoginResponse{}, errInvalidCredentials
	}

	expiresAt := a.now().Add(a.tokenTTL)
	token, err := a.sign(username, expiresAt)
	if err != nil {
		return LoginResponse{}, err
	}
	return LoginResponse{
		AccessToken: token,
		Username:    username,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (Actor, error) {
	claims := &ownerClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer("kasbook"))
	if err != nil || !token.Valid {
		return Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub != a.username {
		return Actor{}, errors.New("invalid token subject")
	}
	return Actor{Username: sub}, nil
}

func (a *AuthManager) sign(username string, expiresAt time.Time) (string, error) {
	claims := ownerClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(a.now()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "kasbook",
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
