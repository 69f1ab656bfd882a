package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/wamtrack/internal/rbac"
	"github.com/mind-engage/wamtrack/internal/tracker"
)

const issuer = "wamtrack"

type AuthService struct {
	hmac []byte
	ttl  time.Duration
	// BcryptCost is used for new password hashes.
	BcryptCost int
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &AuthService{hmac: []byte(secret), ttl: ttl, BcryptCost: 12}
}

type Claims struct {
	Role string `json:"role"` // "student" or "admin"
	jwt.RegisteredClaims
}

// IssueJWT signs a session token whose subject is the user id.
func (a *AuthService) IssueJWT(userID int64, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

func (a *AuthService) HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), a.BcryptCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Accounts is the slice of the tracker service the auth handlers need.
type Accounts interface {
	RegisterUser(ctx context.Context, u tracker.User) (tracker.User, error)
	GetUser(ctx context.Context, id int64) (tracker.User, error)
	GetUserByStudentID(ctx context.Context, studentID string) (tracker.User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

var validate = validator.New()

type registerReq struct {
	Name      string `json:"name" validate:"required,max=200"`
	StudentID string `json:"student_id" validate:"required,max=64"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
}

// POST /register { "name": "...", "student_id": "...", "password": "..." }
func RegisterHandler(a *AuthService, accts Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, "bad json")
			return
		}
		req.StudentID = strings.TrimSpace(req.StudentID)
		if err := validate.Struct(req); err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := a.HashPassword(req.Password)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "hash failed")
			return
		}
		u, err := accts.RegisterUser(r.Context(), tracker.User{
			Name:         strings.TrimSpace(req.Name),
			StudentID:    req.StudentID,
			Role:         tracker.RoleStudent,
			PasswordHash: hash,
		})
		switch {
		case errors.Is(err, tracker.ErrConflict):
			writeErr(w, http.StatusConflict, "student id already registered")
			return
		case err != nil:
			writeErr(w, http.StatusInternalServerError, "register failed")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"user": u})
	}
}

// POST /login { "student_id": "...", "password": "..." }
func LoginHandler(a *AuthService, accts Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StudentID string `json:"student_id"`
			Password  string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, "bad json")
			return
		}
		u, err := accts.GetUserByStudentID(r.Context(), strings.TrimSpace(req.StudentID))
		if err != nil && !errors.Is(err, tracker.ErrNotFound) {
			writeErr(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		if err != nil || !CheckPassword(u.PasswordHash, req.Password) {
			writeErr(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		tok, err := a.IssueJWT(u.ID, u.Role)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "issue token")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"user": u, "access_token": tok})
	}
}

// JWTMiddleware authenticates bearer tokens and puts the user id and role
// into the request context for rbac.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				writeErr(w, http.StatusUnauthorized, "missing bearer")
				return
			}
			c, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				writeErr(w, http.StatusUnauthorized, "bad token")
				return
			}
			id, ok := rbac.ParseSubject(c.Subject)
			if !ok {
				writeErr(w, http.StatusUnauthorized, "bad token subject")
				return
			}
			ctx := rbac.WithSubject(r.Context(), id)
			ctx = rbac.WithRole(ctx, c.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeErr(w http.ResponseWriter, code int, msg string) { rbac.WriteError(w, code, msg) }
