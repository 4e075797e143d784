package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"codejournal/internal/models"
	"codejournal/internal/repositories"
)

// DailyBonusXP is awarded on the first login of each calendar day.
const DailyBonusXP = 20

// ErrInvalidCredentials is returned for an unknown username or a wrong
// password; callers cannot tell which.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService handles registration, login and JWT issuance.
type AuthService struct {
	store      repositories.UserStore
	directory  *DirectoryService
	engine     *GamificationService
	jwtSecret  []byte
	tokenDurat time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(store repositories.UserStore, directory *DirectoryService, engine *GamificationService, jwtSecret string) *AuthService {
	return &AuthService{
		store:      store,
		directory:  directory,
		engine:     engine,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
	}
}

// Register hashes the password and creates the user through the directory.
// The original system stored passwords in plain text; that is treated as a
// defect, not behavior to keep.
func (s *AuthService) Register(username, email, password string) (*models.UserRecord, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return s.directory.CreateUser(username, email, string(hashed))
}

// LoginResult carries the authenticated record, its token and whether the
// daily bonus fired.
type LoginResult struct {
	User       *models.UserRecord `json:"user"`
	Token      string             `json:"token"`
	DailyBonus bool               `json:"dailyBonus"`
}

// Login authenticates a user, applies the daily login bonus when the last
// login was on a different calendar date, and issues a JWT. The date
// comparison reads the stored lastLoginDate before it is updated, so the
// bonus fires at most once per day.
func (s *AuthService) Login(username, password string) (*LoginResult, error) {
	user, err := s.directory.FindByUsername(username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	dailyBonus := !sameDate(user.Metadata.LastLoginDate, now)
	if dailyBonus {
		out := s.engine.applyAward(user, DailyBonusXP, "Daily login bonus", nil)
		s.engine.notifyLevelUp(user, out)
	}
	user.Metadata.LastLoginDate = now

	if err := s.store.SaveUser(user.ID, user); err != nil {
		return nil, fmt.Errorf("failed to save user after login: %w", err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: user, Token: token, DailyBonus: dailyBonus}, nil
}

// sameDate compares the calendar-date portions of two times.
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (s *AuthService) generateToken(user *models.UserRecord) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(s.tokenDurat).Unix(),
		"iat":      time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
