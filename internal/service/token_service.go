package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken 在令牌缺失、签名不符或已过期时返回
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrWrongTokenType 在把 refresh 令牌当 access 用（或反之）时返回
	ErrWrongTokenType = errors.New("wrong token type")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenService 负责签发与校验 HMAC 签名的访问/刷新令牌。
// subject 为用户 ID；typ 声明区分两种令牌，防止刷新令牌直接当访问令牌用。
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

type tokenClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// NewTokenService 构造 TokenService。
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssuePair 为指定用户签发一对访问/刷新令牌。
func (s *TokenService) IssuePair(userID uint) (access, refresh string, err error) {
	access, err = s.issue(userID, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.issue(userID, tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// ParseAccess 校验访问令牌并返回用户 ID。
func (s *TokenService) ParseAccess(token string) (uint, error) {
	return s.parse(token, tokenTypeAccess)
}

// Refresh 校验刷新令牌并签发新的访问令牌。
func (s *TokenService) Refresh(refreshToken string) (string, error) {
	userID, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return "", err
	}
	return s.issue(userID, tokenTypeAccess, s.accessTTL)
}

func (s *TokenService) issue(userID uint, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) parse(token, wantType string) (uint, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}

	if claims.Type != wantType {
		return 0, ErrWrongTokenType
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uint(userID), nil
}
