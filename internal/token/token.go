// Package token — кодек подписанных bearer-токенов (access/refresh).
// Чисто криптографическая/структурная проверка: никакие хранилища здесь не читаются.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Type — назначение токена. Endpoint'ы, ожидающие access, отклоняют refresh и наоборот.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

var (
	// ErrInvalidToken — подпись не сошлась, токен истёк или повреждён.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSubject — валидный payload без subject (отдельный вариант ErrInvalidToken).
	ErrMissingSubject = fmt.Errorf("%w: missing subject", ErrInvalidToken)
)

// Claims — разобранный payload токена.
type Claims struct {
	Subject   string
	Type      Type
	JTI       string
	IssuedAt  int64
	ExpiresAt int64
	// Дополнительные claims: role (access), session_id (access и refresh).
	Role      string
	SessionID string
}

// Codec подписывает и проверяет токены секретом сервера.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
}

// NewCodec создаёт кодек. Поддерживаются HMAC-алгоритмы (HS256/HS384/HS512).
func NewCodec(secret, algorithm string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: empty signing secret")
	}
	var method jwt.SigningMethod
	switch strings.ToUpper(algorithm) {
	case "HS256", "":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("token: unsupported signing algorithm %q", algorithm)
	}
	return &Codec{secret: []byte(secret), method: method}, nil
}

// Mint выпускает подписанный токен и возвращает его вместе с jti.
// jti генерируется заново при каждом вызове; extra сливается в payload.
func (c *Codec) Mint(subject string, typ Type, ttl time.Duration, extra map[string]string) (string, string, error) {
	now := time.Now().UTC()
	jti := strings.ReplaceAll(uuid.NewString(), "-", "")
	claims := jwt.MapClaims{
		"sub":  subject,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
		"type": string(typ),
		"jti":  jti,
	}
	for k, v := range extra {
		claims[k] = v
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, jti, nil
}

// Decode проверяет подпись и срок действия, возвращает claims.
// Любая ошибка парсинга/подписи/истечения — ErrInvalidToken;
// валидный payload без sub — ErrMissingSubject.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, ErrMissingSubject
	}
	claims := &Claims{Subject: sub}
	if v, ok := mc["type"].(string); ok {
		claims.Type = Type(v)
	}
	claims.JTI, _ = mc["jti"].(string)
	claims.Role, _ = mc["role"].(string)
	claims.SessionID, _ = mc["session_id"].(string)
	if v, ok := mc["iat"].(float64); ok {
		claims.IssuedAt = int64(v)
	}
	if v, ok := mc["exp"].(float64); ok {
		claims.ExpiresAt = int64(v)
	}
	return claims, nil
}
