// tokens.go — выпуск и проверка bearer-токенов администратора.
//
// Токен — подписанный RS256 JWT со случайным jti и сроком 24 часа.
// Подпись и срок проверяются локально (дёшево), после чего наличие
// KV-ключа session:<jti> даёт авторитетную проверку отзыва: токен с
// валидной подписью, но без сессии, считается отозванным. Две фазы
// сознательно не различаются для вызывающего.
//
// Публичный ключ публикуется как JWKS (in-memory jwkset storage),
// проверка подписи — через keyfunc по тому же набору ключей.
package auth

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/arturkryukov/assoweb/internal/storage/kv"
)

// SessionTTL — срок жизни сессии и токена.
const SessionTTL = 24 * time.Hour

// tokenIssuer — значение iss в выпускаемых токенах.
const tokenIssuer = "assoweb"

// jwtLeeway — допустимое расхождение часов при проверке exp/nbf.
const jwtLeeway = 30 * time.Second

// ErrInvalidToken — токен не прошёл проверку: битая подпись, истёкший
// срок или отозванная сессия. Причина намеренно не различается.
var ErrInvalidToken = errors.New("невалидный или просроченный токен")

// sessionKey строит KV-ключ сессии.
func sessionKey(jti string) string { return "session:" + jti }

// TokenManager — выпуск, проверка и отзыв токенов.
type TokenManager struct {
	private  *rsa.PrivateKey
	kid      string
	keyfunc  keyfunc.Keyfunc
	jwksJSON json.RawMessage
	kv       kv.Store
	logger   *slog.Logger
}

// NewTokenManager создаёт менеджер токенов из приватного ключа PEM.
// Публичная часть ключа помещается в in-memory JWKS, из которого
// строится keyfunc для проверки подписи.
func NewTokenManager(privateKeyPEM []byte, kvStore kv.Store, logger *slog.Logger) (*TokenManager, error) {
	private, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("разбор приватного ключа: %w", err)
	}

	// Стабильный kid — усечённый SHA-256 от DER публичного ключа
	pubDER, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("сериализация публичного ключа: %w", err)
	}
	sum := sha256.Sum256(pubDER)
	kid := hex.EncodeToString(sum[:8])

	ctx := context.Background()

	jwk, err := jwkset.NewJWKFromKey(&private.PublicKey, jwkset.JWKOptions{
		Metadata: jwkset.JWKMetadataOptions{KID: kid},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWK: %w", err)
	}

	storage := jwkset.NewMemoryStorage()
	if err := storage.KeyWrite(ctx, jwk); err != nil {
		return nil, fmt.Errorf("запись ключа в JWKS storage: %w", err)
	}

	kf, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	jwksJSON, err := storage.JSONPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("сериализация JWKS: %w", err)
	}

	return &TokenManager{
		private:  private,
		kid:      kid,
		keyfunc:  kf,
		jwksJSON: jwksJSON,
		kv:       kvStore,
		logger:   logger.With(slog.String("component", "token_manager")),
	}, nil
}

// JWKS возвращает публичный набор ключей в формате JWKS.
func (m *TokenManager) JWKS() json.RawMessage {
	return m.jwksJSON
}

// Issue выпускает токен для пользователя и создаёт сессию в KV
// с совпадающим TTL. Возвращает подписанный токен и jti.
func (m *TokenManager) Issue(ctx context.Context, username string) (string, string, error) {
	jti := uuid.New().String()
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		ID:        jti,
		Subject:   username,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
	})
	token.Header["kid"] = m.kid

	signed, err := token.SignedString(m.private)
	if err != nil {
		return "", "", fmt.Errorf("подпись токена: %w", err)
	}

	// Сессия активна: существование ключа = токен не отозван
	if err := m.kv.Put(ctx, sessionKey(jti), username, SessionTTL); err != nil {
		return "", "", fmt.Errorf("создание сессии: %w", err)
	}

	m.logger.Info("Сессия создана",
		slog.String("username", username),
		slog.String("jti", jti),
	)
	return signed, jti, nil
}

// Verify проверяет токен в две фазы: подпись и срок локально, затем
// существование сессии в KV. Возвращает subject и jti.
// Любая неудача — ErrInvalidToken, без уточнения причины.
func (m *TokenManager) Verify(ctx context.Context, tokenString string) (string, string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, m.keyfunc.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(jwtLeeway),
	)
	if err != nil || !token.Valid {
		m.logger.Debug("JWT валидация не пройдена", slog.Any("error", err))
		return "", "", ErrInvalidToken
	}

	if claims.ID == "" || claims.Subject == "" {
		return "", "", ErrInvalidToken
	}

	// Авторитетная проверка отзыва
	exists, err := m.kv.Exists(ctx, sessionKey(claims.ID))
	if err != nil {
		return "", "", fmt.Errorf("проверка сессии: %w", err)
	}
	if !exists {
		m.logger.Debug("Токен с отозванной сессией", slog.String("jti", claims.ID))
		return "", "", ErrInvalidToken
	}

	return claims.Subject, claims.ID, nil
}

// Revoke удаляет сессию. Идемпотентна: отсутствие сессии — успех.
func (m *TokenManager) Revoke(ctx context.Context, jti string) error {
	if err := m.kv.Delete(ctx, sessionKey(jti)); err != nil {
		return fmt.Errorf("удаление сессии: %w", err)
	}
	m.logger.Info("Сессия отозвана", slog.String("jti", jti))
	return nil
}
