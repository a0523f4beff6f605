// Пакет auth — учётные данные и сессии администратора.
//
// password.go — проверка пароля: PBKDF2-SHA256 с хранимой солью.
// Формат хранения: base64(salt):base64(hash). Сравнение производных
// ключей — константное по времени.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Параметры деривации ключа.
const (
	// pbkdf2Iterations — количество итераций PBKDF2
	pbkdf2Iterations = 100000
	// saltLen — длина соли в байтах
	saltLen = 16
	// keyLen — длина производного ключа в байтах
	keyLen = 32
)

// ErrBadHashFormat — хранимый хэш не в формате base64salt:base64hash.
var ErrBadHashFormat = errors.New("некорректный формат хранимого хэша")

// HashPassword производит хэш пароля для хранения в конфигурации.
// Используется утилитой генерации учётных данных, не рабочим путём.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("генерация соли: %w", err)
	}

	hash := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLen, sha256.New)

	return base64.StdEncoding.EncodeToString(salt) + ":" +
		base64.StdEncoding.EncodeToString(hash), nil
}

// VerifyPassword сверяет пароль с хранимым хэшем.
// Ключ повторно выводится с хранимой солью и тем же числом итераций,
// затем сравнивается константно по времени. Возвращает true только
// при полном совпадении.
func VerifyPassword(password, stored string) (bool, error) {
	parts := strings.SplitN(stored, ":", 2)
	if len(parts) != 2 {
		return false, ErrBadHashFormat
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false, ErrBadHashFormat
	}
	expected, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false, ErrBadHashFormat
	}

	derived := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, len(expected), sha256.New)

	return subtle.ConstantTimeCompare(derived, expected) == 1, nil
}
