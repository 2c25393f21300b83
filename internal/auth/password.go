package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

type argon2Params struct {
	time       uint32
	memory     uint32
	threads    uint8
	keyLength  uint32
	saltLength int
}

func loadArgon2Params() argon2Params {
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	return argon2Params{
		time:       uint32(viper.GetInt("argon2.time")),
		memory:     uint32(viper.GetInt("argon2.memory")),
		threads:    uint8(viper.GetInt("argon2.threads")),
		keyLength:  uint32(viper.GetInt("argon2.key_length")),
		saltLength: viper.GetInt("argon2.salt_length"),
	}
}

// HashPassword returns "salt$hash", both base64 encoded.
func HashPassword(password string) (string, error) {
	p := loadArgon2Params()
	salt := make([]byte, p.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLength)
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func VerifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	p := loadArgon2Params()
	computedHash := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computedHash) == 1
}
