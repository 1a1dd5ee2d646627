// cmd/gentoken prints a signed JWT for local testing against JWT_SECRET.
//
// Usage: go run ./cmd/gentoken -user alice -rol supervisor
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"stitchbill/internal/config"
	"stitchbill/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func main() {
	user := flag.String("user", "admin", "username claim")
	rol := flag.String("rol", middleware.RoleAdmin, "operator | supervisor | admin")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}

	tok, err := sign(cfg.JWTSecret, *user, *rol, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign:", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

// sign issues an HS256 token carrying the claims JWTAuth expects.
func sign(secret, username, rol string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := middleware.JWTClaims{
		UserID:   uuid.NewString(),
		Username: username,
		Rol:      rol,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
