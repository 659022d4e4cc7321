// Command token mints a member token signed with JWT_SECRET, for local testing
// against the group store server.
//
//	JWT_SECRET=... go run ./cmd/token -member alice
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mmynk/meshimatch/internal/auth"
	"github.com/mmynk/meshimatch/internal/config"
	"github.com/mmynk/meshimatch/pkg/logging"
)

func main() {
	member := flag.String("member", "", "member id to issue the token for")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	if *member == "" {
		slog.Error("Missing -member")
		os.Exit(2)
	}

	token, err := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL).Generate(*member)
	if err != nil {
		slog.Error("Failed to generate token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
