package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"

	"kasbook/backend/internal/app"
	"kasbook/backend/internal/config"
	"kasbook/backend/internal/httpapi"
	"kasbook/backend/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := logger.Setup(cfg.LoggerConfig()); err != nil {
		log.Fatal().Err(err).Msg("logger setup failed")
	}
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid security configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	book, err := app.New(ctx, cfg, logger.WithComponent("app"))
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("storage unavailable")
	}

	auth, err := httpapi.NewAuthManager(cfg.Auth.Secret, cfg.Auth.AccessTokenTTL, cfg.Auth.Username, cfg.Auth.Password)
	if err != nil {
		log.Fatal().Err(err).Msg("auth setup failed")
	}
	api := httpapi.New(book, auth, cfg.Server.AllowedOrigin, logger.WithComponent("http"))

	// No WriteTimeout: /api/v1/events streams for as long as the client stays.
	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Msg("kasbook backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	if err := book.Close(); err != nil {
		log.Error().Err(err).Msg("close error")
	}
	log.Info().Msg("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.Auth.Secret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if strings.TrimSpace(cfg.Auth.Username) == "" {
		return fmt.Errorf("AUTH_USERNAME must be set")
	}
	if strings.HasPrefix(cfg.Auth.Password, "$2") {
		return nil
	}
	if err := validatePasswordStrength(cfg.Auth.Password); err != nil {
		return fmt.Errorf("AUTH_PASSWORD is too weak: %w", err)
	}
	return nil
}

// validatePasswordStrength applies to plain-text passwords only; a bcrypt
// hash is trusted as given.
func validatePasswordStrength(password string) error {
	if len(password) < 10 {
		return fmt.Errorf("at least 10 characters required")
	}
	known := map[string]bool{
		"password123": true, "1234567890": true, "qwertyuiop": true,
		"kasbook123": true, "changeme123": true, "letmein1234": true,
	}
	if known[strings.ToLower(password)] {
		return fmt.Errorf("common password not allowed")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("repeated-character password not allowed")
	}

	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return fmt.Errorf("mix letters and digits")
	}
	return nil
}
