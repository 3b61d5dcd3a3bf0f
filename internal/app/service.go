package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/gradebook"
	"github.com/shrimpsizemoose/gradebook/internal/notify"
	"github.com/shrimpsizemoose/gradebook/internal/secrets"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

type Service struct {
	Config    *Config
	Store     Store
	Gradebook *gradebook.Service
	Auth      *Auth
	Tokens    *TokenManager

	redis *redis.Client
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	s, err := NewStore(store.DBConfig{
		DSN:           config.Database.DSN,
		Database:      config.Database.Name,
		MigrationsDir: config.Database.MigrationsDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	return NewServiceWithStore(config, s)
}

// NewServiceWithStore wires the gradebook around an already opened store.
func NewServiceWithStore(config *Config, s Store) (*Service, error) {
	svc := &Service{Config: config, Store: s}

	var bus gradebook.NotifyBus = notify.LogBus{}
	if config.Notify.RedisURL != "" {
		opts, err := redis.ParseURL(config.Notify.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		svc.redis = redis.NewClient(opts)
		bus = notify.NewRedisBus(svc.redis)
		logger.Info.Printf("Publishing gradebook events to redis at %s", opts.Addr)
	}

	var dec gradebook.Decrypter
	if config.Secrets.PasswordKey != "" {
		box, err := secrets.NewSecretBox(config.Secrets.PasswordKey)
		if err != nil {
			return nil, fmt.Errorf("failed to init secrets: %w", err)
		}
		dec = box
	}

	auth, err := NewAuth(config)
	if err != nil {
		return nil, fmt.Errorf("failed to init auth: %w", err)
	}
	svc.Auth = auth
	svc.Tokens = auth.Tokens()

	svc.Gradebook = gradebook.NewService(s, s, bus, dec, config.Gradebook)
	return svc, nil
}

func (s *Service) ValidateHeaders(headers map[string][]string) bool {
	for _, required := range s.Config.API.RequiredHeaders {
		value := headers[http.CanonicalHeaderKey(required.Name)]
		if len(value) == 0 || !strings.EqualFold(value[0], required.Value) {
			return false
		}
	}
	return true
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if s.Auth != nil {
		if err := s.Auth.Close(); err != nil {
			errs = append(errs, fmt.Errorf("auth: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
