package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/XVM-Systems/RAIL/internal/domain"
	"github.com/XVM-Systems/RAIL/internal/pkg/apperrors"

	"go.uber.org/zap"
)

// SetAPIKey stores an explorer API key for service and persists it.
func (s *Service) SetAPIKey(ctx context.Context, service, key string) error {
	service = strings.ToLower(strings.TrimSpace(service))
	if service == "" || strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: service and key must be non-empty", apperrors.ErrInvalidInput)
	}

	s.mu.Lock()
	s.snapshot.APIKeys[service] = key
	s.mu.Unlock()

	s.persist(ctx)
	s.logger.Info("API key stored", zap.String("service", service))
	return nil
}

// DeleteAPIKey removes the stored key for service.
func (s *Service) DeleteAPIKey(ctx context.Context, service string) error {
	service = strings.ToLower(strings.TrimSpace(service))

	s.mu.Lock()
	_, ok := s.snapshot.APIKeys[service]
	if ok {
		delete(s.snapshot.APIKeys, service)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrAPIKeyNotFound, service)
	}

	s.persist(ctx)
	s.logger.Info("API key deleted", zap.String("service", service))
	return nil
}

// ListAPIKeys returns the stored services with their keys masked.
func (s *Service) ListAPIKeys(_ context.Context) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	masked := make(map[string]string, len(s.snapshot.APIKeys))
	for service, key := range s.snapshot.APIKeys {
		masked[service] = maskKey(key)
	}
	return masked
}

// apiKey returns the raw stored key for service.
func (s *Service) apiKey(service string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.snapshot.APIKeys[service]
	return key, ok
}

// maskKey hides all but the last four characters of a stored key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
