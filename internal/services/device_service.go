package services

import (
	"context"
	"fmt"
	"strings"

	"ridepair/internal/models"
	"ridepair/pkg/logger"
)

const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// DeviceService keeps the push tokens the push sink delivers to.
type DeviceService interface {
	RegisterDevice(ctx context.Context, userID, platform, token string) error
	UnregisterDevice(ctx context.Context, userID, platform, token string) error
}

type deviceService struct {
	cache  CacheService
	logger *logger.Logger
}

func NewDeviceService(cache CacheService, log *logger.Logger) DeviceService {
	return &deviceService{cache: cache, logger: log}
}

func (s *deviceService) RegisterDevice(ctx context.Context, userID, platform, token string) error {
	key, token, err := s.key(userID, platform, token)
	if err != nil {
		return err
	}
	if err := s.cache.SAdd(ctx, key, token); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	s.logger.WithUserID(userID).WithField("platform", platform).Debug("push token registered")
	return nil
}

func (s *deviceService) UnregisterDevice(ctx context.Context, userID, platform, token string) error {
	key, token, err := s.key(userID, platform, token)
	if err != nil {
		return err
	}
	if err := s.cache.SRem(ctx, key, token); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *deviceService) key(userID, platform, token string) (string, string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "", fmt.Errorf("%w: push token is required", models.ErrValidation)
	}
	if platform != PlatformAndroid && platform != PlatformIOS {
		return "", "", fmt.Errorf("%w: unsupported platform %q", models.ErrValidation, platform)
	}
	return deviceTokenKey(platform, userID), token, nil
}
