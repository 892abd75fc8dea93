package service

import (
	"fmt"

	"anoa.com/venti/internal/modules/progression/repository"
	"anoa.com/venti/pkg/apperror"
)

var (
	ErrInvalidAmount   = fmt.Errorf("xp amount must be positive: %w", apperror.ErrInvalidInput)
	ErrAmountTooLarge  = fmt.Errorf("xp amount exceeds the per-grant maximum of %d: %w", MaxGrantAmount, apperror.ErrInvalidInput)
	ErrXPLimit         = fmt.Errorf("grant would exceed the maximum of %d total xp: %w", MaxXP, apperror.ErrInvalidInput)
	ErrUnknownReason   = fmt.Errorf("unknown reason: %w", apperror.ErrInvalidInput)
	ErrNoActiveSession = fmt.Errorf("no active session to end: %w", apperror.ErrNotFound)
	ErrLockTimeout     = fmt.Errorf("timed out waiting for profile lock: %w", apperror.ErrConflict)

	ErrProfileNotFound = repository.ErrProfileNotFound
	ErrVersionConflict = repository.ErrVersionConflict
)
