package services

import (
	"github.com/dmitrijs2005/nexakey/internal/common"
	"github.com/dmitrijs2005/nexakey/internal/server/models"
)

// FreemiumPolicy caps the vault size of non-premium users.
type FreemiumPolicy struct {
	FreeItemLimit int
}

// Check reports common.ErrLimitReached when a non-premium user already holds
// FreeItemLimit or more items.
func (p FreemiumPolicy) Check(user *models.User, count int) error {
	if user.IsPremium {
		return nil
	}
	if count >= p.FreeItemLimit {
		return common.ErrLimitReached
	}
	return nil
}
