package rest

import (
	"time"

	"github.com/dmitrijs2005/nexakey/internal/common"
	"github.com/dmitrijs2005/nexakey/internal/server/models"
	"github.com/dmitrijs2005/nexakey/internal/server/services"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type registerRequest struct {
	Email              string `json:"email" binding:"required,email"`
	MasterPasswordHash string `json:"master_password_hash" binding:"required"`
	BiometricEnabled   bool   `json:"biometric_enabled"`
}

type loginRequest struct {
	Email              string `json:"email" binding:"required,email"`
	MasterPasswordHash string `json:"master_password_hash" binding:"required"`
}

type biometricRecoveryRequest struct {
	Email                 string `json:"email" binding:"required,email"`
	NewMasterPasswordHash string `json:"new_master_password_hash" binding:"required"`
}

type createItemRequest struct {
	ItemType      string `json:"item_type" binding:"required"`
	EncryptedData string `json:"encrypted_data" binding:"required"`
}

type updateItemRequest struct {
	EncryptedData string `json:"encrypted_data" binding:"required"`
}

type userResponse struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	IsPremium        bool      `json:"is_premium"`
	BiometricEnabled bool      `json:"biometric_enabled"`
	CreatedAt        time.Time `json:"created_at"`
}

type authResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        userResponse `json:"user"`
}

type itemResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ItemType      string    `json:"item_type"`
	EncryptedData string    `json:"encrypted_data"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type profileResponse struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	IsPremium        bool      `json:"is_premium"`
	BiometricEnabled bool      `json:"biometric_enabled"`
	VaultItemsCount  int       `json:"vault_items_count"`
	CreatedAt        time.Time `json:"created_at"`
}

type exportResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Items     int       `json:"items"`
	ExpiresAt time.Time `json:"expires_at"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:               u.ID,
		Email:            u.Email,
		IsPremium:        u.IsPremium,
		BiometricEnabled: u.BiometricEnabled,
		CreatedAt:        u.CreatedAt,
	}
}

func toAuthResponse(r *services.AuthResult) authResponse {
	return authResponse{
		AccessToken: r.AccessToken,
		TokenType:   common.TokenType,
		User:        toUserResponse(r.User),
	}
}

func toItemResponse(it *models.VaultItem) itemResponse {
	return itemResponse{
		ID:            it.ID,
		UserID:        it.OwnerID,
		ItemType:      it.ItemType,
		EncryptedData: it.EncryptedPayload,
		CreatedAt:     it.CreatedAt,
		UpdatedAt:     it.UpdatedAt,
	}
}
