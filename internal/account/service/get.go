package service

import (
	"context"
	"errors"
	"time"

	"pymegate/internal/account/models"
	"pymegate/internal/account/store"
	dErrors "pymegate/pkg/domain-errors"
)

// AccountView is the externally visible shape of an account. Credentials
// and pending confirmation tokens never leave the service.
type AccountView struct {
	ID           string    `json:"id"`
	NationalID   string    `json:"rut,omitempty"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PendingEmail string    `json:"pending_email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func viewOf(account *models.Account) AccountView {
	view := AccountView{
		ID:          account.ID,
		NationalID:  account.NationalID,
		DisplayName: account.DisplayName,
		Email:       account.Email,
		Role:        string(account.Role),
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}
	if account.PendingEmailChange != nil {
		view.PendingEmail = account.PendingEmailChange.NewEmail
	}
	return view
}

// Get returns the account by ID.
func (s *Service) Get(ctx context.Context, accountID string) (AccountView, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AccountView{}, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return AccountView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return viewOf(account), nil
}
