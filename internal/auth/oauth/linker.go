package oauth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"pymegate/internal/account/models"
	"pymegate/internal/account/store"
	"pymegate/internal/auth/credential"
	"pymegate/internal/auth/token"
	dErrors "pymegate/pkg/domain-errors"
	"pymegate/pkg/email"
	"pymegate/pkg/requestcontext"
)

// Linker turns a provider-verified profile into a signed-in local account.
// Linking is by normalized email: an existing account is signed in as-is,
// a new one is provisioned with a random credential so the password login
// path stays closed until the owner sets one.
type Linker struct {
	accounts    store.AccountStore
	credentials *credential.Verifier
	tokens      *token.Issuer
	logger      *slog.Logger
}

// LinkResult mirrors the password-login response plus whether the account
// was provisioned during this call.
type LinkResult struct {
	Token       string
	RequiresRUT bool
	Created     bool
}

func NewLinker(accounts store.AccountStore, credentials *credential.Verifier, tokens *token.Issuer, logger *slog.Logger) *Linker {
	return &Linker{
		accounts:    accounts,
		credentials: credentials,
		tokens:      tokens,
		logger:      logger,
	}
}

func (l *Linker) Link(ctx context.Context, profile Profile) (LinkResult, error) {
	addr := email.Normalize(profile.Email)
	if addr == "" {
		return LinkResult{}, dErrors.New(dErrors.CodeUnauthorized, "provider returned no email")
	}

	created := false
	account, err := l.accounts.FindByEmail(ctx, addr)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		account, err = l.provision(ctx, addr, profile.DisplayName)
		if err != nil {
			return LinkResult{}, err
		}
		created = true
	default:
		return LinkResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}

	signed, err := l.tokens.Issue(token.Identity{
		AccountID:   account.ID,
		Role:        string(account.Role),
		NationalID:  account.NationalID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
	})
	if err != nil {
		return LinkResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return LinkResult{Token: signed, RequiresRUT: account.RequiresRUT(), Created: created}, nil
}

func (l *Linker) provision(ctx context.Context, addr, displayName string) (*models.Account, error) {
	if displayName == "" {
		displayName = email.DeriveDisplayName(addr)
	}
	// The random credential is never disclosed; it only keeps the
	// column non-empty and unguessable.
	hash, err := l.credentials.Hash(uuid.NewString())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash credential")
	}

	now := requestcontext.Now(ctx)
	account := &models.Account{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		Email:       addr,
		Credential:  hash,
		Role:        models.RoleStandard,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Concurrent first login with the same email; reuse the
			// winner's account.
			if existing, findErr := l.accounts.FindByEmail(ctx, addr); findErr == nil {
				return existing, nil
			}
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}
	l.logger.InfoContext(ctx, "account provisioned from oauth profile", "account_id", account.ID)
	return account, nil
}
