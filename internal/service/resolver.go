package service

import (
	"context"

	"github.com/iliyamo/rolegate/internal/apperr"
	"github.com/iliyamo/rolegate/internal/role"
)

// Resolver turns a bearer access token into the principal of the request.
// The role comes from the stored account, not from the token claim, so a
// deactivation takes effect on the next request.
type Resolver struct {
	tokens   *TokenService
	accounts AccountStore
}

func NewResolver(tokens *TokenService, accounts AccountStore) *Resolver {
	return &Resolver{tokens: tokens, accounts: accounts}
}

// Resolve validates raw and loads its account.  A missing or inactive
// account yields apperr.ErrTokenInvalid.
func (r *Resolver) Resolve(ctx context.Context, raw string) (role.Principal, error) {
	claims, err := r.tokens.ParseAccess(raw)
	if err != nil {
		return role.Principal{}, err
	}
	id, err := claims.AccountID()
	if err != nil {
		return role.Principal{}, apperr.ErrTokenInvalid
	}
	acct, err := r.accounts.GetByID(ctx, id)
	if err != nil {
		return role.Principal{}, tokenLookupErr(err)
	}
	if !acct.IsActive || !acct.Role.Valid() {
		return role.Principal{}, apperr.ErrTokenInvalid
	}
	return acct.Principal(), nil
}
