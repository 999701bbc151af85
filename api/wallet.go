package api

import "context"

// WalletService reads fan wallets and coin plans.
type WalletService struct{ c *Client }

// Transactions returns one page of a fan's wallet history.
func (s *WalletService) Transactions(ctx context.Context, userID string, p TransactionListParams) (Page[Transaction], error) {
	if err := requireID("user id", userID); err != nil {
		return Page[Transaction]{}, err
	}
	return listAt[Transaction](ctx, s.c, withQuery("/admin/wallet/"+escape(userID)+"/", p.Values()), "data.transactions")
}

// Transaction returns one wallet movement.
func (s *WalletService) Transaction(ctx context.Context, userID, txID string) (Transaction, error) {
	if err := requireID("user id", userID); err != nil {
		return Transaction{}, err
	}
	if err := requireID("transaction id", txID); err != nil {
		return Transaction{}, err
	}
	return itemAt[Transaction](ctx, s.c, "/admin/wallet/"+escape(userID)+"/"+escape(txID), "data.transaction")
}

// Plans lists the coin plans on sale.
func (s *WalletService) Plans(ctx context.Context) ([]Plan, error) {
	page, err := listAt[Plan](ctx, s.c, "/wallet/plans", "data.pricePlans")
	return page.Items, err
}

// BuyPlan purchases a plan for the signed-in account. The API exposes this
// as a GET.
func (s *WalletService) BuyPlan(ctx context.Context, planID string) (Transaction, error) {
	if err := requireID("plan id", planID); err != nil {
		return Transaction{}, err
	}
	return itemAt[Transaction](ctx, s.c, "/wallet/plans/"+escape(planID), "data.transaction")
}
