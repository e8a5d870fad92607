package billing

import (
	"context"

	"github.com/sirupsen/logrus"
)

// resolveCustomer returns the provider customer for email, creating one
// tagged with userID when none exists. Two concurrent first-time calls for
// the same email from different users can still create two customers.
func (h *Handler) resolveCustomer(ctx context.Context, userID, email string) (string, error) {
	id, found, err := h.provider.FindCustomerByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if found {
		return id, nil
	}

	id, err = h.provider.CreateCustomer(ctx, userID, email)
	if err != nil {
		return "", err
	}
	h.log.WithFields(logrus.Fields{"user_id": userID, "customer_id": id}).Info("created billing customer")
	return id, nil
}
