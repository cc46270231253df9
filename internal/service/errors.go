package service

import (
	"errors"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/repository"
)

func productError(err error, productID string) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return domain.NotFound("product %s not found", productID)
	case errors.Is(err, repository.ErrInsufficientStock):
		return domain.InsufficientStock("insufficient stock for product %s", productID)
	}
	return err
}

func orderError(err error, orderID string) error {
	if errors.Is(err, repository.ErrOrderNotFound) {
		return domain.NotFound("order %s not found", orderID)
	}
	return err
}

func paymentError(err error, paymentID string) error {
	switch {
	case errors.Is(err, repository.ErrPaymentNotFound):
		return domain.NotFound("payment %s not found", paymentID)
	case errors.Is(err, repository.ErrDuplicatePayment):
		return domain.Conflict("payment already exists for this order")
	}
	return err
}
