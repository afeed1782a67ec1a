package errors

import (
	"errors"
)

var (
	ErrValidation = errors.New("validation failed")

	ErrListingNotFound = errors.New("listing not found")
	ErrAlreadySold     = errors.New("listing already sold")
	ErrListingSoldEdit = errors.New("sold listing cannot be modified")

	ErrDuplicateListing = errors.New("listing already in cart")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrAllListingsSold  = errors.New("all listings in cart already sold")

	ErrGateway         = errors.New("payment gateway failure")
	ErrPaymentRejected = errors.New("payment rejected by provider")
	ErrIntentNotFound  = errors.New("payment intent not found")

	ErrChatNotFound     = errors.New("chat not found")
	ErrMaterialNotFound = errors.New("material not found")
	ErrUserNotFound     = errors.New("user not found")

	ErrCheckoutInProgress = errors.New("confirmation already in progress for this intent")

	ErrTransactionFailed = errors.New("transaction failed")
)
