package response

import (
	"errors"
	"net/http"

	domainErrors "github.com/resexchange/marketplace/internal/domain/errors"
)

type ErrorMapping struct {
	HTTPStatus int
	Status     Status
	Message    string
}

var errorMappings = map[error]ErrorMapping{
	domainErrors.ErrValidation: {
		HTTPStatus: http.StatusBadRequest,
		Status:     StatusValidationError,
		Message:    "Validation failed",
	},
	domainErrors.ErrListingNotFound: {
		HTTPStatus: http.StatusNotFound,
		Status:     StatusNotFound,
		Message:    "Listing not found",
	},
	domainErrors.ErrMaterialNotFound: {
		HTTPStatus: http.StatusNotFound,
		Status:     StatusNotFound,
		Message:    "Material not found",
	},
	domainErrors.ErrUserNotFound: {
		HTTPStatus: http.StatusNotFound,
		Status:     StatusNotFound,
		Message:    "User not found",
	},
	domainErrors.ErrChatNotFound: {
		HTTPStatus: http.StatusNotFound,
		Status:     StatusNotFound,
		Message:    "Chat not found",
	},
	domainErrors.ErrIntentNotFound: {
		HTTPStatus: http.StatusNotFound,
		Status:     StatusNotFound,
		Message:    "Checkout attempt not found",
	},
	domainErrors.ErrAlreadySold: {
		HTTPStatus: http.StatusConflict,
		Status:     StatusConflict,
		Message:    "Listing already sold",
	},
	domainErrors.ErrListingSoldEdit: {
		HTTPStatus: http.StatusConflict,
		Status:     StatusConflict,
		Message:    "Sold listings cannot be modified",
	},
	domainErrors.ErrDuplicateListing: {
		HTTPStatus: http.StatusConflict,
		Status:     StatusConflict,
		Message:    "Listing already in cart",
	},
	domainErrors.ErrAllListingsSold: {
		HTTPStatus: http.StatusConflict,
		Status:     StatusConflict,
		Message:    "All listings in the cart have already been sold",
	},
	domainErrors.ErrCheckoutInProgress: {
		HTTPStatus: http.StatusConflict,
		Status:     StatusConflict,
		Message:    "Checkout confirmation already in progress",
	},
	domainErrors.ErrEmptyCart: {
		HTTPStatus: http.StatusBadRequest,
		Status:     StatusError,
		Message:    "Cart is empty",
	},
	domainErrors.ErrPaymentRejected: {
		HTTPStatus: http.StatusPaymentRequired,
		Status:     StatusPaymentRequired,
		Message:    "Payment was not approved",
	},
	domainErrors.ErrGateway: {
		HTTPStatus: http.StatusBadGateway,
		Status:     StatusBadGateway,
		Message:    "Payment provider unavailable",
	},
	domainErrors.ErrTransactionFailed: {
		HTTPStatus: http.StatusInternalServerError,
		Status:     StatusInternalError,
		Message:    "Transaction failed",
	},
}

func MapDomainError(err error) (int, *ErrorResponse) {
	for domainErr, mapping := range errorMappings {
		if errors.Is(err, domainErr) {
			return mapping.HTTPStatus, Error(mapping.Status, mapping.Message, err.Error())
		}
	}

	return http.StatusInternalServerError, Error(StatusInternalError, "Internal server error", err.Error())
}

func WriteDomainError(w http.ResponseWriter, err error) {
	statusCode, errorResponse := MapDomainError(err)
	WriteJSON(w, statusCode, errorResponse)
}
