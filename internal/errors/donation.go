package errors

var (
	ErrDonationNotOwned = &DomainError{
		Code:    "DONATION_NOT_OWNED",
		Message: "donation does not belong to user",
	}
	ErrDonationAlreadyPaid = &DomainError{
		Code:    "DONATION_ALREADY_PAID",
		Message: "donation has already been paid",
	}
	ErrDonationNotFound = &DomainError{
		Code:    "DONATION_NOT_FOUND",
		Message: "donation not found",
	}
	ErrDonationTypeMismatch = &DomainError{
		Code:    "DONATION_TYPE_MISMATCH",
		Message: "donation is not of the expected type",
	}
	ErrCheckoutInProgress = &DomainError{
		Code:    "CHECKOUT_IN_PROGRESS",
		Message: "another checkout is already in progress",
	}
)
