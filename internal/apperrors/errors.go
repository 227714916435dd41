package apperrors

// Error is an application error with a stable machine readable code.
// The code is part of the API contract and must survive wrapping,
// so callers match with errors.Is against the sentinel values below.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrInvalidAmount           = &Error{Code: "INVALID_AMOUNT", Message: "amount must be positive"}
	ErrUserNotFound            = &Error{Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrReceiverNotFound        = &Error{Code: "RECEIVER_NOT_FOUND", Message: "receiver not found"}
	ErrCannotTransferToSelf    = &Error{Code: "CANNOT_TRANSFER_TO_SELF", Message: "sender and receiver must differ"}
	ErrInsufficientBalance     = &Error{Code: "INSUFFICIENT_BALANCE", Message: "insufficient balance"}
	ErrTransactionNotFound     = &Error{Code: "TRANSACTION_NOT_FOUND", Message: "transaction not found"}
	ErrTransactionIrreversible = &Error{Code: "TRANSACTION_CANNOT_BE_REVERSED", Message: "transaction cannot be reversed"}
	ErrWalletNotFound          = &Error{Code: "WALLET_NOT_FOUND", Message: "wallet not found"}

	ErrEmailTaken         = &Error{Code: "EMAIL_TAKEN", Message: "email already registered"}
	ErrInvalidCredentials = &Error{Code: "INVALID_CREDENTIALS", Message: "invalid email or password"}
)
