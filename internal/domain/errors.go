package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAlreadyInitialized = errors.New("platform config already initialized")
	ErrNotInitialized     = errors.New("platform config not initialized")

	ErrMarketExists      = errors.New("market key already exists")
	ErrMarketNotApproved = errors.New("market is not approved")
	ErrMarketNotFinished = errors.New("market is not finished")
	ErrMarketNotResolved = errors.New("market is not resolved")
	ErrInvalidFeeConfig  = errors.New("fee percentages exceed 10000 basis points")
	ErrInvalidTitle      = errors.New("market title is empty or too long")

	ErrAnswerExists        = errors.New("answer key already exists")
	ErrAnswerNotFound      = errors.New("answer key does not exist")
	ErrMaxAnswersReached   = errors.New("maximum number of answers reached")
	ErrWinnerNotRegistered = errors.New("market does not contain the answer key")
	ErrInvalidAnswerKey    = errors.New("bet answer key is not registered")

	ErrRetrieveNotTerminal = errors.New("cannot retrieve from an unresolved market")
	ErrRetrieveTooEarly    = errors.New("retrieval window has not elapsed")

	ErrAlreadyProcessed = errors.New("relay message already processed")
	ErrInvalidMessage   = errors.New("invalid relay message")

	ErrOverflow         = errors.New("arithmetic overflow")
	ErrArithmetic       = errors.New("arithmetic operation failed")
	ErrInvalidTimeRange = errors.New("invalid time range")

	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrLockHeld          = errors.New("lock already held")
)
