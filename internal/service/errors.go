package service

import "errors"

var (
	ErrNotFound            = errors.New("error not found")
	ErrInvalidInput        = errors.New("error invalid input")
	ErrInvalidPrice        = errors.New("error invalid price")
	ErrConflict            = errors.New("error concurrent update conflict")
	ErrProviderUnavailable = errors.New("error market data provider unavailable")
)
