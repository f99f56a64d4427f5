package model

import "errors"

var (
	// ErrInsufficientData means there is no input to derive features or a backtest from.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDataIntegrity means the input is structurally broken (ordering, prices).
	ErrDataIntegrity = errors.New("data integrity")
	// ErrConfiguration means a parameter is out of range.
	ErrConfiguration = errors.New("configuration")
)
