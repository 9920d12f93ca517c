package domain

import "errors"

var (
	ErrUnknownJurisdiction      = errors.New("unknown jurisdiction")
	ErrUnknownVehicleClass      = errors.New("unknown vehicle class")
	ErrInvalidMoneyValue        = errors.New("invalid money value")
	ErrInvalidRate              = errors.New("invalid rate")
	ErrDivisionByZero           = errors.New("division by zero")
	ErrRegistryValidation       = errors.New("registry validation failed")
	ErrUnresolvedTaxability     = errors.New("unresolved taxability policy")
	ErrInvalidTransaction       = errors.New("invalid transaction")
	ErrQuoteNotFound            = errors.New("tax quote not found")
)
