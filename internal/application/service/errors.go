package service

import "errors"

var (
	// ErrRequestNotFound is returned when a purchase request does not exist
	ErrRequestNotFound = errors.New("purchase request not found")

	// ErrIncompleteRequest is returned when a draft is submitted without
	// the fields the workflow requires
	ErrIncompleteRequest = errors.New("request is incomplete")

	// ErrUnauthorized is returned when the actor's role does not carry
	// the authority for the attempted operation
	ErrUnauthorized = errors.New("role not authorized for this operation")

	// ErrAlreadyDecided is returned when an approval level already has a
	// recorded decision
	ErrAlreadyDecided = errors.New("approval level already decided")

	// ErrNoPurchaseOrder is returned when an operation requires a PO that
	// has not been generated
	ErrNoPurchaseOrder = errors.New("no purchase order for request")
)
