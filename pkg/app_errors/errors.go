package apperrors

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrTicketNotFound     = errors.New("ticket not found")

	ErrSessionNotOpen  = errors.New("session is not open for enrollment")
	ErrAlreadyEnrolled = errors.New("user already enrolled in this session")
	ErrSessionFull     = errors.New("session is full")

	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidInput       = errors.New("invalid input")

	ErrTicketNumberTaken   = errors.New("ticket number already taken")
	ErrTicketNotActive     = errors.New("ticket is not active")
	ErrTicketExpired       = errors.New("ticket has expired")
	ErrInvalidTicket       = errors.New("invalid ticket payload")
	ErrInternalServerError = errors.New("internal server error")
)
