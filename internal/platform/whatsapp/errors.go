package whatsapp

import "errors"

var (
	ErrAlreadyExists      = errors.New("whatsapp session already exists")
	ErrNotFound           = errors.New("whatsapp session not found")
	ErrInvalidSessionName = errors.New("invalid whatsapp session name")
)
