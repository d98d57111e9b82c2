package model

import (
	"errors"
)

var (
	ErrAlreadyExists   = errors.New("object already exists")
	ErrNotFound        = errors.New("not found")
	ErrNotModified     = errors.New("feed not modified")
	ErrInvalidTemplate = errors.New("invalid filename template")
)
