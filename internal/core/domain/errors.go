package domain

import "errors"

var ErrValidation = errors.New("validation failed")
var ErrPasswordTooShort = errors.New("password must be at least 8 characters")
var ErrInvalidRole = errors.New("invalid role")
var ErrInvalidCredentials = errors.New("invalid email or password")
var ErrIncorrectPassword = errors.New("current password is incorrect")
var ErrAccountDeactivated = errors.New("account is deactivated")
var ErrUnauthorized = errors.New("authentication required")
var ErrForbidden = errors.New("access forbidden")
var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("an account with this email already exists")
var ErrRateLimited = errors.New("too many attempts, try again later")
