package repository

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres) inside this directory.
//
// Contract shared by every Find* method: when nothing matches, the returned error is
// sql.ErrNoRows (possibly wrapped). Callers translate that into their own not-found error.

import "errors"

// ErrDuplicate is returned when a write trips a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate key")

// ErrAttachmentInUse is returned when an attachment being bound already belongs to another request.
var ErrAttachmentInUse = errors.New("attachment bound to another request")
