package app

import "errors"

var (
	ErrUnknownProvider = errors.New("app: unknown auth provider")
	ErrSupabaseConfig  = errors.New("app: supabase provider selected without supabase configuration")
	ErrConfirmSecret   = errors.New("app: LOCALAUTH_CONFIRM_SECRET is required when confirmation is enabled")
)
