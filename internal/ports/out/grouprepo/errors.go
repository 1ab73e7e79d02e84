package grouprepo

import "errors"

var (
	ErrNotFound      = errors.New("group not found")
	ErrAlreadyExists = errors.New("group already exists")

	// ErrInviteCodeTaken indicates another group already uses the invite code.
	ErrInviteCodeTaken = errors.New("invite code taken")

	// ErrAlreadyMember indicates the member is already on the group roster.
	ErrAlreadyMember = errors.New("already a group member")
)
