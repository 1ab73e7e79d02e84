package groups

type CreateGroupInput struct {
	Name string
}

type JoinGroupInput struct {
	InviteCode string
}
