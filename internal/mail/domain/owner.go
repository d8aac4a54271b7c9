package domain

// OwnerKind discriminates who a mailbox and its threads belong to. Every
// owned record sets exactly one of team or user, never both, never neither.
type OwnerKind string

const (
	OwnerTeam OwnerKind = "team"
	OwnerUser OwnerKind = "user"
)

// Owner is a resolved mailbox owner.
type Owner struct {
	ID      string
	Kind    OwnerKind
	Mailbox string
}

// TeamID returns the owner id when the owner is a team, else nil.
func (o Owner) TeamID() *string {
	if o.Kind == OwnerTeam {
		id := o.ID
		return &id
	}
	return nil
}

// UserID returns the owner id when the owner is a user, else nil.
func (o Owner) UserID() *string {
	if o.Kind == OwnerUser {
		id := o.ID
		return &id
	}
	return nil
}
