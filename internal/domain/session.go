package domain

type Role string

const (
	RoleOwner   Role = "owner"
	RoleVisitor Role = "visitor"
)

func (r Role) Valid() bool { return r == RoleOwner || r == RoleVisitor }

// Session binds a connected wallet address to its chosen role. Role is a
// client-declared view filter; the on-chain contract remains the authority on
// what an address may actually do.
type Session struct {
	Token  string `json:"token"`
	Wallet string `json:"wallet"`
	Role   Role   `json:"role"`
}
