package models

type Role string

const (
	RoleMember     Role = "member"
	RoleSupervisor Role = "supervisor"
)

type Participant struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name,omitempty"`
	Username   string `json:"username,omitempty"`
	Role       Role   `json:"role"`
}

func (p *Participant) IsSupervisor() bool {
	return p.Role == RoleSupervisor
}

func (p *Participant) DisplayName() string {
	if p.FirstName != "" {
		return p.FirstName
	}
	if p.Username != "" {
		return p.Username
	}
	return p.ExternalID
}
