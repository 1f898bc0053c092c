package model

// Recipient is a CRM contact referenced by id. The CRM owns this data; the
// engine only reads it for addressing and template rendering.
type Recipient struct {
	ID          int    `db:"id" json:"id"`
	WorkspaceID int    `db:"workspace_id" json:"workspace_id"`
	Email       string `db:"email" json:"email"`
	Phone       string `db:"phone" json:"phone"`
	FirstName   string `db:"first_name" json:"first_name"`
	LastName    string `db:"last_name" json:"last_name"`
	Location    string `db:"location" json:"location"`
}

// Address returns the delivery address for the given channel.
func (r *Recipient) Address(channel string) string {
	if channel == ChannelSMS {
		return r.Phone
	}
	return r.Email
}
