package domain

// User is the read-only member directory row used for hydration
// and the platform-admin role check. The members table belongs to
// the identity service; this module never writes it.
type User struct {
	ID        string `gorm:"column:id;size:64;primaryKey" json:"id"`
	Nickname  string `gorm:"column:nickname;size:100" json:"nickname"`
	AvatarURL string `gorm:"column:avatar_url;size:500" json:"avatar_url,omitempty"`
	Level     int    `gorm:"column:level" json:"level"`
}

// TableName returns the table name for members
func (User) TableName() string {
	return "members"
}
