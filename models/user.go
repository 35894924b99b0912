package models

// User represents a registered account. The password column holds either a
// bcrypt hash or a legacy sha256 hash pending lazy migration on login.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:100;not null" json:"name"`
	Email    string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password string `gorm:"size:200;not null" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
