package model

// User 用户模型
type User struct {
	BaseModel
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"` // 统一小写存储
	PasswordHash string `gorm:"type:varchar(100);not null" json:"-"`
	FirstName    string `gorm:"type:varchar(64);not null;default:''" json:"first_name"`
	LastName     string `gorm:"type:varchar(64);not null;default:''" json:"last_name"`
	ContactInfo  string `gorm:"type:varchar(64);not null;default:''" json:"contact_info"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
