// internal/models/profile.go
package models

type Profile struct {
	BaseModel
	UserType   UserType `json:"user_type" gorm:"type:varchar(20);not null;index"`
	Username   string   `json:"username" gorm:"uniqueIndex;size:50;not null"`
	FullName   string   `json:"full_name,omitempty" gorm:"size:255"`
	AvatarURL  string   `json:"avatar_url,omitempty" gorm:"size:1024"`
	Bio        string   `json:"bio,omitempty" gorm:"type:text"`
	IsVerified bool     `json:"is_verified" gorm:"default:false"`
}

func (p *Profile) IsSeller() bool {
	return p != nil && p.UserType == UserTypeSeller
}
