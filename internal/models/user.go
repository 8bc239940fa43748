package models

import "time"

// Defaults applied to a new user when the signup payload leaves them out.
const (
	DefaultPhotoURL = "https://cdn.pixabay.com/photo/2015/10/05/22/37/blank-profile-picture-973460_640.png"
	DefaultAbout    = "Default about section."
)

// User is a stored profile.
type User struct {
	ID        string    `json:"_id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	FirstName string    `json:"firstName" gorm:"type:varchar(30);not null" validate:"required,min=2,max=30,personname"`
	LastName  string    `json:"lastName,omitempty" gorm:"type:varchar(30)" validate:"omitempty,min=2,max=30,personname"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(254);not null" validate:"required,min=5,max=254,email"`
	Username  string    `json:"username" gorm:"uniqueIndex;type:varchar(30);not null" validate:"required,min=4,max=30,username"`
	Password  string    `json:"-" gorm:"type:varchar(100);not null" validate:"required,min=8,max=100"` // No json tag for security
	Phone     string    `json:"phone,omitempty" gorm:"type:varchar(20)" validate:"omitempty,phone"`
	Gender    string    `json:"gender,omitempty" gorm:"type:varchar(6)" validate:"omitempty,oneof=male female other"`
	Age       *int      `json:"age,omitempty" validate:"omitempty,min=8,max=100"`
	PhotoURL  string    `json:"photoUrl" gorm:"type:varchar(100)" validate:"required,max=100,url|photourl"`
	About     string    `json:"about" gorm:"type:varchar(150)" validate:"required,min=5,max=150"`
	Skills    []string  `json:"skills" gorm:"serializer:json" validate:"max=5"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ApplyDefaults fills the optional fields that have a stored default.
func (u *User) ApplyDefaults() {
	if u.PhotoURL == "" {
		u.PhotoURL = DefaultPhotoURL
	}
	if u.About == "" {
		u.About = DefaultAbout
	}
	if u.Skills == nil {
		u.Skills = []string{}
	}
}
