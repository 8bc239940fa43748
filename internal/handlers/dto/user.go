package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"profiles/internal/models"
	"profiles/internal/validation"
)

// Phone accepts either a JSON string or a JSON number.
type Phone string

func (p *Phone) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Phone(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Phone(n.String())
	return nil
}

// SignupRequest is the payload of POST /signup.
type SignupRequest struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	Phone     Phone    `json:"phone"`
	Gender    string   `json:"gender"`
	Age       *int     `json:"age"`
	PhotoURL  string   `json:"photoUrl"`
	About     string   `json:"about"`
	Skills    []string `json:"skills"`
}

// Validate runs the email, name and username checks, in that order.
// The remaining fields are checked against the stored schema later.
func (r *SignupRequest) Validate() error {
	if !validation.ValidEmail(strings.TrimSpace(r.Email)) {
		return validation.Fail("email")
	}
	if !validation.ValidName(r.FirstName) {
		return validation.Fail("firstName")
	}
	if r.LastName != "" && !validation.ValidName(r.LastName) {
		return validation.Fail("lastName")
	}
	if !validation.ValidUsername(r.Username) {
		return validation.Fail("username")
	}
	return nil
}

// ToUser builds the record to store. Email and username are normalized
// to their stored lowercase form.
func (r *SignupRequest) ToUser() *models.User {
	user := &models.User{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Email:     strings.ToLower(strings.TrimSpace(r.Email)),
		Username:  strings.ToLower(strings.TrimSpace(r.Username)),
		Password:  r.Password,
		Phone:     strings.TrimSpace(string(r.Phone)),
		Gender:    r.Gender,
		Age:       r.Age,
		PhotoURL:  r.PhotoURL,
		About:     strings.TrimSpace(r.About),
		Skills:    r.Skills,
	}
	user.ApplyDefaults()
	return user
}

// LookupRequest is the payload of GET /user.
type LookupRequest struct {
	Email string `json:"email"`
}

// NormalizedEmail returns the email in its stored form.
func (r LookupRequest) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(r.Email))
}

// DeleteRequest is the payload of DELETE /user.
type DeleteRequest struct {
	ID string `json:"_id"`
}

// UpdatableFields is the allow-list for PATCH /user/:userID.
var UpdatableFields = map[string]bool{
	"phone":    true,
	"age":      true,
	"photoUrl": true,
	"about":    true,
	"skills":   true,
	"password": true,
}

// ErrFieldNotUpdatable is returned when a patch names a field outside UpdatableFields.
var ErrFieldNotUpdatable = &validation.Error{Message: "Can only update certain fields."}

// checkOrder is the order in which patch fields are validated.
var checkOrder = []string{"skills", "phone", "age", "photoUrl", "about", "password"}

// UpdateRequest is a partial user. Nil fields are left unchanged.
type UpdateRequest struct {
	Phone    *Phone    `json:"phone"`
	Age      *int      `json:"age"`
	PhotoURL *string   `json:"photoUrl"`
	About    *string   `json:"about"`
	Skills   *[]string `json:"skills"`
	Password *string   `json:"password"`
}

// ParseUpdateRequest decodes a patch body. The whole patch is rejected when
// any key is outside the allow-list.
func ParseUpdateRequest(body []byte) (*UpdateRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	for key := range raw {
		if !UpdatableFields[key] {
			return nil, ErrFieldNotUpdatable
		}
	}
	// A present key set to null fails that field's check.
	for _, key := range checkOrder {
		if value, ok := raw[key]; ok && bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			return nil, validation.Fail(key)
		}
	}

	var req UpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, validation.Fail(typeErr.Field)
		}
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	return &req, nil
}

// Validate checks the fields present in the patch.
func (r *UpdateRequest) Validate() error {
	if r.Skills != nil && !validation.ValidSkills(*r.Skills) {
		return validation.Fail("skills")
	}
	if r.Phone != nil && !validation.ValidPhone(string(*r.Phone)) {
		return validation.Fail("phone")
	}
	if r.Age != nil && !validation.ValidAge(*r.Age) {
		return validation.Fail("age")
	}
	if r.PhotoURL != nil && !validation.ValidPhotoURL(*r.PhotoURL) {
		return validation.Fail("photoUrl")
	}
	if r.About != nil && !validation.ValidAbout(*r.About) {
		return validation.Fail("about")
	}
	if r.Password != nil {
		if n := utf8.RuneCountInString(*r.Password); n < 8 || n > 100 {
			return validation.Fail("password")
		}
	}
	return nil
}

// Fields lists the keys present in the patch, for logging and events.
func (r *UpdateRequest) Fields() []string {
	var fields []string
	if r.Phone != nil {
		fields = append(fields, "phone")
	}
	if r.Age != nil {
		fields = append(fields, "age")
	}
	if r.PhotoURL != nil {
		fields = append(fields, "photoUrl")
	}
	if r.About != nil {
		fields = append(fields, "about")
	}
	if r.Skills != nil {
		fields = append(fields, "skills")
	}
	if r.Password != nil {
		fields = append(fields, "password")
	}
	return fields
}

// Apply copies the present fields onto user. The password is set as
// given; callers that hash passwords do so afterwards.
func (r *UpdateRequest) Apply(user *models.User) {
	if r.Phone != nil {
		user.Phone = string(*r.Phone)
	}
	if r.Age != nil {
		age := *r.Age
		user.Age = &age
	}
	if r.PhotoURL != nil {
		user.PhotoURL = *r.PhotoURL
	}
	if r.About != nil {
		user.About = strings.TrimSpace(*r.About)
	}
	if r.Skills != nil {
		user.Skills = append([]string{}, (*r.Skills)...)
	}
	if r.Password != nil {
		user.Password = *r.Password
	}
}
