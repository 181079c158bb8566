package http

import (
	"time"

	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/services"
)

const dateLayout = "2006-01-02"

type registerRequest struct {
	UserName string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type requestEmailRequest struct {
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type userResponse struct {
	ID        string    `json:"id"`
	UserName  string    `json:"username"`
	Email     string    `json:"email"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		Confirmed: u.Confirmed,
		CreatedAt: u.CreatedAt,
	}
}

type contactRequest struct {
	Name     string  `json:"name"`
	Surname  string  `json:"surname"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Birthday string  `json:"birthday"`
	Info     *string `json:"info"`
}

// input converts the request; ok is false when birthday is not a
// YYYY-MM-DD date.
func (c contactRequest) input() (in services.ContactInput, ok bool) {
	in = services.ContactInput{
		Name:    c.Name,
		Surname: c.Surname,
		Email:   c.Email,
		Phone:   c.Phone,
		Info:    c.Info,
	}
	if c.Birthday == "" {
		return in, true
	}
	b, err := time.Parse(dateLayout, c.Birthday)
	if err != nil {
		return in, false
	}
	in.Birthday = b
	return in, true
}

type contactResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Birthday  string    `json:"birthday"`
	Info      *string   `json:"info"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newContactResponse(c *models.Contact) contactResponse {
	return contactResponse{
		ID:        c.ID,
		Name:      c.Name,
		Surname:   c.Surname,
		Email:     c.Email,
		Phone:     c.Phone,
		Birthday:  c.Birthday.Format(dateLayout),
		Info:      c.Info,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func newContactList(cs []*models.Contact) []contactResponse {
	out := make([]contactResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, newContactResponse(c))
	}
	return out
}
