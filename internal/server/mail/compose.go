package mail

import (
	"bytes"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"

	"github.com/dmitrijs2005/contactbook/internal/server/auth"
)

// ConfirmationRequest asks for a confirmation email to be sent to Email.
// BaseURL is the externally visible root of the API, e.g.
// "https://api.example.com/".
type ConfirmationRequest struct {
	Email    string
	UserName string
	BaseURL  string
}

// TokenIssuer mints the verification token embedded in the link.
type TokenIssuer interface {
	Issue(purpose auth.Purpose, subject string) (string, error)
}

const confirmationSubject = "Confirm your email"

const confirmationText = `Hello {{.UserName}},

thanks for signing up. Please confirm your email address by opening the link below:

{{.Link}}

If you did not register, ignore this message.
`

const confirmationHTML = `<!DOCTYPE html>
<html>
<body>
<p>Hello {{.UserName}},</p>
<p>thanks for signing up. Please confirm your email address:</p>
<p><a href="{{.Link}}">Confirm email</a></p>
<p>If you did not register, ignore this message.</p>
</body>
</html>
`

var (
	confirmationTextTmpl = texttemplate.Must(texttemplate.New("text").Parse(confirmationText))
	confirmationHTMLTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(confirmationHTML))
)

// ConfirmationComposer renders confirmation emails. Every call issues a new
// verification token for the recipient's email.
type ConfirmationComposer struct {
	tokens TokenIssuer
}

func NewConfirmationComposer(tokens TokenIssuer) *ConfirmationComposer {
	return &ConfirmationComposer{tokens: tokens}
}

// ConfirmationLink joins baseURL and the confirmation route for token.
func ConfirmationLink(baseURL, token string) string {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL + "auth/confirmed_email/" + url.PathEscape(token)
}

func (c *ConfirmationComposer) Compose(req ConfirmationRequest) (Message, error) {
	token, err := c.tokens.Issue(auth.PurposeEmailVerification, req.Email)
	if err != nil {
		return Message{}, err
	}

	data := struct {
		UserName string
		Link     string
	}{
		UserName: req.UserName,
		Link:     ConfirmationLink(req.BaseURL, token),
	}

	var text, html bytes.Buffer
	if err := confirmationTextTmpl.Execute(&text, data); err != nil {
		return Message{}, err
	}
	if err := confirmationHTMLTmpl.Execute(&html, data); err != nil {
		return Message{}, err
	}

	return Message{
		To:      req.Email,
		Subject: confirmationSubject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
