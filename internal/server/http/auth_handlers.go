package http

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/server/services"
	"github.com/gorilla/mux"
)

// register handles POST /auth/register
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.auth.Register(r.Context(), services.RegisterInput{
		UserName: req.UserName,
		Email:    req.Email,
		Password: req.Password,
	}, s.baseURL(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

// login handles POST /auth/login with form-encoded credentials.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form body")
		return
	}

	userName := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if userName == "" || password == "" {
		s.writeError(w, r, common.NewValidationError("username, password", "are required"))
		return
	}

	token, err := s.auth.Login(r.Context(), userName, password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token.AccessToken, TokenType: token.TokenType})
}

// confirmEmail handles GET /auth/confirmed_email/{token}
func (s *Server) confirmEmail(w http.ResponseWriter, r *http.Request) {
	res, err := s.auth.ConfirmEmail(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msg := "Email confirmed"
	if res == services.ConfirmAlreadyConfirmed {
		msg = "Your email is already confirmed"
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// requestEmail handles POST /auth/request_email
func (s *Server) requestEmail(w http.ResponseWriter, r *http.Request) {
	var req requestEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.auth.RequestConfirmation(r.Context(), strings.TrimSpace(req.Email), s.baseURL(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msg := "Check your email for confirmation"
	if res == services.ResendAlreadyConfirmed {
		msg = "Your email is already confirmed"
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// me handles GET /users/me
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newUserResponse(currentUser(r)))
}

// baseURL is the externally visible API root with a trailing slash, used
// to build links in emails.
func (s *Server) baseURL(r *http.Request) string {
	if s.publicBaseURL != "" {
		if strings.HasSuffix(s.publicBaseURL, "/") {
			return s.publicBaseURL
		}
		return s.publicBaseURL + "/"
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host + "/"
}
