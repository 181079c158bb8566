package http

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/server/services"
	"github.com/gorilla/mux"
)

func contactID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, common.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

func (s *Server) readContact(w http.ResponseWriter, r *http.Request) (services.ContactInput, bool) {
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return services.ContactInput{}, false
	}
	in, ok := req.input()
	if !ok {
		s.writeError(w, r, common.NewValidationError("birthday", "must be a date in YYYY-MM-DD format"))
		return services.ContactInput{}, false
	}
	return in, true
}

// listContacts handles GET /contacts
func (s *Server) listContacts(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", services.DefaultListLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	list, err := s.contacts.List(r.Context(), currentUser(r).ID, services.ContactFilter{
		Name:    q.Get("name"),
		Surname: q.Get("surname"),
		Email:   q.Get("email"),
		Skip:    skip,
		Limit:   limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newContactList(list))
}

// createContact handles POST /contacts
func (s *Server) createContact(w http.ResponseWriter, r *http.Request) {
	in, ok := s.readContact(w, r)
	if !ok {
		return
	}

	c, err := s.contacts.Create(r.Context(), currentUser(r).ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newContactResponse(c))
}

// birthdays handles GET /contacts/birthdays?days=N
func (s *Server) birthdays(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", services.DefaultBirthdayWindow)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.contacts.UpcomingBirthdays(r.Context(), currentUser(r).ID, days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newContactList(list))
}

// getContact handles GET /contacts/{id}
func (s *Server) getContact(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(r)
	if !ok {
		s.writeError(w, r, common.ErrorNotFound)
		return
	}

	c, err := s.contacts.Get(r.Context(), currentUser(r).ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newContactResponse(c))
}

// updateContact handles PUT /contacts/{id}
func (s *Server) updateContact(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(r)
	if !ok {
		s.writeError(w, r, common.ErrorNotFound)
		return
	}

	in, ok := s.readContact(w, r)
	if !ok {
		return
	}

	c, err := s.contacts.Update(r.Context(), currentUser(r).ID, id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newContactResponse(c))
}

// deleteContact handles DELETE /contacts/{id}
func (s *Server) deleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(r)
	if !ok {
		s.writeError(w, r, common.ErrorNotFound)
		return
	}

	c, err := s.contacts.Delete(r.Context(), currentUser(r).ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newContactResponse(c))
}
