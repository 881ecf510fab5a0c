package server

import (
	"bytes"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"shippingbox/internal/box"
	"shippingbox/internal/color"
	"shippingbox/internal/rate"
)

const (
	flashSaved  = "Box saved successfully!"
	msgSaveFail = "Failed to save box. Please try again."
	msgLoadFail = "Failed to load boxes. Please try again."
)

type formPage struct {
	Page        string
	Form        box.Form
	Errors      box.FieldErrors
	Notices     box.FieldErrors
	RGB         string
	Rates       []rate.Rate
	Currency    string
	Flashes     []any
	SubmitError string
}

type listPage struct {
	Page      string
	Boxes     []box.Box
	LoadError string
}

func (s *Server) newFormPage(f box.Form) formPage {
	if f.BoxColor == "" {
		f.BoxColor = box.DefaultColor
	}
	rgb, _ := color.HexToRGB(f.BoxColor)
	return formPage{
		Page:     "form",
		Form:     f,
		Errors:   box.FieldErrors{},
		Notices:  box.FieldErrors{},
		RGB:      rgb,
		Rates:    rate.Rates(),
		Currency: rate.Currency,
	}
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	key, dirty := draftKey(sess)
	page := s.newFormPage(box.Form{Weight: s.drafts.Get(key).Weight})
	if flashes := sess.Flashes(); len(flashes) > 0 {
		page.Flashes = flashes
		dirty = true
	}
	if dirty {
		s.saveSession(w, r, sess)
	}
	s.render(w, http.StatusOK, "form", page)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, "form", s.newFormPage(box.Form{}))
		return
	}
	f := box.Form{
		ReceiverName:       r.PostForm.Get(box.FieldReceiverName),
		Weight:             r.PostForm.Get(box.FieldWeight),
		BoxColor:           r.PostForm.Get(box.FieldBoxColor),
		DestinationCountry: r.PostForm.Get(box.FieldDestinationCountry),
	}

	v := box.Validate(f)
	if !v.OK() {
		page := s.newFormPage(f)
		page.Errors = v.Errors
		page.Notices = v.Notices
		s.render(w, http.StatusUnprocessableEntity, "form", page)
		return
	}

	if _, err := s.cache.Save(r.Context(), v.Input); err != nil {
		page := s.newFormPage(f)
		page.Notices = v.Notices
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, rate.ErrOutOfRange):
			status = http.StatusUnprocessableEntity
			page.Errors[box.FieldWeight] = "Weight is too large"
		case errors.Is(err, rate.ErrUnknownCountry):
			status = http.StatusUnprocessableEntity
			page.Errors[box.FieldDestinationCountry] = "Destination country is not supported"
		default:
			page.SubmitError = msgSaveFail
		}
		s.render(w, status, "form", page)
		return
	}

	sess := s.session(r)
	if key, ok := sess.Values[draftSessionKey].(string); ok {
		s.drafts.Submit(key)
	}
	sess.AddFlash(flashSaved)
	s.saveSession(w, r, sess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	page := listPage{Page: "list"}
	if err := s.cache.Load(r.Context()); err != nil {
		page.LoadError = msgLoadFail
	}
	page.Boxes = s.cache.All()
	s.render(w, http.StatusOK, "list", page)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
