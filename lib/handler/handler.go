// Package handler adapts error-returning HTTP handlers to net/http, keeping
// status-code decisions next to the error instead of inside every handler.
package handler

import (
	"log"
	"net/http"
)

// Error is an error with an associated HTTP status code.
type Error interface {
	error
	Status() int
}

// StatusError pairs an error with the status code it should produce.
type StatusError struct {
	Code int
	Err  error
}

func (se StatusError) Error() string {
	return se.Err.Error()
}

// Status returns the HTTP status code.
func (se StatusError) Status() int {
	return se.Code
}

// Handler passes Env to H and converts the returned error to a response.
type Handler struct {
	Env interface{}
	H   func(e interface{}, w http.ResponseWriter, r *http.Request) error
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h.H(h.Env, w, r)
	if err == nil {
		return
	}
	switch e := err.(type) {
	case Error:
		log.Printf("HTTP %d - %s", e.Status(), e)
		http.Error(w, http.StatusText(e.Status()), e.Status())
	default:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
