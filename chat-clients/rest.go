package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.opencensus.io/trace"

	"github.com/selectL-L/sancho/lib/dicelang"
	errors "github.com/selectL-L/sancho/lib/dicelang-errors"
)

// RESTRollResponse is the Go representation of the response JSON
type RESTRollResponse struct {
	Cmd    string `json:"cmd"`
	Total  int64  `json:"total"`
	Result string `json:"result"`
	Ok     bool   `json:"ok"`
	Err    string `json:"err,omitempty"`
}

// RESTRollRequest is the Go representation of the request JSON
type RESTRollRequest struct {
	Cmd string `json:"cmd"`
}

// RESTRollHandler handles requests to /roll
func RESTRollHandler(e interface{}, w http.ResponseWriter, r *http.Request) error {
	c, _ := e.(*SlackChatClient)
	log := c.log.WithRequest(r)
	req := &RESTRollRequest{}

	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		log.Errorf("Unexpected error decoding REST request: %+v", err)
		return err
	}
	resp := &RESTRollResponse{Cmd: req.Cmd}
	_, span := trace.StartSpan(r.Context(), "ParseAndRoll")
	span.AddAttributes(trace.StringAttribute("cmd", req.Cmd))
	result, err := dicelang.ParseAndRoll(req.Cmd)
	span.End()
	if err != nil {
		if errors.KindOf(err) != errors.Unexpected {
			resp.Ok = true
			resp.Result = err.Error()
		} else {
			errString := fmt.Sprintf("Unexpected error: %+v", err)
			resp.Ok = false
			resp.Err = errString
			log.Error(errString)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
		return nil
	}
	resp.Ok = true
	resp.Total = result.Total
	resp.Result = StringFromRollResult(result)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
	return nil
}

// StringFromRollResult renders a roll in a human readable format
func StringFromRollResult(rr *dicelang.RollResult) string {
	var s []string
	for _, outcome := range rr.Outcomes {
		s = append(s, outcome.String())
	}
	s = append(s, fmt.Sprintf("%s = *%s*", rr.Notation, strconv.FormatInt(rr.Total, 10)))
	return strings.Join(s, "\n")
}
