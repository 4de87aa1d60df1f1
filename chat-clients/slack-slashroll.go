package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
	"go.opencensus.io/trace"

	"github.com/selectL-L/sancho/lib/dicelang"
	errors "github.com/selectL-L/sancho/lib/dicelang-errors"
	"github.com/selectL-L/sancho/lib/handler"
)

// SlackSlashRollHandler handles requets to /roll slack command
func SlackSlashRollHandler(e interface{}, w http.ResponseWriter, r *http.Request) error {
	c, _ := e.(*SlackChatClient)

	if !c.ValidateSlackSignature(r) {
		return handler.StatusError{
			Code: http.StatusUnauthorized,
			Err:  errors.New("Invalid Slack Signature"),
		}
	}

	s, err := slack.SlashCommandParse(r)
	if err != nil {
		fmt.Fprintf(w, "could not parse slash command: %s", err)
		return nil
	}
	_, span := trace.StartSpan(r.Context(), "ParseAndRoll")
	span.AddAttributes(trace.StringAttribute("cmd", s.Text))
	result, err := dicelang.ParseAndRoll(s.Text)
	span.End()
	if err != nil {
		if errors.KindOf(err) != errors.Unexpected {
			returnErrorToSlack(err.Error(), w, r)
			return nil
		}
		c.log.Errorf("Unexpected error: %+v", err)
		returnErrorToSlack(fmt.Sprintf("Oops! an unexpected error occured: %s", err), w, r)
		return nil
	}
	webhookMessage := slack.Msg{
		ResponseType: slack.ResponseTypeInChannel,
	}
	webhookMessage.Attachments = append(webhookMessage.Attachments, SlackAttachmentsFromRollResult(result)...)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(webhookMessage)
	return nil
}
