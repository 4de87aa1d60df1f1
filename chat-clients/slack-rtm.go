package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/slack-go/slack"
	"golang.org/x/net/context"

	"github.com/selectL-L/sancho/lib/dicelang"
	"github.com/selectL-L/sancho/lib/skills"
)

var (
	saveCommand = regexp.MustCompile(`(?i)^!(?P<name>\w+)\b\s*=[\t\f\v ]*(?P<cmd>.*)$`)
	execCommand = regexp.MustCompile(`(?i)^!(?P<name>\w+)\b\s*$`)
)

func (c *SlackChatClient) listen(ctx context.Context) {
	for msg := range c.rtm.IncomingEvents {
		if c.ShuttingDown {
			return
		}
		switch ev := msg.Data.(type) {
		case *slack.HelloEvent:
			// Ignore hello

		case *slack.ConnectedEvent:
			c.botID = ev.Info.User.ID
			c.log.Debugf("slack.ConnectedEvent Infos: %v", ev.Info)
			c.log.Debugf("Connection counter: %v", ev.ConnectionCount)

		case *slack.MessageEvent:
			// Don't respond to self or other bots
			if ev.SubType == "bot_message" || ev.User == c.botID {
				continue
			}
			mention, cmd := c.IsMention(ev.Text, c.botID)
			isDM := strings.HasPrefix(ev.Channel, "D")
			if !isDM && !mention {
				continue
			}
			c.handleMessage(ctx, &incomingMessage{
				UserID:  ev.User,
				Channel: ev.Channel,
				Text:    cmd,
			})

		case *slack.RTMError:
			c.log.Errorf("RTM Error: %s", ev.Error())

		case *slack.InvalidAuthEvent:
			c.log.Critical("Invalid credentials. Disconnecting.")
			c.rtm.Disconnect()
			return

		default:
		}
	}
}

func (c *SlackChatClient) handleMessage(ctx context.Context, msg *incomingMessage) {
	// bang shortcuts first, then the phrase registry
	if strings.HasPrefix(msg.Text, "!") {
		switch {
		case msg.Text == "!!":
			cmd, err := c.GetLastCommand(msg.UserID)
			if err != nil {
				c.postText(msg.Channel, "Nothing to repeat yet.")
				return
			}
			msg.Text = cmd
			c.reply(msg.Channel, c.Dispatch(ctx, msg))
		case saveCommand.MatchString(msg.Text):
			parts := regexToMap(saveCommand, msg.Text)
			c.log.Debugf("Save: %s", parts)
			skill := &skills.Skill{
				UserID:   msg.UserID,
				Name:     parts["name"],
				Notation: strings.TrimSpace(parts["cmd"]),
			}
			if _, err := c.skillStore.Upsert(ctx, skill); err != nil {
				c.postText(msg.Channel, friendlyError(err))
				return
			}
			c.postText(msg.Channel, fmt.Sprintf(`Command "%s" saved: %s`, skill.Name, skill.Notation))
		case execCommand.MatchString(msg.Text):
			parts := regexToMap(execCommand, msg.Text)
			c.log.Debugf("Exec: %s", parts)
			skill, err := c.skillStore.Get(ctx, msg.UserID, parts["name"])
			if err != nil {
				c.postText(msg.Channel, fmt.Sprintf("I don't know !%s.", parts["name"]))
				return
			}
			result, err := dicelang.ParseAndRoll(skill.Notation)
			if err != nil {
				c.postText(msg.Channel, friendlyError(err))
				return
			}
			c.postRollResult(msg.Channel, result)
			go c.SetLastCommand(msg.UserID, msg.Text)
		default:
			c.postText(msg.Channel, "Unrecognized command.")
		}
		return
	}
	c.reply(msg.Channel, c.Dispatch(ctx, msg))
}

func (c *SlackChatClient) reply(channel string, text string) {
	if text == "" {
		return
	}
	c.postText(channel, text)
}

func (c *SlackChatClient) postText(channel string, text string) {
	_, _, err := c.slackClient.PostMessage(channel, slack.MsgOptionText(text, false))
	if err != nil {
		c.log.Errorf("could not post to %s: %s", channel, err)
	}
}

func (c *SlackChatClient) postRollResult(channel string, result *dicelang.RollResult) {
	attachments := SlackAttachmentsFromRollResult(result)
	_, _, err := c.slackClient.PostMessage(channel, slack.MsgOptionAttachments(attachments...))
	if err != nil {
		c.log.Errorf("could not post roll to %s: %s", channel, err)
	}
}

// IsMention returns true if the current bot ID is mentioned
func (c *SlackChatClient) IsMention(text string, botID string) (bool, string) {
	formattedBotID := fmt.Sprintf("<@%s>", botID)
	if strings.Contains(text, formattedBotID) {
		return true, strings.TrimSpace(strings.SplitAfter(text, formattedBotID)[1])
	}
	return false, strings.TrimSpace(text)
}
