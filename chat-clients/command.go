package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/context"

	"github.com/selectL-L/sancho/lib/dicelang"
	errors "github.com/selectL-L/sancho/lib/dicelang-errors"
	"github.com/selectL-L/sancho/lib/reminders"
	"github.com/selectL-L/sancho/lib/skills"
)

// incomingMessage is one request for the bot, already stripped of any
// leading bot mention.
type incomingMessage struct {
	UserID  string
	Channel string
	Text    string
}

// command pairs trigger patterns with a handler. Dispatch order matters:
// "delete skill" must win over the bare "skill" fallback, and "delete
// reminder" over "remind".
type command struct {
	name     string
	patterns []*regexp.Regexp
	handle   func(c *SlackChatClient, ctx context.Context, msg *incomingMessage) string
}

var commandRegistry = []command{
	{
		name: "delete skill",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(delete|remove)\s.*skill\b`),
		},
		handle: (*SlackChatClient).handleDeleteSkill,
	},
	{
		name: "list skills",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(list|show|check)\s.*skills?\b`),
			regexp.MustCompile(`(?i)\bskill\s.*(list|show|check)\b`),
			regexp.MustCompile(`(?i)\bskilllist\b`),
		},
		handle: (*SlackChatClient).handleListSkills,
	},
	{
		name: "save skill",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bsave\s.*skill\b`),
			regexp.MustCompile(`(?i)\bskill\s.*save\b`),
			regexp.MustCompile(`(?i)create.*skill`),
		},
		handle: (*SlackChatClient).handleSaveSkill,
	},
	{
		name: "use skill",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bskill\b`),
		},
		handle: (*SlackChatClient).handleUseSkill,
	},
	{
		name: "delete reminder",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(delete|remove)\b.*\breminder`),
		},
		handle: (*SlackChatClient).handleDeleteReminder,
	},
	{
		name: "list reminders",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(check|show|list)\b.*\breminders\b`),
			regexp.MustCompile(`(?i)what are my reminders`),
			regexp.MustCompile(`(?i)^\s*reminders\s*$`),
		},
		handle: (*SlackChatClient).handleListReminders,
	},
	{
		name: "set reminder",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bremind\b`),
			regexp.MustCompile(`(?i)\breminder\b`),
			regexp.MustCompile(`(?i)\bremember\b`),
		},
		handle: (*SlackChatClient).handleSetReminder,
	},
	{
		name: "help",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*help\s*$`),
		},
		handle: (*SlackChatClient).handleHelp,
	},
	{
		name: "roll",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\broll\b`),
			regexp.MustCompile(`(?i)\bdice\b`),
			regexp.MustCompile(`(?i)\bd\d`),
		},
		handle: (*SlackChatClient).handleRoll,
	},
}

// matchCommand returns the first registry entry any of whose patterns
// matches text, or nil.
func matchCommand(text string) *command {
	for i := range commandRegistry {
		for _, pattern := range commandRegistry[i].patterns {
			if pattern.MatchString(text) {
				return &commandRegistry[i]
			}
		}
	}
	return nil
}

// Dispatch routes msg to a handler and returns the reply text. An empty
// reply means the handler answered through attachments already.
func (c *SlackChatClient) Dispatch(ctx context.Context, msg *incomingMessage) string {
	cmd := matchCommand(msg.Text)
	if cmd == nil {
		// no keyword at all: see if it parses as bare dice notation before
		// giving up. Parse only; handleRoll does the actual rolling.
		if _, _, err := dicelang.ParseString(msg.Text); err == nil {
			return c.handleRoll(ctx, msg)
		}
		return "I didn't catch that. Try `help`."
	}
	c.log.Debugf("dispatching %q to %s", msg.Text, cmd.name)
	return cmd.handle(c, ctx, msg)
}

var rollPrefix = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:roll|dice)\b:?\s*`)

func (c *SlackChatClient) handleRoll(ctx context.Context, msg *incomingMessage) string {
	notation := rollPrefix.ReplaceAllString(msg.Text, "")
	if strings.TrimSpace(notation) == "" {
		notation = "1d20"
	}
	result, err := dicelang.ParseAndRoll(notation)
	if err != nil {
		return friendlyError(err)
	}
	c.postRollResult(msg.Channel, result)
	go c.SetLastCommand(msg.UserID, msg.Text)
	return ""
}

var saveSkillPhrase = regexp.MustCompile(`(?i)skill\s+(?P<name>\w+)\s*(?:\((?:aka|aliases)\s+(?P<aliases>[\w,\s]+)\))?\s*(?:\[(?P<type>\w+)\])?\s*=\s*(?P<notation>.+)$`)

func (c *SlackChatClient) handleSaveSkill(ctx context.Context, msg *incomingMessage) string {
	if !saveSkillPhrase.MatchString(msg.Text) {
		return "To save a skill: `save skill <name> = <notation>`, optionally `save skill <name> (aka alias1, alias2) [attack] = <notation>`."
	}
	parts := regexToMap(saveSkillPhrase, msg.Text)
	skill := &skills.Skill{
		UserID:   msg.UserID,
		Name:     parts["name"],
		Notation: strings.TrimSpace(parts["notation"]),
		Type:     parts["type"],
	}
	if parts["aliases"] != "" {
		for _, alias := range strings.Split(parts["aliases"], ",") {
			if alias = strings.TrimSpace(alias); alias != "" {
				skill.Aliases = append(skill.Aliases, alias)
			}
		}
	}
	if _, err := c.skillStore.Upsert(ctx, skill); err != nil {
		if err == skills.ErrLimitReached {
			return "You're out of skill slots. Delete one first with `delete skill <name>`."
		}
		return friendlyError(err)
	}
	return fmt.Sprintf("Skill *%s* saved: `%s`", skill.Name, skill.Notation)
}

var useSkillPhrase = regexp.MustCompile(`(?i)\bskill\s+(?P<name>\w+)\s*(?P<rest>.*)$`)

func (c *SlackChatClient) handleUseSkill(ctx context.Context, msg *incomingMessage) string {
	if !useSkillPhrase.MatchString(msg.Text) {
		return "Which skill? Try `skill <name>`."
	}
	parts := regexToMap(useSkillPhrase, msg.Text)
	skill, err := c.skillStore.Get(ctx, msg.UserID, parts["name"])
	if err != nil {
		if err == skills.ErrNotFound {
			return fmt.Sprintf("You don't have a skill called *%s*. `list skills` shows what you do have.", parts["name"])
		}
		return friendlyError(err)
	}
	// a trailing "with advantage" on the message applies to the stored notation
	notation := skill.Notation
	if _, mode := dicelang.StripAdvantagePhrase(msg.Text); mode != dicelang.AdvantageNone {
		result, err := dicelang.ParseAndRoll(notation, dicelang.RollOptionWithAdvantage(mode))
		if err != nil {
			return friendlyError(err)
		}
		c.postRollResult(msg.Channel, result)
		return ""
	}
	result, err := dicelang.ParseAndRoll(notation)
	if err != nil {
		return friendlyError(err)
	}
	c.postRollResult(msg.Channel, result)
	return ""
}

func (c *SlackChatClient) handleListSkills(ctx context.Context, msg *incomingMessage) string {
	all, err := c.skillStore.List(ctx, msg.UserID)
	if err != nil {
		return friendlyError(err)
	}
	if len(all) == 0 {
		return "You haven't saved any skills yet. `save skill <name> = <notation>` to get started."
	}
	var lines []string
	for _, skill := range all {
		line := fmt.Sprintf("• *%s*: `%s`", skill.Name, skill.Notation)
		if len(skill.Aliases) > 0 {
			line = fmt.Sprintf("%s (aka %s)", line, strings.Join(skill.Aliases, ", "))
		}
		if skill.Type != "" && skill.Type != skills.TypeOther {
			line = fmt.Sprintf("%s [%s]", line, skill.Type)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

var deleteSkillPhrase = regexp.MustCompile(`(?i)skill\s+(?P<name>\w+)\s*$`)

func (c *SlackChatClient) handleDeleteSkill(ctx context.Context, msg *incomingMessage) string {
	if !deleteSkillPhrase.MatchString(msg.Text) {
		return "Which skill? Try `delete skill <name>`."
	}
	parts := regexToMap(deleteSkillPhrase, msg.Text)
	if err := c.skillStore.Delete(ctx, msg.UserID, parts["name"]); err != nil {
		if err == skills.ErrNotFound {
			return fmt.Sprintf("No skill called *%s* to delete.", parts["name"])
		}
		return friendlyError(err)
	}
	return fmt.Sprintf("Skill *%s* deleted.", parts["name"])
}

var remindPhrase = regexp.MustCompile(`(?i)\b(?:remind(?:er)?|remember)\b(?:\s+me)?\s*(?P<rest>.*)$`)

func (c *SlackChatClient) handleSetReminder(ctx context.Context, msg *incomingMessage) string {
	if !remindPhrase.MatchString(msg.Text) {
		return "Tell me when: `remind me in 10 minutes to stretch` or `remind me every day to hydrate`."
	}
	parts := regexToMap(remindPhrase, msg.Text)
	at, every, message, err := reminders.ParseWhen(parts["rest"], time.Now())
	if err != nil {
		return "Tell me when: `remind me in 10 minutes to stretch` or `remind me every day to hydrate`."
	}
	if message == "" {
		message = "(no message)"
	}
	reminder := &reminders.Reminder{
		UserID:  msg.UserID,
		Channel: msg.Channel,
		Message: message,
		At:      at,
		Every:   every,
	}
	if _, err := c.reminderStore.Add(ctx, reminder); err != nil {
		return friendlyError(err)
	}
	if every > 0 {
		return fmt.Sprintf("Got it. I'll remind you every %s, starting %s.", every, at.Format(time.RFC1123))
	}
	return fmt.Sprintf("Got it. I'll remind you at %s.", at.Format(time.RFC1123))
}

func (c *SlackChatClient) handleListReminders(ctx context.Context, msg *incomingMessage) string {
	all, err := c.reminderStore.List(ctx, msg.UserID)
	if err != nil {
		return friendlyError(err)
	}
	if len(all) == 0 {
		return "No pending reminders."
	}
	var lines []string
	for _, reminder := range all {
		line := fmt.Sprintf("• [%d] %s - %s", reminder.Key.ID, reminder.Message, reminder.At.Format(time.RFC1123))
		if reminder.Every > 0 {
			line = fmt.Sprintf("%s (repeats every %s)", line, reminder.Every)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

var deleteReminderPhrase = regexp.MustCompile(`(?i)reminder\s+(?P<id>\d+)\s*$`)

func (c *SlackChatClient) handleDeleteReminder(ctx context.Context, msg *incomingMessage) string {
	if !deleteReminderPhrase.MatchString(msg.Text) {
		return "Which reminder? `list reminders` shows ids, then `delete reminder <id>`."
	}
	parts := regexToMap(deleteReminderPhrase, msg.Text)
	id, err := strconv.ParseInt(parts["id"], 10, 64)
	if err != nil {
		return "That doesn't look like a reminder id."
	}
	if err := c.reminderStore.Delete(ctx, msg.UserID, id); err != nil {
		if err == reminders.ErrNotFound {
			return fmt.Sprintf("No reminder with id %d.", id)
		}
		return friendlyError(err)
	}
	return fmt.Sprintf("Reminder %d deleted.", id)
}

func (c *SlackChatClient) handleHelp(ctx context.Context, msg *incomingMessage) string {
	return strings.Join([]string{
		fmt.Sprintf("Hi, I'm %s. Here's what I can do:", c.config.botName),
		"*Rolling*: `roll 2d6+3`, `roll 4d20kh3`, `roll 1d20 with advantage`",
		"*Skills*: `save skill sneak = 1d20+4`, `skill sneak`, `list skills`, `delete skill sneak`",
		"*Shortcuts*: `!sneak = 1d20+4` saves, `!sneak` rolls, `!!` repeats your last roll",
		"*Reminders*: `remind me in 10 minutes to stretch`, `list reminders`, `delete reminder 3`",
	}, "\n")
}

// friendlyError turns engine errors into chat text. Parse errors carry
// their own user-facing message; anything else gets a generic apology.
func friendlyError(err error) string {
	if errors.KindOf(err) != errors.Unexpected {
		return err.Error()
	}
	return fmt.Sprintf("Oops! an unexpected error occured: %s", err)
}

func regexToMap(re *regexp.Regexp, input string) map[string]string {
	match := re.FindStringSubmatch(input)
	if match == nil {
		return nil
	}
	result := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if i != 0 && name != "" {
			result[name] = match[i]
		}
	}
	return result
}
