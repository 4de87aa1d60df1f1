package main

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math/big"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/slack-go/slack"
	"golang.org/x/net/context"

	"github.com/selectL-L/sancho/lib/dicelang"
	log "github.com/selectL-L/sancho/lib/logger"
	"github.com/selectL-L/sancho/lib/reminders"
	"github.com/selectL-L/sancho/lib/skills"
)

const lastCommandTTL = time.Hour * 24 * 90

// SlackChatClient holds everything the Slack surface needs to answer a
// message: the engine is called in-process, skills and reminders go through
// their stores.
type SlackChatClient struct {
	log           *log.Logger
	redisClient   redis.Cmdable
	skillStore    *skills.Store
	reminderStore *reminders.Store
	config        *envConfig
	slackClient   *slack.Client
	rtm           *slack.RTM
	botID         string
	ShuttingDown  bool
}

func NewSlackChatClient(logger *log.Logger, redisClient redis.Cmdable, skillStore *skills.Store, reminderStore *reminders.Store, config *envConfig) *SlackChatClient {
	c := &SlackChatClient{
		log:           logger,
		redisClient:   redisClient,
		skillStore:    skillStore,
		reminderStore: reminderStore,
		config:        config,
	}
	c.slackClient = slack.New(
		config.slackToken,
		slack.OptionDebug(config.debug),
	)
	return c
}

// Init starts the RTM loop and returns the cleanup func for server shutdown.
func (c *SlackChatClient) Init(ctx context.Context) func() {
	c.rtm = c.slackClient.NewRTM()
	go c.rtm.ManageConnection()
	go c.listen(ctx)
	return func() { c.Cleanup() }
}

// Cleanup stops the RTM loop and disconnects the websocket.
func (c *SlackChatClient) Cleanup() {
	go func() {
		c.ShuttingDown = true
		if c.rtm != nil {
			c.rtm.Disconnect()
		}
		c.log.Debug("all cleaned up.")
	}()
}

// DeliverReminder posts a due reminder back to the channel it was set in.
func (c *SlackChatClient) DeliverReminder(reminder reminders.Reminder) {
	text := fmt.Sprintf("<@%s> you asked me to remind you: %s", reminder.UserID, reminder.Message)
	_, _, err := c.slackClient.PostMessage(reminder.Channel, slack.MsgOptionText(text, false))
	if err != nil {
		c.log.Errorf("could not deliver reminder %v: %s", reminder.Key, err)
	}
}

// ValidateSlackSignature checks the X-Slack-Signature slack appends
// to every request to ensure we're actually recieving them from slack.
func (c *SlackChatClient) ValidateSlackSignature(r *http.Request) bool {
	log := c.log.WithRequest(r)
	verifier, err := slack.NewSecretsVerifier(r.Header, c.config.slackSigningSecret)
	if err != nil {
		log.Errorf("cannot validate slack signature: %s", err)
		return false
	}

	// read body and reset request
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		log.Error("cannot validate slack signature. Cannot read body")
		return false
	}
	r.Body = ioutil.NopCloser(bytes.NewBuffer(body))
	log.Debug("body: " + string(body))

	if _, err := verifier.Write(body); err != nil {
		log.Errorf("cannot validate slack signature: %s", err)
		return false
	}
	if err := verifier.Ensure(); err != nil {
		log.Debugf("slack signature mismatch: %s", err)
		return false
	}
	return true
}

func returnErrorToSlack(text string, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(slack.Msg{Text: text})
}

// SlackAttachmentsFromRollResult renders a roll as one attachment: a field
// per dice term plus the grand total.
func SlackAttachmentsFromRollResult(rr *dicelang.RollResult) []slack.Attachment {
	attachment := slack.Attachment{
		Fallback: fmt.Sprintf("%s = %s", rr.Notation, strconv.FormatInt(rr.Total, 10)),
		Color:    stringToColor(rr.Notation),
	}
	var fields []slack.AttachmentField
	for _, outcome := range rr.Outcomes {
		fields = append(fields, slack.AttachmentField{
			Value: outcome.String(),
			Short: false,
		})
	}
	fields = append(fields, slack.AttachmentField{
		Title: fmt.Sprintf("%s = %s", rr.Notation, strconv.FormatInt(rr.Total, 10)),
		Short: false,
	})
	attachment.Fields = fields
	return []slack.Attachment{attachment}
}

func stringToColor(input string) string {
	bi := big.NewInt(0)
	h := md5.New()
	h.Write([]byte(input))
	hexb := h.Sum(nil)
	hexstr := hex.EncodeToString(hexb[:len(hexb)/2])
	bi.SetString(hexstr, 16)
	rand.Seed(bi.Int64())
	r := rand.Intn(0xff)
	g := rand.Intn(0xff)
	b := rand.Intn(0xff)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

func (c *SlackChatClient) SetLastCommand(userID string, cmd string) error {
	key := fmt.Sprintf("command:%s:!!", userID)
	return c.redisClient.Set(key, cmd, lastCommandTTL).Err()
}

func (c *SlackChatClient) GetLastCommand(userID string) (string, error) {
	key := fmt.Sprintf("command:%s:!!", userID)
	cmd, err := c.redisClient.Get(key).Result()
	if err == nil {
		go c.SetLastCommand(userID, cmd)
	}
	return cmd, err
}
