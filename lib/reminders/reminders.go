// Package reminders persists timed reminders and resurfaces them when due.
// Datastore is the source of truth; a Redis sorted set keyed on due time
// lets the scheduler poll cheaply.
package reminders

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/go-redis/redis/v7"

	errors "github.com/selectL-L/sancho/lib/dicelang-errors"
	log "github.com/selectL-L/sancho/lib/logger"
)

const (
	reminderKind = "Reminder"
	scheduleKey  = "reminders:due"
)

// ErrNotFound reports that no reminder matched the requested id.
var ErrNotFound = errors.New("reminders: no such reminder")

// ErrUnparseableWhen reports that no time phrase could be read from a query.
var ErrUnparseableWhen = errors.New("reminders: could not understand when")

// Reminder is one scheduled message. A zero Every means one-shot; otherwise
// the reminder reschedules itself Every after each delivery.
type Reminder struct {
	Key     *datastore.Key `datastore:"__key__"`
	UserID  string
	Channel string
	Message string `datastore:",noindex"`
	At      time.Time
	Every   time.Duration `datastore:",noindex"`
	Created time.Time
}

// Store reads and writes reminders.
type Store struct {
	datastoreClient *datastore.Client
	redisClient     redis.Cmdable
	log             *log.Logger
}

// NewStore creates a Store. redisClient may be nil; Due then queries
// Datastore directly.
func NewStore(datastoreClient *datastore.Client, redisClient redis.Cmdable, logger *log.Logger) *Store {
	return &Store{
		datastoreClient: datastoreClient,
		redisClient:     redisClient,
		log:             logger,
	}
}

// Add persists reminder and schedules it.
func (s *Store) Add(ctx context.Context, reminder *Reminder) (*datastore.Key, error) {
	if reminder.Message == "" {
		return nil, errors.New("reminders: a reminder needs a message")
	}
	if reminder.At.Before(time.Now()) {
		return nil, errors.New("reminders: refusing to schedule a reminder in the past")
	}
	reminder.Created = time.Now()
	key, err := s.datastoreClient.Put(ctx, datastore.IncompleteKey(reminderKind, nil), reminder)
	if err != nil {
		return nil, err
	}
	reminder.Key = key
	s.schedule(reminder)
	return key, nil
}

// List returns the user's pending reminders ordered by due time.
func (s *Store) List(ctx context.Context, userID string) ([]Reminder, error) {
	var all []Reminder
	q := datastore.NewQuery(reminderKind).
		Filter("UserID =", userID).
		Order("At")
	if _, err := s.datastoreClient.GetAll(ctx, q, &all); err != nil {
		return nil, err
	}
	return all, nil
}

// Delete removes the reminder with the given id if userID owns it.
func (s *Store) Delete(ctx context.Context, userID string, id int64) error {
	key := datastore.IDKey(reminderKind, id, nil)
	var reminder Reminder
	if err := s.datastoreClient.Get(ctx, key, &reminder); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return ErrNotFound
		}
		return err
	}
	if reminder.UserID != userID {
		return ErrNotFound
	}
	if err := s.datastoreClient.Delete(ctx, key); err != nil {
		return err
	}
	s.unschedule(key)
	return nil
}

// Due returns every reminder due at or before now.
func (s *Store) Due(ctx context.Context, now time.Time) ([]Reminder, error) {
	if s.redisClient == nil {
		var due []Reminder
		q := datastore.NewQuery(reminderKind).
			Filter("At <=", now).
			Order("At")
		if _, err := s.datastoreClient.GetAll(ctx, q, &due); err != nil {
			return nil, err
		}
		return due, nil
	}

	encoded, err := s.redisClient.ZRangeByScore(scheduleKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, err
	}
	var due []Reminder
	for _, e := range encoded {
		key, err := datastore.DecodeKey(e)
		if err != nil {
			s.log.Errorf("dropping bad schedule entry %q: %s", e, err)
			s.redisClient.ZRem(scheduleKey, e)
			continue
		}
		var reminder Reminder
		if err := s.datastoreClient.Get(ctx, key, &reminder); err != nil {
			if err == datastore.ErrNoSuchEntity {
				s.redisClient.ZRem(scheduleKey, e)
				continue
			}
			return nil, err
		}
		reminder.Key = key
		due = append(due, reminder)
	}
	return due, nil
}

// Complete marks reminder delivered: recurring reminders advance to their
// next due time, one-shots are deleted.
func (s *Store) Complete(ctx context.Context, reminder *Reminder) error {
	if reminder.Every > 0 {
		reminder.At = NextOccurrence(reminder.At, reminder.Every, time.Now())
		if _, err := s.datastoreClient.Put(ctx, reminder.Key, reminder); err != nil {
			return err
		}
		s.schedule(reminder)
		return nil
	}
	if err := s.datastoreClient.Delete(ctx, reminder.Key); err != nil {
		return err
	}
	s.unschedule(reminder.Key)
	return nil
}

func (s *Store) schedule(reminder *Reminder) {
	if s.redisClient == nil {
		return
	}
	err := s.redisClient.ZAdd(scheduleKey, &redis.Z{
		Score:  float64(reminder.At.Unix()),
		Member: reminder.Key.Encode(),
	}).Err()
	if err != nil {
		s.log.Errorf("could not schedule reminder %v: %s", reminder.Key, err)
	}
}

func (s *Store) unschedule(key *datastore.Key) {
	if s.redisClient == nil {
		return
	}
	s.redisClient.ZRem(scheduleKey, key.Encode())
}

// NextOccurrence advances at by whole multiples of every until it lands
// after now, so a reminder missed across downtime fires once, not once per
// missed period.
func NextOccurrence(at time.Time, every time.Duration, now time.Time) time.Time {
	next := at.Add(every)
	for !next.After(now) {
		next = next.Add(every)
	}
	return next
}

// Scheduler polls a Store and hands due reminders to a delivery callback.
type Scheduler struct {
	store    *Store
	interval time.Duration
	notify   func(Reminder)
	log      *log.Logger
}

// NewScheduler creates a Scheduler polling store every interval.
func NewScheduler(store *Store, interval time.Duration, notify func(Reminder), logger *log.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		interval: interval,
		notify:   notify,
		log:      logger,
	}
}

// Run polls until ctx is cancelled.
func (sched *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(sched.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			sched.deliver(ctx, tick)
		}
	}
}

func (sched *Scheduler) deliver(ctx context.Context, tick time.Time) {
	due, err := sched.store.Due(ctx, tick)
	if err != nil {
		sched.log.Errorf("could not fetch due reminders: %s", err)
		return
	}
	for i := range due {
		sched.notify(due[i])
		if err := sched.store.Complete(ctx, &due[i]); err != nil {
			sched.log.Errorf("could not complete reminder %v: %s", due[i].Key, err)
		}
	}
}

var (
	inPhrase    = regexp.MustCompile(`(?i)^\s*in\s+(\d+)\s+(second|minute|hour|day|week)s?\b`)
	everyPhrase = regexp.MustCompile(`(?i)^\s*every\s+(?:(\d+)\s+)?(second|minute|hour|day|week)s?\b`)
	toPrefix    = regexp.MustCompile(`(?i)^\s*(?:to\s+)?`)
)

var units = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    time.Hour * 24,
	"week":   time.Hour * 24 * 7,
}

// ParseWhen reads a leading "in N <unit>" or "every [N] <unit>" phrase off
// query, returning the due time, the recurrence interval (zero for
// one-shots), and the remaining message text.
func ParseWhen(query string, now time.Time) (time.Time, time.Duration, string, error) {
	if m := inPhrase.FindStringSubmatch(query); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return time.Time{}, 0, "", ErrUnparseableWhen
		}
		d := time.Duration(n) * units[strings.ToLower(m[2])]
		message := stripPhrase(query, m[0])
		return now.Add(d), 0, message, nil
	}
	if m := everyPhrase.FindStringSubmatch(query); m != nil {
		n := 1
		if m[1] != "" {
			var err error
			n, err = strconv.Atoi(m[1])
			if err != nil || n < 1 {
				return time.Time{}, 0, "", ErrUnparseableWhen
			}
		}
		d := time.Duration(n) * units[strings.ToLower(m[2])]
		message := stripPhrase(query, m[0])
		return now.Add(d), d, message, nil
	}
	return time.Time{}, 0, "", ErrUnparseableWhen
}

func stripPhrase(query string, phrase string) string {
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(query), strings.TrimSpace(phrase)))
	rest = toPrefix.ReplaceAllString(rest, "")
	return strings.TrimSpace(rest)
}
