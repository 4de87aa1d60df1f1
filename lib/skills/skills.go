// Package skills stores per-user named roll notations, so "sneak" can stand
// in for "1d20+(8/2)" the next time its owner asks for it.
package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/go-redis/redis/v7"

	"github.com/selectL-L/sancho/lib/dicelang"
	errors "github.com/selectL-L/sancho/lib/dicelang-errors"
	log "github.com/selectL-L/sancho/lib/logger"
)

const (
	skillKind    = "Skill"
	settingsKind = "SkillSettings"

	// DefaultLimit is how many skills a user may store unless a per-user
	// override says otherwise.
	DefaultLimit = 20

	cacheTTL = time.Hour * 12
)

// NotationLimits bounds the dice terms a stored skill may contain. Stored
// skills are replayed on demand, so they get tighter bounds than ad-hoc rolls.
var NotationLimits = dicelang.Limits{MaxCount: 10, MaxSides: 40}

// ErrNotFound reports that no skill matched the requested name or alias.
var ErrNotFound = errors.New("skills: no such skill")

// ErrLimitReached reports that the owner is out of skill slots.
var ErrLimitReached = errors.New("skills: skill limit reached")

// Skill categories. Purely descriptive, but kept as a closed set so list
// output stays tidy.
const (
	TypeAttack  = "attack"
	TypeDefense = "defense"
	TypeOther   = "other"
)

// Skill is one stored notation. Name, Aliases and Type are held lowercase.
type Skill struct {
	UserID    string
	Name      string
	Aliases   []string
	Notation  string
	Type      string
	UpdatedAt time.Time
}

type skillSettingsDoc struct {
	UserID     string
	SkillLimit int
}

// Store reads and writes skills through Datastore with a Redis cache in
// front of single-skill lookups.
type Store struct {
	datastoreClient *datastore.Client
	redisClient     redis.Cmdable
	log             *log.Logger
	limit           int
}

// StoreOption configures a Store created by NewStore.
type StoreOption func(*Store)

// WithLimit overrides the default per-user skill limit.
func WithLimit(limit int) StoreOption {
	return func(s *Store) {
		s.limit = limit
	}
}

// NewStore creates a Store. redisClient may be nil, which disables caching.
func NewStore(datastoreClient *datastore.Client, redisClient redis.Cmdable, logger *log.Logger, options ...StoreOption) *Store {
	s := &Store{
		datastoreClient: datastoreClient,
		redisClient:     redisClient,
		log:             logger,
		limit:           DefaultLimit,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Upsert validates skill's notation, then inserts or updates it keyed on
// (UserID, Name). The limit is only enforced when the skill is new.
func (s *Store) Upsert(ctx context.Context, skill *Skill) (*datastore.Key, error) {
	if _, err := dicelang.ParseWithLimits(skill.Notation, dicelang.AdvantageNone, NotationLimits); err != nil {
		return nil, err
	}
	skill.Name = strings.ToLower(strings.TrimSpace(skill.Name))
	if skill.Name == "" {
		return nil, errors.New("skills: a skill needs a name")
	}
	for i, alias := range skill.Aliases {
		skill.Aliases[i] = strings.ToLower(strings.TrimSpace(alias))
	}
	switch skill.Type = strings.ToLower(strings.TrimSpace(skill.Type)); skill.Type {
	case "":
		skill.Type = TypeOther
	case TypeAttack, TypeDefense, TypeOther:
	default:
		return nil, errors.Newf("skills: unknown skill type %q, want attack, defense or other", skill.Type)
	}
	skill.UpdatedAt = time.Now()

	var k *datastore.Key
	_, err := s.datastoreClient.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		q := datastore.NewQuery(skillKind).
			Filter("UserID =", skill.UserID).
			Filter("Name =", skill.Name).
			KeysOnly()
		keys, err := s.datastoreClient.GetAll(ctx, q, &[]Skill{})
		if err != nil {
			return err
		}
		if keysLen := len(keys); keysLen > 1 {
			err := errors.Newf("found multiple skill entries for user %s, name %s", skill.UserID, skill.Name)
			s.log.Critical(err.Error())
			return err
		} else if keysLen == 1 {
			k, err = s.datastoreClient.Put(ctx, keys[0], skill)
			return err
		}
		limit, err := s.userLimit(ctx, skill.UserID)
		if err != nil {
			return err
		}
		count, err := s.datastoreClient.Count(ctx, datastore.NewQuery(skillKind).Filter("UserID =", skill.UserID))
		if err != nil {
			return err
		}
		if count >= limit {
			return ErrLimitReached
		}
		k, err = s.datastoreClient.Put(ctx, datastore.IncompleteKey(skillKind, nil), skill)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(skill)
	return k, nil
}

// Get resolves name against the user's skills, matching the skill name first
// and then any alias. Lookups go through Redis when a client is present.
func (s *Store) Get(ctx context.Context, userID string, name string) (*Skill, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if cached := s.fromCache(userID, name); cached != nil {
		return cached, nil
	}

	var byName []Skill
	q := datastore.NewQuery(skillKind).
		Filter("UserID =", userID).
		Filter("Name =", name).
		Limit(1)
	if _, err := s.datastoreClient.GetAll(ctx, q, &byName); err != nil {
		return nil, err
	}
	if len(byName) == 1 {
		s.toCache(userID, name, &byName[0])
		return &byName[0], nil
	}

	// fall back to an alias scan over the user's skills
	all, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if MatchesAlias(&all[i], name) {
			s.toCache(userID, name, &all[i])
			return &all[i], nil
		}
	}
	return nil, ErrNotFound
}

// List returns the user's skills ordered by name.
func (s *Store) List(ctx context.Context, userID string) ([]Skill, error) {
	var all []Skill
	q := datastore.NewQuery(skillKind).
		Filter("UserID =", userID).
		Order("Name")
	if _, err := s.datastoreClient.GetAll(ctx, q, &all); err != nil {
		return nil, err
	}
	return all, nil
}

// Delete removes the named skill. Aliases are not accepted here; deleting
// wants the real name.
func (s *Store) Delete(ctx context.Context, userID string, name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	var deleted *Skill
	_, err := s.datastoreClient.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var matches []Skill
		q := datastore.NewQuery(skillKind).
			Filter("UserID =", userID).
			Filter("Name =", name)
		keys, err := s.datastoreClient.GetAll(ctx, q, &matches)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return ErrNotFound
		}
		deleted = &matches[0]
		return s.datastoreClient.DeleteMulti(ctx, keys)
	})
	if err != nil {
		return err
	}
	s.invalidate(deleted)
	return nil
}

// SetUserLimit stores a per-user override of the skill limit.
func (s *Store) SetUserLimit(ctx context.Context, userID string, limit int) error {
	if limit < 1 || limit > 100 {
		return errors.New("skills: limit must be between 1 and 100")
	}
	doc := &skillSettingsDoc{UserID: userID, SkillLimit: limit}
	_, err := s.datastoreClient.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		q := datastore.NewQuery(settingsKind).Filter("UserID =", userID).KeysOnly()
		keys, err := s.datastoreClient.GetAll(ctx, q, &[]skillSettingsDoc{})
		if err != nil {
			return err
		}
		if len(keys) == 1 {
			_, err = s.datastoreClient.Put(ctx, keys[0], doc)
			return err
		}
		_, err = s.datastoreClient.Put(ctx, datastore.IncompleteKey(settingsKind, nil), doc)
		return err
	})
	return err
}

func (s *Store) userLimit(ctx context.Context, userID string) (int, error) {
	var docs []skillSettingsDoc
	q := datastore.NewQuery(settingsKind).Filter("UserID =", userID).Limit(1)
	if _, err := s.datastoreClient.GetAll(ctx, q, &docs); err != nil {
		return 0, err
	}
	if len(docs) == 1 && docs[0].SkillLimit > 0 {
		return docs[0].SkillLimit, nil
	}
	return s.limit, nil
}

// MatchesAlias reports whether name is the skill's name or one of its
// aliases. name must already be lowercase.
func MatchesAlias(skill *Skill, name string) bool {
	if skill.Name == name {
		return true
	}
	for _, alias := range skill.Aliases {
		if alias == name {
			return true
		}
	}
	return false
}

func cacheKey(userID string, name string) string {
	return fmt.Sprintf("skill:%s:%s", userID, name)
}

func (s *Store) fromCache(userID string, name string) *Skill {
	if s.redisClient == nil {
		return nil
	}
	payload, err := s.redisClient.Get(cacheKey(userID, name)).Bytes()
	if err != nil {
		return nil
	}
	var skill Skill
	if err := json.Unmarshal(payload, &skill); err != nil {
		s.log.Errorf("discarding bad skill cache entry for %s/%s: %s", userID, name, err)
		s.redisClient.Del(cacheKey(userID, name))
		return nil
	}
	return &skill
}

func (s *Store) toCache(userID string, name string, skill *Skill) {
	if s.redisClient == nil {
		return
	}
	payload, err := json.Marshal(skill)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(cacheKey(userID, name), payload, cacheTTL).Err(); err != nil {
		s.log.Debugf("skill cache write failed for %s/%s: %s", userID, name, err)
	}
}

// invalidate drops every cache key the skill may be resolvable under.
func (s *Store) invalidate(skill *Skill) {
	if s.redisClient == nil || skill == nil {
		return
	}
	keys := []string{cacheKey(skill.UserID, skill.Name)}
	for _, alias := range skill.Aliases {
		keys = append(keys, cacheKey(skill.UserID, alias))
	}
	s.redisClient.Del(keys...)
}
