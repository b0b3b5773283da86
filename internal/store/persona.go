package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/companion/internal/model"
)

const personaColumns = `id, user_id, version, supersedes, name, traits, interests, custom_traits,
	voice_style, avatar, relationship_status, relationship_start, created_at`

// Duration is a relationship length in several units.
type Duration struct {
	Days      int    `json:"days"`
	Months    int    `json:"months"`
	Years     int    `json:"years"`
	Formatted string `json:"formatted"`
}

// RelationshipStats summarizes how long the user and persona have been together.
type RelationshipStats struct {
	Duration      Duration     `json:"relationship_duration"`
	StartDate     time.Time    `json:"start_date"`
	TotalMemories int          `json:"total_memories"`
	Personality   model.Traits `json:"personality_profile"`
}

// EnsurePersona returns the user's persona, creating the default one on first use.
func (s *SQLiteStore) EnsurePersona(ctx context.Context, userID string) (*model.PersonaProfile, error) {
	p, err := s.GetPersona(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Concurrent first turns race to write version 1; the losers keep the
	// winner's row.
	def := model.DefaultPersona(userID, s.now().UTC().Truncate(time.Millisecond))
	def.ID = s.newID()
	def.Version = 1
	args, err := personaArgs(&def)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx,
		personaInsert+` ON CONFLICT(user_id, version) DO NOTHING`, args...); err != nil {
		return nil, fmt.Errorf("insert persona: %w", err)
	}
	return s.GetPersona(ctx, userID)
}

// GetPersona returns the latest version of the user's persona.
func (s *SQLiteStore) GetPersona(ctx context.Context, userID string) (*model.PersonaProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+personaColumns+` FROM personas WHERE user_id = ? ORDER BY version DESC LIMIT 1`, userID)
	p, err := scanPersona(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("persona for %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PersonaHistory returns every version of the user's persona, newest first.
func (s *SQLiteStore) PersonaHistory(ctx context.Context, userID string) ([]model.PersonaProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+personaColumns+` FROM personas WHERE user_id = ? ORDER BY version DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PersonaProfile
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("persona for %s: %w", userID, ErrNotFound)
	}
	return out, nil
}

// UpdatePersona applies a partial update and stores it as a new version that
// supersedes the current one. The relationship start date never changes.
func (s *SQLiteStore) UpdatePersona(ctx context.Context, p UpdatePersonaParams) (*model.PersonaProfile, error) {
	if p.VoiceStyle != nil && !model.ValidVoiceStyles[*p.VoiceStyle] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVoiceStyle, *p.VoiceStyle)
	}
	if err := p.Traits.validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+personaColumns+` FROM personas WHERE user_id = ? ORDER BY version DESC LIMIT 1`, p.UserID)
	cur, err := scanPersona(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("persona for %s: %w", p.UserID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	next := cur
	next.ID = s.newID()
	next.Version = cur.Version + 1
	next.Supersedes = cur.ID
	next.CreatedAt = s.now().UTC().Truncate(time.Millisecond)
	if p.Name != nil {
		next.Name = *p.Name
	}
	p.Traits.apply(&next.Traits)
	if p.Interests != nil {
		next.Interests = p.Interests
	}
	if p.CustomTraits != nil {
		next.CustomTraits = p.CustomTraits
	}
	if p.VoiceStyle != nil {
		next.VoiceStyle = *p.VoiceStyle
	}
	if p.Avatar != nil {
		next.Avatar = *p.Avatar
	}
	if p.RelationshipStatus != nil {
		next.RelationshipStatus = *p.RelationshipStatus
	}

	if err := s.insertPersona(ctx, tx, &next); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &next, nil
}

// RelationshipStats reports relationship length and memory count.
func (s *SQLiteStore) RelationshipStats(ctx context.Context, userID string) (*RelationshipStats, error) {
	p, err := s.GetPersona(ctx, userID)
	if err != nil {
		return nil, err
	}
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, fmt.Errorf("count memories: %w", err)
	}
	return &RelationshipStats{
		Duration:      relationshipDuration(p.RelationshipDays(s.now())),
		StartDate:     p.RelationshipStart,
		TotalMemories: total,
		Personality:   p.Traits,
	}, nil
}

func relationshipDuration(days int) Duration {
	d := Duration{Days: days, Months: days / 30, Years: days / 365}
	switch {
	case d.Years > 1:
		d.Formatted = fmt.Sprintf("%d years, %d days", d.Years, days%365)
	case d.Years == 1:
		d.Formatted = fmt.Sprintf("1 year, %d days", days%365)
	case days == 1:
		d.Formatted = "1 day"
	default:
		d.Formatted = fmt.Sprintf("%d days", days)
	}
	return d
}

func (u TraitUpdate) validate() error {
	for _, v := range []*int{u.Warmth, u.Playfulness, u.Possessiveness, u.Romanticism, u.Supportiveness, u.Humor} {
		if v != nil && (*v < 0 || *v > 100) {
			return fmt.Errorf("%w: %d", ErrInvalidTrait, *v)
		}
	}
	return nil
}

func (u TraitUpdate) apply(t *model.Traits) {
	set := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	set(&t.Warmth, u.Warmth)
	set(&t.Playfulness, u.Playfulness)
	set(&t.Possessiveness, u.Possessiveness)
	set(&t.Romanticism, u.Romanticism)
	set(&t.Supportiveness, u.Supportiveness)
	set(&t.Humor, u.Humor)
}

const personaInsert = `INSERT INTO personas (` + personaColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func personaArgs(p *model.PersonaProfile) ([]any, error) {
	traits, err := json.Marshal(p.Traits)
	if err != nil {
		return nil, fmt.Errorf("encode traits: %w", err)
	}
	interests, err := json.Marshal(nonNil(p.Interests))
	if err != nil {
		return nil, fmt.Errorf("encode interests: %w", err)
	}
	custom, err := json.Marshal(nonNil(p.CustomTraits))
	if err != nil {
		return nil, fmt.Errorf("encode custom traits: %w", err)
	}
	return []any{
		p.ID, p.UserID, p.Version, nullString(p.Supersedes), p.Name, string(traits), string(interests), string(custom),
		p.VoiceStyle, nullString(p.Avatar), p.RelationshipStatus, formatTime(p.RelationshipStart), formatTime(p.CreatedAt),
	}, nil
}

func (s *SQLiteStore) insertPersona(ctx context.Context, db execer, p *model.PersonaProfile) error {
	args, err := personaArgs(p)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, personaInsert, args...); err != nil {
		return fmt.Errorf("insert persona: %w", err)
	}
	return nil
}

func scanPersona(row scanner) (model.PersonaProfile, error) {
	var p model.PersonaProfile
	var supersedes, avatar sql.NullString
	var traits, interests, custom, start, created string

	err := row.Scan(
		&p.ID, &p.UserID, &p.Version, &supersedes, &p.Name, &traits, &interests, &custom,
		&p.VoiceStyle, &avatar, &p.RelationshipStatus, &start, &created,
	)
	if err != nil {
		return p, err
	}
	p.Supersedes = supersedes.String
	p.Avatar = avatar.String
	p.RelationshipStart = parseTime(start)
	p.CreatedAt = parseTime(created)
	if err := json.Unmarshal([]byte(traits), &p.Traits); err != nil {
		return p, fmt.Errorf("decode traits: %w", err)
	}
	if err := json.Unmarshal([]byte(interests), &p.Interests); err != nil {
		return p, fmt.Errorf("decode interests: %w", err)
	}
	if err := json.Unmarshal([]byte(custom), &p.CustomTraits); err != nil {
		return p, fmt.Errorf("decode custom traits: %w", err)
	}
	return p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
