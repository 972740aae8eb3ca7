package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/listenupapp/libris/internal/domain"
	domainerrors "github.com/listenupapp/libris/internal/errors"
)

const memberColumns = `member_id, username, email, password_hash, profile_ref, created_at`

func scanMember(scanner interface{ Scan(dest ...any) error }) (*domain.Member, error) {
	var (
		m         domain.Member
		createdAt string
	)
	if err := scanner.Scan(&m.ID, &m.Username, &m.Email, &m.PasswordHash, &m.ProfileRef, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &m, nil
}

// GetMember returns one member by id.
func (s *Store) GetMember(ctx context.Context, id int64) (*domain.Member, error) {
	return s.getMember(ctx, `member_id = ?`, id)
}

// GetMemberByUsername returns one member by username.
func (s *Store) GetMemberByUsername(ctx context.Context, username string) (*domain.Member, error) {
	return s.getMember(ctx, `username = ?`, username)
}

func (s *Store) getMember(ctx context.Context, where string, arg any) (*domain.Member, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m, err := scanMember(s.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFound("member not found")
	}
	if err != nil {
		return nil, classify(err)
	}
	return m, nil
}

// MemberRef is the part of a member row the consistency scanner needs.
type MemberRef struct {
	ID         int64
	Username   string
	ProfileRef string
}

// PageMemberRefs returns up to limit member refs with member_id > afterID.
func (s *Store) PageMemberRefs(ctx context.Context, afterID int64, limit int) ([]MemberRef, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT member_id, username, profile_ref FROM members WHERE member_id > ? ORDER BY member_id LIMIT ?`,
		afterID, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	refs := make([]MemberRef, 0, limit)
	for rows.Next() {
		var r MemberRef
		if err := rows.Scan(&r.ID, &r.Username, &r.ProfileRef); err != nil {
			return nil, classify(err)
		}
		refs = append(refs, r)
	}
	return refs, classify(rows.Err())
}
