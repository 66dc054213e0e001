// Package scope computes the set of chapters a team member may see.
//
// The resolver never walks the chapter tree itself: descendant sets come from
// a ChapterTree, which the store answers with a single recursive query.
package scope

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikhil/chapterhub/internal/auth"
	"github.com/nikhil/chapterhub/internal/models"
)

// ErrNoJurisdiction is returned when a selected chapter lies outside the caller's reach
var ErrNoJurisdiction = errors.New("you do not have access to the selected chapter")

// ChapterTree resolves a chapter to itself plus all descendants
type ChapterTree interface {
	Descendants(ctx context.Context, chapterID string) ([]string, error)
}

// Scope is the resolved chapter visibility of one request
type Scope struct {
	// Unrestricted means every chapter is visible and ChapterIDs is empty.
	Unrestricted bool `json:"unrestricted"`
	// RootChapterID is the chapter whose subtree defines ChapterIDs.
	RootChapterID string   `json:"root_chapter_id,omitempty"`
	ChapterIDs    []string `json:"chapter_ids"`
}

// Includes reports whether chapterID is visible
func (s Scope) Includes(chapterID string) bool {
	if s.Unrestricted {
		return true
	}
	for _, id := range s.ChapterIDs {
		if id == chapterID {
			return true
		}
	}
	return false
}

// Concrete returns the single chapter the scope is anchored to.
// Unrestricted and empty scopes have none.
func (s Scope) Concrete() (string, bool) {
	if s.Unrestricted || s.RootChapterID == "" {
		return "", false
	}
	return s.RootChapterID, true
}

// Empty reports whether nothing is visible
func (s Scope) Empty() bool {
	return !s.Unrestricted && len(s.ChapterIDs) == 0
}

// Resolve computes the scope of member, optionally narrowed by a selected chapter id.
func Resolve(ctx context.Context, tree ChapterTree, member models.TeamMember, selected string) (Scope, error) {
	roles := []string(member.Roles)
	own := member.Chapter()

	switch {
	case auth.IsUnrestricted(roles):
		if selected == "" {
			return Scope{Unrestricted: true}, nil
		}
		return subtree(ctx, tree, selected)

	case auth.IsGeographicAdmin(roles):
		if own == "" {
			return Scope{}, nil
		}
		base, err := subtree(ctx, tree, own)
		if errors.Is(err, ErrNoJurisdiction) {
			// assigned chapter no longer exists
			return Scope{}, nil
		}
		if err != nil {
			return Scope{}, err
		}
		if selected == "" || selected == own {
			return base, nil
		}
		if !base.Includes(selected) {
			return Scope{}, ErrNoJurisdiction
		}
		return subtree(ctx, tree, selected)

	default:
		if own == "" {
			if selected != "" {
				return Scope{}, ErrNoJurisdiction
			}
			return Scope{}, nil
		}
		if selected != "" && selected != own {
			return Scope{}, ErrNoJurisdiction
		}
		return Scope{RootChapterID: own, ChapterIDs: []string{own}}, nil
	}
}

func subtree(ctx context.Context, tree ChapterTree, root string) (Scope, error) {
	ids, err := tree.Descendants(ctx, root)
	if err != nil {
		return Scope{}, fmt.Errorf("resolve descendants of %s: %w", root, err)
	}
	// An unknown chapter yields no rows; it cannot be selected.
	if len(ids) == 0 {
		return Scope{}, ErrNoJurisdiction
	}
	return Scope{RootChapterID: root, ChapterIDs: ids}, nil
}
