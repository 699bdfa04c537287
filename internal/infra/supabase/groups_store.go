package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"

	"github.com/google/uuid"
)

// ============================================================
// Groups, membership join records and tags
// ============================================================

// groupRow carries the member_count aggregate PostgREST computes from
// the embedded join table.
type groupRow struct {
	domain.Group
	ContactGroups []struct {
		Count int `json:"count"`
	} `json:"contact_groups"`
}

func (c *Client) ListGroups(ctx context.Context) ([]domain.Group, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListGroups")
	defer span.End()

	var rows []groupRow
	if err := c.selectRows(ctx, "groups?select=*,contact_groups(count)&order=created_at.desc", &rows); err != nil {
		return nil, err
	}

	groups := make([]domain.Group, 0, len(rows))
	for _, r := range rows {
		g := r.Group
		if len(r.ContactGroups) > 0 {
			g.MemberCount = r.ContactGroups[0].Count
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (c *Client) InsertGroup(ctx context.Context, g *domain.Group) (*domain.Group, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertGroup")
	defer span.End()

	row := map[string]any{
		"id":          uuid.New().String(),
		"name":        g.Name,
		"description": g.Description,
		"color":       g.Color,
		"is_active":   g.IsActive,
		"created_at":  time.Now().Format(time.RFC3339),
	}
	body, err := c.doPost(ctx, "groups", row)
	if err != nil {
		return nil, err
	}
	return decodeOne[domain.Group](body, "groups")
}

func (c *Client) UpdateGroup(ctx context.Context, id string, patch map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateGroup")
	defer span.End()

	return c.doPatch(ctx, fmt.Sprintf("groups?id=eq.%s", id), patch)
}

func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteGroup")
	defer span.End()

	// Membership rows first so the group delete cannot orphan them.
	if err := c.doDelete(ctx, fmt.Sprintf("contact_groups?group_id=eq.%s", id)); err != nil {
		return err
	}
	return c.doDelete(ctx, fmt.Sprintf("groups?id=eq.%s", id))
}

func (c *Client) ListGroupMembers(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListGroupMembers")
	defer span.End()

	var rows []domain.GroupMember
	path := fmt.Sprintf("contact_groups?group_id=eq.%s&order=added_at.desc", groupID)
	if err := c.selectRows(ctx, path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) AddGroupMember(ctx context.Context, groupID, contactID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.AddGroupMember")
	defer span.End()

	_, err := c.doPost(ctx, "contact_groups", map[string]any{
		"id":         uuid.New().String(),
		"group_id":   groupID,
		"contact_id": contactID,
		"added_at":   time.Now().Format(time.RFC3339),
	})
	return err
}

func (c *Client) RemoveGroupMember(ctx context.Context, groupID, contactID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RemoveGroupMember")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("contact_groups?group_id=eq.%s&contact_id=eq.%s", groupID, contactID))
}

// --- Tags ---

type tagRow struct {
	domain.Tag
	UsageCount *int `json:"usage_count"`
}

func (c *Client) ListTags(ctx context.Context) ([]domain.Tag, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTags")
	defer span.End()

	var rows []tagRow
	if err := c.selectRows(ctx, "tags?order=created_at.desc", &rows); err != nil {
		return nil, err
	}

	tags := make([]domain.Tag, 0, len(rows))
	for _, r := range rows {
		t := r.Tag
		if r.UsageCount != nil {
			t.UsageCount = *r.UsageCount
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func (c *Client) InsertTag(ctx context.Context, t *domain.Tag) (*domain.Tag, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertTag")
	defer span.End()

	row := map[string]any{
		"id":         uuid.New().String(),
		"name":       t.Name,
		"color":      t.Color,
		"is_active":  t.IsActive,
		"created_at": time.Now().Format(time.RFC3339),
	}
	body, err := c.doPost(ctx, "tags", row)
	if err != nil {
		return nil, err
	}
	return decodeOne[domain.Tag](body, "tags")
}

func (c *Client) UpdateTag(ctx context.Context, id string, patch map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateTag")
	defer span.End()

	return c.doPatch(ctx, fmt.Sprintf("tags?id=eq.%s", id), patch)
}

func (c *Client) DeleteTag(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteTag")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("tags?id=eq.%s", id))
}
