package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/listctl"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var groupTracer = otel.Tracer("service/groups")

// GroupsService manages contact groups, group membership and tags.
type GroupsService struct {
	groups port.GroupStore
	tags   port.TagStore

	groupCtl *listctl.Controller[domain.Group]
	tagCtl   *listctl.Controller[domain.Tag]
	logger   *zap.Logger
}

// NewGroupsService creates a groups service.
func NewGroupsService(groups port.GroupStore, tags port.TagStore, logger *zap.Logger) *GroupsService {
	groupCtl := listctl.New[domain.Group](groupBackend{store: groups}, listctl.Options[domain.Group]{
		Name: "grupo",
		Caps: domain.AdminCapabilities(),
		TextFields: func(g domain.Group) []string {
			return []string{g.Name, g.Description}
		},
		Matchers: map[string]listctl.MatcherFunc[domain.Group]{
			"active": func(g domain.Group, v string) bool { return fmt.Sprintf("%t", g.IsActive) == v },
		},
		Apply: func(g domain.Group, patch map[string]any) domain.Group {
			if v, ok := patch["is_active"].(bool); ok {
				g.IsActive = v
			}
			return g
		},
		Logger: logger,
	})
	tagCtl := listctl.New[domain.Tag](tagBackend{store: tags}, listctl.Options[domain.Tag]{
		Name: "etiqueta",
		Caps: domain.AdminCapabilities(),
		TextFields: func(t domain.Tag) []string {
			return []string{t.Name}
		},
		Matchers: map[string]listctl.MatcherFunc[domain.Tag]{
			"active": func(t domain.Tag, v string) bool { return fmt.Sprintf("%t", t.IsActive) == v },
		},
		Apply: func(t domain.Tag, patch map[string]any) domain.Tag {
			if v, ok := patch["is_active"].(bool); ok {
				t.IsActive = v
			}
			return t
		},
		Logger: logger,
	})
	return &GroupsService{groups: groups, tags: tags, groupCtl: groupCtl, tagCtl: tagCtl, logger: logger}
}

// ============================================================
// Groups
// ============================================================

// ListGroups reloads and returns groups under the given filters.
func (s *GroupsService) ListGroups(ctx context.Context, filters map[string]string) ([]domain.Group, error) {
	ctx, span := groupTracer.Start(ctx, "GroupsService.ListGroups")
	defer span.End()

	return s.groupCtl.ListWith(ctx, filters)
}

// CreateGroup validates and inserts one group.
func (s *GroupsService) CreateGroup(ctx context.Context, caps domain.Capabilities, g *domain.Group) (*domain.Group, error) {
	ctx, span := groupTracer.Start(ctx, "GroupsService.CreateGroup")
	defer span.End()

	if !caps.CanCreate {
		return nil, &domain.ErrForbidden{Action: "crear grupos"}
	}
	if strings.TrimSpace(g.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "el nombre es obligatorio"}
	}
	g.IsActive = true

	out, err := s.groups.InsertGroup(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	s.logger.Info("group created", zap.String("group_id", out.ID))
	if err := s.groupCtl.Load(ctx); err != nil {
		s.logger.Warn("reload after create failed", zap.Error(err))
	}
	return out, nil
}

// UpdateGroup patches one group and refetches.
func (s *GroupsService) UpdateGroup(ctx context.Context, caps domain.Capabilities, id string, patch map[string]any) error {
	ctx, span := groupTracer.Start(ctx, "GroupsService.UpdateGroup")
	defer span.End()

	if !caps.CanEdit {
		return &domain.ErrForbidden{Action: "editar grupos"}
	}
	return s.groupCtl.Update(ctx, id, patch)
}

// SetGroupActive is the optimistic toggle for groups.
func (s *GroupsService) SetGroupActive(ctx context.Context, caps domain.Capabilities, id string, active bool) error {
	ctx, span := groupTracer.Start(ctx, "GroupsService.SetGroupActive")
	defer span.End()

	if !caps.CanEdit {
		return &domain.ErrForbidden{Action: "editar grupos"}
	}
	return s.groupCtl.UpdateOptimistic(ctx, id, map[string]any{"is_active": active})
}

// DeleteGroup removes one group along with its membership rows.
func (s *GroupsService) DeleteGroup(ctx context.Context, caps domain.Capabilities, id string) error {
	ctx, span := groupTracer.Start(ctx, "GroupsService.DeleteGroup")
	defer span.End()

	if !caps.CanDelete {
		return &domain.ErrForbidden{Action: "eliminar grupos"}
	}
	return s.groupCtl.Remove(ctx, id)
}

// ListMembers returns the membership rows of one group.
func (s *GroupsService) ListMembers(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	ctx, span := groupTracer.Start(ctx, "GroupsService.ListMembers")
	defer span.End()
	span.SetAttributes(attribute.String("group.id", groupID))

	return s.groups.ListGroupMembers(ctx, groupID)
}

// AddMember joins one contact to one group.
func (s *GroupsService) AddMember(ctx context.Context, caps domain.Capabilities, groupID, contactID string) error {
	ctx, span := groupTracer.Start(ctx, "GroupsService.AddMember")
	defer span.End()

	if !caps.CanEdit {
		return &domain.ErrForbidden{Action: "editar grupos"}
	}
	return s.groups.AddGroupMember(ctx, groupID, contactID)
}

// RemoveMember removes one contact from one group.
func (s *GroupsService) RemoveMember(ctx context.Context, caps domain.Capabilities, groupID, contactID string) error {
	ctx, span := groupTracer.Start(ctx, "GroupsService.RemoveMember")
	defer span.End()

	if !caps.CanEdit {
		return &domain.ErrForbidden{Action: "editar grupos"}
	}
	return s.groups.RemoveGroupMember(ctx, groupID, contactID)
}

// ============================================================
// Tags
// ============================================================

// ListTags reloads and returns tags under the given filters.
func (s *GroupsService) ListTags(ctx context.Context, filters map[string]string) ([]domain.Tag, error) {
	ctx, span := groupTracer.Start(ctx, "GroupsService.ListTags")
	defer span.End()

	return s.tagCtl.ListWith(ctx, filters)
}

// CreateTag validates and inserts one tag.
func (s *GroupsService) CreateTag(ctx context.Context, caps domain.Capabilities, t *domain.Tag) (*domain.Tag, error) {
	ctx, span := groupTracer.Start(ctx, "GroupsService.CreateTag")
	defer span.End()

	if !caps.CanCreate {
		return nil, &domain.ErrForbidden{Action: "crear etiquetas"}
	}
	if strings.TrimSpace(t.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "el nombre es obligatorio"}
	}
	t.IsActive = true

	out, err := s.tags.InsertTag(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	if err := s.tagCtl.Load(ctx); err != nil {
		s.logger.Warn("reload after create failed", zap.Error(err))
	}
	return out, nil
}

// UpdateTag patches one tag and refetches.
func (s *GroupsService) UpdateTag(ctx context.Context, caps domain.Capabilities, id string, patch map[string]any) error {
	ctx, span := groupTracer.Start(ctx, "GroupsService.UpdateTag")
	defer span.End()

	if !caps.CanEdit {
		return &domain.ErrForbidden{Action: "editar etiquetas"}
	}
	return s.tagCtl.Update(ctx, id, patch)
}

// DeleteTag removes one tag.
func (s *GroupsService) DeleteTag(ctx context.Context, caps domain.Capabilities, id string) error {
	ctx, span := groupTracer.Start(ctx, "GroupsService.DeleteTag")
	defer span.End()

	if !caps.CanDelete {
		return &domain.ErrForbidden{Action: "eliminar etiquetas"}
	}
	return s.tagCtl.Remove(ctx, id)
}
