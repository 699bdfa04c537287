// Package service provides the business logic layer (use cases).
// Each collection is fronted by a listctl controller bound to its
// Supabase store through one of these backend adapters.
package service

import (
	"context"

	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/domain"
	"github.com/simatecve/crm-repuestos-online-vzla-v1-sub001/internal/port"
)

// contactBackend adapts port.ContactStore to listctl.Backend.
type contactBackend struct {
	store port.ContactStore
}

func (b contactBackend) List(ctx context.Context) ([]domain.Contact, error) {
	return b.store.ListContacts(ctx)
}

func (b contactBackend) Insert(ctx context.Context, c domain.Contact) (domain.Contact, error) {
	out, err := b.store.InsertContact(ctx, &c)
	if err != nil {
		return domain.Contact{}, err
	}
	return *out, nil
}

func (b contactBackend) Update(ctx context.Context, id string, patch map[string]any) error {
	return b.store.UpdateContact(ctx, id, patch)
}

func (b contactBackend) Delete(ctx context.Context, id string) error {
	return b.store.DeleteContact(ctx, id)
}

func (b contactBackend) UpdateWhere(ctx context.Context, ids []string, patch map[string]any) error {
	return b.store.UpdateContactsIn(ctx, ids, patch)
}

func (b contactBackend) DeleteWhere(ctx context.Context, ids []string) error {
	return b.store.DeleteContactsIn(ctx, ids)
}

// leadBackend adapts port.LeadStore to listctl.Backend.
type leadBackend struct {
	store port.LeadStore
}

func (b leadBackend) List(ctx context.Context) ([]domain.Lead, error) {
	return b.store.ListLeads(ctx)
}

func (b leadBackend) Insert(ctx context.Context, l domain.Lead) (domain.Lead, error) {
	out, err := b.store.InsertLead(ctx, &l)
	if err != nil {
		return domain.Lead{}, err
	}
	return *out, nil
}

func (b leadBackend) Update(ctx context.Context, id string, patch map[string]any) error {
	return b.store.UpdateLead(ctx, id, patch)
}

func (b leadBackend) Delete(ctx context.Context, id string) error {
	return b.store.DeleteLead(ctx, id)
}

func (b leadBackend) UpdateWhere(ctx context.Context, ids []string, patch map[string]any) error {
	return b.store.UpdateLeadsIn(ctx, ids, patch)
}

func (b leadBackend) DeleteWhere(ctx context.Context, ids []string) error {
	return b.store.DeleteLeadsIn(ctx, ids)
}

// groupBackend adapts port.GroupStore. Groups have no server-side
// where-in endpoint, so bulk operations iterate.
type groupBackend struct {
	store port.GroupStore
}

func (b groupBackend) List(ctx context.Context) ([]domain.Group, error) {
	return b.store.ListGroups(ctx)
}

func (b groupBackend) Insert(ctx context.Context, g domain.Group) (domain.Group, error) {
	out, err := b.store.InsertGroup(ctx, &g)
	if err != nil {
		return domain.Group{}, err
	}
	return *out, nil
}

func (b groupBackend) Update(ctx context.Context, id string, patch map[string]any) error {
	return b.store.UpdateGroup(ctx, id, patch)
}

func (b groupBackend) Delete(ctx context.Context, id string) error {
	return b.store.DeleteGroup(ctx, id)
}

func (b groupBackend) UpdateWhere(ctx context.Context, ids []string, patch map[string]any) error {
	for _, id := range ids {
		if err := b.store.UpdateGroup(ctx, id, patch); err != nil {
			return err
		}
	}
	return nil
}

func (b groupBackend) DeleteWhere(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := b.store.DeleteGroup(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// tagBackend adapts port.TagStore.
type tagBackend struct {
	store port.TagStore
}

func (b tagBackend) List(ctx context.Context) ([]domain.Tag, error) {
	return b.store.ListTags(ctx)
}

func (b tagBackend) Insert(ctx context.Context, t domain.Tag) (domain.Tag, error) {
	out, err := b.store.InsertTag(ctx, &t)
	if err != nil {
		return domain.Tag{}, err
	}
	return *out, nil
}

func (b tagBackend) Update(ctx context.Context, id string, patch map[string]any) error {
	return b.store.UpdateTag(ctx, id, patch)
}

func (b tagBackend) Delete(ctx context.Context, id string) error {
	return b.store.DeleteTag(ctx, id)
}

func (b tagBackend) UpdateWhere(ctx context.Context, ids []string, patch map[string]any) error {
	for _, id := range ids {
		if err := b.store.UpdateTag(ctx, id, patch); err != nil {
			return err
		}
	}
	return nil
}

func (b tagBackend) DeleteWhere(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := b.store.DeleteTag(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// fieldBackend adapts port.FieldStore.
type fieldBackend struct {
	store port.FieldStore
}

func (b fieldBackend) List(ctx context.Context) ([]domain.CustomField, error) {
	return b.store.ListFields(ctx)
}

func (b fieldBackend) Insert(ctx context.Context, f domain.CustomField) (domain.CustomField, error) {
	out, err := b.store.InsertField(ctx, &f)
	if err != nil {
		return domain.CustomField{}, err
	}
	return *out, nil
}

func (b fieldBackend) Update(ctx context.Context, id string, patch map[string]any) error {
	return b.store.UpdateField(ctx, id, patch)
}

func (b fieldBackend) Delete(ctx context.Context, id string) error {
	return b.store.DeleteField(ctx, id)
}

func (b fieldBackend) UpdateWhere(ctx context.Context, ids []string, patch map[string]any) error {
	for _, id := range ids {
		if err := b.store.UpdateField(ctx, id, patch); err != nil {
			return err
		}
	}
	return nil
}

func (b fieldBackend) DeleteWhere(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := b.store.DeleteField(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ruleBackend adapts port.ScoringStore.
type ruleBackend struct {
	store port.ScoringStore
}

func (b ruleBackend) List(ctx context.Context) ([]domain.ScoringRule, error) {
	return b.store.ListRules(ctx)
}

func (b ruleBackend) Insert(ctx context.Context, r domain.ScoringRule) (domain.ScoringRule, error) {
	out, err := b.store.InsertRule(ctx, &r)
	if err != nil {
		return domain.ScoringRule{}, err
	}
	return *out, nil
}

func (b ruleBackend) Update(ctx context.Context, id string, patch map[string]any) error {
	return b.store.UpdateRule(ctx, id, patch)
}

func (b ruleBackend) Delete(ctx context.Context, id string) error {
	return b.store.DeleteRule(ctx, id)
}

func (b ruleBackend) UpdateWhere(ctx context.Context, ids []string, patch map[string]any) error {
	for _, id := range ids {
		if err := b.store.UpdateRule(ctx, id, patch); err != nil {
			return err
		}
	}
	return nil
}

func (b ruleBackend) DeleteWhere(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := b.store.DeleteRule(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
