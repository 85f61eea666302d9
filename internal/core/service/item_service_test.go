package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/appforge/data-platform/internal/core/domain"
	"github.com/appforge/data-platform/internal/core/policy"
	"github.com/appforge/data-platform/internal/core/ports"
)

// --- stubs ---

// stubRegistry is a CollectionService that hands out pre-seeded collections
// and lazily fabricates unknown ones with default settings.
type stubRegistry struct {
	byName map[string]*domain.Collection
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{byName: make(map[string]*domain.Collection)}
}

func (r *stubRegistry) seed(name string, schema []domain.FieldDef, settings domain.CollectionSettings) *domain.Collection {
	col := &domain.Collection{
		ID:        "col_" + name,
		TenantID:  "app_1",
		Name:      name,
		Schema:    schema,
		Settings:  settings,
		CreatedAt: time.Now().UTC(),
	}
	r.byName[name] = col
	return col
}

func (r *stubRegistry) GetOrCreate(_ context.Context, _, name string) (*domain.Collection, error) {
	if !domain.ValidCollectionName(name) {
		return nil, domain.NewValidation("invalid collection name")
	}
	if col, ok := r.byName[name]; ok {
		return col, nil
	}
	return r.seed(name, nil, domain.CollectionSettings{}), nil
}

func (r *stubRegistry) UpdateSchema(_ context.Context, in ports.UpdateSchemaInput) (*domain.Collection, error) {
	col, ok := r.byName[in.Name]
	if !ok {
		return nil, domain.NewNotFound("collection")
	}
	col.Schema = in.Schema
	return col, nil
}

func (r *stubRegistry) List(_ context.Context, _ string) ([]*domain.Collection, error) {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*domain.Collection, 0, len(names))
	for _, name := range names {
		out = append(out, r.byName[name])
	}
	return out, nil
}

// stubItemRepo keeps items in a map and mirrors the adapter's scoping
// rules: archived rows are invisible to reads, owner scoping with an empty
// owner matches nothing.
type stubItemRepo struct {
	items map[string]*domain.Item
}

func newStubItemRepo() *stubItemRepo {
	return &stubItemRepo{items: make(map[string]*domain.Item)}
}

func cloneItem(it *domain.Item) *domain.Item {
	clone := *it
	clone.Data = it.Data.Merge(nil)
	return &clone
}

func (r *stubItemRepo) matches(it *domain.Item, tenantID, collectionID, ownerID string, ownerOnly bool) bool {
	if it.TenantID != tenantID || it.CollectionID != collectionID || it.IsArchived {
		return false
	}
	if ownerOnly && (ownerID == "" || it.OwnerID != ownerID) {
		return false
	}
	return true
}

func (r *stubItemRepo) Insert(_ context.Context, item *domain.Item) error {
	r.items[item.ID] = cloneItem(item)
	return nil
}

func (r *stubItemRepo) FindByID(_ context.Context, tenantID, collectionID, id, ownerID string, ownerOnly bool) (*domain.Item, error) {
	it, ok := r.items[id]
	if !ok || !r.matches(it, tenantID, collectionID, ownerID, ownerOnly) {
		return nil, domain.NewNotFound("item")
	}
	return cloneItem(it), nil
}

func (r *stubItemRepo) List(_ context.Context, q ports.ItemQuery) ([]*domain.Item, int64, error) {
	var all []*domain.Item
	for _, it := range r.items {
		if !r.matches(it, q.TenantID, q.CollectionID, q.OwnerID, q.OwnerOnly) {
			continue
		}
		match := true
		for key, want := range q.Filters {
			got, ok := it.Data[key].(string)
			if !ok || got != want {
				match = false
				break
			}
		}
		if match {
			all = append(all, cloneItem(it))
		}
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i].CreatedAt, all[j].CreatedAt
		if q.Desc {
			return a.After(b)
		}
		return a.Before(b)
	})

	total := int64(len(all))
	if q.Offset >= len(all) {
		return nil, total, nil
	}
	end := q.Offset + q.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[q.Offset:end], total, nil
}

func (r *stubItemRepo) UpdateData(_ context.Context, tenantID, collectionID, id, ownerID string, ownerOnly bool, upd ports.ItemUpdate) (*domain.Item, error) {
	it, ok := r.items[id]
	if !ok || !r.matches(it, tenantID, collectionID, ownerID, ownerOnly) {
		return nil, domain.NewNotFound("item")
	}
	it.Data = upd.Data
	if upd.SetSortOrder {
		it.SortOrder = upd.SortOrder
	}
	it.UpdatedAt = time.Now().UTC()
	return cloneItem(it), nil
}

func (r *stubItemRepo) Delete(_ context.Context, tenantID, collectionID, id, ownerID string, ownerOnly bool) error {
	it, ok := r.items[id]
	if !ok || !r.matches(it, tenantID, collectionID, ownerID, ownerOnly) {
		return domain.NewNotFound("item")
	}
	delete(r.items, id)
	return nil
}

func (r *stubItemRepo) Exists(_ context.Context, tenantID, collectionID, id string) (bool, error) {
	it, ok := r.items[id]
	return ok && r.matches(it, tenantID, collectionID, "", false), nil
}

func (r *stubItemRepo) Count(_ context.Context, tenantID, collectionID string) (int64, error) {
	var n int64
	for _, it := range r.items {
		if r.matches(it, tenantID, collectionID, "", false) {
			n++
		}
	}
	return n, nil
}

func (r *stubItemRepo) DeleteMany(_ context.Context, tenantID, collectionID string, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		it, ok := r.items[id]
		if ok && it.TenantID == tenantID && it.CollectionID == collectionID {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

func (r *stubItemRepo) ArchiveMany(_ context.Context, tenantID, collectionID string, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		it, ok := r.items[id]
		if ok && it.TenantID == tenantID && it.CollectionID == collectionID && !it.IsArchived {
			it.IsArchived = true
			n++
		}
	}
	return n, nil
}

func (r *stubItemRepo) Stats(_ context.Context, tenantID, collectionID string) (int64, *time.Time, error) {
	var n int64
	var last *time.Time
	for _, it := range r.items {
		if !r.matches(it, tenantID, collectionID, "", false) {
			continue
		}
		n++
		if last == nil || it.UpdatedAt.After(*last) {
			ts := it.UpdatedAt
			last = &ts
		}
	}
	return n, last, nil
}

func newItemFixture() (*ItemService, *stubItemRepo, *stubRegistry, *recordingSink) {
	repo := newStubItemRepo()
	registry := newStubRegistry()
	sink := &recordingSink{}
	svc := NewItemService(repo, registry, sink, zerolog.Nop())
	return svc, repo, registry, sink
}

var asUser = policy.Caller{IdentityID: "u1", Role: domain.RoleUser}

// --- tests ---

func TestItemService_CreateAndGet(t *testing.T) {
	svc, _, registry, _ := newItemFixture()
	ctx := context.Background()
	registry.seed("todos", []domain.FieldDef{
		{Name: "title", Type: domain.FieldText, Required: true},
	}, domain.CollectionSettings{})

	created, err := svc.Create(ctx, "app_1", "todos", domain.Data{"title": "write tests"}, asUser)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID == "" || created.OwnerID != "u1" {
		t.Fatalf("unexpected item: %+v", created)
	}

	got, err := svc.Get(ctx, "app_1", "todos", created.ID, asUser)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Data["title"] != "write tests" {
		t.Fatalf("round trip lost data: %+v", got.Data)
	}
}

func TestItemService_Create_SchemaViolation(t *testing.T) {
	svc, repo, registry, _ := newItemFixture()
	ctx := context.Background()
	registry.seed("todos", []domain.FieldDef{
		{Name: "title", Type: domain.FieldText, Required: true},
	}, domain.CollectionSettings{})

	_, err := svc.Create(ctx, "app_1", "todos", domain.Data{"other": 1}, asUser)
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if len(repo.items) != 0 {
		t.Fatal("a rejected create must not persist anything")
	}
}

func TestItemService_Create_AdminWriteOnly(t *testing.T) {
	svc, _, registry, _ := newItemFixture()
	ctx := context.Background()
	registry.seed("config", nil, domain.CollectionSettings{AdminWriteOnly: true})

	if _, err := svc.Create(ctx, "app_1", "config", domain.Data{"k": "v"}, asUser); domain.KindOf(err) != domain.KindForbidden {
		t.Fatalf("expected FORBIDDEN for non-admin, got %v", err)
	}
	admin := policy.Caller{IdentityID: "a1", Role: domain.RoleAdmin}
	if _, err := svc.Create(ctx, "app_1", "config", domain.Data{"k": "v"}, admin); err != nil {
		t.Fatalf("admin write rejected: %v", err)
	}
}

func TestItemService_Update_MergesAndValidatesResult(t *testing.T) {
	svc, _, registry, _ := newItemFixture()
	ctx := context.Background()
	registry.seed("todos", []domain.FieldDef{
		{Name: "title", Type: domain.FieldText, Required: true},
		{Name: "done", Type: domain.FieldBoolean},
	}, domain.CollectionSettings{})

	created, err := svc.Create(ctx, "app_1", "todos", domain.Data{"title": "a", "done": false}, asUser)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	updated, err := svc.Update(ctx, "app_1", "todos", created.ID, domain.Data{"done": true}, asUser)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Data["title"] != "a" || updated.Data["done"] != true {
		t.Fatalf("merge lost fields: %+v", updated.Data)
	}

	// Clearing a required field through the merge must fail on the merged
	// document even though the delta alone looks harmless.
	if _, err := svc.Update(ctx, "app_1", "todos", created.ID, domain.Data{"title": ""}, asUser); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestItemService_OwnerWriteScoping(t *testing.T) {
	svc, _, registry, _ := newItemFixture()
	ctx := context.Background()
	registry.seed("notes", nil, domain.CollectionSettings{OwnerWriteOnly: true})

	mine, err := svc.Create(ctx, "app_1", "notes", domain.Data{"body": "mine"}, asUser)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	other := policy.Caller{IdentityID: "u2", Role: domain.RoleUser}
	if _, err := svc.Update(ctx, "app_1", "notes", mine.ID, domain.Data{"body": "theirs"}, other); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("a foreign row must look absent, got %v", err)
	}
	if err := svc.Delete(ctx, "app_1", "notes", mine.ID, other); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("a foreign delete must look absent, got %v", err)
	}

	editor := policy.Caller{IdentityID: "e1", Role: domain.RoleEditor}
	if _, err := svc.Update(ctx, "app_1", "notes", mine.ID, domain.Data{"body": "edited"}, editor); err != nil {
		t.Fatalf("editor should bypass owner scoping: %v", err)
	}
}

func TestItemService_List_OwnerReadScoping(t *testing.T) {
	svc, _, registry, _ := newItemFixture()
	ctx := context.Background()
	registry.seed("orders", nil, domain.CollectionSettings{OwnerReadOnly: true})

	if _, err := svc.Create(ctx, "app_1", "orders", domain.Data{"n": "1"}, asUser); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	other := policy.Caller{IdentityID: "u2", Role: domain.RoleUser}
	if _, err := svc.Create(ctx, "app_1", "orders", domain.Data{"n": "2"}, other); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	res, err := svc.List(ctx, ports.ListItemsInput{TenantID: "app_1", Collection: "orders", Caller: asUser})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if res.Total != 1 || len(res.Items) != 1 || res.Items[0].OwnerID != "u1" {
		t.Fatalf("owner scoping failed: %+v", res)
	}

	// Anonymous sees an empty set, not an error.
	res, err = svc.List(ctx, ports.ListItemsInput{TenantID: "app_1", Collection: "orders", Caller: policy.Anonymous})
	if err != nil {
		t.Fatalf("anonymous list returned error: %v", err)
	}
	if res.Total != 0 || len(res.Items) != 0 {
		t.Fatalf("anonymous caller should see nothing: %+v", res)
	}
}

func TestItemService_List_PaginationAndValidation(t *testing.T) {
	svc, _, registry, _ := newItemFixture()
	ctx := context.Background()
	registry.seed("rows", nil, domain.CollectionSettings{})

	for i := 0; i < 5; i++ {
		if _, err := svc.Create(ctx, "app_1", "rows", domain.Data{"i": float64(i)}, asUser); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	res, err := svc.List(ctx, ports.ListItemsInput{TenantID: "app_1", Collection: "rows", Limit: 2, Caller: asUser})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if res.Total != 5 || len(res.Items) != 2 || !res.HasMore {
		t.Fatalf("unexpected first page: total=%d len=%d hasMore=%v", res.Total, len(res.Items), res.HasMore)
	}

	res, err = svc.List(ctx, ports.ListItemsInput{TenantID: "app_1", Collection: "rows", Limit: 2, Offset: 4, Caller: asUser})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(res.Items) != 1 || res.HasMore {
		t.Fatalf("unexpected last page: len=%d hasMore=%v", len(res.Items), res.HasMore)
	}

	if _, err := svc.List(ctx, ports.ListItemsInput{TenantID: "app_1", Collection: "rows", OrderBy: "data.evil", Caller: asUser}); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("bad order field should be VALIDATION_ERROR, got %v", err)
	}
	if _, err := svc.List(ctx, ports.ListItemsInput{
		TenantID: "app_1", Collection: "rows", Caller: asUser,
		Filters: map[string]string{"$where": "1"},
	}); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("unsafe filter key should be VALIDATION_ERROR, got %v", err)
	}
}

func TestItemService_List_Filters(t *testing.T) {
	svc, _, registry, _ := newItemFixture()
	ctx := context.Background()
	registry.seed("tasks", nil, domain.CollectionSettings{})

	for _, state := range []string{"open", "open", "closed"} {
		if _, err := svc.Create(ctx, "app_1", "tasks", domain.Data{"state": state}, asUser); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	res, err := svc.List(ctx, ports.ListItemsInput{
		TenantID: "app_1", Collection: "tasks", Caller: asUser,
		Filters: map[string]string{"state": "open"},
	})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("expected 2 open tasks, got %d", res.Total)
	}
}

func TestItemService_SortOrderIsLiftedFromPayload(t *testing.T) {
	svc, _, registry, _ := newItemFixture()
	ctx := context.Background()
	registry.seed("rows", nil, domain.CollectionSettings{})

	created, err := svc.Create(ctx, "app_1", "rows", domain.Data{"n": "a", "sort_order": float64(2)}, asUser)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.SortOrder == nil || *created.SortOrder != 2 {
		t.Fatalf("sort order not lifted into metadata: %+v", created)
	}
	if _, ok := created.Data["sort_order"]; ok {
		t.Fatalf("reserved key should not stay in data: %+v", created.Data)
	}

	updated, err := svc.Update(ctx, "app_1", "rows", created.ID, domain.Data{"sort_order": float64(7)}, asUser)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.SortOrder == nil || *updated.SortOrder != 7 {
		t.Fatalf("sort order not updated: %+v", updated)
	}
	if updated.Data["n"] != "a" {
		t.Fatalf("unrelated data lost: %+v", updated.Data)
	}

	// Null clears the stored position.
	updated, err = svc.Update(ctx, "app_1", "rows", created.ID, domain.Data{"sort_order": nil}, asUser)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.SortOrder != nil {
		t.Fatalf("null should clear the sort order, got %v", *updated.SortOrder)
	}

	if _, err := svc.Create(ctx, "app_1", "rows", domain.Data{"sort_order": "first"}, asUser); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("non-numeric sort order should be VALIDATION_ERROR, got %v", err)
	}
}

func TestItemService_Delete_MissingIsNotFound(t *testing.T) {
	svc, _, registry, _ := newItemFixture()
	ctx := context.Background()
	registry.seed("rows", nil, domain.CollectionSettings{})

	if err := svc.Delete(ctx, "app_1", "rows", "missing", asUser); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestItemService_RelationChecks(t *testing.T) {
	svc, _, registry, _ := newItemFixture()
	ctx := context.Background()
	registry.seed("authors", nil, domain.CollectionSettings{})
	registry.seed("books", []domain.FieldDef{
		{Name: "author_id", Type: domain.FieldText, Relation: &domain.Relation{Collection: "authors"}},
	}, domain.CollectionSettings{})

	author, err := svc.Create(ctx, "app_1", "authors", domain.Data{"name": "ann"}, asUser)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := svc.Create(ctx, "app_1", "books", domain.Data{"author_id": author.ID}, asUser); err != nil {
		t.Fatalf("valid relation rejected: %v", err)
	}
	if _, err := svc.Create(ctx, "app_1", "books", domain.Data{"author_id": "ghost"}, asUser); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("dangling relation should be VALIDATION_ERROR, got %v", err)
	}
	if _, err := svc.Create(ctx, "app_1", "books", domain.Data{"author_id": 42}, asUser); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("non-string relation should be VALIDATION_ERROR, got %v", err)
	}
}

func TestItemService_BulkArchiveIsIdempotent(t *testing.T) {
	svc, _, registry, sink := newItemFixture()
	ctx := context.Background()
	registry.seed("rows", nil, domain.CollectionSettings{})

	var ids []string
	for i := 0; i < 3; i++ {
		it, err := svc.Create(ctx, "app_1", "rows", domain.Data{"n": float64(i)}, asUser)
		if err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		ids = append(ids, it.ID)
	}

	admin := policy.Caller{IdentityID: "a1", Role: domain.RoleAdmin}
	affected, err := svc.BulkArchive(ctx, "app_1", "rows", ids, admin)
	if err != nil {
		t.Fatalf("BulkArchive returned error: %v", err)
	}
	if affected != 3 {
		t.Fatalf("expected 3 archived, got %d", affected)
	}

	// Archived rows disappear from reads and counts.
	n, err := svc.Count(ctx, "app_1", "rows")
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if n != 0 {
		t.Fatalf("archived rows should not be counted, got %d", n)
	}

	affected, err = svc.BulkArchive(ctx, "app_1", "rows", ids, admin)
	if err != nil {
		t.Fatalf("BulkArchive returned error: %v", err)
	}
	if affected != 0 {
		t.Fatalf("second archive should affect nothing, got %d", affected)
	}

	if len(sink.entries) != 2 || sink.entries[0].Action != "bulk_archive" {
		t.Fatalf("expected audited bulk operations, got %+v", sink.entries)
	}
}

func TestItemService_BulkDelete(t *testing.T) {
	svc, repo, registry, _ := newItemFixture()
	ctx := context.Background()
	registry.seed("rows", nil, domain.CollectionSettings{})

	it, err := svc.Create(ctx, "app_1", "rows", domain.Data{"n": "x"}, asUser)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	admin := policy.Caller{IdentityID: "a1", Role: domain.RoleAdmin}
	affected, err := svc.BulkDelete(ctx, "app_1", "rows", []string{it.ID, "missing"}, admin)
	if err != nil {
		t.Fatalf("BulkDelete returned error: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 deleted, got %d", affected)
	}
	if len(repo.items) != 0 {
		t.Fatal("row should be gone")
	}
}

func TestItemService_GetStats(t *testing.T) {
	svc, _, registry, _ := newItemFixture()
	ctx := context.Background()
	registry.seed("a_rows", nil, domain.CollectionSettings{})
	registry.seed("b_rows", nil, domain.CollectionSettings{})

	if _, err := svc.Create(ctx, "app_1", "a_rows", domain.Data{"x": "1"}, asUser); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	stats, err := svc.GetStats(ctx, "app_1")
	if err != nil {
		t.Fatalf("GetStats returned error: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected stats for both collections, got %+v", stats)
	}
	for _, st := range stats {
		switch st.Name {
		case "a_rows":
			if st.Count != 1 || st.LastUpdated == nil {
				t.Fatalf("unexpected a_rows stats: %+v", st)
			}
		case "b_rows":
			if st.Count != 0 || st.LastUpdated != nil {
				t.Fatalf("unexpected b_rows stats: %+v", st)
			}
		}
	}
}
