package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-sync/pkg/syncjob"
)

// Branding defaults applied when a vendor carries no branding metadata.
const (
	defaultPrimaryColor = "#111111"
	defaultLogoURL      = ""
)

// Collection names on the content side.
const (
	CollectionProductContent = "product-content"
	CollectionPage           = "page"
	CollectionStoreBranding  = "store-branding"
	CollectionStore          = "store"
	CollectionTenantProfile  = "tenant-profile"
	CollectionOrderLog       = "order-log"
)

// Collection names on the commerce side.
const (
	CollectionProduct = "product"
	CollectionVendor  = "vendor"
	CollectionTenant  = "tenant"
	CollectionOrder   = "order"
)

// Mappings holds every directional field-mapping function. Each one is
// an upsert against the target system keyed by the foreign-system id,
// except the order path which is append-only.
type Mappings struct {
	commerce SystemClient
	content  SystemClient
	clock    func() time.Time
}

func NewMappings(commerce, content SystemClient) *Mappings {
	return &Mappings{commerce: commerce, content: content, clock: time.Now}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func strOr(doc map[string]any, key, fallback string) string {
	if s := str(doc[key]); s != "" {
		return s
	}
	return fallback
}

// upsert looks the target record up by its foreign-id linkage field,
// updates it when found, creates it otherwise, and stamps the sync
// bookkeeping fields either way.
func (m *Mappings) upsert(ctx context.Context, client SystemClient, collection, foreignField string, job *syncjob.Job, fields map[string]any) (Result, error) {
	foreignID := job.SourceDocID
	if foreignID == "" {
		return Result{}, fmt.Errorf("%s upsert needs a %s value", collection, foreignField)
	}

	doc := copyDoc(fields)
	doc[foreignField] = foreignID
	if job.TenantID != "" {
		doc["tenantId"] = job.TenantID
	}
	doc[FieldLastSyncAt] = m.clock().UTC()
	doc[FieldSyncStatus] = SyncStatusSynced

	matches, err := client.Find(ctx, collection, map[string]any{foreignField: foreignID})
	if err != nil {
		return Result{}, err
	}

	if len(matches) > 0 {
		id := str(matches[0]["_id"])
		if err := client.Update(ctx, collection, id, doc); err != nil {
			return Result{}, err
		}
		return Result{Action: ActionUpdated, ID: id}, nil
	}

	id, err := client.Create(ctx, collection, doc)
	if err != nil {
		return Result{}, err
	}
	return Result{Action: ActionCreated, ID: id}, nil
}

// --- content -> commerce ---

func (m *Mappings) ProductContentToCommerce(ctx context.Context, job *syncjob.Job, source map[string]any) (Result, error) {
	return m.upsert(ctx, m.commerce, CollectionProduct, FieldContentSyncID, job, map[string]any{
		"title":       strOr(source, "title", ""),
		"handle":      strOr(source, "handle", ""),
		"description": strOr(source, "description", ""),
	})
}

func (m *Mappings) PageToCommerce(ctx context.Context, job *syncjob.Job, source map[string]any) (Result, error) {
	return m.upsert(ctx, m.commerce, CollectionPage, FieldContentSyncID, job, map[string]any{
		"title":  strOr(source, "title", ""),
		"handle": strOr(source, "handle", ""),
		"body":   strOr(source, "body", ""),
	})
}

func (m *Mappings) StoreBrandingToCommerce(ctx context.Context, job *syncjob.Job, source map[string]any) (Result, error) {
	return m.upsert(ctx, m.commerce, CollectionStore, FieldContentSyncID, job, map[string]any{
		"primaryColor": strOr(source, "primaryColor", defaultPrimaryColor),
		"logoUrl":      strOr(source, "logoUrl", defaultLogoURL),
		"businessName": strOr(source, "businessName", ""),
	})
}

// --- commerce -> content ---

// ProjectProduct maps a commerce product snapshot to its content-side
// fields. SEO fields fall back to the product's own title and
// description when no override exists.
func ProjectProduct(source map[string]any) map[string]any {
	title := strOr(source, "title", "")
	description := strOr(source, "description", "")
	return map[string]any{
		"title":          title,
		"handle":         strOr(source, "handle", ""),
		"description":    description,
		"seoTitle":       strOr(source, "seoTitle", title),
		"seoDescription": strOr(source, "seoDescription", description),
	}
}

// ProjectVendor maps a commerce vendor to its content-side store:
// identity and active flag from the vendor itself, branding from its
// metadata with defaults.
func ProjectVendor(source map[string]any) map[string]any {
	branding, _ := source["metadata"].(map[string]any)
	if branding == nil {
		branding = map[string]any{}
	}
	return map[string]any{
		"businessName": strOr(source, "businessName", ""),
		"handle":       strOr(source, "handle", ""),
		"active":       str(source["status"]) == "active",
		"primaryColor": strOr(branding, "primaryColor", defaultPrimaryColor),
		"logoUrl":      strOr(branding, "logoUrl", defaultLogoURL),
	}
}

// ProjectTenant maps a commerce tenant to its content-side profile.
func ProjectTenant(source map[string]any) map[string]any {
	return map[string]any{
		"name":         strOr(source, "name", ""),
		"plan":         strOr(source, "plan", ""),
		"contactEmail": strOr(source, "contactEmail", ""),
	}
}

func (m *Mappings) ProductToContent(ctx context.Context, job *syncjob.Job, source map[string]any) (Result, error) {
	return m.upsert(ctx, m.content, CollectionProductContent, FieldCommerceSyncID, job, ProjectProduct(source))
}

func (m *Mappings) VendorToContent(ctx context.Context, job *syncjob.Job, source map[string]any) (Result, error) {
	return m.upsert(ctx, m.content, CollectionStore, FieldCommerceSyncID, job, ProjectVendor(source))
}

func (m *Mappings) TenantToContent(ctx context.Context, job *syncjob.Job, source map[string]any) (Result, error) {
	return m.upsert(ctx, m.content, CollectionTenantProfile, FieldCommerceSyncID, job, ProjectTenant(source))
}

// OrderToContent appends an immutable audit entry capturing the order's
// status transition. Never an upsert: every invocation adds a new row.
func (m *Mappings) OrderToContent(ctx context.Context, job *syncjob.Job, source map[string]any) (Result, error) {
	itemCount := 0
	if items, ok := source["items"].([]any); ok {
		itemCount = len(items)
	}

	id, err := m.content.Create(ctx, CollectionOrderLog, map[string]any{
		FieldCommerceSyncID: job.SourceDocID,
		"status":            strOr(source, "status", ""),
		"total":             source["total"],
		"currency":          strOr(source, "currency", ""),
		"itemCount":         itemCount,
		"recordedAt":        m.clock().UTC(),
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Action: ActionCreated, ID: id}, nil
}
