package domain

import (
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PartnerType string

const (
	PartnerTypeCustomer  PartnerType = "CUSTOMER"
	PartnerTypeSupplier  PartnerType = "SUPPLIER"
	PartnerTypeCarrier   PartnerType = "CARRIER"
	PartnerTypeStrategic PartnerType = "STRATEGIC"
)

type PartnerStatus string

const (
	PartnerStatusActive    PartnerStatus = "ACTIVE"
	PartnerStatusSuspended PartnerStatus = "SUSPENDED"
	PartnerStatusInactive  PartnerStatus = "INACTIVE"
)

type Tier string

const (
	TierStandard  Tier = "STANDARD"
	TierStrategic Tier = "STRATEGIC"
	TierInternal  Tier = "INTERNAL"
)

// RateLimits holds per-window request ceilings. A zero field means "use the tier default".
type RateLimits struct {
	PerMinute int `json:"per_minute,omitempty"`
	PerHour   int `json:"per_hour,omitempty"`
	Burst     int `json:"burst,omitempty"`
}

// Partner is an external organization with gateway access.
type Partner struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"organization_id"`
	Name           string        `json:"name"`
	Type           PartnerType   `json:"type"`
	Status         PartnerStatus `json:"status"`
	Tier           Tier          `json:"tier"`
	RateLimits     *RateLimits   `json:"rate_limits,omitempty"`
	AllowedIPs     []string      `json:"allowed_ips,omitempty"`
	LastActiveAt   *time.Time    `json:"last_active_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (p *Partner) IsActive() bool {
	return p.Status == PartnerStatusActive
}

// AllowsIP reports whether ip may call the gateway on behalf of this partner.
// An empty allow-list is unrestricted. Entries are single addresses or CIDR blocks.
func (p *Partner) AllowsIP(ip string) bool {
	if len(p.AllowedIPs) == 0 {
		return true
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, entry := range p.AllowedIPs {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if prefix, err := netip.ParsePrefix(entry); err == nil && prefix.Contains(addr) {
				return true
			}
			continue
		}
		if allowed, err := netip.ParseAddr(entry); err == nil && allowed.Unmap() == addr {
			return true
		}
	}
	return false
}

const (
	ScopeRFQRead        = "rfq:read"
	ScopeRFQWrite       = "rfq:write"
	ScopeOrdersRead     = "orders:read"
	ScopeOrdersWrite    = "orders:write"
	ScopeShipmentsRead  = "shipments:read"
	ScopeShipmentsWrite = "shipments:write"
	ScopeCatalogWrite   = "catalog:write"
	ScopeDocumentsRead  = "documents:read"
	ScopeDocumentsWrite = "documents:write"
	ScopeWebhooksManage = "webhooks:manage"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderConfirmed     = "order.confirmed"
	EventOrderCancelled     = "order.cancelled"
	EventOrderShipped       = "order.shipped"
	EventOrderDelivered     = "order.delivered"
	EventShipmentCreated    = "shipment.created"
	EventShipmentDispatched = "shipment.dispatched"
	EventShipmentDelivered  = "shipment.delivered"
	EventDocumentIssued     = "document.issued"
	EventRFQQuoted          = "rfq.quoted"

	// EventWebhookTest is sent by the test endpoint to a single subscription.
	EventWebhookTest = "webhook.test"
)

var (
	scopesByType = map[PartnerType][]string{
		PartnerTypeCustomer: {
			ScopeRFQRead, ScopeRFQWrite, ScopeOrdersRead, ScopeShipmentsRead,
			ScopeDocumentsRead, ScopeWebhooksManage,
		},
		PartnerTypeSupplier: {
			ScopeRFQRead, ScopeOrdersRead, ScopeOrdersWrite, ScopeCatalogWrite,
			ScopeDocumentsRead, ScopeDocumentsWrite, ScopeWebhooksManage,
		},
		PartnerTypeCarrier: {
			ScopeShipmentsRead, ScopeShipmentsWrite, ScopeDocumentsRead, ScopeWebhooksManage,
		},
	}

	eventsByType = map[PartnerType][]string{
		PartnerTypeCustomer: {
			EventOrderConfirmed, EventOrderShipped, EventOrderDelivered,
			EventShipmentDelivered, EventDocumentIssued, EventRFQQuoted,
		},
		PartnerTypeSupplier: {
			EventOrderCreated, EventOrderConfirmed, EventOrderCancelled, EventDocumentIssued,
		},
		PartnerTypeCarrier: {
			EventShipmentCreated, EventShipmentDispatched, EventShipmentDelivered,
		},
	}
)

func init() {
	scopesByType[PartnerTypeStrategic] = union(scopesByType)
	eventsByType[PartnerTypeStrategic] = union(eventsByType)
}

func (t PartnerType) IsValid() bool {
	_, ok := scopesByType[t]
	return ok
}

// AllowedScopes returns the scopes a credential of this partner type may be granted.
func AllowedScopes(t PartnerType) []string {
	return slices.Clone(scopesByType[t])
}

// AllowedEvents returns the event types a partner of this type may subscribe to.
func AllowedEvents(t PartnerType) []string {
	return slices.Clone(eventsByType[t])
}

// IsKnownEvent reports whether eventType belongs to any partner type's vocabulary.
func IsKnownEvent(eventType string) bool {
	return slices.Contains(eventsByType[PartnerTypeStrategic], eventType)
}

// DisallowedScopes returns the members of scopes that the partner type may not hold.
func DisallowedScopes(t PartnerType, scopes []string) []string {
	return difference(scopes, scopesByType[t])
}

// DisallowedEvents returns the members of events that the partner type may not subscribe to.
func DisallowedEvents(t PartnerType, events []string) []string {
	return difference(events, eventsByType[t])
}

func difference(items, allowed []string) []string {
	var out []string
	for _, item := range items {
		if !slices.Contains(allowed, item) {
			out = append(out, item)
		}
	}
	return out
}

func union(sets map[PartnerType][]string) []string {
	var out []string
	for _, t := range []PartnerType{PartnerTypeCustomer, PartnerTypeSupplier, PartnerTypeCarrier} {
		for _, v := range sets[t] {
			if !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	return out
}

// PartnerContext is the identity attached to an authenticated request.
type PartnerContext struct {
	PartnerID      uuid.UUID   `json:"partner_id"`
	PartnerType    PartnerType `json:"partner_type"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	Scopes         []string    `json:"scopes"`
	CredentialID   uuid.UUID   `json:"credential_id"`
	Environment    string      `json:"environment"`
}

// HasAnyScope reports whether the context holds at least one of required.
// An empty required set always passes.
func (pc *PartnerContext) HasAnyScope(required ...string) bool {
	if len(required) == 0 {
		return true
	}
	for _, s := range required {
		if slices.Contains(pc.Scopes, s) {
			return true
		}
	}
	return false
}

func (pc *PartnerContext) IsType(types ...PartnerType) bool {
	return slices.Contains(types, pc.PartnerType)
}
