package storage

import (
	"context"
	"time"
)

// Status is the registration state a registry reply implies for a domain.
type Status string

const (
	StatusAvailable  Status = "Available"
	StatusRegistered Status = "Registered"
	StatusUnknown    Status = "Unknown"
	StatusError      Status = "Error"
)

// VerificationRecord is the structured outcome of verifying one candidate domain.
// Empty optional fields mean the registry reply did not carry them.
type VerificationRecord struct {
	Domain      string `json:"domain"`
	Status      Status `json:"status"`
	ExpiryDate  string `json:"expiry_date,omitempty"`
	CreatedDate string `json:"created_date,omitempty"`
	Registrar   string `json:"registrar,omitempty"`
	RawExcerpt  string `json:"raw_excerpt"`

	// Fields below are stamped by the verifier after classification.
	ID        string        `json:"id,omitempty"`
	Source    string        `json:"source,omitempty"`
	Handle    string        `json:"handle,omitempty"`
	OriginURL string        `json:"origin_url,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"` // e.g. "timeout", "connection_refused"
	CheckedAt time.Time     `json:"checked_at"`
	Duration  time.Duration `json:"duration"`
}

// Filter allows querying for specific VerificationRecords.
type Filter struct {
	Domain string
	Source string
	Status Status
	Since  *time.Time
	Limit  int
	Offset int
}

// Match reports whether r passes the non-paging parts of the filter.
func (f Filter) Match(r *VerificationRecord) bool {
	if f.Domain != "" && r.Domain != f.Domain {
		return false
	}
	if f.Source != "" && r.Source != f.Source {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Since != nil && r.CheckedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page applies newest-first ordering, Offset and Limit to records stored oldest-first.
func (f Filter) Page(records []*VerificationRecord) []*VerificationRecord {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return []*VerificationRecord{}
		}
		records = records[f.Offset:]
	}

	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}

	return records
}

// Backend defines the interface for storing and querying verification records.
type Backend interface {
	Save(ctx context.Context, record *VerificationRecord) error
	Query(ctx context.Context, filter Filter) ([]*VerificationRecord, error)
	Close() error
}
