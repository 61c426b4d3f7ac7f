package domain

import "time"

// Passport is proof that an issuer server granted the holder access. A holder
// has at most one passport per issuer; the (holder_id, issuer_id) pair is
// unique in the store.
type Passport struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	HolderID   string    `bson:"holder_id"     json:"holder_id"`
	IssuerID   string    `bson:"issuer_id"     json:"issuer_id"`
	IssuedAt   time.Time `bson:"issued_at"     json:"issued_at"`
	IssuedByID string    `bson:"issued_by_id"  json:"issued_by_id"`
}

// AcceptancePolicy declares that ServerID admits holders of passports issued
// by IssuerID, optionally granting RoleID on join. Unique per
// (server_id, issuer_id).
type AcceptancePolicy struct {
	ID        string    `bson:"_id,omitempty"     json:"id"`
	ServerID  string    `bson:"server_id"         json:"server_id"`
	IssuerID  string    `bson:"issuer_id"         json:"issuer_id"`
	RoleID    string    `bson:"role_id,omitempty" json:"role_id,omitempty"`
	AddedAt   time.Time `bson:"added_at"          json:"added_at"`
	AddedByID string    `bson:"added_by_id"       json:"added_by_id"`
}

// AutoIssueRule declares that members of ServerID holding TriggerRoleID
// should continuously mirror possession of a passport issued by ServerID.
// Unique per (server_id, trigger_role_id).
type AutoIssueRule struct {
	ID            string    `bson:"_id,omitempty"   json:"id"`
	ServerID      string    `bson:"server_id"       json:"server_id"`
	TriggerRoleID string    `bson:"trigger_role_id" json:"trigger_role_id"`
	CreatedAt     time.Time `bson:"created_at"      json:"created_at"`
	CreatedByID   string    `bson:"created_by_id"   json:"created_by_id"`
}
