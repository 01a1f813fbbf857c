package imapkit

// QuotaResourceType is a QUOTA resource type, RFC 9208 section 5.
type QuotaResourceType string

const (
	QuotaResourceStorage           QuotaResourceType = "STORAGE"
	QuotaResourceMessage           QuotaResourceType = "MESSAGE"
	QuotaResourceMailbox           QuotaResourceType = "MAILBOX"
	QuotaResourceAnnotationStorage QuotaResourceType = "ANNOTATION-STORAGE"
)

// QuotaResourceUsage is the usage/limit pair for one resource within a
// quota root.
type QuotaResourceUsage struct {
	Usage int64
	Limit int64
}

// Quota is one QUOTA response: a root name plus its resource usage.
type Quota struct {
	Root      string
	Resources map[QuotaResourceType]QuotaResourceUsage
}

// QuotaRoot is one mailbox's associated quota root names, returned by
// GETQUOTAROOT alongside a Quota per root.
type QuotaRoot struct {
	Mailbox string
	Roots   []string
}
