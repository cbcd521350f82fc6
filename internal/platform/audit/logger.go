package audit

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Entry is one audit record: who did what to which resource, in which
// organization.
type Entry struct {
	OrganizationID string
	ActorID        string
	Action         string
	ResourceType   string
	ResourceID     string
	Metadata       map[string]interface{}
	IPAddress      string
	UserAgent      string
}

type Logger struct {
	db *sql.DB
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db}
}

// Log persists the entry asynchronously. Auditing is best-effort: a
// failed insert is logged but never fails the calling operation.
func (l *Logger) Log(entry Entry) {
	metaJSON, _ := json.Marshal(entry.Metadata)
	if entry.Metadata == nil {
		metaJSON = []byte("{}")
	}

	id := "audit_" + uuid.NewString()
	createdAt := time.Now().Unix()

	go func() {
		_, err := l.db.Exec(`
			INSERT INTO audit_logs (id, organization_id, user_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, entry.OrganizationID, entry.ActorID, entry.Action, entry.ResourceType,
			entry.ResourceID, string(metaJSON), entry.IPAddress, entry.UserAgent, createdAt)
		if err != nil {
			log.Error().Err(err).Str("action", entry.Action).Msg("audit insert failed")
		}
	}()
}
