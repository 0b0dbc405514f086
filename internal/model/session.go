package model

// Статусы сессии. Запись остаётся в Redis после revoke (для аудита и списка устройств),
// пока не истечёт TTL.
const (
	SessionStatusActive  = "active"
	SessionStatusRevoked = "revoked"
)

// Session — серверная запись одного логина. Хранится в Redis как JSON
// по ключу auth:session:{session_id}; все таймстемпы — ISO-8601 строки (UTC).
type Session struct {
	SessionID     string  `json:"session_id"`
	UserID        string  `json:"user_id"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
	LastSeen      string  `json:"last_seen"`
	AccessJTI     string  `json:"access_jti"`
	RefreshJTI    string  `json:"refresh_jti"`
	IP            *string `json:"ip"`
	UserAgent     *string `json:"user_agent"`
	RevokedAt     string  `json:"revoked_at,omitempty"`
	RevokedReason string  `json:"revoked_reason,omitempty"`
}

// SessionInfo — представление сессии для GET /auth/sessions.
type SessionInfo struct {
	SessionID string  `json:"session_id"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
	LastSeen  string  `json:"last_seen"`
	IP        *string `json:"ip,omitempty"`
	UserAgent *string `json:"user_agent,omitempty"`
	IsCurrent bool    `json:"is_current"`
}
