package notify

import "time"

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

func (k Kind) Valid() bool {
	switch k {
	case KindInfo, KindSuccess, KindWarning, KindError:
		return true
	}
	return false
}

// SystemSender is CreatedBy for notifications the engine sends on its own.
const SystemSender = "system"

type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Kind      Kind       `json:"kind"`
	IsGlobal  bool       `json:"is_global"`
	IsRead    bool       `json:"is_read"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// Target selects recipients: a single user, or every active user when Global.
type Target struct {
	UserID string
	Global bool
}

type Message struct {
	Title     string
	Body      string
	Kind      Kind
	CreatedBy string
}

// SendResult lists the rows written. Failed counts recipients whose insert
// failed; those rows are simply missing.
type SendResult struct {
	IDs    []string `json:"ids"`
	Failed int      `json:"failed"`
}

type ListOptions struct {
	Page       int
	Limit      int
	UnreadOnly bool
}

type Page struct {
	Items  []Notification `json:"items"`
	Total  int            `json:"total"`
	Unread int            `json:"unread"`
}

type AdminFilter struct {
	UserID   string
	Kind     Kind
	IsGlobal *bool
	IsRead   *bool
	Page     int
	Limit    int
}
