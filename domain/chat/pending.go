package chat

type SendStatus int

const (
	SendIdle SendStatus = iota
	SendSending
)

func (s SendStatus) String() string {
	switch s {
	case SendSending:
		return "sending"
	default:
		return "idle"
	}
}

// PendingSend is the local record of a send not yet confirmed persisted.
type PendingSend struct {
	Text   string
	UserID string
	Status SendStatus
}

// Active reports whether the record is still sending on behalf of userID.
func (p *PendingSend) Active(userID string) bool {
	return p != nil && p.Status == SendSending && p.UserID == userID
}
