package session

type State string

const (
	StateIdle          State = "idle"
	StateStarting      State = "starting"
	StateActive        State = "active"
	StateDisconnecting State = "disconnecting"
	StateError         State = "error"
)

type Role string

const (
	RoleNone   Role = ""
	RoleServer Role = "server"
	RoleClient Role = "client"
)

// Status состояние сессии. Err заполнен только в StateError.
type Status struct {
	State     State
	Role      Role
	PeerCount int
	Address   string
	Err       error
}

func (s Status) ErrString() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}
