package context

type Key string

const (
	Principal  Key = "principal"
	Membership Key = "membership"
	Params     Key = "params"
	RequestID  Key = "request_id"
)
