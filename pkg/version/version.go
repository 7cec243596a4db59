package version

const (
	AppName = "idlewatch"
	Current = "0.3.1"
)
