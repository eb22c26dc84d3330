package buildinfo

// Set with -ldflags at build time, e.g.
// go build -ldflags "-X github.com/gilby125/cs509-reservation-client/pkg/buildinfo.Version=v1.0.0"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
	}
}
