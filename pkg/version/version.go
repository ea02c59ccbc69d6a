package version

// Version is the current version of the analysis engine
const Version = "0.3.1"

// UserAgent returns the identification string for outbound messages
func UserAgent() string {
	return "gutpulse/" + Version
}
