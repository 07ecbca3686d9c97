package version

// Version is the running application version. Release builds override it with
// -ldflags "-X github.com/enchant97/web-portal/internal/version.Version=x.y.z".
var Version = "2.1.0"

// Commit is the git revision the binary was built from.
var Commit = "none"
