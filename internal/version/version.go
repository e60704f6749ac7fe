package version

// AppVersion is overridden at build time via -ldflags "-X termhost/internal/version.AppVersion=...".
var AppVersion = "dev"
