package datagpt

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/ajayshanks/datagpt.Version=...".
var Version = "0.1.0-dev"
