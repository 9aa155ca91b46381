package version

// Version is the current diskwise release.
const Version = "0.9.0"
