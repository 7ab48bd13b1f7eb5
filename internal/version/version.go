package version

// Version is the current release of link-oracle
const Version = "0.1.0"
