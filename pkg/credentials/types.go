package credentials

// Credentials represents the stored wiki logins in credentials.toml.
type Credentials struct {
	Version int                       `toml:"version"`
	Sites   map[string]SiteCredential `toml:"sites"`
}

// SiteCredential holds the login for a single wiki, keyed by its api.php URL.
type SiteCredential struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}
