// Package credentials stores wiki logins in credentials.toml inside the
// .wikifetch/ directory.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/wikifetch/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// Environment variables that override stored credentials for every site.
const (
	EnvUsername = "WIKIFETCH_WIKI_USERNAME"
	EnvPassword = "WIKIFETCH_WIKI_PASSWORD"
)

// Manager manages reading and writing credentials.toml in the .wikifetch/ directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .wikifetch/ directory; otherwise the standard dotdir resolution applies.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{}
	mgr.ddm = dotdir.NewManager()

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)

	return mgr, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version: currentVersion,
				Sites:   make(map[string]SiteCredential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Sites == nil {
		creds.Sites = make(map[string]SiteCredential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetLogin stores a login for the wiki at apiURL.
func (m *Manager) SetLogin(apiURL, username, password string) error {
	key, err := SiteKey(apiURL)
	if err != nil {
		return err
	}
	if username == "" {
		return errors.New("username is required")
	}

	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Sites[key] = SiteCredential{Username: username, Password: password}

	return m.Save(creds)
}

// GetLogin returns the login for the wiki at apiURL. The environment
// variables EnvUsername and EnvPassword win over the file. ok is false when
// no login is known and the wiki should be used anonymously.
func (m *Manager) GetLogin(apiURL string) (SiteCredential, bool, error) {
	if user := os.Getenv(EnvUsername); user != "" {
		return SiteCredential{Username: user, Password: os.Getenv(EnvPassword)}, true, nil
	}

	key, err := SiteKey(apiURL)
	if err != nil {
		return SiteCredential{}, false, err
	}

	creds, err := m.Load()
	if err != nil {
		return SiteCredential{}, false, err
	}

	sc, ok := creds.Sites[key]
	return sc, ok, nil
}

// RemoveLogin deletes the stored login for the wiki at apiURL.
func (m *Manager) RemoveLogin(apiURL string) error {
	key, err := SiteKey(apiURL)
	if err != nil {
		return err
	}

	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Sites, key)

	return m.Save(creds)
}

// ListSites returns the API URLs that have stored logins.
func (m *Manager) ListSites() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	sites := make([]string, 0, len(creds.Sites))
	for name := range creds.Sites {
		sites = append(sites, name)
	}

	sort.Strings(sites)

	return sites, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// SiteKey normalizes an api.php URL into the key credentials are stored
// under: lower-cased scheme and host, no trailing slash, no query.
func SiteKey(apiURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(apiURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid wiki api url: %q", apiURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String(), nil
}
