package state

import (
	"strings"
	"sync"

	"github.com/thunfischtoast/gitlab-visualizer/internal/api"
)

const (
	// ConnectionKey holds the non-secret connection data
	ConnectionKey = "gitlab-connection"

	// CredentialsKey holds the tokens under their own key in the session
	// store, which may or may not be the settings store.
	CredentialsKey = "gitlab-credentials"
)

// Connection is the non-secret part of the stored GitLab connection
type Connection struct {
	GitLabURL  string         `json:"gitlab_url"`
	AuthMethod api.AuthMethod `json:"auth_method"`
	ClientID   string         `json:"client_id,omitempty"`
}

// Credentials are the tokens of the stored GitLab connection
type Credentials struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ConnectionStore persists the GitLab connection across runs
type ConnectionStore struct {
	mu       sync.Mutex
	settings Storage
	session  Storage

	connection  Connection
	credentials Credentials
}

// NewConnectionStore loads the stored connection, if any
func NewConnectionStore(settings, session Storage) *ConnectionStore {
	s := &ConnectionStore{settings: settings, session: session}
	if conn, ok := load[Connection](settings, ConnectionKey); ok {
		s.connection = conn
	}
	if creds, ok := load[Credentials](session, CredentialsKey); ok {
		s.credentials = creds
	}
	return s
}

// Connection returns the stored connection data
func (s *ConnectionStore) Connection() Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connection
}

// Credentials returns the stored tokens
func (s *ConnectionStore) Credentials() Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credentials
}

// IsConnected reports whether both a URL and a token are stored
func (s *ConnectionStore) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connection.GitLabURL != "" && s.credentials.Token != ""
}

// SetConnection stores a new connection, replacing the previous one
func (s *ConnectionStore) SetConnection(conn Connection, creds Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn.GitLabURL = strings.TrimRight(conn.GitLabURL, "/")
	if conn.AuthMethod == "" {
		conn.AuthMethod = api.AuthPAT
	}
	s.connection = conn
	s.credentials = creds
	save(s.settings, ConnectionKey, conn)
	save(s.session, CredentialsKey, creds)
}

// UpdateTokens stores the token pair issued by an OAuth refresh. An empty
// refresh token keeps the current one.
func (s *ConnectionStore) UpdateTokens(token, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.credentials.Token = token
	if refreshToken != "" {
		s.credentials.RefreshToken = refreshToken
	}
	save(s.session, CredentialsKey, s.credentials)
}

// Disconnect removes the stored connection and tokens
func (s *ConnectionStore) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connection = Connection{}
	s.credentials = Credentials{}
	remove(s.settings, ConnectionKey)
	remove(s.session, CredentialsKey)
}

// ClientConfig builds the API client configuration for the stored
// connection. OAuth connections with a refresh token get a refresher that
// writes rotated tokens back to the store.
func (s *ConnectionStore) ClientConfig() api.ClientConfig {
	conn := s.Connection()
	creds := s.Credentials()

	config := api.ClientConfig{
		BaseURL:    conn.GitLabURL,
		Token:      creds.Token,
		AuthMethod: conn.AuthMethod,
	}
	if conn.AuthMethod == api.AuthOAuth && creds.RefreshToken != "" {
		config.Refresh = api.NewOAuthRefresher(api.OAuthConfig{
			BaseURL:      conn.GitLabURL,
			ClientID:     conn.ClientID,
			RefreshToken: creds.RefreshToken,
		}, s.UpdateTokens)
	}
	return config
}
