package tls

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/antibyte/linebasic/pkg/configuration"
	"github.com/antibyte/linebasic/pkg/logger"

	"golang.org/x/crypto/acme/autocert"
)

// TLSManager decides how the session server listens: plain HTTP, HTTPS with
// certificate files, or HTTPS with Let's Encrypt certificates.
type TLSManager struct {
	config      TLSConfig
	autocertMgr *autocert.Manager
	tlsConfig   *tls.Config
}

// TLSConfig holds TLS configuration options
type TLSConfig struct {
	EnableTLS          bool
	EnableLetsEncrypt  bool
	Domain             string
	LetsEncryptEmail   string
	CertCacheDir       string
	ForceHTTPSRedirect bool
	CertFile           string
	KeyFile            string
	HTTPPort           string
	HTTPSPort          string
}

// LoadConfig reads the [TLS] section. The plain HTTP port comes from [Server].
func LoadConfig() TLSConfig {
	return TLSConfig{
		EnableTLS:          configuration.GetBool("TLS", "enable_tls", false),
		EnableLetsEncrypt:  configuration.GetBool("TLS", "enable_letsencrypt", false),
		Domain:             configuration.GetString("TLS", "domain", ""),
		LetsEncryptEmail:   configuration.GetString("TLS", "letsencrypt_email", ""),
		CertCacheDir:       configuration.GetString("TLS", "cert_cache_dir", "./certs"),
		ForceHTTPSRedirect: configuration.GetBool("TLS", "force_https_redirect", false),
		CertFile:           configuration.GetString("TLS", "cert_file", "./certs/server.crt"),
		KeyFile:            configuration.GetString("TLS", "key_file", "./certs/server.key"),
		HTTPPort:           configuration.GetString("Server", "http_port", "8080"),
		HTTPSPort:          configuration.GetString("TLS", "https_port", "8443"),
	}
}

// NewTLSManager validates config and prepares certificates when TLS is on.
func NewTLSManager(config TLSConfig) (*TLSManager, error) {
	manager := &TLSManager{config: config}

	if err := manager.validateConfig(); err != nil {
		return nil, fmt.Errorf("TLS configuration validation failed: %w", err)
	}
	if !config.EnableTLS {
		return manager, nil
	}

	var err error
	if config.EnableLetsEncrypt {
		err = manager.initializeLetsEncrypt()
	} else {
		err = manager.initializeManualTLS()
	}
	if err != nil {
		return nil, fmt.Errorf("TLS initialization failed: %w", err)
	}
	return manager, nil
}

// validateConfig validates the TLS configuration
func (tm *TLSManager) validateConfig() error {
	if !tm.config.EnableTLS {
		return nil
	}
	if tm.config.HTTPSPort == "" {
		return fmt.Errorf("https_port is required when TLS is enabled")
	}
	if tm.config.EnableLetsEncrypt {
		if strings.TrimSpace(tm.config.Domain) == "" {
			return fmt.Errorf("domain is required when Let's Encrypt is enabled")
		}
		if strings.TrimSpace(tm.config.LetsEncryptEmail) == "" {
			return fmt.Errorf("letsencrypt_email is required when Let's Encrypt is enabled")
		}
	}
	return nil
}

// initializeLetsEncrypt sets up Let's Encrypt automatic certificate management
func (tm *TLSManager) initializeLetsEncrypt() error {
	logger.Info(logger.AreaTLS, "Initializing Let's Encrypt for domain: %s", tm.config.Domain)

	if err := os.MkdirAll(tm.config.CertCacheDir, 0700); err != nil {
		return fmt.Errorf("failed to create certificate cache directory: %w", err)
	}

	tm.autocertMgr = &autocert.Manager{
		Cache:      autocert.DirCache(tm.config.CertCacheDir),
		Prompt:     autocert.AcceptTOS,
		Email:      tm.config.LetsEncryptEmail,
		HostPolicy: autocert.HostWhitelist(tm.config.Domain, "www."+tm.config.Domain),
	}
	tm.tlsConfig = tm.autocertMgr.TLSConfig()
	tm.tlsConfig.MinVersion = tls.VersionTLS12
	return nil
}

// initializeManualTLS loads the configured certificate pair. The pair is
// read again when the certificate file changes, so renewed certificates
// take effect without a restart.
func (tm *TLSManager) initializeManualTLS() error {
	logger.Info(logger.AreaTLS, "Initializing manual TLS with cert: %s, key: %s", tm.config.CertFile, tm.config.KeyFile)

	reloader, err := newCertReloader(tm.config.CertFile, tm.config.KeyFile)
	if err != nil {
		return err
	}
	tm.tlsConfig = &tls.Config{
		GetCertificate: reloader.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
	return nil
}

type certReloader struct {
	certFile, keyFile string

	mu      sync.Mutex
	cert    *tls.Certificate
	modTime time.Time
}

func newCertReloader(certFile, keyFile string) (*certReloader, error) {
	r := &certReloader{certFile: certFile, keyFile: keyFile}
	st, err := os.Stat(certFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate pair: %w", err)
	}
	if err := r.load(st.ModTime()); err != nil {
		return nil, err
	}
	return r, nil
}

// load liest das Paar neu; der Aufrufer hält r.mu oder ist der Konstruktor
func (r *certReloader) load(modTime time.Time) error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate pair: %w", err)
	}
	r.cert = &cert
	r.modTime = modTime
	return nil
}

// GetCertificate serves the current pair. A pair that fails to reload
// keeps the previous one in service.
func (r *certReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, err := os.Stat(r.certFile); err == nil && st.ModTime().After(r.modTime) {
		if err := r.load(st.ModTime()); err != nil {
			logger.Warn(logger.AreaTLS, "Keeping previous certificate: %v", err)
		} else {
			logger.Info(logger.AreaTLS, "Reloaded certificate %s", r.certFile)
		}
	}
	return r.cert, nil
}

// IsEnabled returns true if TLS is enabled
func (tm *TLSManager) IsEnabled() bool {
	return tm.config.EnableTLS
}

// TLSConfig returns the server TLS configuration, nil when TLS is off.
func (tm *TLSManager) TLSConfig() *tls.Config {
	if !tm.config.EnableTLS {
		return nil
	}
	return tm.tlsConfig
}

// HTTPSAddr and HTTPAddr are the listen addresses.
func (tm *TLSManager) HTTPSAddr() string { return ":" + tm.config.HTTPSPort }
func (tm *TLSManager) HTTPAddr() string  { return ":" + tm.config.HTTPPort }

// NeedsHTTPServer returns true if a plain HTTP listener is needed next to
// HTTPS, for ACME challenges or redirects.
func (tm *TLSManager) NeedsHTTPServer() bool {
	return tm.config.EnableTLS && (tm.config.EnableLetsEncrypt || tm.config.ForceHTTPSRedirect)
}

// HTTPHandler returns the handler for the plain HTTP listener in TLS mode.
// ACME challenges are answered first; everything else is redirected to
// HTTPS when configured, otherwise passed to fallback.
func (tm *TLSManager) HTTPHandler(fallback http.Handler) http.Handler {
	next := fallback
	if tm.config.ForceHTTPSRedirect {
		next = http.HandlerFunc(tm.redirectToHTTPS)
	}
	if tm.autocertMgr != nil {
		return tm.autocertMgr.HTTPHandler(next)
	}
	return next
}

func (tm *TLSManager) redirectToHTTPS(w http.ResponseWriter, r *http.Request) {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	httpsURL := "https://" + host
	if tm.config.HTTPSPort != "443" {
		httpsURL += ":" + tm.config.HTTPSPort
	}
	httpsURL += r.URL.RequestURI()

	logger.Debug(logger.AreaTLS, "Redirecting HTTP to HTTPS: %s -> %s", r.URL.String(), httpsURL)
	http.Redirect(w, r, httpsURL, http.StatusMovedPermanently)
}
