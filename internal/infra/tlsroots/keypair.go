package tlsroots

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long KeyPair waits after the last file event
// before reloading. Certificate rotation usually writes both files.
const DefaultSettle = 250 * time.Millisecond

// KeyPair holds the server certificate and swaps it when the cert or key
// file changes. A failed reload keeps serving the previous certificate.
type KeyPair struct {
	certFile string
	keyFile  string
	settle   time.Duration
	logger   *slog.Logger

	mu   sync.RWMutex
	cert *tls.Certificate
}

// KeyPairOption configures a KeyPair.
type KeyPairOption func(*KeyPair)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) KeyPairOption {
	return func(k *KeyPair) {
		if logger != nil {
			k.logger = logger
		}
	}
}

// WithSettle sets the quiet period before a reload.
func WithSettle(d time.Duration) KeyPairOption {
	return func(k *KeyPair) {
		k.settle = d
	}
}

// LoadKeyPair loads certFile and keyFile.
func LoadKeyPair(certFile, keyFile string, opts ...KeyPairOption) (*KeyPair, error) {
	k := &KeyPair{
		certFile: certFile,
		keyFile:  keyFile,
		settle:   DefaultSettle,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	if err := k.Reload(); err != nil {
		return nil, err
	}
	return k, nil
}

// Reload reads both files again.
func (k *KeyPair) Reload() error {
	cert, err := tls.LoadX509KeyPair(k.certFile, k.keyFile)
	if err != nil {
		return fmt.Errorf("tlsroots: load key pair: %w", err)
	}
	k.mu.Lock()
	k.cert = &cert
	k.mu.Unlock()
	return nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (k *KeyPair) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.cert, nil
}

// ServerConfig returns a server TLS config backed by k.
func (k *KeyPair) ServerConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: k.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}

// Run watches the directories holding the cert and key and reloads after
// changes settle. Watching directories catches editors and tools that
// replace files by rename. Run blocks until ctx is done.
func (k *KeyPair) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	defer w.Close()

	dirs := map[string]struct{}{
		filepath.Dir(k.certFile): {},
		filepath.Dir(k.keyFile):  {},
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}

	names := map[string]struct{}{
		filepath.Base(k.certFile): {},
		filepath.Base(k.keyFile):  {},
	}

	k.logger.Info("certificate watcher started", "cert_file", k.certFile, "key_file", k.keyFile)

	// Armed only by file events.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if _, ours := names[filepath.Base(event.Name)]; !ours {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			k.logger.Debug("certificate file changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(k.settle)

		case <-timer.C:
			if err := k.Reload(); err != nil {
				k.logger.Error("certificate reload failed", "error", err, "cert_file", k.certFile)
				continue
			}
			k.logger.Info("certificate reloaded", "cert_file", k.certFile)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			k.logger.Error("certificate watcher error", "error", err)
		}
	}
}
