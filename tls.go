package main

import (
	"crypto/tls"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// TLSMaterial holds the currently active certificate/key pair for a
// listener and, optionally, watches the pair's files on disk so an
// operator can rotate a certificate without restarting the server.
//
// The atomic.Pointer swap mirrors how viper itself hands a freshly parsed
// config to readers without a lock on the read path; GetCertificate below
// is called once per TLS handshake, so it has to be cheap and lock-free.
type TLSMaterial struct {
	certPath string
	keyPath  string

	current atomic.Pointer[tls.Certificate]

	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}

	logger *logrus.Logger
}

// LoadTLSMaterial loads the certificate/key pair at certPath/keyPath and,
// if watch is true, starts a background fsnotify watch that reloads the
// pair whenever either file changes.
func LoadTLSMaterial(certPath, keyPath string, watch bool, logger *logrus.Logger) (*TLSMaterial, error) {
	m := &TLSMaterial{
		certPath: certPath,
		keyPath:  keyPath,
		logger:   logger,
	}

	if err := m.reload(); err != nil {
		return nil, err
	}

	if watch {
		if err := m.startWatch(); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *TLSMaterial) reload() error {
	cert, err := tls.LoadX509KeyPair(m.certPath, m.keyPath)
	if err != nil {
		return &ConfigError{Reason: "cannot load tls certificate/key: " + err.Error()}
	}
	m.current.Store(&cert)
	return nil
}

// GetCertificate is wired into tls.Config.GetCertificate so every new
// handshake picks up the most recently loaded material.
func (m *TLSMaterial) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return m.current.Load(), nil
}

func (m *TLSMaterial) startWatch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return &ConfigError{Reason: "cannot start tls watcher: " + err.Error()}
	}
	if err := w.Add(m.certPath); err != nil {
		w.Close()
		return &ConfigError{Reason: "cannot watch tls cert: " + err.Error()}
	}
	if err := w.Add(m.keyPath); err != nil {
		w.Close()
		return &ConfigError{Reason: "cannot watch tls key: " + err.Error()}
	}

	m.watcher = w
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.watchLoop()
	return nil
}

// watchLoop reloads the certificate/key pair on any write or create event
// from either watched file. A failed reload is logged and the previous
// material keeps serving; it is never fatal.
func (m *TLSMaterial) watchLoop() {
	defer close(m.done)

	for {
		select {
		case <-m.stop:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := m.reload(); err != nil {
				if m.logger != nil {
					m.logger.WithError(&TLSReloadError{Err: err}).Error("tls hot-reload failed, keeping previous certificate")
				}
				continue
			}
			if m.logger != nil {
				m.logger.Info("tls certificate reloaded")
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			if m.logger != nil {
				m.logger.WithError(err).Warn("tls watcher error")
			}
		}
	}
}

// Close stops the background watch, if any. Safe to call on material that
// was never watching.
func (m *TLSMaterial) Close() {
	if m.watcher == nil {
		return
	}
	close(m.stop)
	<-m.done
	m.watcher.Close()
}
