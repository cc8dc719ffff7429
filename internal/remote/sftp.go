package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTPConfig holds the connection settings for an SFTP session.
type SFTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	// HostKeyCallback defaults to ssh.InsecureIgnoreHostKey, matching the
	// auto-accept policy of unattended pickup jobs. Supply a callback for
	// pinned host keys.
	HostKeyCallback ssh.HostKeyCallback
}

// SFTPStore is a Store over one SFTP session.
type SFTPStore struct {
	conn   *ssh.Client
	client *sftp.Client
}

// DialSFTP opens an SSH connection and an SFTP subsystem session on it.
// Authentication failures come back as *AuthError and connection failures
// as *TransportError; both are fatal to a run and not retried.
func DialSFTP(cfg SFTPConfig) (*SFTPStore, error) {
	hostKey := cfg.HostKeyCallback
	if hostKey == nil {
		hostKey = ssh.InsecureIgnoreHostKey() //nolint:gosec
	}
	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: hostKey,
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", port))

	conn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		if isAuthFailure(err) {
			return nil, &AuthError{Host: cfg.Host, Err: err}
		}
		return nil, &TransportError{Host: cfg.Host, Err: err}
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, &TransportError{Host: cfg.Host, Err: err}
	}

	return &SFTPStore{conn: conn, client: client}, nil
}

func isAuthFailure(err error) bool {
	var sshErr *ssh.ServerAuthError
	if errors.As(err, &sshErr) {
		return true
	}
	// x/crypto wraps the auth error in a generic handshake failure.
	return err != nil && strings.Contains(err.Error(), "unable to authenticate")
}

// List returns the entries of one remote directory.
func (s *SFTPStore) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := s.client.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, Entry{
			Name:    fi.Name(),
			IsDir:   fi.IsDir(),
			RawMode: fi.Mode(),
			Size:    fi.Size(),
		})
	}
	return entries, nil
}

// Fetch downloads remotePath into localPath via a temporary file in the
// same directory, renamed into place only after the copy completed.
func (s *SFTPStore) Fetch(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := s.client.Open(remotePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", remotePath, err)
	}
	defer src.Close()

	tmp := localPath + ".partial"
	dst, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("download %s: %w", remotePath, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, localPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(localPath), err)
	}
	return nil
}

// Delete removes a remote file.
func (s *SFTPStore) Delete(ctx context.Context, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Remove(remotePath); err != nil {
		return fmt.Errorf("delete %s: %w", path.Base(remotePath), err)
	}
	return nil
}

// Concurrent is false: one SFTP session multiplexes a single SSH channel
// set and is shared by all workers, so operations are serialized by Locked.
func (s *SFTPStore) Concurrent() bool { return false }

// Close tears down the SFTP session and the SSH connection.
func (s *SFTPStore) Close() error {
	cerr := s.client.Close()
	if err := s.conn.Close(); err != nil {
		return err
	}
	return cerr
}

var _ Store = (*SFTPStore)(nil)
