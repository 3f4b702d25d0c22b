package share

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"vidshrink/internal/config"
	"vidshrink/internal/logging"
)

// SFTP uploads files to a remote directory over SSH.
type SFTP struct {
	cfg    config.ShareSFTP
	logger *slog.Logger
}

// NewSFTP validates cfg and returns an SFTP backend.
func NewSFTP(cfg config.ShareSFTP, logger *slog.Logger) (*SFTP, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.RemoteDir == "" {
		return nil, errors.New("share sftp: host, user, and remote_dir are required")
	}
	if cfg.Password == "" && cfg.PrivateKeyFile == "" {
		return nil, errors.New("share sftp: set password or private_key_file")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	return &SFTP{cfg: cfg, logger: logging.NewComponentLogger(logger, "share-sftp")}, nil
}

func (s *SFTP) Name() string { return "sftp" }

func (s *SFTP) clientConfig() (*ssh.ClientConfig, error) {
	var auths []ssh.AuthMethod
	if s.cfg.PrivateKeyFile != "" {
		keyBytes, err := os.ReadFile(s.cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}
	if s.cfg.Password != "" {
		auths = append(auths, ssh.Password(s.cfg.Password))
	}

	hostKeys := ssh.InsecureIgnoreHostKey()
	if s.cfg.KnownHostsFile != "" {
		callback, err := knownhosts.New(s.cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		hostKeys = callback
	} else {
		logging.WarnWithContext(s.logger, "sftp host key not verified", "sftp_insecure_host_key",
			logging.String("host", s.cfg.Host),
			logging.String(logging.FieldImpact, "uploads are exposed to host impersonation"),
			logging.String(logging.FieldErrorHint, "set share.sftp.known_hosts_file"),
		)
	}

	return &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            auths,
		HostKeyCallback: hostKeys,
		Timeout:         10 * time.Second,
	}, nil
}

// Share uploads each file into the remote directory.
func (s *SFTP) Share(ctx context.Context, files []File) ([]Link, error) {
	clientConfig, err := s.clientConfig()
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	sshClient := ssh.NewClient(clientConn, chans, reqs)
	defer sshClient.Close()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return nil, fmt.Errorf("create sftp client: %w", err)
	}
	defer client.Close()

	if err := mkdirAll(client, s.cfg.RemoteDir); err != nil {
		return nil, fmt.Errorf("ensure remote dir %s: %w", s.cfg.RemoteDir, err)
	}

	links := make([]Link, 0, len(files))
	for _, file := range files {
		remote := path.Join(s.cfg.RemoteDir, file.Name)
		if err := upload(client, file.Path, remote); err != nil {
			return links, err
		}
		links = append(links, Link{Paths: []string{file.Path}, URL: s.linkFor(remote)})
	}
	return links, nil
}

func (s *SFTP) linkFor(remote string) string {
	if base := strings.TrimSpace(s.cfg.PublicBaseURL); base != "" {
		return strings.TrimRight(base, "/") + "/" + url.PathEscape(path.Base(remote))
	}
	u := url.URL{
		Scheme: "sftp",
		User:   url.User(s.cfg.User),
		Host:   net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)),
		Path:   remote,
	}
	return u.String()
}

func upload(client *sftp.Client, local, remote string) error {
	in, err := os.Open(local)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := client.Create(remote)
	if err != nil {
		return fmt.Errorf("create remote file %s: %w", remote, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy to remote file %s: %w", remote, err)
	}
	return out.Close()
}

// mkdirAll creates each missing segment of dir on the server.
func mkdirAll(client *sftp.Client, dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}
	cur := ""
	if strings.HasPrefix(dir, "/") {
		cur = "/"
	}
	for _, part := range strings.Split(dir, "/") {
		if part == "" {
			continue
		}
		cur = path.Join(cur, part)
		if _, err := client.Stat(cur); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("stat %s: %w", cur, err)
			}
			if err := client.Mkdir(cur); err != nil {
				return fmt.Errorf("mkdir %s: %w", cur, err)
			}
		}
	}
	return nil
}

var _ Backend = (*SFTP)(nil)
