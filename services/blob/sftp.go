package blobsvc

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/Ing-la/future-navigator/core"
)

const sftpDialTimeout = 20 * time.Second

var (
	errSFTPNotConfigured = errors.New("sftp: missing host, user or password")
	errSFTPHostKey       = errors.New("sftp: host key verification is not set up, enable insecureIgnoreHostKey")
)

// SFTPStore uploads into RemoteDir on an SSH server whose files are served at PublicBaseURL.
type SFTPStore struct {
	conf core.SFTPConfig
}

var _ core.BlobStore = (*SFTPStore)(nil)

func NewSFTPStore(conf core.SFTPConfig) *SFTPStore {
	if conf.Port <= 0 {
		conf.Port = 22
	}
	if conf.RemoteDir == "" {
		conf.RemoteDir = "/"
	}
	conf.PublicBaseURL = strings.TrimRight(conf.PublicBaseURL, "/")
	return &SFTPStore{conf: conf}
}

// withClient dials a fresh SSH connection for fn, honouring ctx while dialing.
func (s *SFTPStore) withClient(ctx context.Context, fn func(cli *sftp.Client) error) error {
	if s.conf.Host == "" || s.conf.User == "" || s.conf.Password == "" {
		return errSFTPNotConfigured
	}
	if !s.conf.InsecureIgnoreHostKey {
		return errSFTPHostKey
	}

	sshConf := &ssh.ClientConfig{
		User:            s.conf.User,
		Auth:            []ssh.AuthMethod{ssh.Password(s.conf.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         sftpDialTimeout,
	}
	addr := net.JoinHostPort(s.conf.Host, strconv.Itoa(s.conf.Port))

	type dialRes struct {
		client *ssh.Client
		err    error
	}
	ch := make(chan dialRes, 1)
	go func() {
		c, err := ssh.Dial("tcp", addr, sshConf)
		ch <- dialRes{client: c, err: err}
	}()

	var sshClient *ssh.Client
	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.client != nil {
				_ = r.client.Close()
			}
		}()
		return errors.Wrap(ctx.Err(), "sftp: dial canceled")
	case r := <-ch:
		if r.err != nil {
			return errors.Wrap(r.err, "sftp: dial")
		}
		sshClient = r.client
	}
	defer func() { _ = sshClient.Close() }()

	cli, err := sftp.NewClient(sshClient)
	if err != nil {
		return errors.Wrap(err, "sftp: new client")
	}
	defer func() { _ = cli.Close() }()
	return fn(cli)
}

func (s *SFTPStore) publicURL(pathname string) string {
	return s.conf.PublicBaseURL + "/" + pathname
}

func (s *SFTPStore) Put(ctx context.Context, pathname string, body io.Reader, contentType string) (core.BlobObject, error) {
	pathname = withRandomSuffix(strings.TrimPrefix(path.Clean("/"+pathname), "/"))
	remotePath := path.Join(s.conf.RemoteDir, pathname)

	var size int64
	err := s.withClient(ctx, func(cli *sftp.Client) error {
		if err := cli.MkdirAll(path.Dir(remotePath)); err != nil {
			return errors.Wrapf(err, "sftp: mkdir %s", path.Dir(remotePath))
		}
		dst, err := cli.Create(remotePath)
		if err != nil {
			return errors.Wrap(err, "sftp: create remote file")
		}
		defer func() { _ = dst.Close() }()

		if size, err = io.Copy(dst, body); err != nil {
			return errors.Wrap(err, "sftp: upload copy")
		}
		return nil
	})
	if err != nil {
		return core.BlobObject{}, err
	}
	return core.BlobObject{
		URL:         s.publicURL(pathname),
		Pathname:    pathname,
		ContentType: contentType,
		Size:        size,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

func (s *SFTPStore) List(ctx context.Context, prefix string) ([]core.BlobObject, error) {
	objs := make([]core.BlobObject, 0)
	err := s.withClient(ctx, func(cli *sftp.Client) error {
		walker := cli.Walk(s.conf.RemoteDir)
		for walker.Step() {
			if err := walker.Err(); err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return errors.Wrap(err, "sftp: walk")
			}
			info := walker.Stat()
			if info.IsDir() {
				continue
			}
			pathname := strings.TrimPrefix(strings.TrimPrefix(walker.Path(), s.conf.RemoteDir), "/")
			if !strings.HasPrefix(pathname, prefix) {
				continue
			}
			objs = append(objs, core.BlobObject{
				URL:        s.publicURL(pathname),
				Pathname:   pathname,
				Size:       info.Size(),
				UploadedAt: info.ModTime().UTC(),
			})
		}
		return nil
	})
	return objs, err
}

// Delete ignores urls outside PublicBaseURL and files already gone.
func (s *SFTPStore) Delete(ctx context.Context, urls ...string) error {
	var paths []string
	for _, u := range urls {
		if pathname := strings.TrimPrefix(u, s.conf.PublicBaseURL+"/"); pathname != u {
			paths = append(paths, path.Join(s.conf.RemoteDir, path.Clean("/"+pathname)))
		}
	}
	if len(paths) == 0 {
		return nil
	}
	return s.withClient(ctx, func(cli *sftp.Client) error {
		for _, p := range paths {
			if err := cli.Remove(p); err != nil && !os.IsNotExist(err) {
				return errors.Wrapf(err, "sftp: remove %s", p)
			}
		}
		return nil
	})
}

func (s *SFTPStore) String() string {
	return fmt.Sprintf("sftp blob (%s@%s:%d%s)", s.conf.User, s.conf.Host, s.conf.Port, s.conf.RemoteDir)
}
