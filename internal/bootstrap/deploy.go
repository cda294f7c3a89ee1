package bootstrap

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/webctl/internal/remote"
)

// DefaultDocumentRoot is Apache's document root on Amazon Linux.
const DefaultDocumentRoot = "/var/www/html"

var ErrDeployStep = fmt.Errorf("deploy step exited non-zero")

// Deploy copies the local file 'localPath' into the web server's document
// root on the remote host. The file is staged in the remote home directory
// first, since only root can write the document root.
func Deploy(ctx context.Context, runner remote.Runner, localPath, docRoot string) (string, error) {
	log := clog.FromContext(ctx)
	if docRoot == "" {
		docRoot = DefaultDocumentRoot
	}
	name := filepath.Base(localPath)
	dest := path.Join(docRoot, name)
	if err := runner.Copy(ctx, localPath, name); err != nil {
		return "", err
	}
	for _, cmd := range []remote.Command{
		{"sudo", "mv", name, dest},
		{"sudo", "chmod", "0644", dest},
	} {
		res, err := runner.Run(ctx, cmd)
		if err != nil {
			return "", err
		}
		if !res.OK() {
			return "", fmt.Errorf("%w: %s: status %d: %s", ErrDeployStep, cmd, res.ExitStatus, res.Stderr)
		}
	}
	log.Info("deployed web content", "local", localPath, "remote", dest)
	return dest, nil
}
