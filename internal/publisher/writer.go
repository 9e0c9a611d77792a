package publisher

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// WritePNG encodes img to path. The image goes to a temporary file in the
// same directory which is synced and renamed over path, so readers see either
// the previous image or the complete new one.
func WritePNG(ctx context.Context, path string, img image.Image) error {
	logger := log.FromContext(ctx).WithName("publisher")

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "failed to create temporary file in %s", dir)
	}
	// no-op once the rename succeeded
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to encode png")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to sync image")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close image")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrap(err, "failed to set image permissions")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "failed to move image to %s", path)
	}

	logger.Info("Wrote image", "path", path, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return nil
}

// LinkLatest points link at target, replacing any previous link atomically
func LinkLatest(ctx context.Context, link, target string) error {
	logger := log.FromContext(ctx).WithName("publisher")

	abs, err := filepath.Abs(target)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve %s", target)
	}
	tmp := link + ".tmp"
	_ = os.Remove(tmp)
	if err := os.Symlink(abs, tmp); err != nil {
		return errors.Wrapf(err, "failed to create link %s", tmp)
	}
	if err := os.Rename(tmp, link); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "failed to move link to %s", link)
	}

	logger.V(1).Info("Updated latest link", "link", link, "target", abs)
	return nil
}
