package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dmorgan81/imagegen/internal/errs"
	"github.com/go-logr/logr"
	"github.com/samber/do"
	"github.com/samber/lo"
)

const maxNameAttempts = 1000

var link = os.Link

type SaveParams struct {
	Data      []byte
	MediaType string
}

type OutputFile struct {
	Path      string
	Size      int
	MediaType string
}

type Store interface {
	Save(context.Context, SaveParams) (OutputFile, error)
}

// FileStore writes each payload into Dir under a timestamped name. Existing
// files are never replaced.
type FileStore struct {
	Dir    string
	Prefix string
	Now    func() time.Time
}

func NewFileStore(i *do.Injector) (Store, error) {
	return &FileStore{
		Dir:    do.MustInvokeNamed[string](i, "output_dir"),
		Prefix: "image",
		Now:    time.Now,
	}, nil
}

func (s *FileStore) Save(ctx context.Context, params SaveParams) (OutputFile, error) {
	ext, mediaType := Extension(params.MediaType, params.Data)
	log := logr.FromContextOrDiscard(ctx).WithName("file").WithValues("dir", s.Dir, "media_type", mediaType)

	if err := ctx.Err(); err != nil {
		return OutputFile{}, errs.Wrap(errs.KindFileWrite, err, "write image")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return OutputFile{}, errs.Wrap(errs.KindFileWrite, err, "create output directory")
	}

	tmp, err := s.writeTemp(params.Data)
	if tmp != "" {
		defer os.Remove(tmp)
	}
	if err != nil {
		return OutputFile{}, err
	}

	base := s.Prefix + "-" + s.Now().Format("20060102-150405")
	publish, linking := link, true
	for n := 0; n < maxNameAttempts; n++ {
		path := filepath.Join(s.Dir, base+lo.Ternary(n == 0, "", fmt.Sprintf("-%d", n))+ext)
		// Both link and copyExclusive fail if path exists, so publishing
		// cannot replace a file created between attempts.
		err := publish(tmp, path)
		if err != nil && !errors.Is(err, fs.ErrExist) && linking {
			log.Info("hard link failed, copying instead", "error", err.Error())
			publish, linking = copyExclusive, false
			err = publish(tmp, path)
		}
		if errors.Is(err, fs.ErrExist) {
			log.V(1).Info("name taken", "path", path)
			continue
		}
		if err != nil {
			return OutputFile{}, errs.Wrap(errs.KindFileWrite, err, "publish image")
		}
		log.Info("wrote image", "path", path, "bytes", len(params.Data))
		return OutputFile{Path: path, Size: len(params.Data), MediaType: mediaType}, nil
	}
	return OutputFile{}, errs.New(errs.KindFileWrite, "no free file name for %s%s in %s", base, ext, s.Dir)
}

// copyExclusive creates dst with O_EXCL and fills it from src. A partially
// written dst is removed.
func copyExclusive(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// writeTemp returns the temp file name whenever one was created, even on
// error, so the caller can remove it.
func (s *FileStore) writeTemp(data []byte) (string, error) {
	f, err := os.CreateTemp(s.Dir, ".imagegen-*.tmp")
	if err != nil {
		return "", errs.Wrap(errs.KindFileWrite, err, "create temp file")
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		return name, errs.Wrap(errs.KindFileWrite, err, "write temp file")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return name, errs.Wrap(errs.KindFileWrite, err, "sync temp file")
	}
	if err := f.Close(); err != nil {
		return name, errs.Wrap(errs.KindFileWrite, err, "close temp file")
	}
	if err := os.Chmod(name, 0o644); err != nil {
		return name, errs.Wrap(errs.KindFileWrite, err, "chmod temp file")
	}
	return name, nil
}
