package usecase

import (
	"io"

	"github.com/3-lines-studio/assetrev/internal/adapters/fs"
	"github.com/3-lines-studio/assetrev/internal/core"
)

type Transformer interface {
	Transform(path string, kind core.AssetKind, source []byte) ([]byte, error)
}

type TransformCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

type CLIOutput interface {
	Green(text string) string
	Yellow(text string) string
	Red(text string) string
	Gray(text string) string
	Writer() io.Writer
	ErrWriter() io.Writer
	PrintHeader(msg string)
	PrintStep(msg string, args ...any)
	PrintSuccess(msg string, args ...any)
	PrintWarning(msg string, args ...any)
	PrintError(msg string, args ...any)
	PrintFile(path string)
	PrintDone(msg string)
}

type FileSystem = fs.FileSystem

type fileCopier interface {
	CopyFile(src, dst string) error
}
