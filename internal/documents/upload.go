package documents

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/concord/pkg/formatting"
)

const pdfType = "application/pdf"

// readUpload loads one multipart file into a CreateCommand. Files larger
// than limit or empty files are rejected before the store is touched.
func readUpload(fh *multipart.FileHeader, limit int64, logger *slog.Logger) (CreateCommand, error) {
	if fh.Size > limit {
		return CreateCommand{}, fmt.Errorf("%w: %s is %s, limit %s",
			ErrFileTooLarge, fh.Filename,
			formatting.FormatBytes(fh.Size, 1), formatting.FormatBytes(limit, 1))
	}

	f, err := fh.Open()
	if err != nil {
		return CreateCommand{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return CreateCommand{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if len(data) == 0 {
		return CreateCommand{}, fmt.Errorf("%w: %s is empty", ErrInvalidFile, fh.Filename)
	}

	cmd := CreateCommand{
		Data:        data,
		Filename:    fh.Filename,
		ContentType: contentType(fh.Header.Get("Content-Type"), data),
	}

	if cmd.ContentType == pdfType {
		if n, err := api.PageCount(bytes.NewReader(data), nil); err == nil {
			cmd.PageCount = &n
		} else {
			logger.Warn("pdf page count unavailable", "filename", fh.Filename, "error", err)
		}
	}

	return cmd, nil
}

// contentType trusts the part header unless it is missing or generic, and
// sniffs the bytes otherwise. Media type parameters are dropped.
func contentType(header string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "application/octet-stream" {
		return mt
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}
