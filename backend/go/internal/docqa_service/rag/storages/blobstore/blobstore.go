package blobstore

import (
	"path/filepath"
	"strings"

	"DocQA/backend/go/internal/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// SingleSlot is the slot name used when only one document may be stored.
const SingleSlot = "current"

// slotFor returns the slot new uploads are written to; empty means every upload gets its own row.
func slotFor(mode string) string {
	if mode == config.DocumentModeMulti {
		return ""
	}
	return SingleSlot
}

// ObjectKey builds a unique object name that keeps the original file name readable.
func ObjectKey(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r < 0x20:
			return '_'
		default:
			return r
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		base = "document"
	}
	return "documents/" + uuid.NewString() + "/" + base
}

// ContentType sniffs the stored bytes.
func ContentType(raw []byte) string {
	return mimetype.Detect(raw).String()
}
