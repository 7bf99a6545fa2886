package storage

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
)

// Resource names inside a document directory.
const (
	StatusFile = "status.json"
	LatestFile = "latest.json"

	versionSuffix = ".json"
	leasePrefix   = "temp-"
	writePattern  = ".write-*"
)

// ValidateID rejects anything that is not a 32-char lowercase alphanumeric
// id. It runs before any path is derived from user input.
func ValidateID(id string) error {
	_, err := domain.ParseDocumentID(id)
	return err
}

// Resolver maps document ids to their sharded directory under Root.
type Resolver struct {
	Root string
}

// NewResolver creates a resolver rooted at root.
func NewResolver(root string) *Resolver {
	return &Resolver{Root: filepath.Clean(root)}
}

// Dir returns <root>/<id[0:2]>/<id[2:4]>/<id[4:]>.
func (r *Resolver) Dir(id string) (string, error) {
	docID, err := domain.ParseDocumentID(id)
	if err != nil {
		return "", err
	}
	a, b, rest := docID.Shards()
	return filepath.Join(r.Root, a, b, rest), nil
}

// Path returns the path of a named resource of id.
func (r *Resolver) Path(id, name string) (string, error) {
	dir, err := r.Dir(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// VersionFile returns the name of committed version n.
func VersionFile(n int64) string {
	return strconv.FormatInt(n, 10) + versionSuffix
}

// LeaseFile returns the name of the in-progress lease for slot n.
func LeaseFile(n int64) string {
	return leasePrefix + strconv.FormatInt(n, 10) + versionSuffix
}

// StagedFile returns the name of the record bytes staged by writer for slot n.
func StagedFile(n int64, writer string) string {
	return leasePrefix + strconv.FormatInt(n, 10) + "-" + writer + versionSuffix
}

// ParseVersionFile extracts n from a committed version file name.
// Only names matching ^[0-9]+\.json$ qualify; leases, staged records and
// pending writes never do.
func ParseVersionFile(name string) (int64, bool) {
	digits, ok := strings.CutSuffix(name, versionSuffix)
	if !ok || digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
