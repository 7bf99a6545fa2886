package domain

// DocumentIDLength is the fixed length of every document identifier.
const DocumentIDLength = 32

// NoVersion is the latest-pointer value of a document with no committed
// records. It doubles as the wire baseline meaning "initial load".
const NoVersion int64 = -1

// DocumentID is a 32-char lowercase alphanumeric capability token.
// Knowing an edit id grants write access; a read-only id grants reads only.
type DocumentID string

// ParseDocumentID validates s and returns it as a DocumentID.
// It is the sole guard before any storage address is derived from an id.
func ParseDocumentID(s string) (DocumentID, error) {
	if len(s) != DocumentIDLength {
		return "", ErrInvalidDocumentID.WithDetails("length must be 32")
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return "", ErrInvalidDocumentID.WithDetails("must be lowercase alphanumeric")
		}
	}
	return DocumentID(s), nil
}

// String implements fmt.Stringer.
func (id DocumentID) String() string {
	return string(id)
}

// Shards splits a valid id into its three storage levels:
// the first two characters, the next two, and the remainder.
func (id DocumentID) Shards() (string, string, string) {
	s := string(id)
	return s[:2], s[2:4], s[4:]
}
