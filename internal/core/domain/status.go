package domain

// StatusRecord links the two ids of a document. It is written once at
// creation and never changed.
//
// For an edit id: IsReadOnly=false, ReadOnlyID=<mirror>, EditID empty.
// For a read-only id: IsReadOnly=true, ReadOnlyID empty, EditID=<owner>.
type StatusRecord struct {
	IsReadOnly bool       `json:"isReadOnly"`
	ReadOnlyID DocumentID `json:"readOnlyId"`
	EditID     DocumentID `json:"editId,omitempty"`
}

// VersionSource returns the id whose version records back this status:
// the edit id itself, or the paired edit id for a read-only mirror.
func (s *StatusRecord) VersionSource(self DocumentID) DocumentID {
	if s.IsReadOnly {
		return s.EditID
	}
	return self
}

// DocumentPair is a freshly created document.
type DocumentPair struct {
	EditID     DocumentID `json:"id"`
	ReadOnlyID DocumentID `json:"readOnlyId"`
}
