package file_association

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"lego-filestore/internal/domain/stored_file"
)

var (
	ErrInvalidOwner        = errors.New("invalid owner reference")
	ErrAssociationNotFound = errors.New("association not found")
	ErrOrderMismatch       = errors.New("association ids do not match the owner's associations")
	ErrInvalidFileID       = errors.New("file id must be positive")

	ownerKindRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.\-]{0,63}$`)
)

type (
	ID int64

	// OwnerRef identifies the entity files are attached to: a kind tag plus the
	// id inside that kind's own table.
	OwnerRef struct {
		Kind string
		ID   int64
	}

	FileAssociation struct {
		ID           ID
		Owner        OwnerRef
		FileID       stored_file.ID
		DisplayOrder int
		IsPrimary    bool

		CreatedAt time.Time
	}
	FileAssociations []*FileAssociation

	// Attachment is an association with its file resolved. File is nil when the
	// referenced StoredFile no longer exists.
	Attachment struct {
		Association *FileAssociation
		File        *stored_file.StoredFile
	}
	Attachments []*Attachment

	AssociateOptions struct {
		IsPrimary bool
	}
)

func NewOwnerRef(kind string, id int64) (OwnerRef, error) {
	o := OwnerRef{Kind: kind, ID: id}
	if err := o.Validate(); err != nil {
		return OwnerRef{}, err
	}
	return o, nil
}

func (o OwnerRef) Validate() error {
	if !ownerKindRe.MatchString(o.Kind) {
		return fmt.Errorf("%w: kind %q", ErrInvalidOwner, o.Kind)
	}
	if o.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidOwner, o.ID)
	}
	return nil
}

func (o OwnerRef) String() string { return fmt.Sprintf("%s#%d", o.Kind, o.ID) }

// Primary returns the first association flagged primary, if any.
func (fa FileAssociations) Primary() *FileAssociation {
	for _, a := range fa {
		if a.IsPrimary {
			return a
		}
	}
	return nil
}

func (fa FileAssociations) Find(id ID) *FileAssociation {
	for _, a := range fa {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// NextOrder is one past the highest display order, or 0 for an empty set.
func (fa FileAssociations) NextOrder() int {
	if len(fa) == 0 {
		return 0
	}
	top := fa[0].DisplayOrder
	for _, a := range fa[1:] {
		if a.DisplayOrder > top {
			top = a.DisplayOrder
		}
	}
	return top + 1
}

// Successor picks which sibling inherits the primary flag when removed is
// deleted: the lowest display order above it, else the highest below it.
func (fa FileAssociations) Successor(removed *FileAssociation) *FileAssociation {
	var next, prev *FileAssociation
	for _, a := range fa {
		if a.ID == removed.ID {
			continue
		}
		switch {
		case a.DisplayOrder > removed.DisplayOrder ||
			(a.DisplayOrder == removed.DisplayOrder && a.ID > removed.ID):
			if next == nil || before(a, next) {
				next = a
			}
		default:
			if prev == nil || before(prev, a) {
				prev = a
			}
		}
	}
	if next != nil {
		return next
	}
	return prev
}

// before orders by display order, then by id (insertion order).
func before(a, b *FileAssociation) bool {
	if a.DisplayOrder != b.DisplayOrder {
		return a.DisplayOrder < b.DisplayOrder
	}
	return a.ID < b.ID
}

// Compare is a slices.SortFunc comparator for presentation order.
func Compare(a, b *FileAssociation) int {
	switch {
	case before(a, b):
		return -1
	case before(b, a):
		return 1
	default:
		return 0
	}
}
