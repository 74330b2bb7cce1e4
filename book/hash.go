package book

import (
	"github.com/google/uuid"
)

// partSpace is the name-based UUID namespace of package part contents.
var partSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(relTypeWorksheet))

// Fingerprint returns a name-based (version 5) UUID of blob. Equal parts have
// equal fingerprints; Book uses them to detect an unchanged worksheet.
func Fingerprint(blob []byte) uuid.UUID {
	return uuid.NewSHA1(partSpace, blob)
}
