package parsers

import (
	"io"

	"github.com/username/folioimport/src/models"
)

// Parser materializes one uploaded holdings file into a Batch of rows.
type Parser interface {
	Parse(file io.Reader) (*models.Batch, error)
}
